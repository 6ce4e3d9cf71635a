package services

import (
	"context"
	"sort"

	"github.com/saeedj2446/barton-back-sub003/internal/domain"
	"github.com/saeedj2446/barton-back-sub003/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CartLine is one requested purchase line as submitted by the buyer.
type CartLine struct {
	ProductID uint64
	Quantity  int64
	UnitPrice int64
}

// ResolvedLine is a cart line joined with its catalog row.
type ResolvedLine struct {
	Product   domain.Product
	Quantity  int64
	UnitPrice int64
}

// SellerGroup collects the lines owned by one seller within a checkout.
type SellerGroup struct {
	SellerID  uint64
	AccountID uint64
	Account   domain.Account
	Lines     []ResolvedLine
}

// SellerResolver maps cart lines to the owning sellers: product -> owning
// account -> owner-role member. A line whose product, account or owner
// cannot be resolved fails the whole resolution with an error naming the
// product; nothing is silently dropped.
type SellerResolver struct {
	store  repository.Store
	logger *zap.Logger
}

func NewSellerResolver(store repository.Store, logger *zap.Logger) *SellerResolver {
	return &SellerResolver{store: store, logger: logger}
}

func (r *SellerResolver) Resolve(ctx context.Context, lines []CartLine) ([]SellerGroup, error) {
	productIDs := make([]uint64, 0, len(lines))
	seen := make(map[uint64]bool, len(lines))
	for _, line := range lines {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			productIDs = append(productIDs, line.ProductID)
		}
	}

	products, err := r.store.Catalog().FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if _, ok := products[line.ProductID]; !ok {
			return nil, domain.NotFoundf("product %d", line.ProductID)
		}
	}

	accountIDs := make([]uint64, 0, len(products))
	seenAccount := make(map[uint64]bool, len(products))
	for _, p := range products {
		if !seenAccount[p.AccountID] {
			seenAccount[p.AccountID] = true
			accountIDs = append(accountIDs, p.AccountID)
		}
	}

	var (
		accounts map[uint64]domain.Account
		owners   map[uint64]uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = r.store.Catalog().FindAccountsByIDs(gctx, accountIDs)
		return err
	})
	g.Go(func() error {
		var err error
		owners, err = r.store.Catalog().FindOwnersByAccountIDs(gctx, accountIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups := make(map[uint64]*SellerGroup)
	for _, line := range lines {
		product := products[line.ProductID]
		account, ok := accounts[product.AccountID]
		if !ok {
			return nil, domain.NotFoundf("account %d owning product %d", product.AccountID, product.ID)
		}
		owner, ok := owners[product.AccountID]
		if !ok {
			r.logger.Warn("account has no owner member",
				zap.Uint64("accountId", product.AccountID),
				zap.Uint64("productId", product.ID))
			return nil, domain.NotFoundf("owner of account %d for product %d", product.AccountID, product.ID)
		}

		group, ok := groups[owner]
		if !ok {
			group = &SellerGroup{SellerID: owner, AccountID: account.ID, Account: account}
			groups[owner] = group
		}
		group.Lines = append(group.Lines, ResolvedLine{
			Product:   product,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	out := make([]SellerGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SellerID < out[j].SellerID })
	return out, nil
}
