package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/saeedj2446/barton-back-sub003/internal/domain"
	rabbit "github.com/saeedj2446/barton-back-sub003/internal/infra/rabbitmq"
	"github.com/saeedj2446/barton-back-sub003/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	orderTaxPercent = 9
	orderExpiry     = 24 * time.Hour
)

// CheckoutResult is the outcome of composing one cart: the umbrella order
// plus one child order per seller.
type CheckoutResult struct {
	Umbrella     *domain.Order
	SellerOrders []*domain.Order
}

// OrderService composes multi-seller carts into consistent order records and
// owns cancellation. All order/stock mutation happens inside one database
// transaction per operation.
type OrderService struct {
	store       repository.Store
	resolver    *SellerResolver
	discounts   DiscountPolicy
	publisher   rabbit.PublisherInterface
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewOrderService(store repository.Store, resolver *SellerResolver, discounts DiscountPolicy, publisher rabbit.PublisherInterface, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:     store,
		resolver:  resolver,
		discounts: discounts,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *OrderService) SetRedisClient(client *redis.Client) {
	s.redisClient = client
}

// CreateOrder validates every cart line, groups lines by seller, computes
// per-seller financials and commits stock decrements plus all orders in one
// transaction. Any precondition failure aborts before the first mutation.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint64, cart []CartLine) (*CheckoutResult, error) {
	if len(cart) == 0 {
		return nil, domain.Validationf("cart is empty")
	}
	for _, line := range cart {
		if line.Quantity <= 0 {
			return nil, domain.Validationf("quantity for product %d must be positive", line.ProductID)
		}
		if line.UnitPrice <= 0 {
			return nil, domain.Validationf("unit price for product %d must be positive", line.ProductID)
		}
	}

	groups, err := s.resolver.Resolve(ctx, cart)
	if err != nil {
		return nil, err
	}

	buyer, err := s.store.Catalog().FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, group := range groups {
		if group.Account.Status != domain.AccountStatusActive {
			return nil, domain.Forbiddenf("seller account %d is not active", group.AccountID)
		}
		for _, line := range group.Lines {
			if err := validateLine(line); err != nil {
				return nil, err
			}
		}
	}

	now := time.Now()
	expires := now.Add(orderExpiry)

	children := make([]*domain.Order, 0, len(groups))
	itemsByGroup := make([][]domain.OrderItem, 0, len(groups))
	var sumTotal, sumTax, sumDiscount, sumNet int64
	for _, group := range groups {
		var total int64
		items := make([]domain.OrderItem, 0, len(group.Lines))
		for _, line := range group.Lines {
			lineTotal := line.Quantity * line.UnitPrice
			total += lineTotal
			items = append(items, domain.OrderItem{
				ItemType:   "product",
				ProductID:  line.Product.ID,
				Title:      line.Product.Title,
				Quantity:   line.Quantity,
				UnitPrice:  line.UnitPrice,
				TotalPrice: lineTotal,
			})
		}
		tax := roundPercent(total, orderTaxPercent)
		discount := s.discounts.Discount(buyer, total)
		net := total + tax - discount

		accountID := group.AccountID
		sellerID := group.SellerID
		expiresAt := expires
		children = append(children, &domain.Order{
			OrderNumber:    domain.NewOrderNumber(),
			Type:           domain.OrderTypePurchase,
			Status:         domain.OrderStatusPending,
			UserID:         userID,
			AccountID:      &accountID,
			SellerID:       &sellerID,
			TotalAmount:    total,
			TaxAmount:      tax,
			DiscountAmount: discount,
			NetAmount:      net,
			ExpiresAt:      &expiresAt,
			Meta:           domain.OrderMeta{Link: domain.OrderLink{IsSplitOrder: true}},
		})
		itemsByGroup = append(itemsByGroup, items)

		sumTotal += total
		sumTax += tax
		sumDiscount += discount
		sumNet += net
	}

	expiresAt := expires
	umbrella := &domain.Order{
		OrderNumber:    domain.NewOrderNumber(),
		Type:           domain.OrderTypeTracking,
		Status:         domain.OrderStatusPending,
		UserID:         userID,
		TotalAmount:    sumTotal,
		TaxAmount:      sumTax,
		DiscountAmount: sumDiscount,
		NetAmount:      sumNet,
		ExpiresAt:      &expiresAt,
		Meta:           domain.OrderMeta{Link: domain.OrderLink{IsMainOrder: true}},
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		for _, line := range cart {
			if err := tx.Catalog().DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		childIDs := make([]uint64, 0, len(children))
		for i, child := range children {
			if err := tx.Orders().Create(ctx, child); err != nil {
				return err
			}
			items := itemsByGroup[i]
			for j := range items {
				items[j].OrderID = child.ID
			}
			if err := tx.Orders().CreateItems(ctx, items); err != nil {
				return err
			}
			childIDs = append(childIDs, child.ID)
		}

		umbrella.Meta.Link.ChildOrderIDs = childIDs
		if err := tx.Orders().Create(ctx, umbrella); err != nil {
			return err
		}

		for _, child := range children {
			child.Meta.Link.ParentOrderID = umbrella.ID
			if err := tx.Orders().UpdateMeta(ctx, child.ID, child.Meta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUserOrders(userID)
	go s.publish(domain.EventOrderCreated, domain.OrderCreatedEvent{
		OrderID:     umbrella.ID,
		OrderNumber: umbrella.OrderNumber,
		UserID:      userID,
		TotalAmount: umbrella.TotalAmount,
		NetAmount:   umbrella.NetAmount,
		ChildOrders: umbrella.Meta.Link.ChildOrderIDs,
		CreatedAt:   now,
	})

	s.logger.Info("order created",
		zap.Uint64("orderId", umbrella.ID),
		zap.Uint64("userId", userID),
		zap.Int("sellers", len(children)),
		zap.Int64("totalAmount", umbrella.TotalAmount))

	return &CheckoutResult{Umbrella: umbrella, SellerOrders: children}, nil
}

func validateLine(line ResolvedLine) error {
	p := line.Product
	if p.Status != domain.ProductStatusConfirmed {
		return domain.Validationf("product %q (%d) is not confirmed for sale", p.Title, p.ID)
	}
	if line.Quantity > p.Stock {
		return domain.Conflictf("insufficient stock for product %q (%d): requested %d, available %d", p.Title, p.ID, line.Quantity, p.Stock)
	}
	if line.Quantity < p.MinSaleAmount {
		return domain.Validationf("quantity %d for product %q (%d) is below the minimum sale amount %d", line.Quantity, p.Title, p.ID, p.MinSaleAmount)
	}
	if line.UnitPrice < p.FloorPrice {
		return domain.Validationf("unit price %d for product %q (%d) is below the floor price %d", line.UnitPrice, p.Title, p.ID, p.FloorPrice)
	}
	return nil
}

// roundPercent applies an integer percentage with half-up rounding.
func roundPercent(amount int64, percent int64) int64 {
	return (amount*percent + 50) / 100
}

// CancelOrder restores stock for every item and flips the order to
// cancelled, atomically. Cancelling the umbrella cancels every still-pending
// child with it.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID uint64, reason string) error {
	order, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.NotFoundf("order %d", orderID)
	}
	if order.UserID != userID {
		return domain.Forbiddenf("order %d does not belong to user %d", orderID, userID)
	}
	if order.Status != domain.OrderStatusPending {
		return domain.Conflictf("order %d cannot be cancelled in status %s", orderID, order.Status)
	}

	now := time.Now()
	cancel := domain.CancelInfo{Reason: reason, CancelledBy: userID, CancelledAt: now}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := cancelSingle(ctx, tx, order, cancel); err != nil {
			return err
		}
		if !order.IsUmbrella() {
			return nil
		}
		children, err := tx.Orders().FindByIDs(ctx, order.Meta.Link.ChildOrderIDs)
		if err != nil {
			return err
		}
		for i := range children {
			child := children[i]
			if child.Status != domain.OrderStatusPending {
				continue
			}
			if err := cancelSingle(ctx, tx, &child, cancel); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateUserOrders(userID)
	go s.publish(domain.EventOrderCancelled, domain.OrderCancelledEvent{
		OrderID:     orderID,
		UserID:      userID,
		Reason:      reason,
		CancelledAt: now,
	})

	s.logger.Info("order cancelled", zap.Uint64("orderId", orderID), zap.String("reason", reason))
	return nil
}

func cancelSingle(ctx context.Context, tx repository.Store, order *domain.Order, cancel domain.CancelInfo) error {
	meta := order.Meta
	info := cancel
	meta.Cancel = &info

	ok, err := tx.Orders().MarkCancelled(ctx, order.ID, meta)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflictf("order %d left pending state concurrently", order.ID)
	}

	items, err := tx.Orders().FindItems(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := tx.Catalog().IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uint64) (*domain.Order, []domain.OrderItem, error) {
	order, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, domain.NotFoundf("order %d", orderID)
	}
	items, err := s.store.Orders().FindItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

func (s *OrderService) ListOrdersByUser(ctx context.Context, userID uint64) ([]domain.Order, error) {
	return s.store.Orders().FindByUser(ctx, userID)
}

func (s *OrderService) invalidateUserOrders(userID uint64) {
	if s.redisClient == nil {
		return
	}
	key := "orders:user:" + strconv.FormatUint(userID, 10)
	if err := s.redisClient.Del(context.Background(), key).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *OrderService) publish(event string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), event, data); err != nil {
		s.logger.Warn(fmt.Sprintf("failed to publish %s event", event), zap.Error(err))
	}
}
