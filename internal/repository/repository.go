package repository

import (
	"context"
	"time"

	"github.com/saeedj2446/barton-back-sub003/internal/domain"
)

// Store is the unit-of-work entry point. WithTx runs fn against a Store
// bound to one database transaction; fn returning an error rolls everything
// back.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Orders() OrderRepository
	Transactions() TransactionRepository
	Catalog() CatalogRepository
}

// TerminalUpdate carries the fields written together with a transaction's
// terminal status.
type TerminalUpdate struct {
	TrackingCode string
	CardNumber   string
	ErrorMessage string
	CompletedAt  time.Time
	Audit        domain.GatewayAudit
}

// Finders return (nil, nil) when the row does not exist; callers translate
// that into a domain not-found error.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	CreateItems(ctx context.Context, items []domain.OrderItem) error
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]domain.Order, error)
	FindByUser(ctx context.Context, userID uint64) ([]domain.Order, error)
	FindItems(ctx context.Context, orderID uint64) ([]domain.OrderItem, error)
	UpdateMeta(ctx context.Context, id uint64, meta domain.OrderMeta) error
	// MarkPaid flips a pending order to paid; reports false when the order
	// was not pending (already settled or cancelled).
	MarkPaid(ctx context.Context, id uint64, paidAt time.Time) (bool, error)
	// MarkCancelled flips a pending order to cancelled, recording the audit
	// meta; reports false when the order was not pending.
	MarkCancelled(ctx context.Context, id uint64, meta domain.OrderMeta) (bool, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	FindByID(ctx context.Context, id uint64) (*domain.Transaction, error)
	FindByNumber(ctx context.Context, number string) (*domain.Transaction, error)
	FindByGatewayReference(ctx context.Context, reference string) (*domain.Transaction, error)
	FindPendingByOrder(ctx context.Context, orderID uint64) ([]domain.Transaction, error)
	// SetGatewayResult records the initiation outcome: correlation token plus
	// the full normalized adapter result for audit.
	SetGatewayResult(ctx context.Context, id uint64, reference string, audit domain.GatewayAudit) error
	// MarkTerminal applies a terminal status guarded by `status = pending`,
	// so a replayed callback observes false instead of double-applying.
	MarkTerminal(ctx context.Context, id uint64, status domain.TransactionStatus, upd TerminalUpdate) (bool, error)
}

type CatalogRepository interface {
	FindProductsByIDs(ctx context.Context, ids []uint64) (map[uint64]domain.Product, error)
	FindAccountsByIDs(ctx context.Context, ids []uint64) (map[uint64]domain.Account, error)
	// FindOwnersByAccountIDs maps account id to the owner-role member's user id.
	FindOwnersByAccountIDs(ctx context.Context, accountIDs []uint64) (map[uint64]uint64, error)
	FindUser(ctx context.Context, id uint64) (*domain.User, error)
	// DecrementStock is a single conditional update (stock >= qty); it
	// returns a conflict error when stock is insufficient. Never implemented
	// as read-then-write.
	DecrementStock(ctx context.Context, productID uint64, qty int64) error
	IncrementStock(ctx context.Context, productID uint64, qty int64) error
}
