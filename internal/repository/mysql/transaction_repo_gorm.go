package mysql

import (
	"context"
	"errors"

	"github.com/saeedj2446/barton-back-sub003/internal/domain"
	"github.com/saeedj2446/barton-back-sub003/internal/repository"

	"gorm.io/gorm"
)

type transactionRepo struct {
	db *gorm.DB
}

func (r *transactionRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	result := r.db.WithContext(ctx).Create(txn)
	if result.Error != nil {
		return result.Error
	}
	if txn.ID == 0 {
		return errors.New("failed to assign transaction ID")
	}
	return nil
}

func (r *transactionRepo) FindByID(ctx context.Context, id uint64) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) FindByNumber(ctx context.Context, number string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := r.db.WithContext(ctx).Where("transaction_number = ?", number).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) FindByGatewayReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := r.db.WithContext(ctx).
		Where("gateway_reference = ?", reference).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) FindPendingByOrder(ctx context.Context, orderID uint64) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, domain.TransactionStatusPending).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *transactionRepo) SetGatewayResult(ctx context.Context, id uint64, reference string, audit domain.GatewayAudit) error {
	return r.db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"gateway_reference": reference,
			"gateway_response":  audit,
		}).Error
}

// MarkTerminal writes the terminal state once. The pending guard makes a
// replayed gateway callback a no-op at the database level.
func (r *transactionRepo) MarkTerminal(ctx context.Context, id uint64, status domain.TransactionStatus, upd repository.TerminalUpdate) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, domain.TransactionStatusPending).
		Updates(map[string]any{
			"status":           status,
			"tracking_code":    upd.TrackingCode,
			"card_number":      upd.CardNumber,
			"error_message":    upd.ErrorMessage,
			"completed_at":     upd.CompletedAt,
			"gateway_response": upd.Audit,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
