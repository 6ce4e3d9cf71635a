package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/saeedj2446/barton-back-sub003/internal/domain"

	"gorm.io/gorm"
)

type orderRepo struct {
	db *gorm.DB
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	result := r.db.WithContext(ctx).Create(order)
	if result.Error != nil {
		return result.Error
	}
	if order.ID == 0 {
		return errors.New("failed to assign order ID")
	}
	return nil
}

func (r *orderRepo) CreateItems(ctx context.Context, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByIDs(ctx context.Context, ids []uint64) ([]domain.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Order
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) FindByUser(ctx context.Context, userID uint64) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) FindItems(ctx context.Context, orderID uint64) ([]domain.OrderItem, error) {
	var out []domain.OrderItem
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) UpdateMeta(ctx context.Context, id uint64, meta domain.OrderMeta) error {
	return r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Update("meta", meta).Error
}

// Terminal transitions are guarded by the pending precondition so a
// concurrent or replayed settlement cannot double-apply.
func (r *orderRepo) MarkPaid(ctx context.Context, id uint64, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, domain.OrderStatusPending).
		Updates(map[string]any{
			"status":  domain.OrderStatusPaid,
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepo) MarkCancelled(ctx context.Context, id uint64, meta domain.OrderMeta) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, domain.OrderStatusPending).
		Updates(map[string]any{
			"status": domain.OrderStatusCancelled,
			"meta":   meta,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
