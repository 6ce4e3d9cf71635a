package mysql

import (
	"context"
	"errors"

	"github.com/saeedj2446/barton-back-sub003/internal/domain"

	"gorm.io/gorm"
)

type catalogRepo struct {
	db *gorm.DB
}

func (r *catalogRepo) FindProductsByIDs(ctx context.Context, ids []uint64) (map[uint64]domain.Product, error) {
	if len(ids) == 0 {
		return map[uint64]domain.Product{}, nil
	}
	var rows []domain.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint64]domain.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *catalogRepo) FindAccountsByIDs(ctx context.Context, ids []uint64) (map[uint64]domain.Account, error) {
	if len(ids) == 0 {
		return map[uint64]domain.Account{}, nil
	}
	var rows []domain.Account
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint64]domain.Account, len(rows))
	for _, a := range rows {
		out[a.ID] = a
	}
	return out, nil
}

func (r *catalogRepo) FindOwnersByAccountIDs(ctx context.Context, accountIDs []uint64) (map[uint64]uint64, error) {
	if len(accountIDs) == 0 {
		return map[uint64]uint64{}, nil
	}
	var rows []domain.AccountMember
	err := r.db.WithContext(ctx).
		Where("account_id IN ? AND role = ?", accountIDs, domain.MemberRoleOwner).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]uint64, len(rows))
	for _, m := range rows {
		out[m.AccountID] = m.UserID
	}
	return out, nil
}

func (r *catalogRepo) FindUser(ctx context.Context, id uint64) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// DecrementStock is the only write path for stock during checkout. The
// stock >= qty predicate closes the race window between concurrent carts;
// zero affected rows means another checkout won.
func (r *catalogRepo) DecrementStock(ctx context.Context, productID uint64, qty int64) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Conflictf("insufficient stock for product %d", productID)
	}
	return nil
}

func (r *catalogRepo) IncrementStock(ctx context.Context, productID uint64, qty int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}
