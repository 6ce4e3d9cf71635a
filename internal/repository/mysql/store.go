package mysql

import (
	"context"

	"github.com/saeedj2446/barton-back-sub003/internal/repository"

	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) repository.Store {
	return &store{db: db}
}

func (s *store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}

func (s *store) Orders() repository.OrderRepository {
	return &orderRepo{db: s.db}
}

func (s *store) Transactions() repository.TransactionRepository {
	return &transactionRepo{db: s.db}
}

func (s *store) Catalog() repository.CatalogRepository {
	return &catalogRepo{db: s.db}
}
