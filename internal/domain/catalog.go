package domain

import "time"

const (
	ProductStatusConfirmed = "confirmed"
	AccountStatusActive    = "active"
	MemberRoleOwner        = "owner"
)

// Product is the catalog read model consumed by the settlement pipeline.
// Catalog CRUD lives elsewhere; this side only reads rows and adjusts stock
// through the conditional updates on CatalogRepository.
type Product struct {
	ID            uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountID     uint64    `json:"accountId" gorm:"not null;index"`
	Title         string    `json:"title" gorm:"size:255;not null"`
	Status        string    `json:"status" gorm:"size:20;not null;index"`
	Stock         int64     `json:"stock" gorm:"not null"`
	MinSaleAmount int64     `json:"minSaleAmount" gorm:"not null;default:1"`
	FloorPrice    int64     `json:"floorPrice" gorm:"not null"`
	CreatedAt     time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Account is the seller-side business account owning products.
type Account struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	Status    string    `json:"status" gorm:"size:20;not null;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// AccountMember links users to accounts with a role. The owner-role row
// resolves the human seller behind an account.
type AccountMember struct {
	ID        uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountID uint64 `json:"accountId" gorm:"not null;index:idx_account_role"`
	UserID    uint64 `json:"userId" gorm:"not null;index"`
	Role      string `json:"role" gorm:"size:20;not null;index:idx_account_role"`
}

// User carries the buyer attributes the discount policy reads.
type User struct {
	ID            uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	CreditLevel   int    `json:"creditLevel" gorm:"not null;default:0"`
	LifetimeSpend int64  `json:"lifetimeSpend" gorm:"not null;default:0"`
}
