package services

import "github.com/saeedj2446/barton-back-sub003/internal/domain"

// DiscountPolicy computes the automatic order discount for a buyer. The
// buyer may be nil when no profile row exists; policies must treat that as
// the zero tier.
type DiscountPolicy interface {
	Discount(buyer *domain.User, total int64) int64
}

// Credit tier thresholds. Buyers reach the upper tier through either credit
// level or lifetime spend.
const (
	silverCreditLevel = 2
	goldCreditLevel   = 4
	goldSpendFloor    = 50_000_000

	silverDiscountPercent = 1
	goldDiscountPercent   = 3
)

// CreditTierDiscount is the default two-tier policy.
type CreditTierDiscount struct{}

func NewCreditTierDiscount() CreditTierDiscount { return CreditTierDiscount{} }

func (CreditTierDiscount) Discount(buyer *domain.User, total int64) int64 {
	if buyer == nil {
		return 0
	}
	switch {
	case buyer.CreditLevel >= goldCreditLevel || buyer.LifetimeSpend >= goldSpendFloor:
		return total * goldDiscountPercent / 100
	case buyer.CreditLevel >= silverCreditLevel:
		return total * silverDiscountPercent / 100
	default:
		return 0
	}
}
