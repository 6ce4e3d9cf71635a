package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

type OrderType string

const (
	// OrderTypePurchase is a child order scoped to a single seller.
	OrderTypePurchase OrderType = "purchase"
	// OrderTypeTracking is the umbrella order aggregating all child orders
	// of one checkout.
	OrderTypeTracking OrderType = "tracking"
)

// OrderLink ties an umbrella order to its per-seller child orders.
type OrderLink struct {
	IsMainOrder   bool     `json:"isMainOrder,omitempty"`
	IsSplitOrder  bool     `json:"isSplitOrder,omitempty"`
	ParentOrderID uint64   `json:"parentOrderId,omitempty"`
	ChildOrderIDs []uint64 `json:"childOrderIds,omitempty"`
}

// CancelInfo is the audit record written when an order is cancelled.
type CancelInfo struct {
	Reason      string    `json:"reason"`
	CancelledBy uint64    `json:"cancelledBy"`
	CancelledAt time.Time `json:"cancelledAt"`
}

// OrderMeta is a typed replacement for the free-form metadata blob: split
// order links plus the cancellation audit trail.
type OrderMeta struct {
	Link   OrderLink   `json:"link"`
	Cancel *CancelInfo `json:"cancel,omitempty"`
}

type Order struct {
	ID          uint64      `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderNumber string      `json:"orderNumber" gorm:"size:40;uniqueIndex;not null"`
	Type        OrderType   `json:"type" gorm:"size:20;not null;default:'purchase'"`
	Status      OrderStatus `json:"status" gorm:"size:20;not null;default:'pending';index"`
	UserID      uint64      `json:"userId" gorm:"not null;index"`

	// Seller side; nil for the umbrella order.
	AccountID *uint64 `json:"accountId" gorm:"index"`
	SellerID  *uint64 `json:"sellerId" gorm:"index"`

	// Amounts are integer toman. net = total + tax - discount.
	TotalAmount    int64 `json:"totalAmount" gorm:"not null"`
	TaxAmount      int64 `json:"taxAmount" gorm:"not null"`
	DiscountAmount int64 `json:"discountAmount" gorm:"not null"`
	NetAmount      int64 `json:"netAmount" gorm:"not null"`

	ExpiresAt *time.Time `json:"expiresAt"`
	PaidAt    *time.Time `json:"paidAt"`

	Meta OrderMeta `json:"meta" gorm:"serializer:json;type:json"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (o *Order) IsUmbrella() bool {
	return o.Meta.Link.IsMainOrder
}

// OrderItem is an immutable snapshot of one purchased line. Title and prices
// are captured at purchase time so later product edits do not rewrite order
// history.
type OrderItem struct {
	ID          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID     uint64    `json:"orderId" gorm:"not null;index"`
	ItemType    string    `json:"itemType" gorm:"size:20;not null;default:'product'"`
	ProductID   uint64    `json:"productId" gorm:"not null;index"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Quantity    int64     `json:"quantity" gorm:"not null"`
	UnitPrice   int64     `json:"unitPrice" gorm:"not null"`
	TotalPrice  int64     `json:"totalPrice" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
