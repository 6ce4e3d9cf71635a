package domain

import "time"

// Routing keys published on the order exchange. Consumers (notifications,
// analytics) are outside this service.
const (
	EventOrderCreated     = "order.created"
	EventOrderCancelled   = "order.cancelled"
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

type OrderCreatedEvent struct {
	OrderID     uint64    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      uint64    `json:"userId"`
	TotalAmount int64     `json:"totalAmount"`
	NetAmount   int64     `json:"netAmount"`
	ChildOrders []uint64  `json:"childOrders"`
	CreatedAt   time.Time `json:"createdAt"`
}

type OrderCancelledEvent struct {
	OrderID     uint64    `json:"orderId"`
	UserID      uint64    `json:"userId"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}

type PaymentSettledEvent struct {
	TransactionID     uint64    `json:"transactionId"`
	TransactionNumber string    `json:"transactionNumber"`
	OrderID           uint64    `json:"orderId"`
	UserID            uint64    `json:"userId"`
	Amount            int64     `json:"amount"`
	Provider          string    `json:"provider"`
	TrackingCode      string    `json:"trackingCode,omitempty"`
	ErrorMessage      string    `json:"errorMessage,omitempty"`
	SettledAt         time.Time `json:"settledAt"`
}
