package http

type CartLineRequest struct {
	ProductID uint64 `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
	UnitPrice int64  `json:"unitPrice" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	UserID uint64            `json:"userId" binding:"required"`
	Items  []CartLineRequest `json:"items" binding:"required,min=1,dive"`
}

type CreateOrderResponse struct {
	OrderID      uint64   `json:"orderId"`
	OrderNumber  string   `json:"orderNumber"`
	TotalAmount  int64    `json:"totalAmount"`
	NetAmount    int64    `json:"netAmount"`
	SellerOrders []uint64 `json:"sellerOrders"`
}

type CancelOrderRequest struct {
	UserID uint64 `json:"userId" binding:"required"`
	Reason string `json:"reason"`
}

type InitiatePaymentRequest struct {
	UserID   uint64 `json:"userId" binding:"required"`
	Provider string `json:"provider"`
}

type RefundPaymentRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}
