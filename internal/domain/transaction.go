package domain

import "time"

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
	// TransactionStatusInitiationFailed is terminal: the gateway rejected the
	// initiation, so no callback will ever arrive for this attempt.
	TransactionStatusInitiationFailed TransactionStatus = "initiation_failed"
)

// IsTerminal reports whether the status can no longer change.
func (s TransactionStatus) IsTerminal() bool {
	return s != TransactionStatusPending
}

type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "debit"
	TransactionTypeRefund TransactionType = "refund"
)

// GatewayAudit is the normalized adapter result persisted verbatim for
// forensics. It is written on every initiate/verify, success or not.
type GatewayAudit struct {
	Provider         string `json:"provider"`
	Operation        string `json:"operation"`
	Success          bool   `json:"success"`
	GatewayReference string `json:"gatewayReference,omitempty"`
	PaymentURL       string `json:"paymentUrl,omitempty"`
	TrackingCode     string `json:"trackingCode,omitempty"`
	CardNumber       string `json:"cardNumber,omitempty"`
	ErrorCode        string `json:"errorCode,omitempty"`
	ErrorMessage     string `json:"errorMessage,omitempty"`
}

// Transaction is one payment attempt against an order. It is created in
// pending state and mutated exactly once to a terminal state.
type Transaction struct {
	ID                uint64            `json:"id" gorm:"primaryKey;autoIncrement"`
	TransactionNumber string            `json:"transactionNumber" gorm:"size:60;uniqueIndex;not null"`
	OrderID           uint64            `json:"orderId" gorm:"not null;index"`
	UserID            uint64            `json:"userId" gorm:"not null;index"`
	Amount            int64             `json:"amount" gorm:"not null"`
	NetAmount         int64             `json:"netAmount" gorm:"not null"`
	Currency          string            `json:"currency" gorm:"size:8;not null;default:'IRT'"`
	Type              TransactionType   `json:"type" gorm:"size:16;not null;default:'debit'"`
	PaymentMethod     string            `json:"paymentMethod" gorm:"size:32;not null"`
	Status            TransactionStatus `json:"status" gorm:"size:24;not null;default:'pending';index"`

	// GatewayReference is the provider's correlation token (authority,
	// token) echoed back on the callback.
	GatewayReference string       `json:"gatewayReference" gorm:"size:191;index"`
	GatewayResponse  GatewayAudit `json:"gatewayResponse" gorm:"serializer:json;type:json"`

	TrackingCode string     `json:"trackingCode" gorm:"size:64"`
	CardNumber   string     `json:"cardNumber" gorm:"size:32"`
	ErrorMessage string     `json:"errorMessage" gorm:"size:512"`
	CompletedAt  *time.Time `json:"completedAt"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
