// Package gateway normalizes the wire protocols of the supported payment
// providers into one driver contract. Provider types never leak past a
// driver: callers see only the result shapes below. Provider-reported
// failures and transport failures both come back as failure results with a
// code and message; a non-nil error means the call could not be attempted
// at all.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Normalized error codes shared by all drivers. Provider-specific numeric
// codes are passed through as their decimal string.
const (
	CodeAmountTooLow     = "AMOUNT_TOO_LOW"
	CodeAmountTooHigh    = "AMOUNT_TOO_HIGH"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeInvalidResponse  = "INVALID_RESPONSE"
	CodeNotSupported     = "NOT_SUPPORTED"
)

type InitiateRequest struct {
	Amount      int64
	OrderID     uint64
	UserID      uint64
	CallbackURL string
	Description string
	Metadata    map[string]string
}

type InitiateResult struct {
	Success          bool   `json:"success"`
	PaymentURL       string `json:"paymentUrl,omitempty"`
	TransactionID    string `json:"transactionId,omitempty"`
	GatewayReference string `json:"gatewayReference,omitempty"`
	Amount           int64  `json:"amount"`
	ErrorCode        string `json:"errorCode,omitempty"`
	ErrorMessage     string `json:"errorMessage,omitempty"`
}

type VerifyRequest struct {
	TransactionID    string
	GatewayReference string
	Amount           int64
}

type VerifyResult struct {
	Success      bool   `json:"success"`
	TrackingCode string `json:"trackingCode,omitempty"`
	CardNumber   string `json:"cardNumber,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type RefundRequest struct {
	TransactionID    string
	GatewayReference string
	Amount           int64
	Reason           string
}

type RefundResult struct {
	Success      bool   `json:"success"`
	RefundID     string `json:"refundId,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type StatusResult struct {
	Status           string     `json:"status"`
	Amount           int64      `json:"amount"`
	GatewayReference string     `json:"gatewayReference"`
	TransactionDate  *time.Time `json:"transactionDate,omitempty"`
	ErrorCode        string     `json:"errorCode,omitempty"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
}

// Driver is the capability set every provider adapter implements. Instances
// are stateless beyond static configuration and safe for concurrent use.
type Driver interface {
	Name() string
	InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	// VerifyPayment settles a callback. Providers requiring an internal
	// confirmation step after the sale perform it inside this call.
	VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error)
	// PaymentStatus queries the provider by its correlation token.
	PaymentStatus(ctx context.Context, gatewayReference string) (*StatusResult, error)
}

// AmountBounds are the provider's accepted amount window in toman.
// Validation runs before any network call.
type AmountBounds struct {
	Min int64
	Max int64
}

func (b AmountBounds) Check(amount int64) (code, message string) {
	if amount < b.Min {
		return CodeAmountTooLow, fmt.Sprintf("amount %d is below the minimum of %d", amount, b.Min)
	}
	if b.Max > 0 && amount > b.Max {
		return CodeAmountTooHigh, fmt.Sprintf("amount %d exceeds the maximum of %d", amount, b.Max)
	}
	return "", ""
}

// NewTransactionID builds the provider-prefixed, time+random external
// correlation token for one payment attempt.
func NewTransactionID(prefix string) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), random)
}
