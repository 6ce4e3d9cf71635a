package services

import (
	"context"
	"testing"
	"time"

	"github.com/saeedj2446/barton-back-sub003/internal/domain"
	"github.com/saeedj2446/barton-back-sub003/internal/gateway"
	"github.com/saeedj2446/barton-back-sub003/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPaymentFixture(t *testing.T) (*fakeStore, *mocks.MockDriver, *PaymentService, *domain.Order) {
	t.Helper()
	store := newFakeStore()
	driver := &mocks.MockDriver{}
	registry := gateway.NewRegistry("mock")
	registry.Register(driver)
	service := NewPaymentService(store, registry, nil, zap.NewNop())

	order := &domain.Order{
		OrderNumber: domain.NewOrderNumber(),
		Type:        domain.OrderTypePurchase,
		Status:      domain.OrderStatusPending,
		UserID:      1,
		TotalAmount: 92000,
		TaxAmount:   8280,
		NetAmount:   100280,
	}
	require.NoError(t, store.Orders().Create(context.Background(), order))
	return store, driver, service, order
}

func TestPaymentService_InitiatePayment(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store, driver, service, order := newPaymentFixture(t)
		driver.On("InitiatePayment", mock.Anything, mock.MatchedBy(func(req gateway.InitiateRequest) bool {
			return req.Amount == order.NetAmount && req.OrderID == order.ID
		})).Return(&gateway.InitiateResult{
			Success:          true,
			PaymentURL:       "https://gateway.test/pay/AUTH-1",
			TransactionID:    "ZP-1",
			GatewayReference: "AUTH-1",
			Amount:           order.NetAmount,
		}, nil)

		result, err := service.InitiatePayment(context.Background(), order.ID, 1, "", "https://shop.test/callback")
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "https://gateway.test/pay/AUTH-1", result.PaymentURL)
		assert.Equal(t, "AUTH-1", result.GatewayReference)

		txn, err := store.Transactions().FindByGatewayReference(context.Background(), "AUTH-1")
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, domain.TransactionStatusPending, txn.Status)
		assert.Equal(t, order.NetAmount, txn.Amount)
		assert.Equal(t, "mock", txn.PaymentMethod)
		assert.True(t, txn.GatewayResponse.Success)
		assert.Equal(t, "initiate", txn.GatewayResponse.Operation)
		driver.AssertExpectations(t)
	})

	t.Run("gateway rejection lands in initiation_failed", func(t *testing.T) {
		store, driver, service, order := newPaymentFixture(t)
		driver.On("InitiatePayment", mock.Anything, mock.Anything).Return(&gateway.InitiateResult{
			Success:      false,
			Amount:       order.NetAmount,
			ErrorCode:    "-9",
			ErrorMessage: "merchant validation failed",
		}, nil)

		result, err := service.InitiatePayment(context.Background(), order.ID, 1, "", "https://shop.test/callback")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "-9", result.ErrorCode)

		txn, err := store.Transactions().FindByNumber(context.Background(), result.TransactionNumber)
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, domain.TransactionStatusInitiationFailed, txn.Status)
		assert.Equal(t, "merchant validation failed", txn.ErrorMessage)
		require.NotNil(t, txn.CompletedAt)

		// Order stays payable.
		got, _ := store.Orders().FindByID(context.Background(), order.ID)
		assert.Equal(t, domain.OrderStatusPending, got.Status)
	})

	t.Run("guards", func(t *testing.T) {
		store, _, service, order := newPaymentFixture(t)

		_, err := service.InitiatePayment(context.Background(), 9999, 1, "", "cb")
		assert.True(t, domain.IsNotFound(err))

		_, err = service.InitiatePayment(context.Background(), order.ID, 2, "", "cb")
		assert.True(t, domain.IsForbidden(err))

		_, err = service.InitiatePayment(context.Background(), order.ID, 1, "no-such-gateway", "cb")
		assert.True(t, domain.IsValidation(err))

		_, err = store.Orders().MarkPaid(context.Background(), order.ID, time.Now())
		require.NoError(t, err)
		_, err = service.InitiatePayment(context.Background(), order.ID, 1, "", "cb")
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("supersedes older pending attempt", func(t *testing.T) {
		store, driver, service, order := newPaymentFixture(t)
		driver.On("InitiatePayment", mock.Anything, mock.Anything).Return(&gateway.InitiateResult{
			Success:          true,
			GatewayReference: "AUTH-A",
			Amount:           order.NetAmount,
		}, nil).Once()
		driver.On("InitiatePayment", mock.Anything, mock.Anything).Return(&gateway.InitiateResult{
			Success:          true,
			GatewayReference: "AUTH-B",
			Amount:           order.NetAmount,
		}, nil).Once()

		first, err := service.InitiatePayment(context.Background(), order.ID, 1, "", "cb")
		require.NoError(t, err)
		_, err = service.InitiatePayment(context.Background(), order.ID, 1, "", "cb")
		require.NoError(t, err)

		old, err := store.Transactions().FindByNumber(context.Background(), first.TransactionNumber)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusFailed, old.Status)
		assert.Contains(t, old.ErrorMessage, "superseded")

		live, err := store.Transactions().FindPendingByOrder(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Len(t, live, 1, "exactly one live attempt may remain")
	})
}

func initiatePending(t *testing.T, service *PaymentService, driver *mocks.MockDriver, order *domain.Order, reference string) *PaymentInitiation {
	t.Helper()
	driver.On("InitiatePayment", mock.Anything, mock.Anything).Return(&gateway.InitiateResult{
		Success:          true,
		PaymentURL:       "https://gateway.test/pay/" + reference,
		GatewayReference: reference,
		Amount:           order.NetAmount,
	}, nil).Once()
	result, err := service.InitiatePayment(context.Background(), order.ID, order.UserID, "", "cb")
	require.NoError(t, err)
	require.True(t, result.Success)
	return result
}

func TestPaymentService_VerifyPayment(t *testing.T) {
	t.Run("success settles transaction and order atomically", func(t *testing.T) {
		store, driver, service, order := newPaymentFixture(t)
		initiatePending(t, service, driver, order, "AUTH-1")

		driver.On("VerifyPayment", mock.Anything, mock.MatchedBy(func(req gateway.VerifyRequest) bool {
			return req.GatewayReference == "AUTH-1" && req.Amount == order.NetAmount
		})).Return(&gateway.VerifyResult{
			Success:      true,
			TrackingCode: "123456789",
			CardNumber:   "6037-99**-****-1234",
		}, nil).Once()

		result, err := service.VerifyPayment(context.Background(), "AUTH-1", false)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.False(t, result.AlreadySettled)
		assert.Equal(t, "123456789", result.TrackingCode)

		txn, _ := store.Transactions().FindByGatewayReference(context.Background(), "AUTH-1")
		assert.Equal(t, domain.TransactionStatusSuccess, txn.Status)
		assert.Equal(t, "verify", txn.GatewayResponse.Operation)
		require.NotNil(t, txn.CompletedAt)

		settled, _ := store.Orders().FindByID(context.Background(), order.ID)
		assert.Equal(t, domain.OrderStatusPaid, settled.Status)
		require.NotNil(t, settled.PaidAt)
		driver.AssertExpectations(t)
	})

	t.Run("replayed callback is a no-op", func(t *testing.T) {
		store, driver, service, order := newPaymentFixture(t)
		initiatePending(t, service, driver, order, "AUTH-1")
		driver.On("VerifyPayment", mock.Anything, mock.Anything).Return(&gateway.VerifyResult{
			Success:      true,
			TrackingCode: "123456789",
		}, nil).Once()

		first, err := service.VerifyPayment(context.Background(), "AUTH-1", false)
		require.NoError(t, err)
		require.True(t, first.Success)

		settled, _ := store.Orders().FindByID(context.Background(), order.ID)
		paidAt := *settled.PaidAt

		second, err := service.VerifyPayment(context.Background(), "AUTH-1", false)
		require.NoError(t, err)
		assert.True(t, second.Success)
		assert.True(t, second.AlreadySettled)
		assert.Equal(t, "123456789", second.TrackingCode)

		// The driver saw exactly one verify and paid_at did not move.
		driver.AssertNumberOfCalls(t, "VerifyPayment", 1)
		again, _ := store.Orders().FindByID(context.Background(), order.ID)
		assert.Equal(t, paidAt, *again.PaidAt)
	})

	t.Run("user cancellation fails the transaction but keeps the order payable", func(t *testing.T) {
		store, driver, service, order := newPaymentFixture(t)
		initiatePending(t, service, driver, order, "AUTH-1")

		result, err := service.VerifyPayment(context.Background(), "AUTH-1", true)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Contains(t, result.ErrorMessage, "cancelled by user")

		txn, _ := store.Transactions().FindByGatewayReference(context.Background(), "AUTH-1")
		assert.Equal(t, domain.TransactionStatusFailed, txn.Status)

		got, _ := store.Orders().FindByID(context.Background(), order.ID)
		assert.Equal(t, domain.OrderStatusPending, got.Status, "order must stay retryable")
		driver.AssertNotCalled(t, "VerifyPayment", mock.Anything, mock.Anything)
	})

	t.Run("provider failure fails the transaction", func(t *testing.T) {
		store, driver, service, order := newPaymentFixture(t)
		initiatePending(t, service, driver, order, "AUTH-1")
		driver.On("VerifyPayment", mock.Anything, mock.Anything).Return(&gateway.VerifyResult{
			Success:      false,
			ErrorCode:    "-53",
			ErrorMessage: "verification mismatch",
		}, nil).Once()

		result, err := service.VerifyPayment(context.Background(), "AUTH-1", false)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "-53", result.ErrorCode)

		txn, _ := store.Transactions().FindByGatewayReference(context.Background(), "AUTH-1")
		assert.Equal(t, domain.TransactionStatusFailed, txn.Status)
		assert.Equal(t, "verification mismatch", txn.ErrorMessage)

		got, _ := store.Orders().FindByID(context.Background(), order.ID)
		assert.Equal(t, domain.OrderStatusPending, got.Status)
	})

	t.Run("unknown reference", func(t *testing.T) {
		_, _, service, _ := newPaymentFixture(t)
		_, err := service.VerifyPayment(context.Background(), "NO-SUCH-REF", false)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestPaymentService_RefundPayment(t *testing.T) {
	settle := func(t *testing.T, store *fakeStore, driver *mocks.MockDriver, service *PaymentService, order *domain.Order) *domain.Transaction {
		initiatePending(t, service, driver, order, "AUTH-1")
		driver.On("VerifyPayment", mock.Anything, mock.Anything).Return(&gateway.VerifyResult{Success: true, TrackingCode: "999"}, nil).Once()
		_, err := service.VerifyPayment(context.Background(), "AUTH-1", false)
		require.NoError(t, err)
		txn, err := store.Transactions().FindByGatewayReference(context.Background(), "AUTH-1")
		require.NoError(t, err)
		return txn
	}

	t.Run("success records a refund transaction", func(t *testing.T) {
		store, driver, service, order := newPaymentFixture(t)
		txn := settle(t, store, driver, service, order)

		driver.On("RefundPayment", mock.Anything, mock.MatchedBy(func(req gateway.RefundRequest) bool {
			return req.GatewayReference == "AUTH-1" && req.Amount == txn.Amount
		})).Return(&gateway.RefundResult{Success: true, RefundID: "RF-42"}, nil).Once()

		result, err := service.RefundPayment(context.Background(), txn.TransactionNumber, 0, "buyer complaint")
		require.NoError(t, err)
		assert.True(t, result.Success)

		var refund *domain.Transaction
		for _, candidate := range store.txns {
			if candidate.Type == domain.TransactionTypeRefund {
				refund = candidate
			}
		}
		require.NotNil(t, refund)
		assert.Equal(t, txn.Amount, refund.Amount)
		assert.Equal(t, "RF-42", refund.TrackingCode)
		assert.Equal(t, domain.TransactionStatusSuccess, refund.Status)
	})

	t.Run("not supported passes the normalized failure through", func(t *testing.T) {
		store, driver, service, order := newPaymentFixture(t)
		txn := settle(t, store, driver, service, order)

		driver.On("RefundPayment", mock.Anything, mock.Anything).Return(&gateway.RefundResult{
			Success:      false,
			ErrorCode:    gateway.CodeNotSupported,
			ErrorMessage: "refunds are manual for this provider",
		}, nil).Once()

		result, err := service.RefundPayment(context.Background(), txn.TransactionNumber, 0, "")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, gateway.CodeNotSupported, result.ErrorCode)
	})

	t.Run("unsettled transaction is a conflict", func(t *testing.T) {
		_, driver, service, order := newPaymentFixture(t)
		initiation := initiatePending(t, service, driver, order, "AUTH-1")

		_, err := service.RefundPayment(context.Background(), initiation.TransactionNumber, 0, "")
		assert.True(t, domain.IsConflict(err))
	})
}

func TestPaymentService_PaymentStatus(t *testing.T) {
	_, driver, service, order := newPaymentFixture(t)
	initiation := initiatePending(t, service, driver, order, "AUTH-1")

	driver.On("PaymentStatus", mock.Anything, "AUTH-1").Return(&gateway.StatusResult{
		Status:           "PAID",
		Amount:           order.NetAmount,
		GatewayReference: "AUTH-1",
	}, nil).Once()

	result, err := service.PaymentStatus(context.Background(), initiation.TransactionNumber)
	require.NoError(t, err)
	assert.Equal(t, "PAID", result.Status)

	_, err = service.PaymentStatus(context.Background(), "TXN-MISSING")
	assert.True(t, domain.IsNotFound(err))
}
