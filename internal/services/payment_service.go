package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saeedj2446/barton-back-sub003/internal/domain"
	"github.com/saeedj2446/barton-back-sub003/internal/gateway"
	rabbit "github.com/saeedj2446/barton-back-sub003/internal/infra/rabbitmq"
	"github.com/saeedj2446/barton-back-sub003/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// errAlreadySettled aborts the settlement transaction when the pending guard
// observes a concurrent terminal write.
var errAlreadySettled = errors.New("transaction already settled")

// PaymentInitiation is what the caller needs to send the buyer to the
// gateway, or render the provider's failure.
type PaymentInitiation struct {
	Success           bool   `json:"success"`
	TransactionNumber string `json:"transactionNumber"`
	Provider          string `json:"provider"`
	PaymentURL        string `json:"paymentUrl,omitempty"`
	GatewayReference  string `json:"gatewayReference,omitempty"`
	Amount            int64  `json:"amount"`
	ErrorCode         string `json:"errorCode,omitempty"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
}

// PaymentSettlement is the outcome of processing one gateway callback.
type PaymentSettlement struct {
	Success           bool   `json:"success"`
	AlreadySettled    bool   `json:"alreadySettled"`
	TransactionNumber string `json:"transactionNumber"`
	OrderID           uint64 `json:"orderId"`
	TrackingCode      string `json:"trackingCode,omitempty"`
	CardNumber        string `json:"cardNumber,omitempty"`
	ErrorCode         string `json:"errorCode,omitempty"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
}

// PaymentService drives a Transaction and its Order from pending to a
// terminal state using the gateway drivers. Terminal writes are guarded by
// a pending precondition, so replayed callbacks settle nothing twice.
type PaymentService struct {
	store       repository.Store
	gateways    *gateway.Registry
	publisher   rabbit.PublisherInterface
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewPaymentService(store repository.Store, gateways *gateway.Registry, publisher rabbit.PublisherInterface, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		store:     store,
		gateways:  gateways,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *PaymentService) SetRedisClient(client *redis.Client) {
	s.redisClient = client
}

// InitiatePayment opens a payment attempt for a pending order owned by the
// requesting user. The full normalized driver result is persisted for audit
// whether or not the provider accepted; a rejected initiation lands in the
// terminal initiation_failed state instead of dangling pending.
func (s *PaymentService) InitiatePayment(ctx context.Context, orderID, userID uint64, provider, callbackURL string) (*PaymentInitiation, error) {
	order, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.NotFoundf("order %d", orderID)
	}
	if order.UserID != userID {
		return nil, domain.Forbiddenf("order %d does not belong to user %d", orderID, userID)
	}
	if order.Status != domain.OrderStatusPending {
		return nil, domain.Conflictf("order %d is not awaiting payment (status %s)", orderID, order.Status)
	}

	driver, err := s.gateways.Resolve(provider)
	if err != nil {
		return nil, domain.Validationf("%s", err.Error())
	}

	// A fresh attempt supersedes any older pending attempt for the order;
	// only one live transaction may reach verification.
	if err := s.supersedePending(ctx, orderID); err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		TransactionNumber: domain.NewTransactionNumber(),
		OrderID:           orderID,
		UserID:            userID,
		Amount:            order.NetAmount,
		NetAmount:         order.NetAmount,
		Currency:          "IRT",
		Type:              domain.TransactionTypeDebit,
		PaymentMethod:     driver.Name(),
		Status:            domain.TransactionStatusPending,
	}
	if err := s.store.Transactions().Create(ctx, txn); err != nil {
		return nil, err
	}

	res, err := driver.InitiatePayment(ctx, gateway.InitiateRequest{
		Amount:      order.NetAmount,
		OrderID:     orderID,
		UserID:      userID,
		CallbackURL: callbackURL,
		Description: fmt.Sprintf("settlement of order %s", order.OrderNumber),
		Metadata:    map[string]string{"transaction_number": txn.TransactionNumber},
	})
	if err != nil {
		res = &gateway.InitiateResult{
			Success:      false,
			Amount:       order.NetAmount,
			ErrorCode:    gateway.CodeConnectionFailed,
			ErrorMessage: err.Error(),
		}
	}

	audit := domain.GatewayAudit{
		Provider:         driver.Name(),
		Operation:        "initiate",
		Success:          res.Success,
		GatewayReference: res.GatewayReference,
		PaymentURL:       res.PaymentURL,
		ErrorCode:        res.ErrorCode,
		ErrorMessage:     res.ErrorMessage,
	}
	if err := s.store.Transactions().SetGatewayResult(ctx, txn.ID, res.GatewayReference, audit); err != nil {
		return nil, err
	}

	if !res.Success {
		_, err := s.store.Transactions().MarkTerminal(ctx, txn.ID, domain.TransactionStatusInitiationFailed, repository.TerminalUpdate{
			ErrorMessage: res.ErrorMessage,
			CompletedAt:  time.Now(),
			Audit:        audit,
		})
		if err != nil {
			return nil, err
		}
		s.logger.Warn("payment initiation rejected",
			zap.Uint64("orderId", orderID),
			zap.String("provider", driver.Name()),
			zap.String("errorCode", res.ErrorCode),
			zap.String("errorMessage", res.ErrorMessage))
		return &PaymentInitiation{
			Success:           false,
			TransactionNumber: txn.TransactionNumber,
			Provider:          driver.Name(),
			Amount:            order.NetAmount,
			ErrorCode:         res.ErrorCode,
			ErrorMessage:      res.ErrorMessage,
		}, nil
	}

	s.logger.Info("payment initiated",
		zap.Uint64("orderId", orderID),
		zap.String("provider", driver.Name()),
		zap.String("gatewayReference", res.GatewayReference))

	return &PaymentInitiation{
		Success:           true,
		TransactionNumber: txn.TransactionNumber,
		Provider:          driver.Name(),
		PaymentURL:        res.PaymentURL,
		GatewayReference:  res.GatewayReference,
		Amount:            order.NetAmount,
	}, nil
}

func (s *PaymentService) supersedePending(ctx context.Context, orderID uint64) error {
	pending, err := s.store.Transactions().FindPendingByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, old := range pending {
		_, err := s.store.Transactions().MarkTerminal(ctx, old.ID, domain.TransactionStatusFailed, repository.TerminalUpdate{
			ErrorMessage: "superseded by a newer payment attempt",
			CompletedAt:  time.Now(),
			Audit:        old.GatewayResponse,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// VerifyPayment settles the callback identified by the provider's
// correlation token. cancelled reports the provider's user-cancellation
// flag; in that case the order stays pending and only the transaction
// fails, so payment can be retried. A callback for an already-terminal
// transaction is a no-op returning the stored outcome.
func (s *PaymentService) VerifyPayment(ctx context.Context, gatewayReference string, cancelled bool) (*PaymentSettlement, error) {
	txn, err := s.store.Transactions().FindByGatewayReference(ctx, gatewayReference)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domain.NotFoundf("transaction for gateway reference %q", gatewayReference)
	}
	if txn.Status.IsTerminal() {
		return settledOutcome(txn), nil
	}

	now := time.Now()

	if cancelled {
		audit := txn.GatewayResponse
		audit.Operation = "verify"
		audit.Success = false
		audit.ErrorMessage = "payment cancelled by user"
		ok, err := s.store.Transactions().MarkTerminal(ctx, txn.ID, domain.TransactionStatusFailed, repository.TerminalUpdate{
			ErrorMessage: "payment cancelled by user",
			CompletedAt:  now,
			Audit:        audit,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return s.reloadSettled(ctx, txn.ID)
		}
		go s.publish(domain.EventPaymentFailed, settlementEvent(txn, "", "payment cancelled by user", now))
		return &PaymentSettlement{
			Success:           false,
			TransactionNumber: txn.TransactionNumber,
			OrderID:           txn.OrderID,
			ErrorMessage:      "payment cancelled by user",
		}, nil
	}

	driver, err := s.gateways.Resolve(txn.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("resolve gateway for transaction %s: %w", txn.TransactionNumber, err)
	}

	vres, err := driver.VerifyPayment(ctx, gateway.VerifyRequest{
		TransactionID:    txn.TransactionNumber,
		GatewayReference: gatewayReference,
		Amount:           txn.Amount,
	})
	if err != nil {
		vres = &gateway.VerifyResult{
			Success:      false,
			ErrorCode:    gateway.CodeConnectionFailed,
			ErrorMessage: err.Error(),
		}
	}

	audit := domain.GatewayAudit{
		Provider:         driver.Name(),
		Operation:        "verify",
		Success:          vres.Success,
		GatewayReference: gatewayReference,
		TrackingCode:     vres.TrackingCode,
		CardNumber:       vres.CardNumber,
		ErrorCode:        vres.ErrorCode,
		ErrorMessage:     vres.ErrorMessage,
	}

	if !vres.Success {
		ok, err := s.store.Transactions().MarkTerminal(ctx, txn.ID, domain.TransactionStatusFailed, repository.TerminalUpdate{
			ErrorMessage: vres.ErrorMessage,
			CompletedAt:  now,
			Audit:        audit,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return s.reloadSettled(ctx, txn.ID)
		}
		s.logger.Warn("payment verification failed",
			zap.String("transactionNumber", txn.TransactionNumber),
			zap.String("errorCode", vres.ErrorCode),
			zap.String("errorMessage", vres.ErrorMessage))
		go s.publish(domain.EventPaymentFailed, settlementEvent(txn, "", vres.ErrorMessage, now))
		return &PaymentSettlement{
			Success:           false,
			TransactionNumber: txn.TransactionNumber,
			OrderID:           txn.OrderID,
			ErrorCode:         vres.ErrorCode,
			ErrorMessage:      vres.ErrorMessage,
		}, nil
	}

	// Success: transaction and order flip together or not at all.
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		ok, err := tx.Transactions().MarkTerminal(ctx, txn.ID, domain.TransactionStatusSuccess, repository.TerminalUpdate{
			TrackingCode: vres.TrackingCode,
			CardNumber:   vres.CardNumber,
			CompletedAt:  now,
			Audit:        audit,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errAlreadySettled
		}
		paid, err := tx.Orders().MarkPaid(ctx, txn.OrderID, now)
		if err != nil {
			return err
		}
		if !paid {
			return domain.Conflictf("order %d is no longer awaiting payment", txn.OrderID)
		}
		return nil
	})
	if errors.Is(err, errAlreadySettled) {
		return s.reloadSettled(ctx, txn.ID)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateUserOrders(txn.UserID)
	go s.publish(domain.EventPaymentSucceeded, settlementEvent(txn, vres.TrackingCode, "", now))

	s.logger.Info("payment settled",
		zap.String("transactionNumber", txn.TransactionNumber),
		zap.Uint64("orderId", txn.OrderID),
		zap.String("trackingCode", vres.TrackingCode))

	return &PaymentSettlement{
		Success:           true,
		TransactionNumber: txn.TransactionNumber,
		OrderID:           txn.OrderID,
		TrackingCode:      vres.TrackingCode,
		CardNumber:        vres.CardNumber,
	}, nil
}

// RefundPayment forwards a refund for a settled transaction and records the
// provider outcome as a refund-type transaction row.
func (s *PaymentService) RefundPayment(ctx context.Context, transactionNumber string, amount int64, reason string) (*gateway.RefundResult, error) {
	txn, err := s.store.Transactions().FindByNumber(ctx, transactionNumber)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domain.NotFoundf("transaction %s", transactionNumber)
	}
	if txn.Status != domain.TransactionStatusSuccess {
		return nil, domain.Conflictf("transaction %s is not settled (status %s)", transactionNumber, txn.Status)
	}
	if amount <= 0 || amount > txn.Amount {
		amount = txn.Amount
	}

	driver, err := s.gateways.Resolve(txn.PaymentMethod)
	if err != nil {
		return nil, err
	}

	res, err := driver.RefundPayment(ctx, gateway.RefundRequest{
		TransactionID:    txn.TransactionNumber,
		GatewayReference: txn.GatewayReference,
		Amount:           amount,
		Reason:           reason,
	})
	if err != nil {
		return nil, err
	}

	if res.Success {
		now := time.Now()
		refund := &domain.Transaction{
			TransactionNumber: domain.NewTransactionNumber(),
			OrderID:           txn.OrderID,
			UserID:            txn.UserID,
			Amount:            amount,
			NetAmount:         amount,
			Currency:          txn.Currency,
			Type:              domain.TransactionTypeRefund,
			PaymentMethod:     txn.PaymentMethod,
			Status:            domain.TransactionStatusSuccess,
			GatewayReference:  txn.GatewayReference,
			TrackingCode:      res.RefundID,
			CompletedAt:       &now,
			GatewayResponse: domain.GatewayAudit{
				Provider:         txn.PaymentMethod,
				Operation:        "refund",
				Success:          true,
				GatewayReference: txn.GatewayReference,
				TrackingCode:     res.RefundID,
			},
		}
		if err := s.store.Transactions().Create(ctx, refund); err != nil {
			return nil, err
		}
		s.logger.Info("payment refunded",
			zap.String("transactionNumber", transactionNumber),
			zap.Int64("amount", amount))
	}
	return res, nil
}

// PaymentStatus asks the provider for the current state of a transaction.
func (s *PaymentService) PaymentStatus(ctx context.Context, transactionNumber string) (*gateway.StatusResult, error) {
	txn, err := s.store.Transactions().FindByNumber(ctx, transactionNumber)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domain.NotFoundf("transaction %s", transactionNumber)
	}
	if txn.GatewayReference == "" {
		return nil, domain.Conflictf("transaction %s was never handed to a gateway", transactionNumber)
	}
	driver, err := s.gateways.Resolve(txn.PaymentMethod)
	if err != nil {
		return nil, err
	}
	return driver.PaymentStatus(ctx, txn.GatewayReference)
}

func (s *PaymentService) reloadSettled(ctx context.Context, id uint64) (*PaymentSettlement, error) {
	txn, err := s.store.Transactions().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domain.NotFoundf("transaction %d", id)
	}
	return settledOutcome(txn), nil
}

func settledOutcome(txn *domain.Transaction) *PaymentSettlement {
	return &PaymentSettlement{
		Success:           txn.Status == domain.TransactionStatusSuccess,
		AlreadySettled:    true,
		TransactionNumber: txn.TransactionNumber,
		OrderID:           txn.OrderID,
		TrackingCode:      txn.TrackingCode,
		CardNumber:        txn.CardNumber,
		ErrorMessage:      txn.ErrorMessage,
	}
}

func settlementEvent(txn *domain.Transaction, trackingCode, errorMessage string, at time.Time) domain.PaymentSettledEvent {
	return domain.PaymentSettledEvent{
		TransactionID:     txn.ID,
		TransactionNumber: txn.TransactionNumber,
		OrderID:           txn.OrderID,
		UserID:            txn.UserID,
		Amount:            txn.Amount,
		Provider:          txn.PaymentMethod,
		TrackingCode:      trackingCode,
		ErrorMessage:      errorMessage,
		SettledAt:         at,
	}
}

func (s *PaymentService) invalidateUserOrders(userID uint64) {
	if s.redisClient == nil {
		return
	}
	key := fmt.Sprintf("orders:user:%d", userID)
	if err := s.redisClient.Del(context.Background(), key).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *PaymentService) publish(event string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), event, data); err != nil {
		s.logger.Warn(fmt.Sprintf("failed to publish %s event", event), zap.Error(err))
	}
}
