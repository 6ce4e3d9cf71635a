package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const rayanPayAPIURL = "https://pms.rayanpay.com/api/v1"

var rayanPayBounds = AmountBounds{Min: 10_000, Max: 1_000_000_000}

type RayanPayConfig struct {
	MerchantID string
	APIKey     string
	Sandbox    bool
	BaseURL    string
	Timeout    time.Duration
}

// RayanPay speaks JSON over REST, authenticated with an API key header. Its
// correlation token is a session token returned at initiation. Amounts are
// toman end to end; no scaling.
type RayanPay struct {
	cfg     RayanPayConfig
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewRayanPay(cfg RayanPayConfig, logger *zap.Logger) *RayanPay {
	base := cfg.BaseURL
	if base == "" {
		base = rayanPayAPIURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &RayanPay{
		cfg:     cfg,
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (r *RayanPay) Name() string { return "rayanpay" }

type rayanPayResponse struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	Token        string `json:"token"`
	PaymentURL   string `json:"paymentUrl"`
	RRN          string `json:"rrn"`
	MaskedPan    string `json:"maskedPan"`
	RefundID     string `json:"refundId"`
	Amount       int64  `json:"amount"`
	PaidAt       string `json:"paidAt"`
}

func (rr *rayanPayResponse) ok() bool { return rr.Status == "ok" }

func (rr *rayanPayResponse) errCode() string {
	if rr.ErrorCode != "" {
		return rr.ErrorCode
	}
	return rr.Status
}

func (r *RayanPay) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if code, msg := rayanPayBounds.Check(req.Amount); code != "" {
		return &InitiateResult{Success: false, Amount: req.Amount, ErrorCode: code, ErrorMessage: msg}, nil
	}

	resp, err := r.post(ctx, "/payment/start", map[string]any{
		"merchantId":  r.cfg.MerchantID,
		"amount":      req.Amount,
		"orderId":     req.OrderID,
		"callbackUrl": req.CallbackURL,
		"description": req.Description,
		"sandbox":     r.cfg.Sandbox,
	})
	if err != nil {
		return &InitiateResult{Success: false, Amount: req.Amount, ErrorCode: CodeConnectionFailed, ErrorMessage: err.Error()}, nil
	}
	if !resp.ok() || resp.Token == "" {
		return &InitiateResult{Success: false, Amount: req.Amount, ErrorCode: resp.errCode(), ErrorMessage: resp.ErrorMessage}, nil
	}

	return &InitiateResult{
		Success:          true,
		PaymentURL:       resp.PaymentURL,
		TransactionID:    NewTransactionID("RP"),
		GatewayReference: resp.Token,
		Amount:           req.Amount,
	}, nil
}

func (r *RayanPay) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	resp, err := r.post(ctx, "/payment/verify", map[string]any{
		"merchantId": r.cfg.MerchantID,
		"token":      req.GatewayReference,
		"amount":     req.Amount,
	})
	if err != nil {
		return &VerifyResult{Success: false, ErrorCode: CodeConnectionFailed, ErrorMessage: err.Error()}, nil
	}
	if !resp.ok() {
		return &VerifyResult{Success: false, ErrorCode: resp.errCode(), ErrorMessage: resp.ErrorMessage}, nil
	}

	return &VerifyResult{
		Success:      true,
		TrackingCode: resp.RRN,
		CardNumber:   resp.MaskedPan,
	}, nil
}

func (r *RayanPay) RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	resp, err := r.post(ctx, "/payment/refund", map[string]any{
		"merchantId": r.cfg.MerchantID,
		"token":      req.GatewayReference,
		"amount":     req.Amount,
		"reason":     req.Reason,
	})
	if err != nil {
		return &RefundResult{Success: false, ErrorCode: CodeConnectionFailed, ErrorMessage: err.Error()}, nil
	}
	if !resp.ok() {
		return &RefundResult{Success: false, ErrorCode: resp.errCode(), ErrorMessage: resp.ErrorMessage}, nil
	}
	return &RefundResult{Success: true, RefundID: resp.RefundID}, nil
}

func (r *RayanPay) PaymentStatus(ctx context.Context, gatewayReference string) (*StatusResult, error) {
	resp, err := r.post(ctx, "/payment/inquiry", map[string]any{
		"merchantId": r.cfg.MerchantID,
		"token":      gatewayReference,
	})
	if err != nil {
		return &StatusResult{GatewayReference: gatewayReference, ErrorCode: CodeConnectionFailed, ErrorMessage: err.Error()}, nil
	}

	out := &StatusResult{
		Status:           resp.Status,
		Amount:           resp.Amount,
		GatewayReference: gatewayReference,
	}
	if !resp.ok() {
		out.ErrorCode = resp.errCode()
		out.ErrorMessage = resp.ErrorMessage
	}
	if resp.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, resp.PaidAt); err == nil {
			out.TransactionDate = &t
		}
	}
	return out, nil
}

func (r *RayanPay) post(ctx context.Context, path string, payload map[string]any) (*rayanPayResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", r.cfg.APIKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		r.logger.Warn("rayanpay request failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	var out rayanPayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rayanpay response: %w", err)
	}
	return &out, nil
}
