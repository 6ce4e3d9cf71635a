package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	zarinpalAPIURL        = "https://payment.zarinpal.com/pg/v4/payment"
	zarinpalSandboxAPIURL = "https://sandbox.zarinpal.com/pg/v4/payment"
	zarinpalStartPayURL   = "https://payment.zarinpal.com/pg/StartPay"

	zarinpalCodeOK              = 100
	zarinpalCodeAlreadyVerified = 101
)

// Zarinpal amounts are rial on the wire while the pipeline accounts in
// toman, so every outbound amount is scaled up and checked both ways.
const zarinpalRialPerToman = 10

var zarinpalBounds = AmountBounds{Min: 1_000, Max: 500_000_000}

type ZarinpalConfig struct {
	MerchantID string
	Sandbox    bool
	// BaseURL overrides the provider endpoint; tests point it at a local server.
	BaseURL     string
	StartPayURL string
	Timeout     time.Duration
}

// Zarinpal speaks JSON over REST with a single merchant secret. The
// correlation token is the "authority" returned at initiation and echoed on
// the callback.
type Zarinpal struct {
	cfg         ZarinpalConfig
	baseURL     string
	startPayURL string
	client      *http.Client
	logger      *zap.Logger
}

func NewZarinpal(cfg ZarinpalConfig, logger *zap.Logger) *Zarinpal {
	base := cfg.BaseURL
	if base == "" {
		if cfg.Sandbox {
			base = zarinpalSandboxAPIURL
		} else {
			base = zarinpalAPIURL
		}
	}
	startPay := cfg.StartPayURL
	if startPay == "" {
		startPay = zarinpalStartPayURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Zarinpal{
		cfg:         cfg,
		baseURL:     base,
		startPayURL: startPay,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (z *Zarinpal) Name() string { return "zarinpal" }

type zarinpalEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type zarinpalData struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Authority string `json:"authority"`
	Status    string `json:"status"`
	RefID     int64  `json:"ref_id"`
	CardPan   string `json:"card_pan"`
	Amount    int64  `json:"amount"`
}

type zarinpalError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (z *Zarinpal) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if code, msg := zarinpalBounds.Check(req.Amount); code != "" {
		return &InitiateResult{Success: false, Amount: req.Amount, ErrorCode: code, ErrorMessage: msg}, nil
	}

	payload := map[string]any{
		"merchant_id":  z.cfg.MerchantID,
		"amount":       req.Amount * zarinpalRialPerToman,
		"callback_url": req.CallbackURL,
		"description":  req.Description,
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	data, zerr, err := z.post(ctx, "/request.json", payload)
	if err != nil {
		return &InitiateResult{Success: false, Amount: req.Amount, ErrorCode: CodeConnectionFailed, ErrorMessage: err.Error()}, nil
	}
	if zerr != nil {
		return &InitiateResult{
			Success:      false,
			Amount:       req.Amount,
			ErrorCode:    strconv.Itoa(zerr.Code),
			ErrorMessage: zerr.Message,
		}, nil
	}
	if data.Code != zarinpalCodeOK || data.Authority == "" {
		return &InitiateResult{
			Success:      false,
			Amount:       req.Amount,
			ErrorCode:    strconv.Itoa(data.Code),
			ErrorMessage: data.Message,
		}, nil
	}

	return &InitiateResult{
		Success:          true,
		PaymentURL:       fmt.Sprintf("%s/%s", z.startPayURL, data.Authority),
		TransactionID:    NewTransactionID("ZP"),
		GatewayReference: data.Authority,
		Amount:           req.Amount,
	}, nil
}

func (z *Zarinpal) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	payload := map[string]any{
		"merchant_id": z.cfg.MerchantID,
		"amount":      req.Amount * zarinpalRialPerToman,
		"authority":   req.GatewayReference,
	}

	data, zerr, err := z.post(ctx, "/verify.json", payload)
	if err != nil {
		return &VerifyResult{Success: false, ErrorCode: CodeConnectionFailed, ErrorMessage: err.Error()}, nil
	}
	if zerr != nil {
		return &VerifyResult{Success: false, ErrorCode: strconv.Itoa(zerr.Code), ErrorMessage: zerr.Message}, nil
	}
	// 101 means this authority was verified before; the provider treats the
	// repeat as settled, and so do we.
	if data.Code != zarinpalCodeOK && data.Code != zarinpalCodeAlreadyVerified {
		return &VerifyResult{Success: false, ErrorCode: strconv.Itoa(data.Code), ErrorMessage: data.Message}, nil
	}

	return &VerifyResult{
		Success:      true,
		TrackingCode: strconv.FormatInt(data.RefID, 10),
		CardNumber:   data.CardPan,
	}, nil
}

// Zarinpal has no self-service refund API on this integration tier.
func (z *Zarinpal) RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	return &RefundResult{
		Success:      false,
		ErrorCode:    CodeNotSupported,
		ErrorMessage: "zarinpal does not support programmatic refunds",
	}, nil
}

func (z *Zarinpal) PaymentStatus(ctx context.Context, gatewayReference string) (*StatusResult, error) {
	payload := map[string]any{
		"merchant_id": z.cfg.MerchantID,
		"authority":   gatewayReference,
	}

	data, zerr, err := z.post(ctx, "/inquiry.json", payload)
	if err != nil {
		return &StatusResult{GatewayReference: gatewayReference, ErrorCode: CodeConnectionFailed, ErrorMessage: err.Error()}, nil
	}
	if zerr != nil {
		return &StatusResult{GatewayReference: gatewayReference, ErrorCode: strconv.Itoa(zerr.Code), ErrorMessage: zerr.Message}, nil
	}

	return &StatusResult{
		Status:           data.Status,
		Amount:           data.Amount / zarinpalRialPerToman,
		GatewayReference: gatewayReference,
	}, nil
}

func (z *Zarinpal) post(ctx context.Context, path string, payload map[string]any) (*zarinpalData, *zarinpalError, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, z.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := z.client.Do(httpReq)
	if err != nil {
		z.logger.Warn("zarinpal request failed", zap.String("path", path), zap.Error(err))
		return nil, nil, err
	}
	defer resp.Body.Close()

	var envelope zarinpalEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, nil, fmt.Errorf("decode zarinpal response: %w", err)
	}

	// Failure responses put an object in "errors" and an empty array in
	// "data"; success is the reverse. Try data first.
	var data zarinpalData
	if len(envelope.Data) > 0 && envelope.Data[0] == '{' {
		if err := json.Unmarshal(envelope.Data, &data); err == nil && data.Code != 0 {
			return &data, nil, nil
		}
	}
	var zerr zarinpalError
	if len(envelope.Errors) > 0 && envelope.Errors[0] == '{' {
		if err := json.Unmarshal(envelope.Errors, &zerr); err == nil && zerr.Code != 0 {
			return nil, &zerr, nil
		}
	}
	return nil, nil, fmt.Errorf("unexpected zarinpal response shape")
}
