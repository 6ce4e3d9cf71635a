package gateway

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	parsianBaseURL    = "https://pec.shaparak.ir/NewIPGServices"
	parsianGatewayURL = "https://pec.shaparak.ir/NewIPG/?Token="

	parsianSalePath     = "/Sale/SaleService.asmx"
	parsianConfirmPath  = "/Confirm/ConfirmService.asmx"
	parsianReversalPath = "/Reverse/ReversalService.asmx"

	parsianSaleAction     = "https://pec.Shaparak.ir/NewIPGServices/Sale/SaleService/SalePaymentRequest"
	parsianConfirmAction  = "https://pec.Shaparak.ir/NewIPGServices/Confirm/ConfirmService/ConfirmPayment"
	parsianReversalAction = "https://pec.Shaparak.ir/NewIPGServices/Reverse/ReversalService/ReversalRequest"

	parsianStatusOK = 0
)

var parsianBounds = AmountBounds{Min: 1_000, Max: 1_000_000_000}

type ParsianConfig struct {
	// LoginAccount is the merchant pin issued by the provider.
	LoginAccount string
	BaseURL      string
	GatewayURL   string
	Timeout      time.Duration
}

// Parsian speaks SOAP/XML: requests are hand-built envelopes, responses are
// decoded with encoding/xml. Settlement is two-step on the wire (sale, then
// confirm); the confirm step runs inside VerifyPayment so callers see the
// same two-call shape as the JSON providers.
type Parsian struct {
	cfg        ParsianConfig
	baseURL    string
	gatewayURL string
	client     *http.Client
	logger     *zap.Logger
}

func NewParsian(cfg ParsianConfig, logger *zap.Logger) *Parsian {
	base := cfg.BaseURL
	if base == "" {
		base = parsianBaseURL
	}
	gw := cfg.GatewayURL
	if gw == "" {
		gw = parsianGatewayURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Parsian{
		cfg:        cfg,
		baseURL:    base,
		gatewayURL: gw,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (p *Parsian) Name() string { return "parsian" }

type parsianSaleEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result struct {
				Token   int64  `xml:"Token"`
				Status  int32  `xml:"Status"`
				Message string `xml:"Message"`
			} `xml:"SalePaymentRequestResult"`
		} `xml:"SalePaymentRequestResponse"`
	} `xml:"Body"`
}

type parsianConfirmEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result struct {
				Status           int32  `xml:"Status"`
				Token            int64  `xml:"Token"`
				RRN              int64  `xml:"RRN"`
				CardNumberMasked string `xml:"CardNumberMasked"`
			} `xml:"ConfirmPaymentResult"`
		} `xml:"ConfirmPaymentResponse"`
	} `xml:"Body"`
}

type parsianReversalEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result struct {
				Status  int32  `xml:"Status"`
				Token   int64  `xml:"Token"`
				Message string `xml:"Message"`
			} `xml:"ReversalRequestResult"`
		} `xml:"ReversalRequestResponse"`
	} `xml:"Body"`
}

const parsianSaleRequestTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <SalePaymentRequest xmlns="https://pec.Shaparak.ir/NewIPGServices/Sale/SaleService">
      <requestData>
        <LoginAccount>%s</LoginAccount>
        <Amount>%d</Amount>
        <OrderId>%d</OrderId>
        <CallBackUrl>%s</CallBackUrl>
        <AdditionalData>%s</AdditionalData>
      </requestData>
    </SalePaymentRequest>
  </soap:Body>
</soap:Envelope>`

const parsianConfirmRequestTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ConfirmPayment xmlns="https://pec.Shaparak.ir/NewIPGServices/Confirm/ConfirmService">
      <requestData>
        <LoginAccount>%s</LoginAccount>
        <Token>%d</Token>
      </requestData>
    </ConfirmPayment>
  </soap:Body>
</soap:Envelope>`

const parsianReversalRequestTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ReversalRequest xmlns="https://pec.Shaparak.ir/NewIPGServices/Reverse/ReversalService">
      <requestData>
        <LoginAccount>%s</LoginAccount>
        <Token>%d</Token>
      </requestData>
    </ReversalRequest>
  </soap:Body>
</soap:Envelope>`

func (p *Parsian) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if code, msg := parsianBounds.Check(req.Amount); code != "" {
		return &InitiateResult{Success: false, Amount: req.Amount, ErrorCode: code, ErrorMessage: msg}, nil
	}

	envelope := fmt.Sprintf(parsianSaleRequestTemplate,
		xmlEscape(p.cfg.LoginAccount),
		req.Amount,
		req.OrderID,
		xmlEscape(req.CallbackURL),
		xmlEscape(req.Description),
	)

	var parsed parsianSaleEnvelope
	if err := p.call(ctx, parsianSalePath, parsianSaleAction, envelope, &parsed); err != nil {
		return &InitiateResult{Success: false, Amount: req.Amount, ErrorCode: CodeConnectionFailed, ErrorMessage: err.Error()}, nil
	}

	result := parsed.Body.Response.Result
	if result.Status != parsianStatusOK || result.Token == 0 {
		return &InitiateResult{
			Success:      false,
			Amount:       req.Amount,
			ErrorCode:    strconv.Itoa(int(result.Status)),
			ErrorMessage: parsianStatusMessage(result.Status),
		}, nil
	}

	token := strconv.FormatInt(result.Token, 10)
	return &InitiateResult{
		Success:          true,
		PaymentURL:       p.gatewayURL + token,
		TransactionID:    NewTransactionID("PEC"),
		GatewayReference: token,
		Amount:           req.Amount,
	}, nil
}

func (p *Parsian) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	token, err := strconv.ParseInt(req.GatewayReference, 10, 64)
	if err != nil {
		return &VerifyResult{Success: false, ErrorCode: CodeInvalidResponse, ErrorMessage: "malformed parsian token: " + req.GatewayReference}, nil
	}

	envelope := fmt.Sprintf(parsianConfirmRequestTemplate, xmlEscape(p.cfg.LoginAccount), token)

	var parsed parsianConfirmEnvelope
	if err := p.call(ctx, parsianConfirmPath, parsianConfirmAction, envelope, &parsed); err != nil {
		return &VerifyResult{Success: false, ErrorCode: CodeConnectionFailed, ErrorMessage: err.Error()}, nil
	}

	result := parsed.Body.Response.Result
	if result.Status != parsianStatusOK {
		return &VerifyResult{
			Success:      false,
			ErrorCode:    strconv.Itoa(int(result.Status)),
			ErrorMessage: parsianStatusMessage(result.Status),
		}, nil
	}

	return &VerifyResult{
		Success:      true,
		TrackingCode: strconv.FormatInt(result.RRN, 10),
		CardNumber:   result.CardNumberMasked,
	}, nil
}

func (p *Parsian) RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	token, err := strconv.ParseInt(req.GatewayReference, 10, 64)
	if err != nil {
		return &RefundResult{Success: false, ErrorCode: CodeInvalidResponse, ErrorMessage: "malformed parsian token: " + req.GatewayReference}, nil
	}

	envelope := fmt.Sprintf(parsianReversalRequestTemplate, xmlEscape(p.cfg.LoginAccount), token)

	var parsed parsianReversalEnvelope
	if err := p.call(ctx, parsianReversalPath, parsianReversalAction, envelope, &parsed); err != nil {
		return &RefundResult{Success: false, ErrorCode: CodeConnectionFailed, ErrorMessage: err.Error()}, nil
	}

	result := parsed.Body.Response.Result
	if result.Status != parsianStatusOK {
		return &RefundResult{
			Success:      false,
			ErrorCode:    strconv.Itoa(int(result.Status)),
			ErrorMessage: parsianStatusMessage(result.Status),
		}, nil
	}
	return &RefundResult{Success: true, RefundID: strconv.FormatInt(result.Token, 10)}, nil
}

// Parsian exposes no read-only inquiry; ConfirmPayment is idempotent for a
// settled token, so it doubles as the status probe.
func (p *Parsian) PaymentStatus(ctx context.Context, gatewayReference string) (*StatusResult, error) {
	res, err := p.VerifyPayment(ctx, VerifyRequest{GatewayReference: gatewayReference})
	if err != nil {
		return nil, err
	}
	out := &StatusResult{GatewayReference: gatewayReference}
	if res.Success {
		out.Status = "PAID"
	} else {
		out.Status = "FAILED"
		out.ErrorCode = res.ErrorCode
		out.ErrorMessage = res.ErrorMessage
	}
	return out, nil
}

func (p *Parsian) call(ctx context.Context, path, action, envelope string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewBufferString(envelope))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", action)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Warn("parsian request failed", zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode parsian envelope: %w", err)
	}
	return nil
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
