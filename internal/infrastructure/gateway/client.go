package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bitewise/checkout/internal/domain/payment"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// Client talks to the payment gateway's REST surface. The HTTP client
// carries a hard timeout so a hung gateway becomes a failure with
// compensation, not a hang. Ambiguous failures are never retried here;
// callers pass an idempotency key and an external job owns retries.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger.With(zap.String("component", "payment_gateway")),
	}
}

type intentPayload struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type intentResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func (c *Client) CreateIntent(ctx context.Context, req payment.CreateIntentRequest) (*payment.Intent, error) {
	if req.Amount <= 0 {
		return nil, payment.ErrInvalidAmount
	}

	var resp intentResponse
	err := c.do(ctx, http.MethodPost, "/v1/orders", req.IdempotencyKey, intentPayload{
		Amount:   req.Amount,
		Currency: req.Currency,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.log.Info("intent_created",
		zap.String("intent_ref", resp.ID),
		zap.Int64("amount", resp.Amount),
	)
	return &payment.Intent{
		Ref:      resp.ID,
		Amount:   resp.Amount,
		Currency: resp.Currency,
	}, nil
}

type refundPayload struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Client) Refund(ctx context.Context, req payment.RefundRequest) (*payment.Refund, error) {
	if req.Amount <= 0 {
		return nil, payment.ErrInvalidAmount
	}
	if req.PaymentRef == "" {
		return nil, fmt.Errorf("%w: payment reference is required", payment.ErrRefundFailed)
	}

	var resp refundResponse
	err := c.do(ctx, http.MethodPost, "/v1/payments/"+req.PaymentRef+"/refund", req.IdempotencyKey, refundPayload{
		Amount:   req.Amount,
		Currency: req.Currency,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.log.Info("refund_created",
		zap.String("refund_ref", resp.ID),
		zap.String("payment_ref", req.PaymentRef),
	)
	return &payment.Refund{Ref: resp.ID, Status: resp.Status}, nil
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	payloadBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gateway: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and transport faults are ambiguous: the gateway may
		// or may not have acted. Surface as unavailable, never retry.
		return fmt.Errorf("%w: %v", payment.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", payment.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: gateway returned %d", payment.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("gateway: rejected with %d: %s", resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("gateway: decode response: %w", err)
		}
	}
	return nil
}
