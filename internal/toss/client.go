package toss

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.tosspayments.com/v1"
	clientTimeout  = 15 * time.Second
)

// Error is a provider rejection (non-2xx response with a code/message body).
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("toss: %s (%s)", e.Message, e.Code)
}

// Client talks to the Toss Payments REST API. All calls use HTTP basic auth
// with base64(secretKey + ":") and honor the caller's context.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	logger    *zap.Logger
}

func NewClient(secretKey, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !strings.HasPrefix(secretKey, "test_") && !strings.HasPrefix(secretKey, "live_") {
		logger.Warn("toss secret key has unexpected prefix", zap.String("prefix", keyPrefix(secretKey)))
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: clientTimeout},
		logger:    logger,
	}
}

func keyPrefix(key string) string {
	if len(key) > 10 {
		return key[:10]
	}
	return key
}

// Confirm finalizes a payment. The provider rejects mismatched
// paymentKey/orderId/amount triples, which protects against a client
// tampering with the displayed amount.
func (c *Client) Confirm(ctx context.Context, req *ConfirmRequest) (*Payment, error) {
	var out Payment
	if err := c.call(ctx, http.MethodPost, "/payments/confirm", req, "", &out); err != nil {
		return nil, err
	}
	c.logger.Info("toss payment confirmed",
		zap.String("order_id", out.OrderID),
		zap.String("status", out.Status),
		zap.Int64("total_amount", out.TotalAmount))
	return &out, nil
}

// Cancel refunds a payment in full or in part. idempotencyKey makes the
// provider treat a retried request as the same cancellation.
func (c *Client) Cancel(ctx context.Context, paymentKey string, req *CancelRequest, idempotencyKey string) (*Payment, error) {
	var out Payment
	path := "/payments/" + paymentKey + "/cancel"
	if err := c.call(ctx, http.MethodPost, path, req, idempotencyKey, &out); err != nil {
		return nil, err
	}
	c.logger.Info("toss payment cancelled",
		zap.String("payment_key", paymentKey),
		zap.String("status", out.Status),
		zap.Int64("balance_amount", out.BalanceAmount))
	return &out, nil
}

// Get looks up a payment by paymentKey.
func (c *Client) Get(ctx context.Context, paymentKey string) (*Payment, error) {
	var out Payment
	if err := c.call(ctx, http.MethodGet, "/payments/"+paymentKey, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("toss: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("toss: build request: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.secretKey + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("toss: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("toss: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Code == "" {
			apiErr = &Error{Code: "UNKNOWN", Message: strings.TrimSpace(string(respBody))}
		}
		c.logger.Error("toss api rejected request",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("code", apiErr.Code))
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("toss: parse response: %w", err)
		}
	}
	return nil
}
