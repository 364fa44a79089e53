package paymentgateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	errors "github.com/eventflow/event-management/internal"
)

type Config struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

// Client talks to the Razorpay REST API for order creation and verifies the
// two HMAC signature schemes: payment signatures (key secret over
// "orderId|paymentId") and webhook signatures (webhook secret over the raw
// request body).
type Client struct {
	httpClient    *http.Client
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	logger        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       cfg.BaseURL,
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

// PublicKey returns the key id handed to the checkout frontend.
func (c *Client) PublicKey() string {
	return c.keyID
}

type OrderParams struct {
	Amount   int64 // minor currency units
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func (c *Client) CreateOrder(ctx context.Context, params OrderParams) (*Order, error) {
	payload := map[string]interface{}{
		"amount":   params.Amount,
		"currency": params.Currency,
		"receipt":  params.Receipt,
	}
	if len(params.Notes) > 0 {
		payload["notes"] = params.Notes
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/orders", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create order request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	c.logger.Info("creating gateway order",
		"receipt", params.Receipt,
		"amount", params.Amount,
		"currency", params.Currency)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("gateway order request failed", "error", err, "receipt", params.Receipt)
		return nil, errors.NewExternalError("payment gateway unreachable", errors.ErrCodeGatewayError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewExternalError("failed to read gateway response", errors.ErrCodeGatewayError, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("gateway order creation rejected",
			"status", resp.StatusCode,
			"response", string(respBody),
			"receipt", params.Receipt)
		return nil, errors.NewExternalError(
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode),
			errors.ErrCodeGatewayError, nil)
	}

	var order Order
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, errors.NewExternalError("failed to decode gateway response", errors.ErrCodeGatewayError, err)
	}

	c.logger.Info("gateway order created",
		"order_id", order.ID,
		"receipt", params.Receipt,
		"status", order.Status)

	return &order, nil
}

// VerifyPaymentSignature checks the client-side checkout signature: an
// HMAC-SHA256 of "orderId|paymentId" under the key secret, hex encoded.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the server-to-server webhook signature over
// the raw, unparsed request body. The body must be the exact bytes received;
// re-serialized JSON will not verify.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
