package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/omaguva-store/payments-service/internal/config"
	"github.com/omaguva-store/payments-service/internal/logging"
)

// PhonePeStatusClient checks the state of a PhonePe order.
type PhonePeStatusClient interface {
	OrderStatus(ctx context.Context, merchantOrderID string) (*PhonePeStatus, error)
}

// PhonePePaymentDetail is one settlement line inside a PhonePe status
// response.
type PhonePePaymentDetail struct {
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
	PaymentMode   string `json:"paymentMode"`
}

// PhonePeStatus is the subset of the PhonePe order-status response the
// verifier consumes. Amounts are in paise.
type PhonePeStatus struct {
	State          string                 `json:"state"`
	TransactionID  string                 `json:"transactionId"`
	Amount         int64                  `json:"amount"`
	TotalAmount    int64                  `json:"totalAmount"`
	PaymentDetails []PhonePePaymentDetail `json:"paymentDetails"`
}

// LatestTransactionID returns the transaction id of the most recent
// settlement line, falling back to the top-level id.
func (s *PhonePeStatus) LatestTransactionID() string {
	if n := len(s.PaymentDetails); n > 0 && s.PaymentDetails[n-1].TransactionID != "" {
		return s.PaymentDetails[n-1].TransactionID
	}
	return s.TransactionID
}

// AmountPaise returns the settled amount in paise, preferring the
// total over the per-line amount.
func (s *PhonePeStatus) AmountPaise() int64 {
	if s.TotalAmount > 0 {
		return s.TotalAmount
	}
	return s.Amount
}

// Ensure HTTPPhonePeClient implements PhonePeStatusClient
var _ PhonePeStatusClient = (*HTTPPhonePeClient)(nil)

// HTTPPhonePeClient implements PhonePeStatusClient using HTTP.
type HTTPPhonePeClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.Logger
}

// NewHTTPPhonePeClient creates a new HTTP-based PhonePe status client.
func NewHTTPPhonePeClient(cfg config.ServiceConfig, logger *logging.Logger) *HTTPPhonePeClient {
	return &HTTPPhonePeClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// OrderStatus fetches the current state of a merchant order.
func (c *HTTPPhonePeClient) OrderStatus(ctx context.Context, merchantOrderID string) (*PhonePeStatus, error) {
	c.logger.Debug("Checking PhonePe order status", logging.Fields{
		"merchant_order_id": merchantOrderID,
	})

	payload := map[string]interface{}{
		"merchantOrderId": merchantOrderID,
		"details":         true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/status", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.setHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("PhonePe status call failed", logging.Fields{
			"merchant_order_id": merchantOrderID,
			"error":             err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("phonepe status returned status %d", resp.StatusCode)
	}

	var status PhonePeStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}

	c.logger.Debug("PhonePe order status", logging.Fields{
		"merchant_order_id": merchantOrderID,
		"state":             status.State,
	})

	return &status, nil
}

func (c *HTTPPhonePeClient) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if requestID := ctx.Value(logging.RequestIDKey); requestID != nil {
		req.Header.Set(logging.HeaderRequestID, requestID.(string))
	}
}
