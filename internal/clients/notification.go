package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/omaguva-store/payments-service/internal/config"
	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/models"
)

// NotificationSender notifies the customer about a payment outcome.
type NotificationSender interface {
	SendPaymentNotification(ctx context.Context, req *PaymentNotification) error
	SendInvoiceEmail(ctx context.Context, to string, invoice *models.InvoiceData) error
}

// PaymentNotification is the payload for a payment outcome notification.
type PaymentNotification struct {
	OrderID       string         `json:"order_id"`
	Status        string         `json:"status"`
	Gateway       models.Gateway `json:"gateway"`
	CustomerEmail string         `json:"customer_email"`
	CustomerPhone string         `json:"customer_phone,omitempty"`
	Amount        string         `json:"amount,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
}

// Ensure HTTPNotificationClient implements NotificationSender
var _ NotificationSender = (*HTTPNotificationClient)(nil)

// HTTPNotificationClient implements NotificationSender using HTTP.
type HTTPNotificationClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.Logger
}

// NewHTTPNotificationClient creates a new HTTP-based notification client.
func NewHTTPNotificationClient(cfg config.ServiceConfig, logger *logging.Logger) *HTTPNotificationClient {
	return &HTTPNotificationClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// SendPaymentNotification tells the notification service about a
// payment outcome.
func (c *HTTPNotificationClient) SendPaymentNotification(ctx context.Context, req *PaymentNotification) error {
	c.logger.Debug("Sending payment notification", logging.Fields{
		"order_id": req.OrderID,
		"status":   req.Status,
		"gateway":  req.Gateway,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/notifications/payment", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	c.setHeaders(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Failed to send payment notification", logging.Fields{
			"order_id": req.OrderID,
			"error":    err.Error(),
		})
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}

	c.logger.Info("Payment notification sent", logging.Fields{
		"order_id": req.OrderID,
		"status":   req.Status,
	})

	return nil
}

// SendInvoiceEmail emails a generated invoice to the customer.
func (c *HTTPNotificationClient) SendInvoiceEmail(ctx context.Context, to string, invoice *models.InvoiceData) error {
	c.logger.Debug("Sending invoice email", logging.Fields{
		"to":       to,
		"order_id": invoice.OrderID,
	})

	payload := map[string]interface{}{
		"to":      to,
		"invoice": invoice,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/notifications/invoice", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	c.setHeaders(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}

	c.logger.Info("Invoice email sent", logging.Fields{
		"to":       to,
		"order_id": invoice.OrderID,
	})

	return nil
}

func (c *HTTPNotificationClient) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if requestID := ctx.Value(logging.RequestIDKey); requestID != nil {
		req.Header.Set(logging.HeaderRequestID, requestID.(string))
	}
}
