package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omaguva-store/payments-service/internal/clients"
	apperrors "github.com/omaguva-store/payments-service/internal/errors"
	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/models"
	"github.com/omaguva-store/payments-service/internal/service"
)

// CreateIntent handles POST /api/v1/payments/intents
func (h *Handlers) CreateIntent(c *gin.Context) {
	var req service.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.reconciliation.CreateIntent(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Verify handles POST /api/v1/payments/verify. The body carries the raw
// callback query string the gateway redirected back with, plus the
// attempt id issued by CreateIntent (optional when the callback is
// parameter-complete).
func (h *Handlers) Verify(c *gin.Context) {
	var req struct {
		AttemptID string            `json:"attempt_id"`
		Params    map[string]string `json:"params"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	params := make(map[string][]string, len(req.Params))
	for k, v := range req.Params {
		params[k] = []string{v}
	}

	attempt := h.reconciliation.StartVerification(c.Request.Context(), req.AttemptID, params)

	c.JSON(http.StatusAccepted, attempt)
}

// GetVerification handles GET /api/v1/payments/verifications/:id
func (h *Handlers) GetVerification(c *gin.Context) {
	attempt, err := h.reconciliation.GetAttempt(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetOrderPaymentStatus handles GET /api/v1/orders/:id/payment-status
func (h *Handlers) GetOrderPaymentStatus(c *gin.Context) {
	order, err := h.reconciliation.GetOrderPaymentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":       order.OrderID,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"gateway":        order.PaymentGateway,
		"transaction_id": order.TransactionID,
		"amount":         order.Amount,
		"currency":       order.Currency,
	})
}

// PaymentWebhook handles POST /api/v1/webhooks/payment. This is the
// only path that advances the ledger; verification results are display
// state.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if h.config.WebhookSecret != "" {
		signature := c.GetHeader("X-Webhook-Signature")
		if !validSignature(body, signature, h.config.WebhookSecret) {
			h.logger.Warn("Webhook signature rejected", logging.Fields{
				"remote": c.ClientIP(),
			})
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := service.ValidateWebhookPayload(&payload); err != nil {
		handleError(c, err)
		return
	}

	if err := h.reconciliation.ApplyWebhook(c.Request.Context(), &payload); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "applied"})
}

// PhonePeAudit handles GET /api/v1/payments/audit. Date-ranged batch
// status checks for reconciliation sweeps.
func (h *Handlers) PhonePeAudit(c *gin.Context) {
	if h.phonePeAudit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit client not configured"})
		return
	}

	req := clients.AuditRequest{
		FromDate:        c.Query("from"),
		ToDate:          c.Query("to"),
		MerchantOrderID: c.Query("merchantOrderId"),
	}
	if req.FromDate == "" || req.ToDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to dates are required"})
		return
	}

	result, err := h.phonePeAudit.AuditStatus(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func validSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func handleError(c *gin.Context, err error) {
	if apperrors.Is(err, apperrors.ErrNotFound) ||
		apperrors.Is(err, apperrors.ErrOrderNotFound) ||
		apperrors.Is(err, apperrors.ErrAttemptNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if validationErr, ok := err.(*apperrors.ValidationError); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
