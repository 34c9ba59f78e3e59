package service

import (
	"strings"

	apperrors "github.com/omaguva-store/payments-service/internal/errors"
	"github.com/omaguva-store/payments-service/internal/models"
)

// ValidateIntentRequest checks a pre-redirect intent declaration.
func ValidateIntentRequest(req *IntentRequest) error {
	if req == nil {
		return apperrors.NewValidationError("body", "request body is required")
	}

	switch req.Gateway {
	case models.GatewayEasebuzz, models.GatewayPhonePe, models.GatewayZohoPay:
	default:
		return apperrors.NewValidationError("gateway", "gateway must be one of easebuzz, phonepe, zohopay")
	}

	if strings.TrimSpace(req.OrderID) == "" {
		return apperrors.NewValidationError("order_id", "order id is required")
	}
	if strings.ContainsAny(req.OrderID, " \t\n") {
		return apperrors.NewValidationError("order_id", "order id must not contain whitespace")
	}

	if req.Amount <= 0 {
		return apperrors.NewValidationError("amount", "amount must be positive")
	}

	if req.CustomerEmail != "" && !strings.Contains(req.CustomerEmail, "@") {
		return apperrors.NewValidationError("customer_email", "invalid email address")
	}

	return nil
}

// ValidateWebhookPayload checks a payment webhook body.
func ValidateWebhookPayload(payload *models.WebhookPayload) error {
	if payload == nil {
		return apperrors.NewValidationError("body", "request body is required")
	}
	if strings.TrimSpace(payload.OrderID) == "" {
		return apperrors.NewValidationError("order_id", "order id is required")
	}
	if payload.Status == "" {
		return apperrors.NewValidationError("status", "status is required")
	}
	return nil
}
