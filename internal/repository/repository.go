package repository

import (
	"context"
	"encoding/json"

	"github.com/omaguva-store/payments-service/internal/models"
)

// OrderRepository is the ledger-facing order store.
type OrderRepository interface {
	// GetByOrderID fetches an order by its public order id (not the row
	// uuid). Returns errors.ErrOrderNotFound when absent.
	GetByOrderID(ctx context.Context, orderID string) (*models.Order, error)

	// UpdatePaymentStatus marks an order's payment status, recording the
	// transaction id and the raw gateway response when present.
	UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, transactionID string, gatewayResponse json.RawMessage) error
}

// OrderCache is a read-through cache keyed by public order id.
type OrderCache interface {
	Get(ctx context.Context, orderID string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, orderID string) error
}
