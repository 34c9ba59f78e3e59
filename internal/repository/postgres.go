package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	apperrors "github.com/omaguva-store/payments-service/internal/errors"
	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/models"
)

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB, logger *logging.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logger,
	}
}

// GetByOrderID retrieves an order by its public order id.
func (r *PostgresOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	r.logger.Debug("Fetching order", logging.Fields{"order_id": orderID})

	query := `
		SELECT id, order_id, customer_name, customer_email, customer_phone,
		       shipping_address, product_name, amount, currency, status,
		       payment_status, payment_gateway, transaction_id,
		       payment_gateway_response, applied_offer, created_at, updated_at
		FROM orders
		WHERE order_id = $1
	`

	var order models.Order
	var phone, address, productName, gateway, transactionID sql.NullString
	var gatewayResponse, appliedOffer []byte

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID,
		&order.OrderID,
		&order.CustomerName,
		&order.CustomerEmail,
		&phone,
		&address,
		&productName,
		&order.Amount,
		&order.Currency,
		&order.Status,
		&order.PaymentStatus,
		&gateway,
		&transactionID,
		&gatewayResponse,
		&appliedOffer,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.ErrOrderNotFound
	}
	if err != nil {
		r.logger.Error("Failed to fetch order", logging.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		})
		return nil, err
	}

	if phone.Valid {
		order.CustomerPhone = phone.String
	}
	if address.Valid {
		order.ShippingAddress = address.String
	}
	if productName.Valid {
		order.ProductName = productName.String
	}
	if gateway.Valid {
		order.PaymentGateway = gateway.String
	}
	if transactionID.Valid {
		order.TransactionID = transactionID.String
	}
	if len(gatewayResponse) > 0 {
		order.PaymentGatewayResponse = json.RawMessage(gatewayResponse)
	}
	if len(appliedOffer) > 0 {
		order.AppliedOffer = json.RawMessage(appliedOffer)
	}

	return &order, nil
}

// UpdatePaymentStatus advances the ledger columns of an order.
func (r *PostgresOrderRepository) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, transactionID string, gatewayResponse json.RawMessage) error {
	r.logger.Debug("Updating payment status", logging.Fields{
		"order_id":       orderID,
		"payment_status": status,
	})

	query := `
		UPDATE orders
		SET payment_status = $2,
		    transaction_id = COALESCE(NULLIF($3, ''), transaction_id),
		    payment_gateway_response = COALESCE($4, payment_gateway_response),
		    updated_at = $5
		WHERE order_id = $1
	`

	var responseArg interface{}
	if len(gatewayResponse) > 0 {
		responseArg = []byte(gatewayResponse)
	}

	result, err := r.db.ExecContext(ctx, query, orderID, status, transactionID, responseArg, time.Now())
	if err != nil {
		r.logger.Error("Failed to update payment status", logging.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		})
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return apperrors.ErrOrderNotFound
	}

	r.logger.Info("Payment status updated", logging.Fields{
		"order_id":       orderID,
		"payment_status": status,
	})

	return nil
}
