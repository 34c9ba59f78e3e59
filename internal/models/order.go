package models

import (
	"encoding/json"
	"time"
)

// OrderStatus is the fulfilment status of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus is the ledger status of an order's payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Order is a row in the orders table. The ledger columns
// (payment_status, transaction_id, payment_gateway_response) are
// authoritative; verification results never override a webhook write.
type Order struct {
	ID                     string          `json:"id"`
	OrderID                string          `json:"order_id"`
	CustomerName           string          `json:"customer_name"`
	CustomerEmail          string          `json:"customer_email"`
	CustomerPhone          string          `json:"customer_phone"`
	ShippingAddress        string          `json:"shipping_address"`
	ProductName            string          `json:"product_name"`
	Amount                 float64         `json:"amount"`
	Currency               string          `json:"currency"`
	Status                 OrderStatus     `json:"status"`
	PaymentStatus          PaymentStatus   `json:"payment_status"`
	PaymentGateway         string          `json:"payment_gateway"`
	TransactionID          string          `json:"transaction_id"`
	PaymentGatewayResponse json.RawMessage `json:"payment_gateway_response,omitempty"`
	AppliedOffer           json.RawMessage `json:"applied_offer,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// PaidLike reports whether the stored payment status already indicates a
// settled payment.
func (o *Order) PaidLike() bool {
	switch o.PaymentStatus {
	case PaymentStatusPaid, PaymentStatusConfirmed, PaymentStatusCompleted:
		return true
	}
	switch o.Status {
	case OrderStatusConfirmed, OrderStatusProcessing:
		return true
	}
	return false
}
