package service

import (
	"encoding/json"
	"time"

	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/models"
)

// InvoiceService derives invoice snapshots from order rows or cart
// snapshots. Invoices are computed on demand, never stored.
type InvoiceService struct {
	logger *logging.Logger
}

// NewInvoiceService creates the invoice service.
func NewInvoiceService(logger *logging.Logger) *InvoiceService {
	return &InvoiceService{logger: logger}
}

// appliedOffer is the shape of the orders.applied_offer JSON column,
// which carries the itemized cart when an offer was applied at checkout.
type appliedOffer struct {
	Items []struct {
		Name     string   `json:"name"`
		Image    string   `json:"image"`
		Price    float64  `json:"price"`
		Quantity int      `json:"quantity"`
		Sizes    []string `json:"sizes"`
		Colors   []string `json:"colors"`
	} `json:"items"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
}

// GenerateFromOrder builds an invoice from an order row. Items come
// from the applied_offer column when present, else a single line is
// synthesized from the order's product name and amount.
func (s *InvoiceService) GenerateFromOrder(order *models.Order) (*models.InvoiceData, error) {
	invoice := &models.InvoiceData{
		OrderID:         order.OrderID,
		Date:            order.CreatedAt,
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		CustomerPhone:   order.CustomerPhone,
		ShippingAddress: order.ShippingAddress,
		Total:           order.Amount,
	}

	if len(order.AppliedOffer) > 0 {
		var offer appliedOffer
		if err := json.Unmarshal(order.AppliedOffer, &offer); err != nil {
			s.logger.Warn("Unparseable applied_offer column", logging.Fields{
				"order_id": order.OrderID,
				"error":    err.Error(),
			})
		} else if len(offer.Items) > 0 {
			for _, item := range offer.Items {
				qty := item.Quantity
				if qty <= 0 {
					qty = 1
				}
				line := models.InvoiceItem{
					Name:     item.Name,
					Image:    item.Image,
					Quantity: qty,
					Price:    item.Price,
					Total:    item.Price * float64(qty),
					Sizes:    item.Sizes,
					Colors:   item.Colors,
				}
				invoice.Items = append(invoice.Items, line)
				invoice.Subtotal += line.Total
			}
			invoice.Shipping = offer.Shipping
			invoice.Tax = offer.Tax
			return invoice, nil
		}
	}

	name := order.ProductName
	if name == "" {
		name = "Order " + order.OrderID
	}
	invoice.Items = []models.InvoiceItem{{
		Name:     name,
		Quantity: 1,
		Price:    order.Amount,
		Total:    order.Amount,
	}}
	invoice.Subtotal = order.Amount

	return invoice, nil
}

// GenerateFromCart builds an invoice from the cart snapshot persisted
// before the redirect, used when ledger sync is skipped and no order
// row is available.
func (s *InvoiceService) GenerateFromCart(orderID string, cart []models.CartItem, date time.Time) *models.InvoiceData {
	invoice := &models.InvoiceData{
		OrderID: orderID,
		Date:    date,
	}

	for _, item := range cart {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		line := models.InvoiceItem{
			Name:     item.Name,
			Image:    item.Image,
			Quantity: qty,
			Price:    item.Price,
			Total:    item.Price * float64(qty),
			Sizes:    item.Sizes,
			Colors:   item.Colors,
		}
		invoice.Items = append(invoice.Items, line)
		invoice.Subtotal += line.Total
	}

	invoice.Total = invoice.Subtotal
	return invoice
}
