package models

import "time"

// InvoiceItem is one invoice line.
type InvoiceItem struct {
	Name     string   `json:"name"`
	Image    string   `json:"image,omitempty"`
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
	Total    float64  `json:"total"`
	Sizes    []string `json:"sizes,omitempty"`
	Colors   []string `json:"colors,omitempty"`
}

// InvoiceData is a denormalized snapshot of an order for display and
// download. Derived on demand, never stored.
type InvoiceData struct {
	OrderID         string        `json:"order_id"`
	Date            time.Time     `json:"date"`
	CustomerName    string        `json:"customer_name,omitempty"`
	CustomerEmail   string        `json:"customer_email,omitempty"`
	CustomerPhone   string        `json:"customer_phone,omitempty"`
	ShippingAddress string        `json:"shipping_address,omitempty"`
	Items           []InvoiceItem `json:"items"`
	Subtotal        float64       `json:"subtotal"`
	Shipping        float64       `json:"shipping,omitempty"`
	Tax             float64       `json:"tax,omitempty"`
	Total           float64       `json:"total"`
}
