package models

import "time"

// CartItem is one line of the cart snapshot persisted before redirecting
// to a gateway, used to rebuild the order summary when ledger sync is
// skipped.
type CartItem struct {
	Name     string   `json:"name"`
	Image    string   `json:"image,omitempty"`
	Price    float64  `json:"price"`
	Quantity int      `json:"quantity"`
	Sizes    []string `json:"sizes,omitempty"`
	Colors   []string `json:"colors,omitempty"`
}

// PaymentIntent is the typed pending-payment record written before the
// gateway redirect and read back on return. It replaces the loose JSON
// blobs the storefront used to stash in browser session storage.
type PaymentIntent struct {
	AttemptID     string  `json:"attempt_id"`
	Gateway       Gateway `json:"gateway"`
	OrderID       string  `json:"order_id"`
	TxnID         string  `json:"txnid,omitempty"`
	UDF2          string  `json:"udf2,omitempty"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Status        string  `json:"status,omitempty"`
	Amount        string  `json:"amount,omitempty"`
	Mode          string  `json:"mode,omitempty"`
	BankRefNum    string  `json:"bank_ref_num,omitempty"`
	PaymentID     string  `json:"payment_id,omitempty"`
	SessionID     string  `json:"payments_session_id,omitempty"`
	ReferenceID   string  `json:"reference_id,omitempty"`
	CustomerName  string  `json:"customer_name,omitempty"`
	CustomerEmail string  `json:"customer_email,omitempty"`
	CustomerPhone string  `json:"customer_phone,omitempty"`
	ProductInfo   string  `json:"product_info,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the intent is past its expiry. Expired
// snapshots are treated as absent on read rather than trusted blindly.
func (i *PaymentIntent) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}
