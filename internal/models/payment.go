package models

// Gateway identifies a payment provider integration.
type Gateway string

const (
	GatewayEasebuzz Gateway = "easebuzz"
	GatewayPhonePe  Gateway = "phonepe"
	GatewayZohoPay  Gateway = "zohopay"
	GatewayUnknown  Gateway = "unknown"
)

// Outcome is the tri-state result of one verification pass.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePending Outcome = "pending"
)

// Failure reasons carried on the payment-failure redirect.
const (
	ReasonMissingOrderID = "missing_order_id"
	ReasonGatewayFailed  = "gateway_failed"
)

// PaymentDetails is the per-attempt view of a resolved payment. It is
// display state, not ledger state: the orders table is only ever
// advanced by the webhook path.
type PaymentDetails struct {
	Success       bool    `json:"success"`
	Pending       bool    `json:"pending,omitempty"`
	Gateway       Gateway `json:"gateway"`
	OrderID       string  `json:"order_id"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Amount        string  `json:"amount,omitempty"`
	Mode          string  `json:"mode,omitempty"`
	BankRefNum    string  `json:"bank_ref_num,omitempty"`
	Message       string  `json:"message,omitempty"`
	// Warnings records post-success side effects that failed without
	// reverting the success outcome (order update, invoice, notification).
	Warnings []string `json:"warnings,omitempty"`
}

// WebhookPayload is the server-verified payment webhook body.
type WebhookPayload struct {
	OrderID       string  `json:"order_id"`
	TransactionID string  `json:"transaction_id"`
	Gateway       Gateway `json:"gateway"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
}
