package gateway

import (
	"net/url"

	"github.com/omaguva-store/payments-service/internal/models"
)

// zohoPayParser matches Zoho Pay callbacks: payment_id,
// payments_session_id, reference_id.
type zohoPayParser struct{}

func (zohoPayParser) Gateway() models.Gateway { return models.GatewayZohoPay }

func (zohoPayParser) Parse(params url.Values, snaps Snapshots) (*Callback, bool) {
	fromParams := has(params, "payment_id", "payments_session_id", "reference_id")

	if !fromParams && snaps.Zoho == nil {
		return nil, false
	}

	return &Callback{
		Gateway:    models.GatewayZohoPay,
		Params:     params,
		Intent:     snaps.Zoho,
		FromParams: fromParams,
	}, true
}

// ZohoPaymentID resolves the Zoho payment id from params or session.
func ZohoPaymentID(cb *Callback) string {
	var sessionPaymentID string
	if cb.Intent != nil {
		sessionPaymentID = cb.Intent.PaymentID
	}
	return firstNonEmpty(cb.Params.Get("payment_id"), sessionPaymentID)
}

// ZohoSessionID resolves the Zoho payments session id.
func ZohoSessionID(cb *Callback) string {
	var sessionSID string
	if cb.Intent != nil {
		sessionSID = cb.Intent.SessionID
	}
	return firstNonEmpty(
		cb.Params.Get("payments_session_id"),
		cb.Params.Get("session_id"),
		sessionSID,
	)
}

// ZohoReferenceID resolves the merchant reference id.
func ZohoReferenceID(cb *Callback) string {
	var sessionRef, sessionOrderID string
	if cb.Intent != nil {
		sessionRef = cb.Intent.ReferenceID
		sessionOrderID = cb.Intent.OrderID
	}
	return firstNonEmpty(
		cb.Params.Get("reference_id"),
		cb.Params.Get("order_id"),
		sessionRef,
		sessionOrderID,
	)
}

// ZohoStatus resolves the raw Zoho status string.
func ZohoStatus(cb *Callback) string {
	status := cb.Params.Get("status")
	if status == "" && cb.Intent != nil {
		status = cb.Intent.Status
	}
	return status
}

func zohoOrderID(cb *Callback, snaps Snapshots) string {
	return firstNonEmpty(
		ZohoReferenceID(cb),
		cb.Params.Get("orderId"),
		snaps.ZohoOrderID,
	)
}
