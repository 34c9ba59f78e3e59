package gateway

import (
	"net/url"
	"strings"

	"github.com/omaguva-store/payments-service/internal/models"
)

// easebuzzParser matches Easebuzz surl/furl callbacks. Easebuzz posts
// PayU-shaped fields: txnid, mihpayid, status, udf2 (clean order id),
// bank_ref_num, mode.
type easebuzzParser struct{}

func (easebuzzParser) Gateway() models.Gateway { return models.GatewayEasebuzz }

func (easebuzzParser) Parse(params url.Values, snaps Snapshots) (*Callback, bool) {
	fromParams := has(params, "txnid", "mihpayid", "status")
	fromSession := snaps.Easebuzz != nil && snaps.Easebuzz.Gateway == models.GatewayEasebuzz

	if !fromParams && !fromSession {
		return nil, false
	}

	return &Callback{
		Gateway:    models.GatewayEasebuzz,
		Params:     params,
		Intent:     snaps.Easebuzz,
		FromParams: fromParams,
	}, true
}

// EasebuzzStatus resolves the raw Easebuzz status string from the
// callback, preferring query parameters over the session snapshot.
func EasebuzzStatus(cb *Callback) string {
	status := cb.Params.Get("status")
	if status == "" && cb.Intent != nil {
		status = cb.Intent.Status
	}
	return status
}

// EasebuzzTransactionID picks the most specific transaction reference
// available: gateway payment id, then our txnid, then the session copy,
// then the bank reference.
func EasebuzzTransactionID(cb *Callback) string {
	var sessionTxn, sessionTxnid string
	if cb.Intent != nil {
		sessionTxn = cb.Intent.TransactionID
		sessionTxnid = cb.Intent.TxnID
	}
	return firstNonEmpty(
		cb.Params.Get("mihpayid"),
		cb.Params.Get("txnid"),
		sessionTxn,
		sessionTxnid,
		cb.Params.Get("bank_ref_num"),
	)
}

func easebuzzOrderID(cb *Callback) string {
	var sessionUDF2, sessionOrderID, sessionTxnid string
	if cb.Intent != nil {
		sessionUDF2 = cb.Intent.UDF2
		sessionOrderID = cb.Intent.OrderID
		sessionTxnid = cb.Intent.TxnID
	}

	// udf2 carries the clean order id; txnid carries it with a
	// uniqueness suffix appended at checkout.
	if udf2 := firstNonEmpty(cb.Params.Get("udf2"), sessionUDF2, sessionOrderID); udf2 != "" {
		if i := strings.Index(udf2, "_"); i >= 0 {
			return udf2[:i]
		}
		return udf2
	}
	if txnid := firstNonEmpty(cb.Params.Get("txnid"), sessionTxnid); txnid != "" {
		if i := strings.Index(txnid, "_"); i >= 0 {
			return txnid[:i]
		}
		return txnid
	}
	return ""
}
