package gateway

import (
	"regexp"

	"github.com/omaguva-store/payments-service/internal/models"
)

// Checkout appends `_<unix-millis>` style suffixes to order ids to keep
// gateway transaction ids unique across retries. NormalizeOrderID strips
// all trailing `_<digits>` groups to recover the canonical id; it is
// idempotent on already-clean ids.
var trailingSuffixes = regexp.MustCompile(`(_\d+)+$`)

func NormalizeOrderID(id string) string {
	return trailingSuffixes.ReplaceAllString(id, "")
}

// ResolveOrderID recovers the canonical order id for a classified
// callback. Resolution ladder, first non-empty wins:
//
//  1. explicit order id from the normalized params or orderId query param
//  2. any gateway session snapshot's order id
//  3. gateway-derived field (Easebuzz udf2/txnid split, PhonePe udf2 or
//     merchantOrderId, Zoho reference_id chain)
//  4. raw txnid fallback (params, then Easebuzz session)
//
// The result is normalized; when empty after all attempts the caller
// falls back to the last-resort snapshot and then treats the callback as
// unrecoverable.
func ResolveOrderID(cb *Callback, norm *NormalizedParams, snaps Snapshots) string {
	orderID := firstNonEmpty(
		norm.OrderID,
		cb.Params.Get("orderId"),
		snapshotOrderID(snaps.Easebuzz),
		snapshotOrderID(snaps.PhonePe),
		snapshotOrderID(snaps.Zoho),
	)

	if orderID == "" {
		switch cb.Gateway {
		case models.GatewayEasebuzz:
			orderID = easebuzzOrderID(cb)
		case models.GatewayPhonePe:
			orderID = phonePeOrderID(cb)
		case models.GatewayZohoPay:
			orderID = zohoOrderID(cb, snaps)
		}
	}

	if orderID == "" {
		var sessionTxnid string
		if snaps.Easebuzz != nil {
			sessionTxnid = snaps.Easebuzz.TxnID
		}
		orderID = firstNonEmpty(cb.Params.Get("txnid"), sessionTxnid)
	}

	return NormalizeOrderID(orderID)
}

func snapshotOrderID(intent *models.PaymentIntent) string {
	if intent == nil {
		return ""
	}
	return intent.OrderID
}
