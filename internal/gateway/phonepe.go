package gateway

import (
	"net/url"

	"github.com/omaguva-store/payments-service/internal/models"
)

// phonePeParser matches PhonePe redirect callbacks: merchantOrderId,
// transactionId, state. Evaluated after Easebuzz, so Easebuzz markers
// take precedence when both appear.
type phonePeParser struct{}

func (phonePeParser) Gateway() models.Gateway { return models.GatewayPhonePe }

func (phonePeParser) Parse(params url.Values, snaps Snapshots) (*Callback, bool) {
	fromParams := has(params, "merchantOrderId", "transactionId", "state")

	if !fromParams && snaps.PhonePe == nil {
		return nil, false
	}

	return &Callback{
		Gateway:    models.GatewayPhonePe,
		Params:     params,
		Intent:     snaps.PhonePe,
		FromParams: fromParams,
	}, true
}

func phonePeOrderID(cb *Callback) string {
	var sessionOrderID string
	if cb.Intent != nil {
		sessionOrderID = cb.Intent.OrderID
	}
	return firstNonEmpty(
		cb.Params.Get("udf2"),
		cb.Params.Get("merchantOrderId"),
		sessionOrderID,
	)
}
