// Package gateway classifies payment-gateway return callbacks and
// recovers the canonical order id from them.
//
// Three providers are integrated (Easebuzz, PhonePe, Zoho Pay) with no
// shared callback contract. Each integration owns a typed parser that
// either matches fully or reports "not mine"; parsers are evaluated in a
// fixed priority list, first match wins.
package gateway

import (
	"net/url"

	"github.com/omaguva-store/payments-service/internal/models"
)

// Snapshots holds the pre-redirect payment intent snapshots available to
// classification, one per gateway, plus the cart snapshot and the
// last-resort Zoho order-id key.
type Snapshots struct {
	Easebuzz    *models.PaymentIntent
	PhonePe     *models.PaymentIntent
	Zoho        *models.PaymentIntent
	ZohoOrderID string
	Cart        []models.CartItem
}

// Callback is a classified gateway return.
type Callback struct {
	Gateway models.Gateway
	Params  url.Values
	// Intent is the matching session snapshot, nil when the gateway was
	// recognized from query parameters alone.
	Intent *models.PaymentIntent
	// FromParams is true when query parameters carried the gateway
	// markers, false when only the session snapshot did.
	FromParams bool
}

// Parser recognizes one gateway's callback shape.
type Parser interface {
	Gateway() models.Gateway
	// Parse returns the classified callback and true when the callback
	// belongs to this gateway, or (nil, false) when it does not.
	Parse(params url.Values, snaps Snapshots) (*Callback, bool)
}

// parsers in priority order. Easebuzz first: its markers (txnid,
// mihpayid, status) win even when another gateway's keys are also
// present, matching the shapes each provider actually sends.
var parsers = []Parser{
	easebuzzParser{},
	phonePeParser{},
	zohoPayParser{},
}

// Classify decides which gateway produced this callback. Falls back to
// GatewayUnknown when no parser matches.
func Classify(params url.Values, snaps Snapshots) *Callback {
	for _, p := range parsers {
		if cb, ok := p.Parse(params, snaps); ok {
			return cb
		}
	}
	return &Callback{Gateway: models.GatewayUnknown, Params: params}
}

func has(params url.Values, keys ...string) bool {
	for _, k := range keys {
		if params.Get(k) != "" {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
