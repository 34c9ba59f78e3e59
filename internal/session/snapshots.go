package session

import (
	"context"
	"time"

	"github.com/omaguva-store/payments-service/internal/gateway"
	"github.com/omaguva-store/payments-service/internal/models"
)

// LoadSnapshots reads every gateway snapshot for one checkout attempt.
// Missing, corrupt or expired snapshots read as absent; load errors are
// swallowed so classification can still proceed on query parameters.
func LoadSnapshots(ctx context.Context, store Store, attemptID string, now time.Time) gateway.Snapshots {
	snaps := gateway.Snapshots{}
	if store == nil || attemptID == "" {
		return snaps
	}

	snaps.Easebuzz = loadIntent(ctx, store, KeyEasebuzzLastPayment, attemptID, now)
	snaps.PhonePe = loadIntent(ctx, store, KeyPhonePeLastOrder, attemptID, now)
	snaps.Zoho = loadIntent(ctx, store, KeyZohoLastOrder, attemptID, now)

	var cart []models.CartItem
	if ok, err := store.Get(ctx, KeyCartItems, attemptID, &cart); err == nil && ok {
		snaps.Cart = cart
	}

	var zohoOrderID string
	if ok, err := store.Get(ctx, KeyZohoOrderID, attemptID, &zohoOrderID); err == nil && ok {
		snaps.ZohoOrderID = zohoOrderID
	}

	return snaps
}

// ClearConsumed deletes the snapshots a terminal verification outcome has
// consumed. Best effort; leftover keys expire via TTL anyway.
func ClearConsumed(ctx context.Context, store Store, attemptID string) {
	if store == nil || attemptID == "" {
		return
	}
	for _, key := range []string{
		KeyEasebuzzLastPayment,
		KeyPhonePeLastOrder,
		KeyCartItems,
		KeyZohoLastOrder,
		KeyZohoOrderID,
	} {
		_ = store.Delete(ctx, key, attemptID)
	}
}

func loadIntent(ctx context.Context, store Store, key, attemptID string, now time.Time) *models.PaymentIntent {
	var intent models.PaymentIntent
	ok, err := store.Get(ctx, key, attemptID, &intent)
	if err != nil || !ok {
		return nil
	}
	if intent.Expired(now) {
		return nil
	}
	return &intent
}
