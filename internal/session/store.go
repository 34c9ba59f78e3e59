// Package session persists pre-redirect payment intent snapshots that
// bridge the two halves of a gateway redirect, replacing the browser
// session storage the storefront used for the same purpose.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omaguva-store/payments-service/internal/config"
	"github.com/omaguva-store/payments-service/internal/logging"
)

// Snapshot keys, one namespace per gateway plus the cart snapshot and
// the last-resort Zoho order-id key. Names are kept byte-compatible with
// the storefront's session storage keys so stored blobs survive the
// migration.
const (
	KeyEasebuzzLastPayment = "easebuzz_last_payment"
	KeyPhonePeLastOrder    = "pp_last_order"
	KeyCartItems           = "pp_cart_items"
	KeyZohoLastOrder       = "zp_last_order"
	KeyZohoOrderID         = "zp_order_id"
)

// Store reads and writes JSON snapshot blobs keyed per checkout attempt.
type Store interface {
	Put(ctx context.Context, key, attemptID string, value interface{}) error
	// Get unmarshals the snapshot into out, returning false when absent.
	Get(ctx context.Context, key, attemptID string, out interface{}) (bool, error)
	Delete(ctx context.Context, key, attemptID string) error
}

// RedisStore implements Store on Redis with a TTL backstop. Reads and
// deletes are not guarded by any lock: two readers racing on the same
// key can both observe the snapshot, same as two browser tabs could.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisStore creates a Redis-backed snapshot store.
func NewRedisStore(cfg config.RedisConfig, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logging.New("session-store"),
	}
}

func (s *RedisStore) Put(ctx context.Context, key, attemptID string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, snapshotKey(key, attemptID), data, s.ttl).Err(); err != nil {
		s.logger.Error("Snapshot write failed", logging.Fields{
			"key":     key,
			"attempt": attemptID,
			"error":   err.Error(),
		})
		return err
	}

	s.logger.Debug("Snapshot stored", logging.Fields{
		"key":     key,
		"attempt": attemptID,
		"ttl":     s.ttl.String(),
	})
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key, attemptID string, out interface{}) (bool, error) {
	data, err := s.client.Get(ctx, snapshotKey(key, attemptID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		s.logger.Error("Snapshot read failed", logging.Fields{
			"key":     key,
			"attempt": attemptID,
			"error":   err.Error(),
		})
		return false, err
	}

	if err := json.Unmarshal(data, out); err != nil {
		// Corrupt snapshots read as absent; classification falls back
		// to query parameters.
		s.logger.Warn("Snapshot unmarshal failed", logging.Fields{
			"key":     key,
			"attempt": attemptID,
			"error":   err.Error(),
		})
		return false, nil
	}

	return true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key, attemptID string) error {
	return s.client.Del(ctx, snapshotKey(key, attemptID)).Err()
}

func snapshotKey(key, attemptID string) string {
	return key + ":" + attemptID
}
