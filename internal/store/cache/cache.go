// Package cache keeps a short-lived snapshot of the intents table so a busy
// chat endpoint does not scan the table on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"cipherbot/apps/backend/internal/store"
)

const intentsKey = "cipherbot:intents:v1"

// ErrMiss is returned by a Backend when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend is the key/value store behind the intent cache.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Driver wraps a store.Driver and serves ListIntents from the backend.
// Backend failures fall through to the database.
type Driver struct {
	store.Driver
	backend Backend
	ttl     time.Duration
}

func NewDriver(inner store.Driver, backend Backend, ttl time.Duration) *Driver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Driver{Driver: inner, backend: backend, ttl: ttl}
}

type cachedIntent struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Pattern  string `json:"pattern"`
	Response string `json:"response"`
}

func (d *Driver) ListIntents(ctx context.Context) ([]*store.Intent, error) {
	raw, err := d.backend.Get(ctx, intentsKey)
	if err == nil {
		var cached []cachedIntent
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return fromCached(cached), nil
		}
		log.Warn().Str("key", intentsKey).Msg("[cache] discarding undecodable intent snapshot")
	} else if !errors.Is(err, ErrMiss) {
		log.Warn().Err(err).Msg("[cache] intent snapshot read failed")
	}

	intents, err := d.Driver.ListIntents(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(toCached(intents))
	if err == nil {
		if setErr := d.backend.Set(ctx, intentsKey, encoded, d.ttl); setErr != nil {
			log.Warn().Err(setErr).Msg("[cache] intent snapshot write failed")
		}
	}
	return intents, nil
}

func (d *Driver) UpsertIntent(ctx context.Context, intent *store.Intent) (*store.Intent, error) {
	result, err := d.Driver.UpsertIntent(ctx, intent)
	d.invalidate(ctx)
	return result, err
}

func (d *Driver) DeleteIntents(ctx context.Context, names []string) (int64, error) {
	deleted, err := d.Driver.DeleteIntents(ctx, names)
	d.invalidate(ctx)
	return deleted, err
}

func (d *Driver) Close() error {
	backendErr := d.backend.Close()
	if err := d.Driver.Close(); err != nil {
		return err
	}
	return backendErr
}

func (d *Driver) invalidate(ctx context.Context) {
	if err := d.backend.Delete(ctx, intentsKey); err != nil {
		log.Warn().Err(err).Msg("[cache] intent snapshot invalidation failed")
	}
}

func toCached(intents []*store.Intent) []cachedIntent {
	out := make([]cachedIntent, 0, len(intents))
	for _, intent := range intents {
		out = append(out, cachedIntent{
			ID:       intent.ID,
			Name:     intent.Name,
			Pattern:  intent.Pattern,
			Response: intent.Response,
		})
	}
	return out
}

func fromCached(cached []cachedIntent) []*store.Intent {
	out := make([]*store.Intent, 0, len(cached))
	for _, item := range cached {
		out = append(out, &store.Intent{
			ID:       item.ID,
			Name:     item.Name,
			Pattern:  item.Pattern,
			Response: item.Response,
		})
	}
	return out
}
