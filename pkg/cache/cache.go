// Package cache provides a Redis-backed document snapshot cache that
// invalidates itself on workflow transition events.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/BriefyHQ/docflow/pkg/events"
)

const defaultTTL = 15 * time.Minute
const connectTimeout = 5 * time.Second

// DocumentCache stores JSON document snapshots keyed by document guid.
type DocumentCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// Option customizes a cache.
type Option func(*DocumentCache)

// WithTTL overrides the snapshot expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *DocumentCache) { c.ttl = ttl }
}

// WithLogger overrides the cache logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *DocumentCache) { c.logger = logger }
}

// New connects to Redis at the given URL (redis://...) and verifies the
// connection.
func New(ctx context.Context, url string, opts ...Option) (*DocumentCache, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(client, opts...), nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client redis.UniversalClient, opts ...Option) *DocumentCache {
	c := &DocumentCache{client: client, ttl: defaultTTL, logger: slog.Default()}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func key(guid string) string {
	return "docflow:document:" + guid
}

// Get returns the cached snapshot for guid, reporting a miss with ok=false.
func (c *DocumentCache) Get(ctx context.Context, guid string) (map[string]any, bool, error) {
	body, err := c.client.Get(ctx, key(guid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, err
	}

	var snapshot map[string]any
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, false, err
	}

	return snapshot, true, nil
}

// Set stores a snapshot for guid.
func (c *DocumentCache) Set(ctx context.Context, guid string, snapshot map[string]any) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key(guid), body, c.ttl).Err()
}

// Invalidate drops the cached snapshot for guid.
func (c *DocumentCache) Invalidate(ctx context.Context, guid string) error {
	return c.client.Del(ctx, key(guid)).Err()
}

// InvalidateOnTransition subscribes the cache to the emitter's in-process
// notifier so every committed transition drops the stale snapshot before
// external consumers observe the event.
func (c *DocumentCache) InvalidateOnTransition(notifier *events.Notifier) {
	notifier.Subscribe(func(ctx context.Context, event events.Event) error {
		var guid string

		switch e := event.(type) {
		case events.TransitionRecord:
			guid = e.GUID
		case events.DocumentUpdated:
			guid = e.GUID
		default:
			return nil
		}

		if guid == "" {
			return nil
		}

		if err := c.Invalidate(ctx, guid); err != nil {
			return fmt.Errorf("invalidating document %s: %w", guid, err)
		}

		return nil
	})
}

// Close releases the Redis client.
func (c *DocumentCache) Close() error {
	return c.client.Close()
}
