package cmd

import (
	"context"
	"log/slog"

	"github.com/BriefyHQ/docflow/pkg/cache"
	"github.com/BriefyHQ/docflow/pkg/events"
)

// NewDocumentCache connects the snapshot cache and wires its invalidation
// into the emitter's in-process notifier. An empty URL disables caching.
func NewDocumentCache(ctx context.Context, logger *slog.Logger, redisURL string, notifier *events.Notifier) (*cache.DocumentCache, error) {
	if redisURL == "" {
		return nil, nil
	}

	documentCache, err := cache.New(ctx, redisURL, cache.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	documentCache.InvalidateOnTransition(notifier)

	return documentCache, nil
}
