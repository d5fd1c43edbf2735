package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// dedupTTL is how long a dispatch claim is retained. One day comfortably
// outlives SQS redelivery and restart races without blocking a genuine
// re-dispatch of the same lead later on (re-dispatch is a distinct
// triggering event with a new submission ID anyway).
const dedupTTL = 24 * time.Hour

// DedupGuard enforces at-most-one dispatch attempt per triggering event
// across processes, using an atomic SET NX claim keyed by the event's
// submission ID.
type DedupGuard struct {
	client *Client
	logger *zap.Logger
}

// NewDedupGuard creates a dispatch dedup guard.
func NewDedupGuard(client *Client, logger *zap.Logger) *DedupGuard {
	return &DedupGuard{
		client: client,
		logger: logger,
	}
}

func (g *DedupGuard) buildKey(eventID string) string {
	return fmt.Sprintf("dispatch:claim:%s", eventID)
}

// Acquire claims the event for this process. It returns true when the
// claim was won and the dispatch should proceed, false when another
// process already dispatched (or is dispatching) this event.
func (g *DedupGuard) Acquire(ctx context.Context, eventID string) (bool, error) {
	key := g.buildKey(eventID)

	claimed, err := g.client.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}

	if !claimed {
		g.logger.Debug("dispatch claim already held",
			zap.String("event_id", eventID),
		)
	}

	return claimed, nil
}
