package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultBacklogSize is how many recent events are kept per campaign.
	DefaultBacklogSize = 50
	backlogTTL         = 24 * time.Hour
)

// Backlog keeps the most recent events of each campaign in a Redis list so a
// client that connects late can catch up.
type Backlog struct {
	rdb  *redis.Client
	size int64
}

func NewBacklog(rdb *redis.Client, size int) *Backlog {
	if size <= 0 {
		size = DefaultBacklogSize
	}
	return &Backlog{rdb: rdb, size: int64(size)}
}

func backlogKey(campaignID uuid.UUID) string {
	return fmt.Sprintf("campaign-backlog:%s", campaignID.String())
}

// Append adds an encoded event to the end of the campaign backlog, dropping
// the oldest entries past the configured size.
func (b *Backlog) Append(ctx context.Context, campaignID uuid.UUID, payload []byte) error {
	key := backlogKey(campaignID)
	_, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, -b.size, -1)
		pipe.Expire(ctx, key, backlogTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append event to backlog: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest events, oldest first. A limit of
// zero or less returns the whole backlog.
func (b *Backlog) Recent(ctx context.Context, campaignID uuid.UUID, limit int) ([]Event, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := b.rdb.LRange(ctx, backlogKey(campaignID), start, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read event backlog: %w", err)
	}

	out := make([]Event, 0, len(raw))
	for _, r := range raw {
		var e Event
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Depth returns the number of events held for a campaign.
func (b *Backlog) Depth(ctx context.Context, campaignID uuid.UUID) (int, error) {
	n, err := b.rdb.LLen(ctx, backlogKey(campaignID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get backlog depth: %w", err)
	}
	return int(n), nil
}

// Clear removes the backlog of a campaign.
func (b *Backlog) Clear(ctx context.Context, campaignID uuid.UUID) error {
	if err := b.rdb.Del(ctx, backlogKey(campaignID)).Err(); err != nil {
		return fmt.Errorf("failed to clear event backlog: %w", err)
	}
	return nil
}
