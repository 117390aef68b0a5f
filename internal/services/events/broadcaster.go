// Package events publishes campaign events to Redis pub/sub so SSE clients
// can follow a campaign as it advances.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeDayAdvanced   EventType = "day.advanced"
	EventTypeCrisisAlert   EventType = "crisis.alert"
	EventTypeMoodGlow      EventType = "crew.glow"
	EventTypeCrewDeath     EventType = "crew.death"
	EventTypeCampaignEnded EventType = "campaign.ended"
	EventTypeCampaignSaved EventType = "campaign.saved"
)

// Event represents a generic event structure
type Event struct {
	Type       EventType              `json:"type"`
	CampaignID string                 `json:"campaign_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Channel returns the pub/sub channel for a campaign.
func Channel(campaignID uuid.UUID) string {
	return fmt.Sprintf("campaign-events:%s", campaignID.String())
}

// Publisher delivers events for a campaign. Publishing is best effort;
// callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, campaignID uuid.UUID, eventType EventType, data map[string]interface{}) error
}

// NopPublisher drops every event. Used when no Redis is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, uuid.UUID, EventType, map[string]interface{}) error {
	return nil
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	backlog     *Backlog
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// WithBacklog also records every published event in b.
func (b *Broadcaster) WithBacklog(backlog *Backlog) *Broadcaster {
	b.backlog = backlog
	return b
}

// Publish sends one event to the campaign channel.
func (b *Broadcaster) Publish(ctx context.Context, campaignID uuid.UUID, eventType EventType, data map[string]interface{}) error {
	channel := Channel(campaignID)
	event := Event{
		Type:       eventType,
		CampaignID: campaignID.String(),
		Data:       data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", eventType)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if b.backlog != nil {
		if err := b.backlog.Append(ctx, campaignID, payload); err != nil {
			b.logger.Warn("Failed to record event in backlog", "error", err, "campaign_id", campaignID.String())
		}
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", eventType,
	)

	return nil
}
