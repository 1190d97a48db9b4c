package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Campaign lifecycle event types.
const (
	EventCampaignCreated      = "campaign.created"
	EventCampaignDispatched   = "campaign.dispatched"
	EventDispatchFailed       = "campaign.dispatch_failed"
	EventDispatchSkipped      = "campaign.dispatch_skipped"
	EventCampaignStatusUpdate = "campaign.status_updated"
)

type CampaignEvent struct {
	Type       string    `json:"type"`
	CampaignID string    `json:"campaign_id"`
	UserID     string    `json:"user_id,omitempty"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StatusUpdate is what the workflow engine sends on the status queue.
type StatusUpdate struct {
	CampaignID string `json:"campaign_id"`
	Status     string `json:"status"`
}

// EventPublisher publishes lifecycle events best-effort.
type EventPublisher struct {
	Queue Queue
	Topic string
}

func (p *EventPublisher) Publish(ev CampaignEvent) {
	if p == nil || p.Queue == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := p.Queue.Publish(p.Topic, ev); err != nil {
		zap.L().Warn("failed to publish campaign event",
			zap.String("type", ev.Type), zap.String("campaign_id", ev.CampaignID), zap.Error(err))
	}
}

// StartEventLogger subscribes a consumer that writes every lifecycle event to the log.
func StartEventLogger(q Queue, topic string) error {
	return q.Subscribe(topic, func(payload any) error {
		var ev CampaignEvent
		switch p := payload.(type) {
		case CampaignEvent:
			ev = p
		case []byte:
			if err := json.Unmarshal(p, &ev); err != nil {
				return Permanent(fmt.Errorf("decode campaign event: %w", err))
			}
		default:
			return Permanent(fmt.Errorf("unexpected payload type %T", payload))
		}
		zap.L().Info("campaign event",
			zap.String("type", ev.Type),
			zap.String("campaign_id", ev.CampaignID),
			zap.String("status", ev.Status),
			zap.String("detail", ev.Detail),
		)
		return nil
	})
}

// StatusApplier applies an engine status update to a campaign.
type StatusApplier func(campaignID, status string) error

// StartStatusUpdateSubscriber applies engine status updates arriving on topic.
// Malformed messages and updates rejected by apply as permanent are dropped.
func StartStatusUpdateSubscriber(q Queue, topic string, apply StatusApplier, permanent func(error) bool) error {
	return q.Subscribe(topic, func(payload any) error {
		var update StatusUpdate
		switch p := payload.(type) {
		case StatusUpdate:
			update = p
		case []byte:
			if err := json.Unmarshal(p, &update); err != nil {
				return Permanent(fmt.Errorf("decode status update: %w", err))
			}
		default:
			return Permanent(fmt.Errorf("unexpected payload type %T", payload))
		}
		if update.CampaignID == "" || update.Status == "" {
			return Permanent(errors.New("status update requires campaign_id and status"))
		}

		zap.L().Info("📩 applying engine status update",
			zap.String("campaign_id", update.CampaignID), zap.String("status", update.Status))
		if err := apply(update.CampaignID, update.Status); err != nil {
			if permanent != nil && permanent(err) {
				return Permanent(err)
			}
			return err
		}
		return nil
	})
}
