package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	"github.com/veritasmarket/veritas-backend/pkg/logger"
	"github.com/veritasmarket/veritas-backend/pkg/outbox"
	"github.com/veritasmarket/veritas-backend/pkg/outbox/idempotency"
	"github.com/veritasmarket/veritas-backend/pkg/outbox/payloads"
)

const disputeNotificationConsumer = "dispute-notifications"

type recorder interface {
	Record(ctx context.Context, input RecordInput) (*models.Notification, error)
}

// Consumer watches dispute and moderator lifecycle events and fans them out
// into per-recipient notifications. Delivery is best effort relative to the
// producing transaction; a failure here never touches dispute state.
type Consumer struct {
	svc          recorder
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a dispute notification consumer.
func NewConsumer(svc recorder, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, disputeNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, disputeNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventDisputeCreated:
		var payload payloads.DisputeCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
		return c.record(ctx, RecordInput{
			RecipientID: payload.ReporterID,
			DisputeID:   &payload.DisputeID,
			Type:        enums.NotificationTypeDisputeCreated,
			Title:       "Dispute filed",
			Message:     fmt.Sprintf("Your %s dispute was filed and is awaiting review.", payload.Type),
			Link:        disputeLink(payload.DisputeID),
		})
	case enums.EventDisputeAssigned:
		var payload payloads.DisputeAssignedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
		return c.record(ctx, RecordInput{
			RecipientID: payload.ModeratorID,
			DisputeID:   &payload.DisputeID,
			Type:        enums.NotificationTypeDisputeAssigned,
			Title:       "Dispute assigned to you",
			Message:     fmt.Sprintf("A %s-level dispute is waiting in your queue.", payload.Level),
			Link:        disputeLink(payload.DisputeID),
		})
	case enums.EventDisputeEscalated:
		var payload payloads.DisputeEscalatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
		if payload.AssignedTo == nil {
			c.logg.Info(logCtx, "escalated dispute has no assignee to notify")
			return nil
		}
		return c.record(ctx, RecordInput{
			RecipientID: *payload.AssignedTo,
			DisputeID:   &payload.DisputeID,
			Type:        enums.NotificationTypeDisputeEscalated,
			Title:       "Escalated dispute assigned to you",
			Message:     fmt.Sprintf("A dispute was escalated from %s to %s and routed to you.", payload.FromLevel, payload.ToLevel),
			Link:        disputeLink(payload.DisputeID),
		})
	case enums.EventDisputeResolved:
		var payload payloads.DisputeResolvedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
		for _, recipient := range []uuid.UUID{payload.ReporterID, payload.ReportedID} {
			if err := c.record(ctx, RecordInput{
				RecipientID: recipient,
				DisputeID:   &payload.DisputeID,
				Type:        enums.NotificationTypeDisputeResolved,
				Title:       "Dispute resolved",
				Message:     fmt.Sprintf("The dispute was resolved as %s.", payload.ResolutionType),
				Link:        disputeLink(payload.DisputeID),
			}); err != nil {
				return err
			}
		}
		return nil
	case enums.EventDisputeClosed:
		var payload payloads.DisputeClosedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
		return c.record(ctx, RecordInput{
			RecipientID: payload.ReporterID,
			DisputeID:   &payload.DisputeID,
			Type:        enums.NotificationTypeDisputeClosed,
			Title:       "Dispute closed",
			Message:     "Your dispute has been closed and archived.",
			Link:        disputeLink(payload.DisputeID),
		})
	case enums.EventModeratorLevelChanged:
		var payload payloads.ModeratorLevelChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
		return c.record(ctx, RecordInput{
			RecipientID: payload.ModeratorID,
			Type:        enums.NotificationTypeModeratorLevelUp,
			Title:       "You were promoted",
			Message:     fmt.Sprintf("Your moderator level moved from %s to %s.", payload.FromLevel, payload.ToLevel),
		})
	default:
		c.logg.Info(logCtx, "event not handled by notification consumer")
		return nil
	}
}

func (c *Consumer) record(ctx context.Context, input RecordInput) error {
	_, err := c.svc.Record(ctx, input)
	return err
}

func disputeLink(disputeID uuid.UUID) *string {
	link := fmt.Sprintf("/disputes/%s", disputeID)
	return &link
}
