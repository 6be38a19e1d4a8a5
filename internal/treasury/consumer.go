package treasury

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/veritasmarket/veritas-backend/pkg/enums"
	"github.com/veritasmarket/veritas-backend/pkg/logger"
	"github.com/veritasmarket/veritas-backend/pkg/outbox"
	"github.com/veritasmarket/veritas-backend/pkg/outbox/idempotency"
	"github.com/veritasmarket/veritas-backend/pkg/outbox/payloads"
)

const payoutConsumer = "treasury-payouts"

// Consumer turns moderator_reward_recorded events into payout instructions.
// The (dispute, moderator) unique constraint backstops redelivery, so a
// replayed event never produces a second instruction.
type Consumer struct {
	svc          Service
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the payout instruction consumer.
func NewConsumer(svc Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("treasury service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("moderator subscription required")
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
	if err != nil || eventType != enums.EventModeratorRewardRecorded {
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, payoutConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.ModeratorRewardRecordedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode reward payload", err)
		return processResult{ack: true}
	}

	payout, err := c.svc.RecordPayout(ctx, RecordPayoutInput{
		ModeratorID: payload.ModeratorID,
		DisputeID:   payload.DisputeID,
		Amount:      payload.Amount,
		Points:      payload.Points,
		Severity:    payload.Severity,
		Level:       payload.Level,
		FastBonus:   payload.FastBonus,
	})
	if err != nil {
		c.logg.Error(logCtx, "failed to record payout instruction", err)
		_ = c.idempotency.Delete(ctx, payoutConsumer, eventID)
		return processResult{nack: true}
	}
	if payout == nil {
		c.logg.Info(logCtx, "payout instruction already recorded")
	}
	return processResult{ack: true}
}
