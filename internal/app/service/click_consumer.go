package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ClickConsumer drains click messages from JetStream into the accountant.
// A message is acked only after the durable event write succeeds; failures
// Nak so JetStream redelivers instead of dropping the click.
type ClickConsumer struct {
	js         nats.JetStreamContext
	logger     *zap.Logger
	accountant *ClickAccountant
	stopChan   chan struct{}
}

// NewClickConsumer creates a new click message consumer.
func NewClickConsumer(js nats.JetStreamContext, logger *zap.Logger, accountant *ClickAccountant) *ClickConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickConsumer{
		js:         js,
		logger:     logger,
		accountant: accountant,
		stopChan:   make(chan struct{}),
	}
}

// Start ensures the stream and durable consumer exist and begins consuming.
func (c *ClickConsumer) Start() error {
	_, err := c.js.StreamInfo(model.ClickStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ClickStreamName,
			Subjects: []string{model.ClickStreamSubject},
			MaxBytes: model.ClickStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.ClickStreamName, model.ClickConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ClickStreamName, &nats.ConsumerConfig{
			Durable:   model.ClickConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ClickStreamSubject, model.ClickConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

// Stop signals the consume loop to exit after its current fetch.
func (c *ClickConsumer) Stop() {
	close(c.stopChan)
}

func (c *ClickConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		select {
		case <-c.stopChan:
			c.logger.Info("click consumer stopped")
			return
		default:
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch click messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var click model.ClickMessage
			if err := json.Unmarshal(msg.Data, &click); err != nil {
				c.logger.Error("failed to unmarshal click message", zap.Error(err))
				msg.Nak()
				continue
			}

			err := c.accountant.RecordClick(ctx, Click{
				LinkID:     click.LinkID,
				OccurredAt: click.OccurredAt,
				UserAgent:  click.UserAgent,
				Address:    click.Address,
			})
			if err != nil {
				c.logger.Error("failed to record click event",
					zap.String("id", click.ID),
					zap.String("link_id", click.LinkID.String()),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("click event recorded",
				zap.String("id", click.ID),
				zap.String("link_id", click.LinkID.String()),
				zap.Time("occurred_at", click.OccurredAt),
			)

			msg.Ack()
		}
	}
}
