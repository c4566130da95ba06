package service

import (
	"encoding/json"
	"time"

	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ClickPublisher publishes click messages to NATS JetStream.
type ClickPublisher struct {
	js nats.JetStreamContext
}

// NewClickPublisher creates a new click message publisher.
func NewClickPublisher(js nats.JetStreamContext) *ClickPublisher {
	return &ClickPublisher{js: js}
}

// Publish enqueues one click for the given link. OccurredAt is stamped at
// publish time so consumer lag does not shift events into later buckets.
func (p *ClickPublisher) Publish(linkID uuid.UUID, userAgent, address string) error {
	msg := model.ClickMessage{
		ID:         uuid.New().String(),
		LinkID:     linkID,
		UserAgent:  userAgent,
		Address:    address,
		OccurredAt: time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ClickStreamSubject, data)
	return err
}
