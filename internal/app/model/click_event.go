package model

import (
	"time"

	"github.com/google/uuid"
)

// ClickEvent is one immutable row in the append-only click log. Rows are
// never updated; they are deleted only through the FK cascade when their
// parent link is deleted.
type ClickEvent struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	LinkID     uuid.UUID `json:"link_id" gorm:"type:uuid;not null;index"`
	Link       *Link     `json:"-" gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE"`
	OccurredAt time.Time `json:"occurred_at" gorm:"not null;index"`
	UserAgent  *string   `json:"user_agent,omitempty" gorm:"type:text"`
	Address    *string   `json:"address,omitempty" gorm:"size:64"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// DailyClicks is one bucket of the per-day analytics timeline.
type DailyClicks struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// ClickMessage is the wire form of a click travelling through JetStream
// between the redirect handler and the click consumer.
type ClickMessage struct {
	ID         string    `json:"id"`
	LinkID     uuid.UUID `json:"link_id"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Address    string    `json:"address,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-recorder"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
