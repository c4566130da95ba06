package model

import (
	"time"

	"github.com/google/uuid"
)

// Link describes the core short-link entity stored in Postgres.
//
// ShortCode carries a global UNIQUE constraint; "at most one non-expired
// record per code" is maintained by reusing an expired row in place instead
// of inserting a second one.
type Link struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TargetURL string     `json:"target_url" gorm:"type:text;not null"`
	ShortCode string     `json:"short_code" gorm:"size:32;uniqueIndex;not null"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty" gorm:"type:uuid;index"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" gorm:"index"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsExpired reports whether the link's expiry lies in the past relative to
// now. A nil ExpiresAt means the link never expires.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
