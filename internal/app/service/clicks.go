package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avelin0/snaplink/internal/app/cache"
	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/avelin0/snaplink/internal/app/repository"
	metrics "github.com/avelin0/snaplink/internal/infra/prometheus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Click captures one visit to be accounted.
type Click struct {
	LinkID     uuid.UUID
	OccurredAt time.Time // zero means now
	UserAgent  string
	Address    string
}

// ClickAccountant records visits: a best-effort counter increment in the
// cache store and a must-succeed immutable row in the durable event log.
type ClickAccountant struct {
	logger *zap.Logger
	events repository.ClickEventRepository
	cache  cache.LinkCache
	now    func() time.Time
}

// NewClickAccountant returns an accountant over the given stores.
func NewClickAccountant(logger *zap.Logger, events repository.ClickEventRepository, linkCache cache.LinkCache) *ClickAccountant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickAccountant{
		logger: logger,
		events: events,
		cache:  linkCache,
		now:    time.Now,
	}
}

// RecordClick accounts one visit. The counter increment is attempted first
// but its failure is logged and swallowed; the operation succeeds iff the
// durable event write succeeds. The log remains the authoritative count, so
// a lost increment is a bounded inaccuracy, not data loss.
func (c *ClickAccountant) RecordClick(ctx context.Context, click Click) error {
	if err := c.cache.IncrementClicks(ctx, click.LinkID); err != nil {
		metrics.CounterIncrementsDropped.Inc()
		c.logger.Warn("best-effort click counter increment failed",
			zap.String("link_id", click.LinkID.String()), zap.Error(err))
	}

	occurredAt := click.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = c.now()
	}

	event := &model.ClickEvent{
		ID:         uuid.New(),
		LinkID:     click.LinkID,
		OccurredAt: occurredAt,
		UserAgent:  optional(click.UserAgent),
		Address:    optional(click.Address),
	}

	if err := c.events.Create(ctx, event); err != nil {
		return fmt.Errorf("record click: %v: %w", err, ErrStoreUnavailable)
	}

	metrics.ClickEventsRecorded.Inc()
	return nil
}

// GetClickCount prefers the cache counter; on a miss it recomputes the count
// from the durable log and repopulates the cache with the computed value.
func (c *ClickAccountant) GetClickCount(ctx context.Context, linkID uuid.UUID) (int64, error) {
	count, err := c.cache.GetClickCount(ctx, linkID)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("click counter read failed, recomputing from log",
			zap.String("link_id", linkID.String()), zap.Error(err))
	}

	count, err = c.events.CountByLink(ctx, linkID)
	if err != nil {
		return 0, fmt.Errorf("count clicks: %v: %w", err, ErrStoreUnavailable)
	}

	if err := c.cache.SetClickCount(ctx, linkID, count); err != nil {
		c.logger.Warn("failed to repopulate click counter",
			zap.String("link_id", linkID.String()), zap.Error(err))
	}

	return count, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
