package service

import (
	"context"
	"fmt"

	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/avelin0/snaplink/internal/app/repository"
	"github.com/google/uuid"
)

// DefaultMaxAnalyticsDays caps the look-back window to bound query cost.
const DefaultMaxAnalyticsDays = 30

// AnalyticsAggregator derives daily click buckets from the event log.
type AnalyticsAggregator struct {
	analytics repository.AnalyticsRepository
	maxDays   int
}

// NewAnalyticsAggregator returns an aggregator with the given window cap,
// falling back to DefaultMaxAnalyticsDays for non-positive values.
func NewAnalyticsAggregator(analytics repository.AnalyticsRepository, maxDays int) *AnalyticsAggregator {
	if maxDays <= 0 {
		maxDays = DefaultMaxAnalyticsDays
	}
	return &AnalyticsAggregator{analytics: analytics, maxDays: maxDays}
}

// MaxDays reports the configured window cap.
func (a *AnalyticsAggregator) MaxDays() int {
	return a.maxDays
}

// DailyClicks returns one bucket per calendar day over the last days days,
// ascending, ending today. Days without events appear with a zero count;
// the underlying query generates the full date series rather than grouping
// over observed dates only.
func (a *AnalyticsAggregator) DailyClicks(ctx context.Context, linkID uuid.UUID, days int) ([]model.DailyClicks, error) {
	if days <= 0 || days > a.maxDays {
		return nil, ErrInvalidWindow
	}

	buckets, err := a.analytics.DailyClicks(ctx, linkID, days)
	if err != nil {
		return nil, fmt.Errorf("daily clicks: %v: %w", err, ErrStoreUnavailable)
	}
	return buckets, nil
}
