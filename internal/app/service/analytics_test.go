package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestAnalyticsAggregator_WindowBounds(t *testing.T) {
	agg := NewAnalyticsAggregator(&memAnalyticsRepo{clicks: newMemClickRepo()}, 30)
	ctx := context.Background()
	linkID := uuid.New()

	for _, days := range []int{0, -1, 31} {
		if _, err := agg.DailyClicks(ctx, linkID, days); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("days=%d: expected ErrInvalidWindow, got %v", days, err)
		}
	}
}

func TestAnalyticsAggregator_ZeroFilledWeekForSilentLink(t *testing.T) {
	agg := NewAnalyticsAggregator(&memAnalyticsRepo{clicks: newMemClickRepo()}, 30)

	buckets, err := agg.DailyClicks(context.Background(), uuid.New(), 7)
	if err != nil {
		t.Fatalf("DailyClicks returned error: %v", err)
	}
	if len(buckets) != 7 {
		t.Fatalf("expected exactly 7 buckets, got %d", len(buckets))
	}
	for i, bucket := range buckets {
		if bucket.Count != 0 {
			t.Fatalf("bucket %d should be zero-filled, got %d", i, bucket.Count)
		}
		if i > 0 && !buckets[i-1].Date.Before(bucket.Date) {
			t.Fatalf("dates must be strictly increasing: %v then %v", buckets[i-1].Date, bucket.Date)
		}
	}
}

func TestAnalyticsAggregator_BucketsFollowEvents(t *testing.T) {
	events := newMemClickRepo()
	accountant := NewClickAccountant(zap.NewNop(), events, newMemCache())
	agg := NewAnalyticsAggregator(&memAnalyticsRepo{clicks: events}, 30)
	ctx := context.Background()
	linkID := uuid.New()

	// Two clicks today, one yesterday.
	now := time.Now()
	for _, at := range []time.Time{now, now, now.AddDate(0, 0, -1)} {
		if err := accountant.RecordClick(ctx, Click{LinkID: linkID, OccurredAt: at}); err != nil {
			t.Fatalf("RecordClick returned error: %v", err)
		}
	}

	buckets, err := agg.DailyClicks(ctx, linkID, 7)
	if err != nil {
		t.Fatalf("DailyClicks returned error: %v", err)
	}
	if len(buckets) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(buckets))
	}
	if buckets[6].Count != 2 {
		t.Fatalf("expected 2 clicks today, got %d", buckets[6].Count)
	}
	if buckets[5].Count != 1 {
		t.Fatalf("expected 1 click yesterday, got %d", buckets[5].Count)
	}

	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	if total != 3 {
		t.Fatalf("expected 3 clicks in window, got %d", total)
	}
}

func TestAnalyticsAggregator_StoreDown(t *testing.T) {
	agg := NewAnalyticsAggregator(&memAnalyticsRepo{clicks: newMemClickRepo(), down: true}, 30)

	_, err := agg.DailyClicks(context.Background(), uuid.New(), 7)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
