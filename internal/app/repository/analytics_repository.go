package repository

import (
	"context"
	"fmt"

	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalyticsRepository derives time-bucketed aggregates from the click log.
// It runs raw SQL on the pgx pool rather than going through the ORM: the
// date-spine join has no entity mapping and sits on the hot analytics path.
type AnalyticsRepository interface {
	DailyClicks(ctx context.Context, linkID uuid.UUID, days int) ([]model.DailyClicks, error)
}

type analyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository returns a pgx-backed AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &analyticsRepository{pool: pool}
}

// dailyClicksQuery generates one row per calendar day in the window and
// LEFT JOINs the event log against it, so days with no events come back
// with a zero count instead of being omitted.
const dailyClicksQuery = `
SELECT spine.day::date AS day, COUNT(e.id) AS clicks
FROM generate_series(
         CURRENT_DATE - ($2::int - 1) * INTERVAL '1 day',
         CURRENT_DATE,
         INTERVAL '1 day'
     ) AS spine(day)
LEFT JOIN click_events e
       ON e.link_id = $1
      AND e.occurred_at >= spine.day
      AND e.occurred_at <  spine.day + INTERVAL '1 day'
GROUP BY spine.day
ORDER BY spine.day ASC`

func (r *analyticsRepository) DailyClicks(ctx context.Context, linkID uuid.UUID, days int) ([]model.DailyClicks, error) {
	rows, err := r.pool.Query(ctx, dailyClicksQuery, linkID, days)
	if err != nil {
		return nil, fmt.Errorf("analytics: query daily clicks: %w", err)
	}
	defer rows.Close()

	buckets := make([]model.DailyClicks, 0, days)
	for rows.Next() {
		var bucket model.DailyClicks
		if err := rows.Scan(&bucket.Date, &bucket.Count); err != nil {
			return nil, fmt.Errorf("analytics: scan daily clicks: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: read daily clicks: %w", err)
	}

	return buckets, nil
}
