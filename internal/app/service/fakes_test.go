package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avelin0/snaplink/internal/app/cache"
	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/avelin0/snaplink/internal/app/repository"
	"github.com/google/uuid"
)

var errStoreDown = errors.New("store down")

// memLinkRepo is an in-memory LinkRepository. Create enforces code
// uniqueness under the mutex, standing in for the database constraint.
type memLinkRepo struct {
	mu      sync.Mutex
	byCode  map[string]*model.Link
	down    bool
	lookups int
}

func newMemLinkRepo() *memLinkRepo {
	return &memLinkRepo{byCode: map[string]*model.Link{}}
}

func (r *memLinkRepo) Create(ctx context.Context, link *model.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errStoreDown
	}
	if _, ok := r.byCode[link.ShortCode]; ok {
		return repository.ErrCodeTaken
	}
	now := time.Now()
	link.CreatedAt = now
	link.UpdatedAt = now
	stored := *link
	r.byCode[link.ShortCode] = &stored
	return nil
}

func (r *memLinkRepo) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.down {
		return nil, errStoreDown
	}
	link, ok := r.byCode[code]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (r *memLinkRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errStoreDown
	}
	for _, link := range r.byCode {
		if link.ID == id {
			copied := *link
			return &copied, nil
		}
	}
	return nil, repository.ErrLinkNotFound
}

func (r *memLinkRepo) Overwrite(ctx context.Context, link *model.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errStoreDown
	}
	stored, ok := r.byCode[link.ShortCode]
	if !ok || stored.ID != link.ID {
		return repository.ErrLinkNotFound
	}
	stored.TargetURL = link.TargetURL
	stored.OwnerID = link.OwnerID
	stored.ExpiresAt = link.ExpiresAt
	stored.UpdatedAt = time.Now()
	*link = *stored
	return nil
}

func (r *memLinkRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return false, errStoreDown
	}
	for code, link := range r.byCode {
		if link.ID == id {
			delete(r.byCode, code)
			return true, nil
		}
	}
	return false, nil
}

func (r *memLinkRepo) List(ctx context.Context, limit, offset int) ([]model.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errStoreDown
	}
	var result []model.Link
	for _, link := range r.byCode {
		result = append(result, *link)
	}
	return result, nil
}

func (r *memLinkRepo) AllCodes(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	return codes, nil
}

func (r *memLinkRepo) lookupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

// memCache is an in-memory LinkCache with switchable failure modes.
type memCache struct {
	mu       sync.Mutex
	links    map[string]model.Link
	counters map[uuid.UUID]int64
	down     bool // every call fails
	failIncr bool // only increments fail
}

func newMemCache() *memCache {
	return &memCache{
		links:    map[string]model.Link{},
		counters: map[uuid.UUID]int64{},
	}
}

func (c *memCache) GetLink(ctx context.Context, code string) (*model.Link, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, errStoreDown
	}
	link, ok := c.links[code]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	copied := link
	return &copied, nil
}

func (c *memCache) SetLink(ctx context.Context, link *model.Link) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errStoreDown
	}
	c.links[link.ShortCode] = *link
	return nil
}

func (c *memCache) DeleteLink(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errStoreDown
	}
	delete(c.links, code)
	return nil
}

func (c *memCache) IncrementClicks(ctx context.Context, linkID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down || c.failIncr {
		return errStoreDown
	}
	c.counters[linkID]++
	return nil
}

func (c *memCache) GetClickCount(ctx context.Context, linkID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return 0, errStoreDown
	}
	count, ok := c.counters[linkID]
	if !ok {
		return 0, cache.ErrCacheMiss
	}
	return count, nil
}

func (c *memCache) SetClickCount(ctx context.Context, linkID uuid.UUID, count int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errStoreDown
	}
	c.counters[linkID] = count
	return nil
}

func (c *memCache) DeleteClickCount(ctx context.Context, linkID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errStoreDown
	}
	delete(c.counters, linkID)
	return nil
}

func (c *memCache) dropCounter(linkID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counters, linkID)
}

func (c *memCache) cachedLink(code string) (model.Link, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	link, ok := c.links[code]
	return link, ok
}

// memClickRepo is an in-memory append-only ClickEventRepository.
type memClickRepo struct {
	mu     sync.Mutex
	events []model.ClickEvent
	down   bool
}

func newMemClickRepo() *memClickRepo {
	return &memClickRepo{}
}

func (r *memClickRepo) Create(ctx context.Context, event *model.ClickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errStoreDown
	}
	event.CreatedAt = time.Now()
	r.events = append(r.events, *event)
	return nil
}

func (r *memClickRepo) CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return 0, errStoreDown
	}
	var count int64
	for _, event := range r.events {
		if event.LinkID == linkID {
			count++
		}
	}
	return count, nil
}

// memAnalyticsRepo mirrors the date-spine query over the in-memory click
// log: one bucket per day, ascending, zero-filled, ending today.
type memAnalyticsRepo struct {
	clicks *memClickRepo
	down   bool
}

func (r *memAnalyticsRepo) DailyClicks(ctx context.Context, linkID uuid.UUID, days int) ([]model.DailyClicks, error) {
	if r.down {
		return nil, errStoreDown
	}

	today := time.Now().Truncate(24 * time.Hour)
	buckets := make([]model.DailyClicks, days)
	for i := range buckets {
		buckets[i].Date = today.AddDate(0, 0, i-days+1)
	}

	r.clicks.mu.Lock()
	defer r.clicks.mu.Unlock()
	for _, event := range r.clicks.events {
		if event.LinkID != linkID {
			continue
		}
		day := event.OccurredAt.Truncate(24 * time.Hour)
		for i := range buckets {
			if buckets[i].Date.Equal(day) {
				buckets[i].Count++
			}
		}
	}
	return buckets, nil
}
