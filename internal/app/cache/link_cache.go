package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss signals that a key is absent. Absence is the only way the
// cache expresses "nothing live here"; stale expired payloads are actively
// deleted by the allocator, never left to be reinterpreted.
var ErrCacheMiss = errors.New("cache: key not found")

// LinkCache is the cache-store contract consumed by the services. It is
// never a source of truth: every entry is rebuildable from Postgres.
type LinkCache interface {
	GetLink(ctx context.Context, code string) (*model.Link, error)
	SetLink(ctx context.Context, link *model.Link) error
	DeleteLink(ctx context.Context, code string) error

	IncrementClicks(ctx context.Context, linkID uuid.UUID) error
	GetClickCount(ctx context.Context, linkID uuid.UUID) (int64, error)
	SetClickCount(ctx context.Context, linkID uuid.UUID, count int64) error
	DeleteClickCount(ctx context.Context, linkID uuid.UUID) error
}

// Config carries the per-entry TTL policy.
type Config struct {
	LinkTTL    time.Duration
	CounterTTL time.Duration
}

const (
	defaultLinkTTL    = time.Hour
	defaultCounterTTL = 10 * time.Minute
)

type linkCache struct {
	client     *redis.Client
	linkTTL    time.Duration
	counterTTL time.Duration
}

// NewLinkCache returns a redis-backed LinkCache.
func NewLinkCache(client *redis.Client, cfg Config) LinkCache {
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = defaultLinkTTL
	}
	if cfg.CounterTTL <= 0 {
		cfg.CounterTTL = defaultCounterTTL
	}
	return &linkCache{
		client:     client,
		linkTTL:    cfg.LinkTTL,
		counterTTL: cfg.CounterTTL,
	}
}

func linkKey(code string) string {
	return "link:" + code
}

func counterKey(linkID uuid.UUID) string {
	return "clicks:" + linkID.String()
}

func (c *linkCache) GetLink(ctx context.Context, code string) (*model.Link, error) {
	val, err := c.client.Get(ctx, linkKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var link model.Link
	if err := json.Unmarshal([]byte(val), &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *linkCache) SetLink(ctx context.Context, link *model.Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, linkKey(link.ShortCode), data, c.linkTTL).Err()
}

func (c *linkCache) DeleteLink(ctx context.Context, code string) error {
	return c.client.Del(ctx, linkKey(code)).Err()
}

// IncrementClicks bumps the fast counter. A missing key is initialized to 1
// with an explicit TTL rather than relying on INCR's implicit
// create-without-expiry, so the counter's TTL policy stays deliberate.
func (c *linkCache) IncrementClicks(ctx context.Context, linkID uuid.UUID) error {
	key := counterKey(linkID)

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return c.client.Set(ctx, key, 1, c.counterTTL).Err()
	}
	return c.client.Incr(ctx, key).Err()
}

func (c *linkCache) GetClickCount(ctx context.Context, linkID uuid.UUID) (int64, error) {
	count, err := c.client.Get(ctx, counterKey(linkID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (c *linkCache) SetClickCount(ctx context.Context, linkID uuid.UUID, count int64) error {
	return c.client.Set(ctx, counterKey(linkID), count, c.counterTTL).Err()
}

func (c *linkCache) DeleteClickCount(ctx context.Context, linkID uuid.UUID) error {
	return c.client.Del(ctx, counterKey(linkID)).Err()
}
