package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avelin0/snaplink/internal/app/cache"
	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/avelin0/snaplink/internal/app/repository"
	metrics "github.com/avelin0/snaplink/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Resolver serves link records for short codes: cache first, durable store
// on miss, repopulating the cache on the way back.
//
// The resolver never filters by expiry. It returns whatever the stores hold;
// the caller checks ExpiresAt and decides the externally visible status.
type Resolver struct {
	logger *zap.Logger
	links  repository.LinkRepository
	cache  cache.LinkCache
	filter *CodeFilter
}

// NewResolver returns a resolver over the given stores. filter may be nil.
func NewResolver(logger *zap.Logger, links repository.LinkRepository, linkCache cache.LinkCache, filter *CodeFilter) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		logger: logger,
		links:  links,
		cache:  linkCache,
		filter: filter,
	}
}

// Resolve returns the record stored under code.
//
// Cache unavailability falls through to the durable store transparently; a
// read never fails because the cache failed. Durable-store failure surfaces
// as ErrStoreUnavailable, which callers treat as retryable rather than as a
// missing link.
func (r *Resolver) Resolve(ctx context.Context, code string) (*model.Link, error) {
	if r.filter != nil && !r.filter.MightContain(code) {
		metrics.FilterNegatives.Inc()
		return nil, ErrNotFound
	}

	link, err := r.cache.GetLink(ctx, code)
	if err == nil {
		metrics.LinkCacheHits.Inc()
		return link, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("link cache read failed, falling back to store",
			zap.String("code", code), zap.Error(err))
	}
	metrics.LinkCacheMisses.Inc()

	link, err = r.links.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resolve %q: %v: %w", code, err, ErrStoreUnavailable)
	}

	if err := r.cache.SetLink(ctx, link); err != nil {
		r.logger.Warn("failed to repopulate link cache",
			zap.String("code", code), zap.Error(err))
	}

	return link, nil
}
