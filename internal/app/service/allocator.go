package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/avelin0/snaplink/internal/app/cache"
	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/avelin0/snaplink/internal/app/repository"
	metrics "github.com/avelin0/snaplink/internal/infra/prometheus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxRetries bounds the generate-collide-retry loop. Exhausting it
// means the code space is saturated or the store is misbehaving.
const DefaultMaxRetries = 5

// AllocateInput captures data required to allocate a short link.
type AllocateInput struct {
	TargetURL     string
	OwnerID       *uuid.UUID
	RequestedCode string
	TTLDays       int
}

// Allocator orchestrates code generation against the durable store, handling
// collisions and expired-code reuse, and writes through to the cache store.
type Allocator struct {
	logger     *zap.Logger
	links      repository.LinkRepository
	cache      cache.LinkCache
	gen        *CodeGenerator
	filter     *CodeFilter
	maxRetries int
	now        func() time.Time
}

// AllocatorConfig bundles the allocator's collaborators. Filter is optional;
// MaxRetries falls back to DefaultMaxRetries when non-positive.
type AllocatorConfig struct {
	Logger     *zap.Logger
	Links      repository.LinkRepository
	Cache      cache.LinkCache
	Generator  *CodeGenerator
	Filter     *CodeFilter
	MaxRetries int
}

// NewAllocator returns an allocator wired to the given stores.
func NewAllocator(cfg AllocatorConfig) *Allocator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gen := cfg.Generator
	if gen == nil {
		gen = NewCodeGenerator(DefaultCodeLength)
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Allocator{
		logger:     logger,
		links:      cfg.Links,
		cache:      cfg.Cache,
		gen:        gen,
		filter:     cfg.Filter,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Allocate creates or overwrites a link record for the target URL.
//
// Input violations are rejected before any store interaction. A generated
// code colliding with an active record is retried up to the configured
// bound; a requested code colliding with an active record is a conflict. An
// expired record holding the candidate code is overwritten in place, keeping
// its id. The store's UNIQUE constraint is the final arbiter under
// concurrent allocation: a violation at insert time is a conflict even when
// the pre-check saw nothing.
func (a *Allocator) Allocate(ctx context.Context, input AllocateInput) (*model.Link, error) {
	if !validTargetURL(input.TargetURL) {
		return nil, ErrInvalidURL
	}

	requested := input.RequestedCode != ""
	if requested && !ValidateRequestedCode(input.RequestedCode) {
		return nil, ErrInvalidCode
	}

	now := a.now()
	expiresAt := expiryFor(now, input.TTLDays)

	attempts := 1
	if !requested {
		attempts = a.maxRetries
	}

	for attempt := 0; attempt < attempts; attempt++ {
		code := input.RequestedCode
		if !requested {
			generated, err := a.gen.Generate()
			if err != nil {
				return nil, err
			}
			code = generated
		}

		link, err := a.tryAllocate(ctx, input, code, expiresAt, requested)
		if err == nil {
			return link, nil
		}
		if errors.Is(err, ErrCodeConflict) && !requested {
			metrics.AllocationRetries.Inc()
			a.logger.Debug("generated code collided, retrying",
				zap.String("code", code),
				zap.Int("attempt", attempt+1))
			continue
		}
		return nil, err
	}

	return nil, ErrAllocationExhausted
}

func (a *Allocator) tryAllocate(ctx context.Context, input AllocateInput, code string, expiresAt *time.Time, requested bool) (*model.Link, error) {
	existing, err := a.links.GetByCode(ctx, code)
	switch {
	case err == nil:
		if !existing.IsExpired(a.now()) {
			if requested {
				metrics.CodeConflicts.Inc()
			}
			return nil, ErrCodeConflict
		}
		return a.reuseExpired(ctx, existing, input, expiresAt)

	case errors.Is(err, repository.ErrLinkNotFound):
		return a.insertFresh(ctx, input, code, expiresAt, requested)

	default:
		return nil, fmt.Errorf("allocate: lookup code: %v: %w", err, ErrStoreUnavailable)
	}
}

// reuseExpired replaces an expired record's content while preserving its
// identity, so dead codes do not accumulate as extra rows.
func (a *Allocator) reuseExpired(ctx context.Context, existing *model.Link, input AllocateInput, expiresAt *time.Time) (*model.Link, error) {
	existing.TargetURL = input.TargetURL
	existing.OwnerID = input.OwnerID
	existing.ExpiresAt = expiresAt

	if err := a.links.Overwrite(ctx, existing); err != nil {
		return nil, fmt.Errorf("allocate: overwrite expired link: %v: %w", err, ErrStoreUnavailable)
	}

	// Delete before set: a stale cache entry for the replaced record must
	// never outlive the overwrite, even if the set below fails.
	if err := a.cache.DeleteLink(ctx, existing.ShortCode); err != nil {
		a.logger.Warn("failed to invalidate cached link",
			zap.String("code", existing.ShortCode), zap.Error(err))
	}
	a.cacheLink(ctx, existing)

	a.logger.Info("reused expired short code",
		zap.String("code", existing.ShortCode),
		zap.String("link_id", existing.ID.String()))
	return existing, nil
}

func (a *Allocator) insertFresh(ctx context.Context, input AllocateInput, code string, expiresAt *time.Time, requested bool) (*model.Link, error) {
	link := &model.Link{
		ID:        uuid.New(),
		TargetURL: input.TargetURL,
		ShortCode: code,
		OwnerID:   input.OwnerID,
		ExpiresAt: expiresAt,
	}

	if err := a.links.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrCodeTaken) {
			if requested {
				metrics.CodeConflicts.Inc()
			}
			return nil, ErrCodeConflict
		}
		return nil, fmt.Errorf("allocate: insert link: %v: %w", err, ErrStoreUnavailable)
	}

	a.cacheLink(ctx, link)
	if a.filter != nil {
		a.filter.Add(code)
	}

	a.logger.Info("allocated short link",
		zap.String("code", code),
		zap.String("link_id", link.ID.String()))
	return link, nil
}

// cacheLink is best-effort: a failed cache write costs a later read through
// to Postgres, never the allocation.
func (a *Allocator) cacheLink(ctx context.Context, link *model.Link) {
	if err := a.cache.SetLink(ctx, link); err != nil {
		a.logger.Warn("failed to cache link",
			zap.String("code", link.ShortCode), zap.Error(err))
	}
}

func expiryFor(now time.Time, ttlDays int) *time.Time {
	if ttlDays <= 0 {
		return nil
	}
	expiry := now.AddDate(0, 0, ttlDays)
	return &expiry
}

func validTargetURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.IsAbs() && parsed.Host != ""
}
