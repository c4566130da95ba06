package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/avelin0/snaplink/internal/app/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestAllocator(repo repository.LinkRepository, c *memCache) *Allocator {
	return NewAllocator(AllocatorConfig{
		Logger: zap.NewNop(),
		Links:  repo,
		Cache:  c,
	})
}

func TestAllocator_AllocateAndResolveRoundTrip(t *testing.T) {
	repo := newMemLinkRepo()
	c := newMemCache()
	alloc := newTestAllocator(repo, c)

	link, err := alloc.Allocate(context.Background(), AllocateInput{
		TargetURL: "https://example.com/long/path",
		TTLDays:   7,
	})
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if len(link.ShortCode) != DefaultCodeLength {
		t.Fatalf("expected %d-character code, got %q", DefaultCodeLength, link.ShortCode)
	}
	if link.ExpiresAt == nil {
		t.Fatal("expected expiry to be set for ttl_days > 0")
	}

	resolver := NewResolver(zap.NewNop(), repo, c, nil)
	got, err := resolver.Resolve(context.Background(), link.ShortCode)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.TargetURL != "https://example.com/long/path" {
		t.Fatalf("resolved wrong target: %q", got.TargetURL)
	}
	if got.ID != link.ID {
		t.Fatalf("resolved wrong record: %s != %s", got.ID, link.ID)
	}
}

func TestAllocator_NoExpiryWithoutTTL(t *testing.T) {
	alloc := newTestAllocator(newMemLinkRepo(), newMemCache())

	link, err := alloc.Allocate(context.Background(), AllocateInput{
		TargetURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if link.ExpiresAt != nil {
		t.Fatalf("expected nil expiry, got %v", link.ExpiresAt)
	}
}

func TestAllocator_InputErrorsBeforeStore(t *testing.T) {
	repo := newMemLinkRepo()
	alloc := newTestAllocator(repo, newMemCache())

	tests := []struct {
		name  string
		input AllocateInput
		want  error
	}{
		{"malformed url", AllocateInput{TargetURL: "not a url"}, ErrInvalidURL},
		{"relative url", AllocateInput{TargetURL: "/relative/only"}, ErrInvalidURL},
		{"two-char code", AllocateInput{TargetURL: "https://example.com", RequestedCode: "ab"}, ErrInvalidCode},
		{"bad alphabet", AllocateInput{TargetURL: "https://example.com", RequestedCode: "abc!"}, ErrInvalidCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := alloc.Allocate(context.Background(), tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if n := repo.lookupCount(); n != 0 {
		t.Fatalf("input errors must not touch the store, saw %d lookups", n)
	}
}

func TestAllocator_ThreeCharRequestedCodeAccepted(t *testing.T) {
	alloc := newTestAllocator(newMemLinkRepo(), newMemCache())

	link, err := alloc.Allocate(context.Background(), AllocateInput{
		TargetURL:     "https://example.com",
		RequestedCode: "abc",
	})
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if link.ShortCode != "abc" {
		t.Fatalf("expected requested code, got %q", link.ShortCode)
	}
}

func TestAllocator_RequestedCodeConflict(t *testing.T) {
	repo := newMemLinkRepo()
	alloc := newTestAllocator(repo, newMemCache())
	ctx := context.Background()

	if _, err := alloc.Allocate(ctx, AllocateInput{
		TargetURL:     "https://first.example.com",
		RequestedCode: "taken1",
	}); err != nil {
		t.Fatalf("first Allocate returned error: %v", err)
	}

	_, err := alloc.Allocate(ctx, AllocateInput{
		TargetURL:     "https://second.example.com",
		RequestedCode: "taken1",
	})
	if !errors.Is(err, ErrCodeConflict) {
		t.Fatalf("expected ErrCodeConflict, got %v", err)
	}
}

func TestAllocator_ConcurrentRequestedCode(t *testing.T) {
	repo := newMemLinkRepo()
	alloc := newTestAllocator(repo, newMemCache())

	const workers = 8
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = alloc.Allocate(context.Background(), AllocateInput{
				TargetURL:     "https://example.com",
				RequestedCode: "race01",
			})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrCodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != workers-1 {
		t.Fatalf("expected exactly one winner, got %d wins / %d conflicts", wins, conflicts)
	}
}

func TestAllocator_InsertConstraintViolationIsConflict(t *testing.T) {
	// The pre-check sees nothing, but the insert hits the UNIQUE constraint:
	// the constraint is the final arbiter and the result is a conflict.
	repo := newMemLinkRepo()
	seedLink(t, repo, "race02", "https://existing.example.com", nil)

	alloc := newTestAllocator(&blindLinkRepo{memLinkRepo: repo}, newMemCache())
	_, err := alloc.Allocate(context.Background(), AllocateInput{
		TargetURL:     "https://example.com",
		RequestedCode: "race02",
	})
	if !errors.Is(err, ErrCodeConflict) {
		t.Fatalf("expected ErrCodeConflict, got %v", err)
	}
}

func TestAllocator_ExpiredCodeReusePreservesID(t *testing.T) {
	repo := newMemLinkRepo()
	c := newMemCache()
	alloc := newTestAllocator(repo, c)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	old := seedLink(t, repo, "reuse1", "https://old.example.com", &past)
	c.links["reuse1"] = *old // stale cache entry for the expired record

	fresh, err := alloc.Allocate(ctx, AllocateInput{
		TargetURL:     "https://new.example.com",
		RequestedCode: "reuse1",
		TTLDays:       7,
	})
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if fresh.ID != old.ID {
		t.Fatalf("reuse must preserve identity: %s != %s", fresh.ID, old.ID)
	}
	if fresh.TargetURL != "https://new.example.com" {
		t.Fatalf("reuse must replace content, got %q", fresh.TargetURL)
	}

	cached, ok := c.cachedLink("reuse1")
	if !ok {
		t.Fatal("expected cache to hold the replacement record")
	}
	if cached.TargetURL != "https://new.example.com" {
		t.Fatalf("stale cache entry survived the overwrite: %q", cached.TargetURL)
	}
}

func TestAllocator_GeneratedRetryThenExhaustion(t *testing.T) {
	// A repo that reports every code as actively taken forces the generated
	// path through its whole retry budget.
	repo := &collidingLinkRepo{memLinkRepo: newMemLinkRepo()}
	alloc := NewAllocator(AllocatorConfig{
		Logger:     zap.NewNop(),
		Links:      repo,
		Cache:      newMemCache(),
		MaxRetries: 3,
	})

	_, err := alloc.Allocate(context.Background(), AllocateInput{
		TargetURL: "https://example.com",
	})
	if !errors.Is(err, ErrAllocationExhausted) {
		t.Fatalf("expected ErrAllocationExhausted, got %v", err)
	}
	if repo.lookupCount() != 3 {
		t.Fatalf("expected 3 attempts, saw %d lookups", repo.lookupCount())
	}
}

func TestAllocator_StoreDownSurfacesUnavailable(t *testing.T) {
	repo := newMemLinkRepo()
	repo.down = true
	alloc := newTestAllocator(repo, newMemCache())

	_, err := alloc.Allocate(context.Background(), AllocateInput{
		TargetURL: "https://example.com",
	})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAllocator_CacheDownDoesNotFailAllocation(t *testing.T) {
	c := newMemCache()
	c.down = true
	alloc := newTestAllocator(newMemLinkRepo(), c)

	if _, err := alloc.Allocate(context.Background(), AllocateInput{
		TargetURL: "https://example.com",
	}); err != nil {
		t.Fatalf("cache failure must not fail allocation: %v", err)
	}
}

// seedLink plants a record directly in the repo, bypassing the allocator.
func seedLink(t *testing.T, repo *memLinkRepo, code, target string, expiresAt *time.Time) *model.Link {
	t.Helper()
	link := &model.Link{
		ID:        uuid.New(),
		TargetURL: target,
		ShortCode: code,
		ExpiresAt: expiresAt,
	}
	if err := repo.Create(context.Background(), link); err != nil {
		t.Fatalf("seed link: %v", err)
	}
	return link
}

// blindLinkRepo hides existing rows from the pre-check so the insert runs
// into the uniqueness constraint, as a losing racer would.
type blindLinkRepo struct {
	*memLinkRepo
}

func (r *blindLinkRepo) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	r.mu.Lock()
	r.lookups++
	r.mu.Unlock()
	return nil, repository.ErrLinkNotFound
}

// collidingLinkRepo reports every code as held by an active record.
type collidingLinkRepo struct {
	*memLinkRepo
}

func (r *collidingLinkRepo) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	r.mu.Lock()
	r.lookups++
	r.mu.Unlock()
	return &model.Link{ID: uuid.New(), ShortCode: code, TargetURL: "https://held.example.com"}, nil
}
