package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestLinkService_DeleteInvalidatesCacheAndResolvesNotFound(t *testing.T) {
	repo := newMemLinkRepo()
	c := newMemCache()
	alloc := newTestAllocator(repo, c)
	svc := NewLinkService(zap.NewNop(), repo, c)
	resolver := NewResolver(zap.NewNop(), repo, c, nil)
	ctx := context.Background()

	link, err := alloc.Allocate(ctx, AllocateInput{TargetURL: "https://example.com"})
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if err := c.SetClickCount(ctx, link.ID, 9); err != nil {
		t.Fatal(err)
	}

	deleted, err := svc.DeleteLink(ctx, link.ID)
	if err != nil {
		t.Fatalf("DeleteLink returned error: %v", err)
	}
	if !deleted {
		t.Fatal("expected DeleteLink to report a removed row")
	}

	if _, ok := c.cachedLink(link.ShortCode); ok {
		t.Fatal("cached link entry survived deletion")
	}
	if _, err := c.GetClickCount(ctx, link.ID); err == nil {
		t.Fatal("click counter survived deletion")
	}

	if _, err := resolver.Resolve(ctx, link.ShortCode); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestLinkService_DeleteMissingReturnsFalse(t *testing.T) {
	svc := NewLinkService(zap.NewNop(), newMemLinkRepo(), newMemCache())

	deleted, err := svc.DeleteLink(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("DeleteLink returned error: %v", err)
	}
	if deleted {
		t.Fatal("expected false for a missing link")
	}
}

func TestLinkService_GetAndList(t *testing.T) {
	repo := newMemLinkRepo()
	svc := NewLinkService(zap.NewNop(), repo, newMemCache())
	ctx := context.Background()

	seedLink(t, repo, "list01", "https://a.example.com", nil)
	seedLink(t, repo, "list02", "https://b.example.com", nil)

	link, err := svc.GetLink(ctx, "list01")
	if err != nil {
		t.Fatalf("GetLink returned error: %v", err)
	}
	if link.TargetURL != "https://a.example.com" {
		t.Fatalf("wrong target: %q", link.TargetURL)
	}

	if _, err := svc.GetLink(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	links, err := svc.ListLinks(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListLinks returned error: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
}
