package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avelin0/snaplink/internal/app/cache"
	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/avelin0/snaplink/internal/app/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LinkService covers the management operations around the engine: fetching
// and listing records (expired ones included) and deleting a link together
// with its event log and cache entries.
type LinkService interface {
	GetLink(ctx context.Context, code string) (*model.Link, error)
	ListLinks(ctx context.Context, limit, offset int) ([]model.Link, error)
	DeleteLink(ctx context.Context, id uuid.UUID) (bool, error)
}

type linkService struct {
	logger *zap.Logger
	links  repository.LinkRepository
	cache  cache.LinkCache
}

// NewLinkService returns a service implementation backed by the given stores.
func NewLinkService(logger *zap.Logger, links repository.LinkRepository, linkCache cache.LinkCache) LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{logger: logger, links: links, cache: linkCache}
}

func (s *linkService) GetLink(ctx context.Context, code string) (*model.Link, error) {
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get link: %v: %w", err, ErrStoreUnavailable)
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, limit, offset int) ([]model.Link, error) {
	links, err := s.links.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %v: %w", err, ErrStoreUnavailable)
	}
	return links, nil
}

// DeleteLink removes the record; its click events go with it through the FK
// cascade. Returns whether a row was actually removed. Cache invalidation is
// best-effort; a leftover entry dies by TTL.
func (s *linkService) DeleteLink(ctx context.Context, id uuid.UUID) (bool, error) {
	link, err := s.links.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load link: %v: %w", err, ErrStoreUnavailable)
	}

	deleted, err := s.links.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete link: %v: %w", err, ErrStoreUnavailable)
	}
	if !deleted {
		return false, nil
	}

	if err := s.cache.DeleteLink(ctx, link.ShortCode); err != nil {
		s.logger.Warn("failed to invalidate cached link",
			zap.String("code", link.ShortCode), zap.Error(err))
	}
	if err := s.cache.DeleteClickCount(ctx, id); err != nil {
		s.logger.Warn("failed to invalidate click counter",
			zap.String("link_id", id.String()), zap.Error(err))
	}

	s.logger.Info("deleted short link",
		zap.String("code", link.ShortCode),
		zap.String("link_id", id.String()))
	return true, nil
}
