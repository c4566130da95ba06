package repository

import (
	"context"

	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClickEventRepository defines the data access contract for the append-only
// click log. Events are inserted and counted, never updated.
type ClickEventRepository interface {
	Create(ctx context.Context, event *model.ClickEvent) error
	CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error)
}

type clickEventRepository struct {
	db *gorm.DB
}

// NewClickEventRepository returns a GORM-backed ClickEventRepository.
func NewClickEventRepository(db *gorm.DB) ClickEventRepository {
	return &clickEventRepository{db: db}
}

func (r *clickEventRepository) Create(ctx context.Context, event *model.ClickEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CountByLink computes the authoritative click count from the durable log.
func (r *clickEventRepository) CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.ClickEvent{}).
		Where("link_id = ?", linkID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
