package handler

import (
	"context"
	"errors"
	"time"

	"github.com/avelin0/snaplink/internal/app/model"
	"github.com/avelin0/snaplink/internal/app/service"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger    *zap.Logger
	Allocator *service.Allocator
	Links     service.LinkService
	Clicks    *service.ClickAccountant
	Analytics *service.AnalyticsAggregator
}

// APIHandler implements the management API endpoints.
type APIHandler struct {
	logger    *zap.Logger
	allocator *service.Allocator
	links     service.LinkService
	clicks    *service.ClickAccountant
	analytics *service.AnalyticsAggregator
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:    logger,
		allocator: deps.Allocator,
		links:     deps.Links,
		clicks:    deps.Clicks,
		analytics: deps.Analytics,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		links := api.Group("/links")
		{
			links.Post("/", h.CreateLink)
			links.Get("/", h.ListLinks)
			links.Get("/:code", h.GetLink)
			links.Get("/:code/stats", h.LinkStats)
			links.Delete("/:id", h.DeleteLink)
		}
	}
}

// CreateLinkRequest represents the request body for allocating a link.
type CreateLinkRequest struct {
	TargetURL string     `json:"target_url"`
	Code      string     `json:"code,omitempty"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
	TTLDays   int        `json:"ttl_days,omitempty"`
}

// LinkResponse represents a link record in API responses.
type LinkResponse struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	TargetURL string     `json:"target_url"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toLinkResponse(link *model.Link) LinkResponse {
	return LinkResponse{
		ID:        link.ID,
		Code:      link.ShortCode,
		TargetURL: link.TargetURL,
		OwnerID:   link.OwnerID,
		ExpiresAt: link.ExpiresAt,
		CreatedAt: link.CreatedAt,
		UpdatedAt: link.UpdatedAt,
	}
}

// CreateLink handles POST /api/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.TargetURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "target_url is required",
		})
	}

	link, err := h.allocator.Allocate(requestContext(c), service.AllocateInput{
		TargetURL:     req.TargetURL,
		OwnerID:       req.OwnerID,
		RequestedCode: req.Code,
		TTLDays:       req.TTLDays,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL), errors.Is(err, service.ErrInvalidCode):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, service.ErrCodeConflict):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "code is already in use",
			})
		case errors.Is(err, service.ErrStoreUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "store unavailable, retry later",
			})
		default:
			h.logger.Error("failed to allocate link", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to allocate link",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(toLinkResponse(link))
}

// ListLinks handles GET /api/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	limit := 20
	offset := 0

	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}

	links, err := h.links.ListLinks(requestContext(c), limit, offset)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list links",
		})
	}

	response := make([]LinkResponse, len(links))
	for i := range links {
		response[i] = toLinkResponse(&links[i])
	}

	return c.JSON(fiber.Map{
		"links":  response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

// GetLink handles GET /api/links/:code
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code is required",
		})
	}

	link, err := h.links.GetLink(requestContext(c), code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to get link", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "store unavailable, retry later",
		})
	}

	return c.JSON(toLinkResponse(link))
}

// LinkStats handles GET /api/links/:code/stats?days=N
func (h *APIHandler) LinkStats(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code is required",
		})
	}

	days := c.QueryInt("days", 7)
	ctx := requestContext(c)

	link, err := h.links.GetLink(ctx, code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to load link for stats", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "store unavailable, retry later",
		})
	}

	daily, err := h.analytics.DailyClicks(ctx, link.ID, days)
	if err != nil {
		if errors.Is(err, service.ErrInvalidWindow) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "days must be between 1 and the configured maximum",
				"max":   h.analytics.MaxDays(),
			})
		}
		h.logger.Error("failed to aggregate daily clicks", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "store unavailable, retry later",
		})
	}

	total, err := h.clicks.GetClickCount(ctx, link.ID)
	if err != nil {
		h.logger.Error("failed to count clicks", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "store unavailable, retry later",
		})
	}

	return c.JSON(fiber.Map{
		"code":         code,
		"total_clicks": total,
		"daily":        daily,
	})
}

// DeleteLink handles DELETE /api/links/:id
func (h *APIHandler) DeleteLink(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id must be a uuid",
		})
	}

	deleted, err := h.links.DeleteLink(requestContext(c), id)
	if err != nil {
		h.logger.Error("failed to delete link", zap.Error(err), zap.String("link_id", id.String()))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "store unavailable, retry later",
		})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "link not found",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func requestContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
