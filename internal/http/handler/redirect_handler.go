package handler

import (
	"errors"
	"time"

	"github.com/avelin0/snaplink/internal/app/service"
	metrics "github.com/avelin0/snaplink/internal/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the redirect handler.
type RedirectDeps struct {
	Logger         *zap.Logger
	Resolver       *service.Resolver
	Clicks         *service.ClickAccountant
	ClickPublisher *service.ClickPublisher
}

// RedirectHandler serves the hot redirect path.
type RedirectHandler struct {
	logger         *zap.Logger
	resolver       *service.Resolver
	clicks         *service.ClickAccountant
	clickPublisher *service.ClickPublisher
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:         logger,
		resolver:       deps.Resolver,
		clicks:         deps.Clicks,
		clickPublisher: deps.ClickPublisher,
	}
}

// Register wires redirect routes onto the provided router.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/:code", h.Redirect)
}

// Health is a simple root endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "snaplink",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Redirect handles GET /:code. The resolver returns whatever the stores
// hold; the expiry check and the Gone status live here, so the policy is
// the same on the cache-hit and cache-miss paths.
func (h *RedirectHandler) Redirect(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing link code",
		})
	}

	link, err := h.resolver.Resolve(requestContext(c), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "short link not found",
			})
		case errors.Is(err, service.ErrStoreUnavailable):
			h.logger.Error("resolution failed, store unavailable",
				zap.Error(err), zap.String("code", code))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "store unavailable, retry later",
			})
		default:
			h.logger.Error("failed to resolve link", zap.Error(err), zap.String("code", code))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal server error",
			})
		}
	}

	if link.IsExpired(time.Now()) {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "link expired",
		})
	}

	h.recordClick(c, link.ID, code)

	metrics.RedirectsServed.Inc()
	h.logger.Debug("redirecting short link",
		zap.String("code", code), zap.String("target", link.TargetURL))
	return c.Redirect(link.TargetURL, fiber.StatusFound)
}

// recordClick hands the click to JetStream when available, falling back to a
// direct durable write. Either way the redirect itself is never delayed by
// the cache-counter path.
func (h *RedirectHandler) recordClick(c *fiber.Ctx, linkID uuid.UUID, code string) {
	userAgent := c.Get("User-Agent")
	address := c.IP()

	if h.clickPublisher != nil {
		err := h.clickPublisher.Publish(linkID, userAgent, address)
		if err == nil {
			return
		}
		h.logger.Warn("failed to publish click, recording directly",
			zap.Error(err), zap.String("code", code))
	}

	if err := h.clicks.RecordClick(requestContext(c), service.Click{
		LinkID:    linkID,
		UserAgent: userAgent,
		Address:   address,
	}); err != nil {
		h.logger.Error("failed to record click", zap.Error(err), zap.String("code", code))
	}
}
