// handlers/checkin.go
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"skport-checkin/middleware"
	"skport-checkin/models"
	"skport-checkin/services"
	"skport-checkin/workers"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100

	triggerEvery = time.Minute
	triggerBurst = 3
)

type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]models.CheckInRun, error)
	LatestRun(ctx context.Context) (*models.CheckInRun, error)
}

type RunTrigger interface {
	TriggerAsync(ctx context.Context) error
}

// CheckInHandler serves run history and the manual trigger.
type CheckInHandler struct {
	History RunHistory
	Trigger RunTrigger
	Logger  *zap.Logger

	// Background runs outlive the request, so they hang off the server context.
	BaseCtx context.Context
}

func (h *CheckInHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *CheckInHandler) ListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultRunsLimit)
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := h.History.ListRuns(c.UserContext(), limit)
	if err != nil {
		h.Logger.Error("[API] ❌ listing runs failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load run history"})
	}
	return c.JSON(runs)
}

func (h *CheckInHandler) LatestRun(c *fiber.Ctx) error {
	run, err := h.History.LatestRun(c.UserContext())
	if errors.Is(err, services.ErrRunNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no runs recorded yet"})
	}
	if err != nil {
		h.Logger.Error("[API] ❌ loading latest run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load run history"})
	}
	return c.JSON(run)
}

func (h *CheckInHandler) StartRun(c *fiber.Ctx) error {
	err := h.Trigger.TriggerAsync(h.BaseCtx)
	if errors.Is(err, workers.ErrRunInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		h.Logger.Error("[API] ❌ manual trigger failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to start run"})
	}
	h.Logger.Info("[API] 🚀 manual check-in run started")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
}

// SetupCheckInRoutes mounts the status API. POST /runs requires adminToken
// and is rate limited per client.
func SetupCheckInRoutes(app *fiber.App, h *CheckInHandler, adminToken string) {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	if h.BaseCtx == nil {
		h.BaseCtx = context.Background()
	}

	app.Get("/healthz", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/runs", h.ListRuns)
	app.Get("/runs/latest", h.LatestRun)
	app.Post("/runs",
		middleware.RateLimitMiddleware(triggerEvery, triggerBurst),
		middleware.AdminAuthMiddleware(adminToken, h.Logger),
		h.StartRun)
}
