package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const HealthzTimeout = 5 * time.Second

// StatusSource reports the agent state shown by the health check.
type StatusSource interface {
	Online() bool
	PendingCount(ctx context.Context) (int, error)
	Syncing() bool
}

// BreakerReporter exposes the remote client's circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Online  bool   `json:"online" example:"true"`
	Pending int    `json:"pending" example:"0"`
	Syncing bool   `json:"syncing" example:"false"`
	Breaker string `json:"breaker,omitempty" example:"closed"`
	Error   string `json:"error,omitempty"`
}

// Healthz returns the health of the agent. The agent is healthy while its
// local store answers; being offline is reported but is not a failure.
// breaker may be nil.
// @Summary Health check
// @Description Local store health, remote connectivity and queued mutation count
// @Tags health
// @Produce json
// @Success 200 {object} handlers.HealthResponse
// @Failure 503 {object} handlers.HealthResponse
// @Router /healthz [get]
func Healthz(src StatusSource, breaker BreakerReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), HealthzTimeout)
		defer cancel()

		resp := HealthResponse{
			Status:  "ok",
			Online:  src.Online(),
			Syncing: src.Syncing(),
		}
		if breaker != nil {
			resp.Breaker = breaker.BreakerState()
		}

		pending, err := src.PendingCount(ctx)
		if err != nil {
			resp.Status = "down"
			resp.Error = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
		resp.Pending = pending
		return c.JSON(resp)
	}
}
