package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wantam-ink/pledge-backend/database"
	"github.com/wantam-ink/pledge-backend/services"
	"github.com/wantam-ink/pledge-backend/shared"
)

// HealthHandler reports liveness, degraded components and metrics.
type HealthHandler struct {
	DB          *sql.DB
	DBMetrics   *shared.DatabaseMetrics
	Degraded    []string
	Verifier    *services.WebhookVerifier
	Pledges     *services.PledgeService
	Aggregation *services.AggregationService
	Gateway     *services.GatewayClient
}

func NewHealthHandler(db *sql.DB, dbMetrics *shared.DatabaseMetrics, degraded []string,
	verifier *services.WebhookVerifier, pledges *services.PledgeService,
	aggregation *services.AggregationService, gateway *services.GatewayClient) *HealthHandler {
	if degraded == nil {
		degraded = []string{}
	}
	return &HealthHandler{
		DB:          db,
		DBMetrics:   dbMetrics,
		Degraded:    degraded,
		Verifier:    verifier,
		Pledges:     pledges,
		Aggregation: aggregation,
		Gateway:     gateway,
	}
}

// Health pings the store when there is one. A failed ping is a 503.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	if len(h.Degraded) > 0 {
		status = "degraded"
	}

	body := fiber.Map{
		"status":     status,
		"timestamp":  time.Now().Unix(),
		"store_mode": h.Pledges.StoreMode(),
		"degraded":   h.Degraded,
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if h.DB != nil {
		if err := database.HealthCheck(ctx, h.DB); err != nil {
			body["status"] = "unhealthy"
			body["store_error"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}
	}

	total, ok, err := h.Aggregation.TotalPledges(ctx)
	if err != nil {
		body["status"] = "unhealthy"
		body["store_error"] = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	if ok {
		body["total_pledges"] = total
	}

	return c.JSON(body)
}

// GetMetrics returns a snapshot of every component's metrics.
func (h *HealthHandler) GetMetrics(c *fiber.Ctx) error {
	metrics := fiber.Map{
		"webhook_verifier":    h.Verifier.Metrics().GetSnapshot(),
		"pledge_service":      h.Pledges.Metrics().GetSnapshot(),
		"aggregation_service": h.Aggregation.Metrics().GetSnapshot(),
		"gateway_http":        h.Gateway.Metrics().GetSnapshot(),
	}

	if h.DBMetrics != nil {
		metrics["database_queries"] = h.DBMetrics.GetSnapshot()
	}

	if h.DB != nil {
		dbStats := h.DB.Stats()
		metrics["database_stats"] = map[string]interface{}{
			"open_connections":     dbStats.OpenConnections,
			"in_use":               dbStats.InUse,
			"idle":                 dbStats.Idle,
			"wait_count":           dbStats.WaitCount,
			"wait_duration_ms":     dbStats.WaitDuration.Milliseconds(),
			"max_idle_closed":      dbStats.MaxIdleClosed,
			"max_idle_time_closed": dbStats.MaxIdleTimeClosed,
			"max_lifetime_closed":  dbStats.MaxLifetimeClosed,
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    metrics,
	})
}
