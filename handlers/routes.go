package handlers

import "github.com/gofiber/fiber/v2"

// Handlers groups every route handler for registration.
type Handlers struct {
	Status  *StatusHandler
	Pledge  *PledgeHandler
	Tip     *TipHandler
	Payment *PaymentHandler
	Health  *HealthHandler
}

// RegisterRoutes mounts the API on app.
func RegisterRoutes(app *fiber.App, h *Handlers) {
	app.Get("/health", h.Health.Health)

	api := app.Group("/api")

	api.Get("/", h.Status.Root)
	api.Post("/status", h.Status.CreateStatusCheck)
	api.Get("/metrics", h.Health.GetMetrics)

	// Pledge Routes
	api.Post("/mpesa/callback", h.Pledge.MpesaCallback)
	api.Get("/pledges/counties", h.Pledge.GetCountyCounts)

	// Gateway Routes
	api.Post("/mpesa/stkpush", h.Payment.InitiatePayment)
	api.Get("/mpesa/status/:checkoutRequestId", h.Payment.QueryStatus)

	// Tip Routes
	api.Post("/solana/tip", h.Tip.BuildTip)
}
