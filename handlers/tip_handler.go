package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/services"
	"github.com/wantam-ink/pledge-backend/shared"
)

type TipHandler struct {
	TipService *services.TipService
}

func NewTipHandler(tipService *services.TipService) *TipHandler {
	return &TipHandler{TipService: tipService}
}

// BuildTip returns an unsigned tip transfer for the sender to sign.
func (h *TipHandler) BuildTip(c *fiber.Ctx) error {
	var req models.TipRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, shared.NewValidationError(shared.CodeInvalidInput, "body",
			"Invalid request body", "tip-service", "BuildTip"))
	}

	// Omitted percent means the default; an explicit 0 is left to the service.
	var percent float64
	if req.TipPercent != nil {
		percent = *req.TipPercent
	}

	tx, tipAmount, err := h.TipService.BuildTip(req.SenderKey, req.AmountUnits, percent)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(models.TipResponse{
		Transaction: tx,
		TipAmount:   tipAmount,
	})
}
