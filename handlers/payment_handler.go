package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/services"
	"github.com/wantam-ink/pledge-backend/shared"
)

// PaymentHandler exposes the gateway client for pledge initiation.
type PaymentHandler struct {
	Gateway *services.GatewayClient
}

func NewPaymentHandler(gateway *services.GatewayClient) *PaymentHandler {
	return &PaymentHandler{Gateway: gateway}
}

// InitiatePayment starts an STK push on the payer's phone.
func (h *PaymentHandler) InitiatePayment(c *fiber.Ctx) error {
	var req models.InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, shared.NewValidationError(shared.CodeInvalidInput, "body",
			"Invalid request body", "gateway-client", "InitiatePayment"))
	}
	phone, err := services.NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		return respondError(c, err)
	}
	req.PhoneNumber = phone
	if req.Amount <= 0 {
		return respondError(c, shared.NewValidationError(shared.CodeInvalidInput, "amount",
			"amount must be positive", "gateway-client", "InitiatePayment"))
	}
	if req.AccountReference == "" {
		return respondError(c, shared.NewValidationError(shared.CodeInvalidInput, "account_reference",
			"account_reference is required", "gateway-client", "InitiatePayment"))
	}
	if req.Description == "" {
		req.Description = "Pledge"
	}

	resp, err := h.Gateway.InitiatePayment(c.UserContext(), req.PhoneNumber, req.Amount,
		req.AccountReference, req.Description, req.CallbackURL)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    resp,
	})
}

// QueryStatus reports the gateway's view of an STK push.
func (h *PaymentHandler) QueryStatus(c *fiber.Ctx) error {
	checkoutRequestID := strings.TrimSpace(c.Params("checkoutRequestId"))
	if checkoutRequestID == "" {
		return respondError(c, shared.NewValidationError(shared.CodeInvalidInput, "checkoutRequestId",
			"checkoutRequestId is required", "gateway-client", "QueryStatus"))
	}

	resp, err := h.Gateway.QueryStatus(c.UserContext(), checkoutRequestID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    resp,
	})
}
