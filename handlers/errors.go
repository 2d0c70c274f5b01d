package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/shared"
)

// respondError writes the failure body for err. ServiceErrors carry their own
// status; anything else is a 500.
func respondError(c *fiber.Ctx, err error) error {
	serviceErr, ok := shared.AsServiceError(err)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"component": "handlers",
			"path":      c.Path(),
		}).WithError(err).Error("Unexpected error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "INTERNAL_ERROR",
			"message": "internal server error",
		})
	}

	serviceErr.LogError()

	body := fiber.Map{
		"success": false,
		"error":   serviceErr.Code,
		"message": serviceErr.Message,
	}
	if !serviceErr.IsValidation() {
		body["retryable"] = serviceErr.IsRetryable()
	}
	if serviceErr.Field != "" {
		body["field"] = serviceErr.Field
	}
	if serviceErr.Details != nil {
		body["details"] = serviceErr.Details
	}
	if serviceErr.Code == shared.CodeGatewayFailure || serviceErr.Code == shared.CodeAuthFailure {
		if serviceErr.Status != 0 {
			body["gateway_status"] = serviceErr.Status
		}
		if serviceErr.Body != "" {
			body["gateway_body"] = serviceErr.Body
		}
	}
	return c.Status(serviceErr.HTTPStatus()).JSON(body)
}
