package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/shared"
)

type StatusHandler struct{}

func NewStatusHandler() *StatusHandler {
	return &StatusHandler{}
}

func (h *StatusHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "WANTAM.INK API",
		"status":  "online",
	})
}

// CreateStatusCheck echoes a client probe with a fresh ID. Nothing is stored.
func (h *StatusHandler) CreateStatusCheck(c *fiber.Ctx) error {
	var req models.StatusCheckCreate
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.ClientName) == "" {
		return respondError(c, shared.NewValidationError(shared.CodeInvalidInput, "client_name",
			"client_name is required", "status", "CreateStatusCheck"))
	}

	check := models.StatusCheck{
		ID:         uuid.New(),
		ClientName: strings.TrimSpace(req.ClientName),
		Timestamp:  time.Now().UTC(),
	}

	logrus.WithFields(logrus.Fields{
		"component":   "StatusHandler",
		"id":          check.ID,
		"client_name": check.ClientName,
	}).Info("Status check received")

	return c.JSON(check)
}
