package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/wantam-ink/pledge-backend/services"
)

// SignatureHeader carries base64(HMAC-SHA256(secret, body)).
const SignatureHeader = "X-Webhook-Signature"

// DataSourceHeader tells clients whether counts are live or sample data.
const DataSourceHeader = "X-Data-Source"

const simulatedMessage = "Development mode: Pledge would be created with these details"

type PledgeHandler struct {
	Verifier      *services.WebhookVerifier
	PledgeService *services.PledgeService
	Aggregation   *services.AggregationService
}

func NewPledgeHandler(verifier *services.WebhookVerifier, pledges *services.PledgeService, aggregation *services.AggregationService) *PledgeHandler {
	return &PledgeHandler{
		Verifier:      verifier,
		PledgeService: pledges,
		Aggregation:   aggregation,
	}
}

// MpesaCallback verifies a payment confirmation and records the pledge.
func (h *PledgeHandler) MpesaCallback(c *fiber.Ctx) error {
	raw := c.Body()

	cb, err := h.Verifier.Verify(raw, c.Get(SignatureHeader))
	if err != nil {
		transactionID, region := callbackHints(raw)
		h.PledgeService.RecordRejection(transactionID, region, err)
		return respondError(c, err)
	}

	result, err := h.PledgeService.Ingest(c.UserContext(), cb)
	if err != nil {
		return respondError(c, err)
	}

	message := "Pledge recorded"
	switch result.Status {
	case services.IngestStatusDuplicate:
		message = "Pledge already recorded"
	case services.IngestStatusSimulated:
		message = simulatedMessage
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"status":  result.Status,
		"message": message,
		"data": fiber.Map{
			"phone":          result.Record.Phone,
			"region":         result.Record.Region,
			"amount":         result.Record.Amount.StringFixed(2),
			"transaction_id": result.Record.TransactionID,
		},
	})
}

// GetCountyCounts returns pledge counts per county, most pledges first.
func (h *PledgeHandler) GetCountyCounts(c *fiber.Ctx) error {
	counts, source, err := h.Aggregation.ListRegionPledgeCounts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	c.Set(DataSourceHeader, string(source))
	return c.JSON(counts)
}

// callbackHints extracts the transaction ID and region from a body that
// failed verification, for the audit log.
func callbackHints(raw []byte) (string, string) {
	var probe struct {
		TransID       interface{} `json:"TransID"`
		BillRefNumber string      `json:"BillRefNumber"`
		InvoiceNumber string      `json:"InvoiceNumber"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", ""
	}
	transactionID := ""
	if probe.TransID != nil {
		transactionID = fmt.Sprint(probe.TransID)
	}
	region := services.NormalizeRegion(probe.BillRefNumber)
	if region == "" {
		region = services.NormalizeRegion(probe.InvoiceNumber)
	}
	return transactionID, region
}
