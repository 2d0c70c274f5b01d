package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/shared"
)

const verifierService = "webhook-verifier"

// PledgeUnit is the only accepted pledge amount.
var PledgeUnit = decimal.RequireFromString("1.00")

// WebhookVerifier authenticates and validates gateway callbacks.
type WebhookVerifier struct {
	config  shared.WebhookConfig
	metrics *shared.ServiceMetrics
	logger  *logrus.Entry
}

// NewWebhookVerifier creates a verifier for the given webhook settings.
func NewWebhookVerifier(config shared.WebhookConfig) *WebhookVerifier {
	return &WebhookVerifier{
		config:  config,
		metrics: shared.NewServiceMetrics(verifierService),
		logger:  logrus.WithField("component", "WebhookVerifier"),
	}
}

// Metrics returns verification counters keyed by rejection code.
func (v *WebhookVerifier) Metrics() *shared.ServiceMetrics {
	return v.metrics
}

// SignPayload returns base64(HMAC-SHA256(secret, raw)).
func SignPayload(secret string, raw []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature, then the schema, then the business rules.
// The first failing stage decides the error.
func (v *WebhookVerifier) Verify(raw []byte, signature string) (*models.PledgeCallback, error) {
	cb, err := v.verify(raw, signature)
	if err != nil {
		if serviceErr, ok := shared.AsServiceError(err); ok {
			v.metrics.IncrementCounter(serviceErr.Code)
		}
		return nil, err
	}
	v.metrics.IncrementCounter("accepted")
	return cb, nil
}

func (v *WebhookVerifier) verify(raw []byte, signature string) (*models.PledgeCallback, error) {
	if err := v.checkSignature(raw, strings.TrimSpace(signature)); err != nil {
		return nil, err
	}

	if missing, err := ValidateCallbackSchema(raw); err != nil {
		return nil, err
	} else if len(missing) > 0 {
		return nil, shared.NewValidationError(shared.CodeSchemaError, missing[0],
			"missing required field: "+missing[0], verifierService, "Verify").
			WithDetails(map[string]interface{}{"missing_fields": missing})
	}

	var cb models.PledgeCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, shared.NewValidationError(shared.CodeSchemaError, "body",
			"callback fields have the wrong type: "+err.Error(), verifierService, "Verify")
	}

	if err := v.checkBusinessRules(&cb); err != nil {
		return nil, err
	}
	return &cb, nil
}

func (v *WebhookVerifier) checkSignature(raw []byte, signature string) error {
	if v.config.Secret == "" {
		return nil
	}
	if signature == "" {
		if v.config.RequireSignature {
			return shared.NewValidationError(shared.CodeInvalidSignature, "",
				"signature header required", verifierService, "Verify")
		}
		v.logger.Debug("Callback has no signature header; signature check skipped")
		return nil
	}

	expected := SignPayload(v.config.Secret, raw)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return shared.NewValidationError(shared.CodeInvalidSignature, "",
			"signature mismatch", verifierService, "Verify")
	}
	return nil
}

func (v *WebhookVerifier) checkBusinessRules(cb *models.PledgeCallback) error {
	amount, err := decimal.NewFromString(strings.TrimSpace(string(cb.TransAmount)))
	if err != nil {
		return shared.NewValidationError(shared.CodeInvalidAmount, "TransAmount",
			fmt.Sprintf("amount %q is not a number", cb.TransAmount), verifierService, "Verify")
	}
	if !amount.Equal(PledgeUnit) {
		return shared.NewValidationError(shared.CodeInvalidAmount, "TransAmount",
			fmt.Sprintf("amount must be exactly %s, got %s", PledgeUnit.StringFixed(2), amount.String()),
			verifierService, "Verify")
	}

	if v.config.ShortcodeCheckEnabled() {
		got := strings.TrimSpace(string(cb.BusinessShortCode))
		if got != v.config.ExpectedShortcode {
			return shared.NewValidationError(shared.CodeInvalidShortcode, "BusinessShortCode",
				fmt.Sprintf("unexpected business shortcode %q", got), verifierService, "Verify")
		}
	}
	return nil
}

// ValidateCallbackSchema returns every required field that is absent or blank,
// in declaration order. A body that is not a JSON object is a SchemaError.
func ValidateCallbackSchema(raw []byte) ([]string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, shared.NewValidationError(shared.CodeSchemaError, "body",
			"callback body must be a JSON object", verifierService, "ValidateCallbackSchema")
	}

	var missing []string
	for _, name := range models.RequiredCallbackFields {
		value, ok := fields[name]
		if !ok || isBlankJSON(value) {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

func isBlankJSON(value json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" || trimmed == "null" {
		return true
	}
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return strings.TrimSpace(s) == ""
	}
	return false
}
