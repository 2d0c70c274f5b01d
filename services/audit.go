package services

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/models"
)

// Audit outcomes for pledge ingestion.
const (
	AuditOutcomeIngested  = "ingested"
	AuditOutcomeDuplicate = "duplicate"
	AuditOutcomeSimulated = "simulated"
	AuditOutcomeRejected  = "rejected"
	AuditOutcomeFailed    = "failed"
)

// PledgeAuditLogger writes one structured entry per ingestion attempt.
type PledgeAuditLogger struct {
	serviceName string
	logger      logrus.FieldLogger
}

// NewPledgeAuditLogger creates an audit logger on the standard logrus logger.
func NewPledgeAuditLogger() *PledgeAuditLogger {
	return NewPledgeAuditLoggerWith(logrus.StandardLogger())
}

// NewPledgeAuditLoggerWith creates an audit logger writing to logger.
func NewPledgeAuditLoggerWith(logger logrus.FieldLogger) *PledgeAuditLogger {
	return &PledgeAuditLogger{
		serviceName: "pledge-service",
		logger:      logger,
	}
}

// AuditEntry represents a single audit log entry
type AuditEntry struct {
	Timestamp     time.Time              `json:"timestamp"`
	ServiceName   string                 `json:"service_name"`
	Operation     string                 `json:"operation"`
	Outcome       string                 `json:"outcome"`
	TransactionID string                 `json:"transaction_id"`
	Region        string                 `json:"region,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	Success       bool                   `json:"success"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// LogOutcome records an accepted callback.
func (a *PledgeAuditLogger) LogOutcome(outcome string, record *models.PledgeRecord) {
	a.logAuditEntry(AuditEntry{
		Timestamp:     time.Now(),
		ServiceName:   a.serviceName,
		Operation:     "INGEST",
		Outcome:       outcome,
		TransactionID: record.TransactionID,
		Region:        record.Region,
		Success:       true,
		Metadata: map[string]interface{}{
			"amount":    record.Amount.String(),
			"pledge_id": record.ID.String(),
		},
	})
}

// LogRejection records a callback that was refused or could not be stored.
func (a *PledgeAuditLogger) LogRejection(outcome, transactionID, region, reason string) {
	a.logAuditEntry(AuditEntry{
		Timestamp:     time.Now(),
		ServiceName:   a.serviceName,
		Operation:     "INGEST",
		Outcome:       outcome,
		TransactionID: transactionID,
		Region:        region,
		Reason:        reason,
		Success:       false,
	})
}

func (a *PledgeAuditLogger) logAuditEntry(entry AuditEntry) {
	logFields := logrus.Fields{
		"audit_timestamp": entry.Timestamp,
		"service_name":    entry.ServiceName,
		"operation":       entry.Operation,
		"outcome":         entry.Outcome,
		"transaction_id":  entry.TransactionID,
		"region":          entry.Region,
		"success":         entry.Success,
	}

	if entry.Reason != "" {
		logFields["reason"] = entry.Reason
	}

	for key, value := range entry.Metadata {
		logFields["meta_"+key] = value
	}

	if entry.Success {
		a.logger.WithFields(logFields).Info("Audit log entry")
	} else {
		a.logger.WithFields(logFields).Warn("Audit log entry - operation failed")
	}
}
