package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/shared"
)

// IngestStatus is the successful outcome of an ingestion.
type IngestStatus string

const (
	IngestStatusIngested  IngestStatus = "ingested"
	IngestStatusDuplicate IngestStatus = "duplicate"
	IngestStatusSimulated IngestStatus = "simulated"
)

// IngestResult describes what was, or in degraded mode would have been, written.
type IngestResult struct {
	Status IngestStatus         `json:"status"`
	Record *models.PledgeRecord `json:"record"`
}

// PledgeService turns verified callbacks into pledge records.
type PledgeService struct {
	store          StoreHandle
	auditLogger    *PledgeAuditLogger
	serviceMetrics *shared.ServiceMetrics
	now            func() time.Time
	logger         *logrus.Entry
}

// NewPledgeService creates an ingestion pipeline over store.
func NewPledgeService(store StoreHandle, auditLogger *PledgeAuditLogger) *PledgeService {
	if auditLogger == nil {
		auditLogger = NewPledgeAuditLogger()
	}
	return &PledgeService{
		store:          store,
		auditLogger:    auditLogger,
		serviceMetrics: shared.NewServiceMetrics("pledge-service"),
		now:            time.Now,
		logger:         logrus.WithField("component", "PledgeService"),
	}
}

// Metrics returns ingestion metrics; counters are keyed by outcome.
func (s *PledgeService) Metrics() *shared.ServiceMetrics {
	return s.serviceMetrics
}

// StoreMode reports whether ingestion writes to a live store.
func (s *PledgeService) StoreMode() string {
	return s.store.Mode()
}

// RecordRejection audits a callback refused before ingestion.
func (s *PledgeService) RecordRejection(transactionID, region string, err error) {
	s.serviceMetrics.IncrementCounter(AuditOutcomeRejected)
	s.auditLogger.LogRejection(AuditOutcomeRejected, transactionID, region, err.Error())
}

// Ingest records a verified callback at most once per transaction ID.
// A duplicate delivery is a success.
func (s *PledgeService) Ingest(ctx context.Context, cb *models.PledgeCallback) (*IngestResult, error) {
	start := time.Now()

	region := DeriveRegion(cb)
	if region == "" {
		err := shared.NewValidationError(shared.CodeMissingRegion, "BillRefNumber",
			"callback has no account reference or invoice number", "pledge-service", "Ingest")
		s.RecordRejection(string(cb.TransID), "", err)
		s.serviceMetrics.RecordRequest(false, time.Since(start))
		return nil, err
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(string(cb.TransAmount)))
	if err != nil {
		verr := shared.NewValidationError(shared.CodeInvalidAmount, "TransAmount",
			"amount is not a number", "pledge-service", "Ingest")
		s.RecordRejection(string(cb.TransID), region, verr)
		s.serviceMetrics.RecordRequest(false, time.Since(start))
		return nil, verr
	}

	record := &models.PledgeRecord{
		ID:            uuid.New(),
		Phone:         strings.TrimSpace(string(cb.MSISDN)),
		Region:        region,
		Amount:        amount,
		TransactionID: strings.TrimSpace(string(cb.TransID)),
		PaymentMethod: models.PaymentMethodMpesa,
		Verified:      true,
		CreatedAt:     s.now().UTC(),
	}

	store, live := s.store.Live()
	if !live {
		s.logger.WithFields(logrus.Fields{
			"transaction_id": record.TransactionID,
			"region":         record.Region,
		}).Warn("Record store unavailable, simulating pledge ingestion")
		return s.succeed(start, IngestStatusSimulated, record), nil
	}

	inserted, err := store.Insert(ctx, record)
	if err != nil {
		perr := shared.NewPersistenceError("Ingest", err)
		s.serviceMetrics.IncrementCounter(AuditOutcomeFailed)
		s.auditLogger.LogRejection(AuditOutcomeFailed, record.TransactionID, record.Region, perr.Error())
		s.serviceMetrics.RecordRequest(false, time.Since(start))
		return nil, perr
	}
	if !inserted {
		// Echo the pledge as first recorded, not this delivery's copy.
		existing, err := store.GetByTransactionID(ctx, record.TransactionID)
		if err != nil {
			s.logger.WithError(err).WithField("transaction_id", record.TransactionID).
				Warn("Failed to load recorded pledge for duplicate delivery")
		} else if existing != nil {
			record = existing
		}
		return s.succeed(start, IngestStatusDuplicate, record), nil
	}
	return s.succeed(start, IngestStatusIngested, record), nil
}

func (s *PledgeService) succeed(start time.Time, status IngestStatus, record *models.PledgeRecord) *IngestResult {
	s.serviceMetrics.IncrementCounter(string(status))
	s.serviceMetrics.RecordRequest(true, time.Since(start))
	s.auditLogger.LogOutcome(string(status), record)
	return &IngestResult{Status: status, Record: record}
}

// DeriveRegion returns the normalized account reference, falling back to the invoice number.
func DeriveRegion(cb *models.PledgeCallback) string {
	if region := NormalizeRegion(cb.BillRefNumber); region != "" {
		return region
	}
	return NormalizeRegion(cb.InvoiceNumber)
}
