package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/shared"
)

// Source tells callers where region counts came from.
type Source string

const (
	SourceStore  Source = "store"
	SourceSample Source = "sample"
)

// AggregationService serves per-region pledge counts. It never writes.
type AggregationService struct {
	store          StoreHandle
	serviceMetrics *shared.ServiceMetrics
	logger         *logrus.Entry
}

// NewAggregationService creates a read-only query service over store.
func NewAggregationService(store StoreHandle) *AggregationService {
	return &AggregationService{
		store:          store,
		serviceMetrics: shared.NewServiceMetrics("aggregation-service"),
		logger:         logrus.WithField("component", "AggregationService"),
	}
}

// Metrics returns query metrics.
func (s *AggregationService) Metrics() *shared.ServiceMetrics {
	return s.serviceMetrics
}

// ListRegionPledgeCounts reads the aggregate view, most pledges first. With no
// store it returns SampleRegionCounts and SourceSample.
func (s *AggregationService) ListRegionPledgeCounts(ctx context.Context) ([]models.RegionAggregate, Source, error) {
	start := time.Now()

	store, live := s.store.Live()
	if !live {
		s.logger.Warn("Record store unavailable, serving sample region counts")
		s.serviceMetrics.IncrementCounter(string(SourceSample))
		s.serviceMetrics.RecordRequest(true, time.Since(start))
		return SampleRegionCounts(), SourceSample, nil
	}

	counts, err := store.RegionCounts(ctx)
	if err != nil {
		s.serviceMetrics.RecordRequest(false, time.Since(start))
		return nil, SourceStore, shared.NewPersistenceError("ListRegionPledgeCounts", err)
	}

	s.serviceMetrics.IncrementCounter(string(SourceStore))
	s.serviceMetrics.RecordRequest(true, time.Since(start))
	s.logger.WithField("regions", len(counts)).Debug("Served region counts from store")
	return counts, SourceStore, nil
}

// TotalPledges counts stored pledges. ok is false when there is no store.
func (s *AggregationService) TotalPledges(ctx context.Context) (total int64, ok bool, err error) {
	store, live := s.store.Live()
	if !live {
		return 0, false, nil
	}
	total, err = store.Count(ctx)
	if err != nil {
		return 0, true, shared.NewPersistenceError("TotalPledges", err)
	}
	return total, true, nil
}

// SampleRegionCounts is the fixed demo data served in degraded mode.
func SampleRegionCounts() []models.RegionAggregate {
	return []models.RegionAggregate{
		{Region: "Nairobi", Count: 125},
		{Region: "Mombasa", Count: 87},
		{Region: "Kisumu", Count: 64},
		{Region: "Nakuru", Count: 42},
		{Region: "Uasin Gishu", Count: 36},
		{Region: "Kiambu", Count: 29},
		{Region: "Machakos", Count: 23},
		{Region: "Kajiado", Count: 18},
		{Region: "Kilifi", Count: 15},
		{Region: "Kwale", Count: 12},
		{Region: "Garissa", Count: 10},
		{Region: "Turkana", Count: 8},
		{Region: "Marsabit", Count: 6},
		{Region: "Wajir", Count: 4},
		{Region: "Mandera", Count: 2},
	}
}
