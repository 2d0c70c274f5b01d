package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/shared"
)

// MetricsSummaryJob periodically logs component metrics.
type MetricsSummaryJob struct {
	ServiceMetrics []*shared.ServiceMetrics
	HTTPMetrics    *shared.HTTPMetrics
	DBMetrics      *shared.DatabaseMetrics
	Interval       time.Duration
}

func NewMetricsSummaryJob(interval time.Duration, http *shared.HTTPMetrics, db *shared.DatabaseMetrics, services ...*shared.ServiceMetrics) *MetricsSummaryJob {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &MetricsSummaryJob{
		ServiceMetrics: services,
		HTTPMetrics:    http,
		DBMetrics:      db,
		Interval:       interval,
	}
}

// Start runs the job on a ticker until ctx is cancelled.
func (j *MetricsSummaryJob) Start(ctx context.Context) {
	logrus.WithField("interval", j.Interval).Info("Starting Metrics Summary Job")
	ticker := time.NewTicker(j.Interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logrus.Info("Metrics Summary Job stopped")
				return
			case <-ticker.C:
				j.Run()
			}
		}
	}()
}

func (j *MetricsSummaryJob) Run() {
	for _, m := range j.ServiceMetrics {
		if m != nil {
			m.LogSummary()
		}
	}

	if j.HTTPMetrics != nil {
		j.HTTPMetrics.LogHTTPSummary()
	}

	if j.DBMetrics != nil {
		snapshot := j.DBMetrics.GetSnapshot()
		logrus.WithFields(logrus.Fields{
			"total_queries":      snapshot.TotalQueries,
			"failed_queries":     snapshot.FailedQueries,
			"slow_queries":       snapshot.SlowQueries,
			"average_query_time": snapshot.AverageQueryTime,
		}).Info("Database metrics summary")
	}
}
