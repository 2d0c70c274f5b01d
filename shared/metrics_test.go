package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServiceMetricsCounters(t *testing.T) {
	m := NewServiceMetrics("pledge-service")

	m.RecordRequest(true, 10*time.Millisecond)
	m.RecordRequest(true, 30*time.Millisecond)
	m.RecordRequest(false, 20*time.Millisecond)
	m.IncrementCounter("duplicate")
	m.IncrementCounter("duplicate")

	snapshot := m.GetSnapshot()
	assert.Equal(t, int64(3), snapshot.TotalRequests)
	assert.Equal(t, int64(2), snapshot.SuccessfulRequests)
	assert.Equal(t, 20*time.Millisecond, snapshot.AverageProcessingTime)
	assert.Equal(t, 10*time.Millisecond, snapshot.Performance.MinProcessingTime)
	assert.Equal(t, 30*time.Millisecond, snapshot.Performance.MaxProcessingTime)
	assert.Equal(t, int64(2), m.Counter("duplicate"))
	assert.Equal(t, int64(0), m.Counter("ingested"))
	assert.InDelta(t, 66.67, m.GetSuccessRate(), 0.01)
}

func TestDatabaseMetricsSlowQueries(t *testing.T) {
	dm := NewDatabaseMetrics(50 * time.Millisecond)

	dm.RecordQuery(true, 10*time.Millisecond)
	dm.RecordQuery(true, 80*time.Millisecond)
	dm.RecordQuery(false, 5*time.Millisecond)

	snapshot := dm.GetSnapshot()
	assert.Equal(t, int64(3), snapshot.TotalQueries)
	assert.Equal(t, int64(1), snapshot.FailedQueries)
	assert.Equal(t, int64(1), snapshot.SlowQueries)
}

func TestHTTPMetricsSnapshotIsCopy(t *testing.T) {
	hm := NewHTTPMetrics()
	hm.RecordHTTPRequest(true, 200, time.Millisecond, "", false)
	hm.RecordHTTPRequest(false, 0, time.Millisecond, "transport", true)

	snapshot := hm.GetSnapshot()
	hm.RecordHTTPRequest(false, 500, time.Millisecond, "status_500", false)

	assert.Equal(t, int64(2), snapshot.TotalRequests)
	assert.Equal(t, int64(1), snapshot.TimeoutRequests)
	assert.Equal(t, int64(1), snapshot.ErrorCounts["transport"])
	assert.Zero(t, snapshot.StatusCodeCounts[500])
}
