package shared

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceMetrics tracks request outcomes for a service, plus named counters
// such as rejection reasons.
type ServiceMetrics struct {
	ServiceName           string           `json:"service_name"`
	TotalRequests         int64            `json:"total_requests"`
	SuccessfulRequests    int64            `json:"successful_requests"`
	FailedRequests        int64            `json:"failed_requests"`
	TotalProcessingTime   time.Duration    `json:"total_processing_time"`
	AverageProcessingTime time.Duration    `json:"average_processing_time"`
	LastUpdated           time.Time        `json:"last_updated"`
	Counters              map[string]int64 `json:"counters"`
	Performance           PerformanceStats `json:"performance"`
	performance           *PerformanceMetrics
	mutex                 sync.RWMutex
}

// NewServiceMetrics creates a new metrics tracker for a service
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{
		ServiceName: serviceName,
		LastUpdated: time.Now(),
		Counters:    make(map[string]int64),
		performance: NewPerformanceMetrics(),
	}
}

// RecordRequest records a request with its success status and processing time
func (m *ServiceMetrics) RecordRequest(success bool, processingTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalRequests++
	m.TotalProcessingTime += processingTime
	m.AverageProcessingTime = time.Duration(int64(m.TotalProcessingTime) / m.TotalRequests)

	if success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}

	m.LastUpdated = time.Now()
	m.performance.RecordProcessingTime(processingTime)
}

// IncrementCounter increments a named counter
func (m *ServiceMetrics) IncrementCounter(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Counters[key]++
	m.LastUpdated = time.Now()
}

// Counter returns the current value of a named counter
func (m *ServiceMetrics) Counter(key string) int64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.Counters[key]
}

// GetSuccessRate returns the success rate as a percentage
func (m *ServiceMetrics) GetSuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return rate(m.SuccessfulRequests, m.TotalRequests)
}

// GetSnapshot returns a copy of the current metrics that is safe to serialize
func (m *ServiceMetrics) GetSnapshot() *ServiceMetrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counters := make(map[string]int64, len(m.Counters))
	for k, v := range m.Counters {
		counters[k] = v
	}

	return &ServiceMetrics{
		ServiceName:           m.ServiceName,
		TotalRequests:         m.TotalRequests,
		SuccessfulRequests:    m.SuccessfulRequests,
		FailedRequests:        m.FailedRequests,
		TotalProcessingTime:   m.TotalProcessingTime,
		AverageProcessingTime: m.AverageProcessingTime,
		LastUpdated:           m.LastUpdated,
		Counters:              counters,
		Performance:           m.performance.Snapshot(),
	}
}

// LogSummary logs a metrics summary
func (m *ServiceMetrics) LogSummary() {
	snapshot := m.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"service_name":            snapshot.ServiceName,
		"total_requests":          snapshot.TotalRequests,
		"successful_requests":     snapshot.SuccessfulRequests,
		"failed_requests":         snapshot.FailedRequests,
		"success_rate":            rate(snapshot.SuccessfulRequests, snapshot.TotalRequests),
		"average_processing_time": snapshot.AverageProcessingTime,
		"p95_processing_time":     snapshot.Performance.P95ProcessingTime,
		"p99_processing_time":     snapshot.Performance.P99ProcessingTime,
		"counters":                snapshot.Counters,
	}).Info("Service metrics summary")
}

// DatabaseMetrics tracks record store operation performance and success rates
type DatabaseMetrics struct {
	TotalQueries      int64         `json:"total_queries"`
	SuccessfulQueries int64         `json:"successful_queries"`
	FailedQueries     int64         `json:"failed_queries"`
	SlowQueries       int64         `json:"slow_queries"`
	TotalQueryTime    time.Duration `json:"total_query_time"`
	AverageQueryTime  time.Duration `json:"average_query_time"`
	slowThreshold     time.Duration
	mutex             sync.RWMutex
}

// NewDatabaseMetrics creates a new database metrics tracker
func NewDatabaseMetrics(slowThreshold time.Duration) *DatabaseMetrics {
	return &DatabaseMetrics{slowThreshold: slowThreshold}
}

// RecordQuery records a query with its success status and execution time
func (dm *DatabaseMetrics) RecordQuery(success bool, queryTime time.Duration) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.TotalQueries++
	dm.TotalQueryTime += queryTime
	dm.AverageQueryTime = time.Duration(int64(dm.TotalQueryTime) / dm.TotalQueries)

	if success {
		dm.SuccessfulQueries++
	} else {
		dm.FailedQueries++
	}

	if dm.slowThreshold > 0 && queryTime > dm.slowThreshold {
		dm.SlowQueries++
	}
}

// GetSnapshot returns a copy of the current database metrics
func (dm *DatabaseMetrics) GetSnapshot() *DatabaseMetrics {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	return &DatabaseMetrics{
		TotalQueries:      dm.TotalQueries,
		SuccessfulQueries: dm.SuccessfulQueries,
		FailedQueries:     dm.FailedQueries,
		SlowQueries:       dm.SlowQueries,
		TotalQueryTime:    dm.TotalQueryTime,
		AverageQueryTime:  dm.AverageQueryTime,
	}
}

// HTTPMetrics tracks outbound HTTP client performance and success rates
type HTTPMetrics struct {
	TotalRequests       int64            `json:"total_requests"`
	SuccessfulRequests  int64            `json:"successful_requests"`
	FailedRequests      int64            `json:"failed_requests"`
	TimeoutRequests     int64            `json:"timeout_requests"`
	TotalResponseTime   time.Duration    `json:"total_response_time"`
	AverageResponseTime time.Duration    `json:"average_response_time"`
	StatusCodeCounts    map[int]int64    `json:"status_code_counts"`
	ErrorCounts         map[string]int64 `json:"error_counts"`
	mutex               sync.RWMutex
}

// NewHTTPMetrics creates a new HTTP metrics tracker
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		StatusCodeCounts: make(map[int]int64),
		ErrorCounts:      make(map[string]int64),
	}
}

// RecordHTTPRequest records an HTTP request with its result
func (hm *HTTPMetrics) RecordHTTPRequest(success bool, statusCode int, responseTime time.Duration, errorType string, isTimeout bool) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.TotalRequests++
	hm.TotalResponseTime += responseTime
	hm.AverageResponseTime = time.Duration(int64(hm.TotalResponseTime) / hm.TotalRequests)

	if success {
		hm.SuccessfulRequests++
	} else {
		hm.FailedRequests++
	}

	if isTimeout {
		hm.TimeoutRequests++
	}

	hm.StatusCodeCounts[statusCode]++

	if errorType != "" {
		hm.ErrorCounts[errorType]++
	}
}

// GetSnapshot returns a copy of the current HTTP metrics
func (hm *HTTPMetrics) GetSnapshot() *HTTPMetrics {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	statusCodes := make(map[int]int64, len(hm.StatusCodeCounts))
	for k, v := range hm.StatusCodeCounts {
		statusCodes[k] = v
	}
	errorCounts := make(map[string]int64, len(hm.ErrorCounts))
	for k, v := range hm.ErrorCounts {
		errorCounts[k] = v
	}

	return &HTTPMetrics{
		TotalRequests:       hm.TotalRequests,
		SuccessfulRequests:  hm.SuccessfulRequests,
		FailedRequests:      hm.FailedRequests,
		TimeoutRequests:     hm.TimeoutRequests,
		TotalResponseTime:   hm.TotalResponseTime,
		AverageResponseTime: hm.AverageResponseTime,
		StatusCodeCounts:    statusCodes,
		ErrorCounts:         errorCounts,
	}
}

// LogHTTPSummary logs HTTP metrics
func (hm *HTTPMetrics) LogHTTPSummary() {
	snapshot := hm.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"total_requests":        snapshot.TotalRequests,
		"successful_requests":   snapshot.SuccessfulRequests,
		"failed_requests":       snapshot.FailedRequests,
		"timeout_requests":      snapshot.TimeoutRequests,
		"http_success_rate":     rate(snapshot.SuccessfulRequests, snapshot.TotalRequests),
		"average_response_time": snapshot.AverageResponseTime,
		"status_code_counts":    snapshot.StatusCodeCounts,
		"error_counts":          snapshot.ErrorCounts,
	}).Info("HTTP metrics summary")
}

// PerformanceStats is a point-in-time view of PerformanceMetrics
type PerformanceStats struct {
	MinProcessingTime time.Duration `json:"min_processing_time"`
	MaxProcessingTime time.Duration `json:"max_processing_time"`
	P95ProcessingTime time.Duration `json:"p95_processing_time"`
	P99ProcessingTime time.Duration `json:"p99_processing_time"`
}

// PerformanceMetrics keeps the last maxSamples processing times for percentile calculation
type PerformanceMetrics struct {
	stats           PerformanceStats
	processingTimes []time.Duration
	mutex           sync.RWMutex
}

const maxSamples = 1000

// NewPerformanceMetrics creates a new performance metrics tracker
func NewPerformanceMetrics() *PerformanceMetrics {
	return &PerformanceMetrics{
		processingTimes: make([]time.Duration, 0, maxSamples),
	}
}

// RecordProcessingTime records a processing time and updates the percentiles
func (pm *PerformanceMetrics) RecordProcessingTime(duration time.Duration) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if pm.stats.MinProcessingTime == 0 || duration < pm.stats.MinProcessingTime {
		pm.stats.MinProcessingTime = duration
	}
	if duration > pm.stats.MaxProcessingTime {
		pm.stats.MaxProcessingTime = duration
	}

	if len(pm.processingTimes) >= maxSamples {
		pm.processingTimes = pm.processingTimes[1:]
	}
	pm.processingTimes = append(pm.processingTimes, duration)

	times := make([]time.Duration, len(pm.processingTimes))
	copy(times, pm.processingTimes)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	pm.stats.P95ProcessingTime = times[int(float64(len(times)-1)*0.95)]
	pm.stats.P99ProcessingTime = times[int(float64(len(times)-1)*0.99)]
}

// Snapshot returns the current performance stats
func (pm *PerformanceMetrics) Snapshot() PerformanceStats {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()
	return pm.stats
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}
