package endpoint

import (
	"sync"
	"time"
)

const (
	// unhealthyThreshold is the consecutive-failure count that flips an
	// endpoint out of primary selection.
	unhealthyThreshold = 3

	// latencyWindow bounds the ring of successful response times.
	latencyWindow = 100
)

// Endpoint tracks the health of one upstream RPC provider: failure streaks,
// in-flight dispatch count and a bounded window of response times.
type Endpoint struct {
	url string

	mutex               sync.Mutex
	isHealthy           bool
	consecutiveFailures int
	lastFailureAt       time.Time
	activeRequests      int
	totalRequests       int64
	totalFailures       int64
	latencySamples      []time.Duration
}

// Stats is a point-in-time health snapshot, shaped for the /health report.
type Stats struct {
	URL                 string     `json:"url"`
	IsHealthy           bool       `json:"isHealthy"`
	ActiveRequests      int        `json:"activeRequests"`
	TotalRequests       int64      `json:"totalRequests"`
	TotalFailures       int64      `json:"totalFailures"`
	FailureRate         float64    `json:"failureRate"`
	AverageResponseTime float64    `json:"averageResponseTime"`
	LastFailure         *time.Time `json:"lastFailure"`
}

// New creates an endpoint record for the given URL. Endpoints start healthy.
func New(url string) *Endpoint {
	return &Endpoint{
		url:            url,
		isHealthy:      true,
		latencySamples: make([]time.Duration, 0, latencyWindow),
	}
}

// URL returns the upstream URL this record tracks.
func (e *Endpoint) URL() string {
	return e.url
}

// IsHealthy returns true if the endpoint qualifies for primary selection.
func (e *Endpoint) IsHealthy() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.isHealthy
}

// RecordSuccess accounts a completed dispatch that reached the upstream and
// got an answer. It resets the failure streak and re-admits an unhealthy
// endpoint to service.
func (e *Endpoint) RecordSuccess(latency time.Duration) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.totalRequests++
	e.consecutiveFailures = 0

	e.latencySamples = append(e.latencySamples, latency)
	if len(e.latencySamples) > latencyWindow {
		e.latencySamples = e.latencySamples[1:]
	}

	e.isHealthy = true
}

// RecordFailure accounts a dispatch the upstream failed to serve. Three
// consecutive failures flip the endpoint unhealthy.
func (e *Endpoint) RecordFailure() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.totalRequests++
	e.totalFailures++
	e.consecutiveFailures++
	e.lastFailureAt = time.Now()

	if e.isHealthy && e.consecutiveFailures >= unhealthyThreshold {
		e.isHealthy = false
	}
}

// BeginDispatch reserves an in-flight slot. Call before the network send.
func (e *Endpoint) BeginDispatch() {
	e.mutex.Lock()
	e.activeRequests++
	e.mutex.Unlock()
}

// EndDispatch releases the in-flight slot. Must run on every dispatch exit
// path.
func (e *Endpoint) EndDispatch() {
	e.mutex.Lock()
	if e.activeRequests > 0 {
		e.activeRequests--
	}
	e.mutex.Unlock()
}

// ForceHealthy clears the failure streak and returns the endpoint to
// service. Used by the recovery scanner after a successful probe.
func (e *Endpoint) ForceHealthy() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.consecutiveFailures = 0
	e.isHealthy = true
}

// ActiveRequests returns the current number of in-flight dispatches.
func (e *Endpoint) ActiveRequests() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.activeRequests
}

// ConsecutiveFailures returns the current failure streak length.
func (e *Endpoint) ConsecutiveFailures() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.consecutiveFailures
}

// LastFailureAt returns the time of the most recent failure; ok is false if
// the endpoint has never failed.
func (e *Endpoint) LastFailureAt() (time.Time, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.lastFailureAt, !e.lastFailureAt.IsZero()
}

// AverageResponseTime returns the mean of the latency window, or 0 with no
// samples yet.
func (e *Endpoint) AverageResponseTime() time.Duration {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.averageLocked()
}

func (e *Endpoint) averageLocked() time.Duration {
	if len(e.latencySamples) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range e.latencySamples {
		sum += d
	}

	return sum / time.Duration(len(e.latencySamples))
}

// Snapshot returns the endpoint's current stats.
func (e *Endpoint) Snapshot() Stats {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	stats := Stats{
		URL:                 e.url,
		IsHealthy:           e.isHealthy,
		ActiveRequests:      e.activeRequests,
		TotalRequests:       e.totalRequests,
		TotalFailures:       e.totalFailures,
		AverageResponseTime: float64(e.averageLocked()) / float64(time.Millisecond),
	}

	if e.totalRequests > 0 {
		stats.FailureRate = float64(e.totalFailures) / float64(e.totalRequests)
	}

	if !e.lastFailureAt.IsZero() {
		t := e.lastFailureAt
		stats.LastFailure = &t
	}

	return stats
}
