package metrics

import (
	"sync"
	"time"
)

// Outcome labels how the proxy resolved a client request.
type Outcome string

const (
	// OutcomeSuccess: the client got a result, from an upstream, the
	// response cache or the local chain-identity shortcut.
	OutcomeSuccess Outcome = "success"

	// OutcomeRPCError: the upstream answered with an application-level
	// error. Delivery succeeded, so this also counts as a success.
	OutcomeRPCError Outcome = "rpc_error"

	// OutcomeProxyError: every attempt failed at the provider level and
	// the client got a proxy-synthesized error.
	OutcomeProxyError Outcome = "proxy_error"
)

// rpsAlpha smooths the requests-per-second estimate over roughly a ten
// second window at one tick per second.
const rpsAlpha = 0.2

// Stats holds the process-lifetime request counters.
type Stats struct {
	mutex              sync.RWMutex
	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	rpcErrors          int64
	proxyErrors        int64
	sinceTick          int64
	rps                float64
	startTime          time.Time
}

// Snapshot is the stats block of the /health report.
type Snapshot struct {
	TotalRequests      int64   `json:"totalRequests"`
	SuccessfulRequests int64   `json:"successfulRequests"`
	FailedRequests     int64   `json:"failedRequests"`
	RPCErrors          int64   `json:"rpcErrors"`
	ProxyErrors        int64   `json:"proxyErrors"`
	RequestsPerSecond  float64 `json:"requestsPerSecond"`
	Uptime             int64   `json:"uptime"`
}

func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
	}
}

// RecordOutcome accounts one resolved client request.
func (s *Stats) RecordOutcome(outcome Outcome) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.totalRequests++
	s.sinceTick++

	switch outcome {
	case OutcomeSuccess:
		s.successfulRequests++
	case OutcomeRPCError:
		s.successfulRequests++
		s.rpcErrors++
	case OutcomeProxyError:
		s.failedRequests++
		s.proxyErrors++
	}
}

// TickRPS folds the last second's request count into the EMA. Called once
// per second by the collector.
func (s *Stats) TickRPS() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rps = (1-rpsAlpha)*s.rps + rpsAlpha*float64(s.sinceTick)
	s.sinceTick = 0
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return Snapshot{
		TotalRequests:      s.totalRequests,
		SuccessfulRequests: s.successfulRequests,
		FailedRequests:     s.failedRequests,
		RPCErrors:          s.rpcErrors,
		ProxyErrors:        s.proxyErrors,
		RequestsPerSecond:  s.rps,
		Uptime:             int64(time.Since(s.startTime).Seconds()),
	}
}
