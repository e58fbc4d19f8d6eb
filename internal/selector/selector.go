package selector

import (
	"math"
	"sync"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/endpoint"
)

// Selector picks upstream endpoints for dispatch. Primary picks advance a
// shared round-robin cursor over the configured order; retry picks walk
// forward from a failed URL without touching the cursor.
type Selector struct {
	registry      *endpoint.Registry
	maxConcurrent int

	mutex  sync.Mutex
	cursor int
}

// New creates a selector over the registry's configured endpoints.
// maxConcurrent caps in-flight dispatches per endpoint.
func New(registry *endpoint.Registry, maxConcurrent int) *Selector {
	return &Selector{
		registry:      registry,
		maxConcurrent: maxConcurrent,
	}
}

// PrimaryPick returns the next endpoint for a fresh request. The cursor
// advances exactly once per call; the scan then walks forward accepting the
// first healthy endpoint with capacity. A full revolution with no acceptance
// falls back to the least-loaded endpoint regardless of health, so a fully
// degraded fleet still serves rather than deadlocking.
func (s *Selector) PrimaryPick() *endpoint.Endpoint {
	endpoints := s.registry.All()
	if len(endpoints) == 0 {
		return nil
	}

	s.mutex.Lock()
	start := s.cursor
	s.cursor++
	s.mutex.Unlock()

	for i := 0; i < len(endpoints); i++ {
		candidate := endpoints[(start+i)%len(endpoints)]
		if candidate.IsHealthy() && candidate.ActiveRequests() < s.maxConcurrent {
			return candidate
		}
	}

	return leastLoaded(endpoints)
}

// RetryPicks collects up to n alternative endpoints, walking forward from
// the position after failedURL in configured order. The failed URL itself,
// unhealthy endpoints and saturated endpoints are skipped. The primary
// cursor is not advanced.
func (s *Selector) RetryPicks(failedURL string, n int) []*endpoint.Endpoint {
	endpoints := s.registry.All()
	if len(endpoints) == 0 || n <= 0 {
		return nil
	}

	after := 0
	for i, ep := range endpoints {
		if ep.URL() == failedURL {
			after = i + 1
			break
		}
	}

	picks := make([]*endpoint.Endpoint, 0, n)

	for i := 0; i < len(endpoints) && len(picks) < n; i++ {
		candidate := endpoints[(after+i)%len(endpoints)]
		if candidate.URL() == failedURL {
			continue
		}
		if candidate.IsHealthy() && candidate.ActiveRequests() < s.maxConcurrent {
			picks = append(picks, candidate)
		}
	}

	return picks
}

// Cursor returns the current round-robin position, reported by /health.
func (s *Selector) Cursor() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if n := s.registry.Len(); n > 0 {
		return s.cursor % n
	}

	return 0
}

func leastLoaded(endpoints []*endpoint.Endpoint) *endpoint.Endpoint {
	var chosen *endpoint.Endpoint
	best := math.MaxInt

	for _, ep := range endpoints {
		if active := ep.ActiveRequests(); active < best {
			best = active
			chosen = ep
		}
	}

	return chosen
}
