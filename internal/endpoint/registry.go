package endpoint

// Registry holds the endpoint records for all configured upstream URLs in
// their configured order. The set is fixed at startup, so lookups need no
// locking; per-endpoint state carries its own mutex.
type Registry struct {
	urls      []string
	endpoints map[string]*Endpoint
}

// NewRegistry builds records for the given URLs, preserving order and
// dropping duplicates.
func NewRegistry(urls []string) *Registry {
	r := &Registry{
		endpoints: make(map[string]*Endpoint, len(urls)),
	}

	for _, u := range urls {
		if _, exists := r.endpoints[u]; exists {
			continue
		}
		r.urls = append(r.urls, u)
		r.endpoints[u] = New(u)
	}

	return r
}

// Get returns the record for a URL, or nil if it is not configured.
func (r *Registry) Get(url string) *Endpoint {
	return r.endpoints[url]
}

// All returns the endpoint records in configured order.
func (r *Registry) All() []*Endpoint {
	out := make([]*Endpoint, 0, len(r.urls))
	for _, u := range r.urls {
		out = append(out, r.endpoints[u])
	}
	return out
}

// URLs returns the configured upstream URLs in order.
func (r *Registry) URLs() []string {
	out := make([]string, len(r.urls))
	copy(out, r.urls)
	return out
}

// Len returns the number of configured endpoints.
func (r *Registry) Len() int {
	return len(r.urls)
}

// HealthyCount returns how many endpoints currently qualify for primary
// selection.
func (r *Registry) HealthyCount() int {
	count := 0
	for _, u := range r.urls {
		if r.endpoints[u].IsHealthy() {
			count++
		}
	}
	return count
}

// TotalActiveRequests sums in-flight dispatches across all endpoints.
func (r *Registry) TotalActiveRequests() int {
	total := 0
	for _, u := range r.urls {
		total += r.endpoints[u].ActiveRequests()
	}
	return total
}

// Snapshots returns per-endpoint stats in configured order.
func (r *Registry) Snapshots() []Stats {
	out := make([]Stats, 0, len(r.urls))
	for _, u := range r.urls {
		out = append(out, r.endpoints[u].Snapshot())
	}
	return out
}
