package handler

import (
	"net/http"
	"time"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/endpoint"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/metrics"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/rpccache"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/selector"
)

// HealthHandler serves the /health operational report.
type HealthHandler struct {
	registry              *endpoint.Registry
	selector              *selector.Selector
	collector             *metrics.Collector
	cache                 *rpccache.Cache
	maxConcurrentRequests int
	requestTimeout        time.Duration
	maxRequestSize        int64
}

func NewHealthHandler(
	registry *endpoint.Registry,
	sel *selector.Selector,
	collector *metrics.Collector,
	cache *rpccache.Cache,
	maxConcurrentRequests int,
	requestTimeout time.Duration,
	maxRequestSize int64,
) *HealthHandler {
	return &HealthHandler{
		registry:              registry,
		selector:              sel,
		collector:             collector,
		cache:                 cache,
		maxConcurrentRequests: maxConcurrentRequests,
		requestTimeout:        requestTimeout,
		maxRequestSize:        maxRequestSize,
	}
}

type healthReport struct {
	Status              string           `json:"status"`
	Stats               metrics.Snapshot `json:"stats"`
	RPCURLs             []string         `json:"rpcUrls"`
	HealthyEndpoints    int              `json:"healthyEndpoints"`
	TotalActiveRequests int              `json:"totalActiveRequests"`
	CurrentIndex        int              `json:"currentIndex"`
	Endpoints           []endpoint.Stats `json:"endpoints"`
	Cache               cacheReport      `json:"cache"`
	Config              configReport     `json:"config"`
}

type cacheReport struct {
	Enabled bool  `json:"enabled"`
	Size    int   `json:"size"`
	TTL     int64 `json:"ttl"`
}

type configReport struct {
	MaxConcurrentRequests int   `json:"maxConcurrentRequests"`
	RequestTimeout        int64 `json:"requestTimeout"`
	MaxRequestSize        int64 `json:"maxRequestSize"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	healthy := h.registry.HealthyCount()

	status := "healthy"
	if healthy == 0 {
		status = "degraded"
	}

	report := healthReport{
		Status:              status,
		Stats:               h.collector.Snapshot(),
		RPCURLs:             h.registry.URLs(),
		HealthyEndpoints:    healthy,
		TotalActiveRequests: h.registry.TotalActiveRequests(),
		CurrentIndex:        h.selector.Cursor(),
		Endpoints:           h.registry.Snapshots(),
		Config: configReport{
			MaxConcurrentRequests: h.maxConcurrentRequests,
			RequestTimeout:        h.requestTimeout.Milliseconds(),
			MaxRequestSize:        h.maxRequestSize,
		},
	}

	if h.cache != nil {
		report.Cache = cacheReport{
			Enabled: true,
			Size:    h.cache.Len(),
			TTL:     h.cache.TTL().Milliseconds(),
		}
	}

	writeJSON(w, http.StatusOK, report)
}
