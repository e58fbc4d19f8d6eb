package recovery

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/classify"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/endpoint"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/jsonrpc"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/metrics"
)

const (
	// DefaultInterval is how often the scanner sweeps unhealthy endpoints.
	DefaultInterval = 30 * time.Second

	// DefaultQuiescence is how long an endpoint must sit failure-free
	// before it is probed for recovery.
	DefaultQuiescence = 60 * time.Second

	probeTimeout = 5 * time.Second
	probeBody    = `{"jsonrpc":"2.0","method":"eth_blockNumber","params":[],"id":1}`
)

// Scanner periodically probes unhealthy endpoints with a minimal
// eth_blockNumber call and returns them to service when they answer.
type Scanner struct {
	registry   *endpoint.Registry
	client     *http.Client
	interval   time.Duration
	quiescence time.Duration
	logger     *slog.Logger
}

func New(registry *endpoint.Registry, interval, quiescence time.Duration, logger *slog.Logger) *Scanner {
	return &Scanner{
		registry:   registry,
		client:     &http.Client{Timeout: probeTimeout},
		interval:   interval,
		quiescence: quiescence,
		logger:     logger,
	}
}

// Run sweeps on a fixed schedule until the context is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Recovery scanner stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep probes every unhealthy endpoint whose last failure is older than the
// quiescence window.
func (s *Scanner) Sweep(ctx context.Context) {
	unhealthy := 0

	for _, ep := range s.registry.All() {
		if ep.IsHealthy() {
			continue
		}
		unhealthy++

		lastFailure, failed := ep.LastFailureAt()
		if failed && time.Since(lastFailure) < s.quiescence {
			continue
		}

		if s.probe(ctx, ep.URL()) {
			ep.ForceHealthy()
			unhealthy--
			s.logger.Info("Endpoint recovered",
				slog.String("endpoint", ep.URL()))
		}
	}

	metrics.UnhealthyEndpoints.Set(float64(unhealthy))
}

func (s *Scanner) probe(ctx context.Context, url string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodPost, url, bytes.NewReader([]byte(probeBody)))
	if err != nil {
		return false
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false
	}

	parsed, err := jsonrpc.Normalize(raw)
	if err != nil {
		// A 2xx answer that is not JSON still proves the endpoint is
		// reachable, but not that it serves RPC again.
		return false
	}

	return parsed.Error == nil || !classify.IsEndpointFailure(parsed.Error)
}
