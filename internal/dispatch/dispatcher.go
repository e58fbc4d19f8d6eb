package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/classify"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/endpoint"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/jsonrpc"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/metrics"
)

const userAgent = "obsidian-rpc/2.0"

// Dispatcher performs a single forwarding attempt against one upstream
// endpoint. It never fails outright: every exit path yields a well-formed
// response envelope, plus a flag telling the caller whether the attempt
// counts as an endpoint failure (and is therefore worth retrying elsewhere).
type Dispatcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewDispatcher(client *http.Client, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch POSTs the request to ep under a per-attempt deadline and updates
// the endpoint's health from the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, req *jsonrpc.Request, ep *endpoint.Endpoint) (*jsonrpc.Response, bool) {
	ep.BeginDispatch()
	defer ep.EndDispatch()

	start := time.Now()

	resp, failure := d.attempt(ctx, req, ep)

	if failure {
		ep.RecordFailure()
		metrics.DispatchesTotal.WithLabelValues(ep.URL(), "failure").Inc()

		if !ep.IsHealthy() {
			d.logger.Warn("Endpoint marked unhealthy",
				slog.String("endpoint", ep.URL()),
				slog.Int("consecutive_failures", ep.ConsecutiveFailures()))
		}
	} else {
		ep.RecordSuccess(time.Since(start))
		metrics.DispatchesTotal.WithLabelValues(ep.URL(), "success").Inc()
		metrics.DispatchLatency.WithLabelValues(ep.URL()).Observe(time.Since(start).Seconds())
	}

	return resp, failure
}

func (d *Dispatcher) attempt(ctx context.Context, req *jsonrpc.Request, ep *endpoint.Endpoint) (*jsonrpc.Response, bool) {
	body, err := json.Marshal(req)
	if err != nil {
		return jsonrpc.NewErrorWithData(req.ID, jsonrpc.CodeInternalError, "Internal error", err.Error()), true
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, ep.URL(), bytes.NewReader(body))
	if err != nil {
		return jsonrpc.NewErrorWithData(req.ID, jsonrpc.CodeInternalError, "Internal error", err.Error()), true
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			d.logger.Warn("Upstream attempt timed out",
				slog.String("endpoint", ep.URL()),
				slog.Duration("timeout", d.timeout))
			return jsonrpc.NewErrorWithData(req.ID, jsonrpc.CodeUpstreamTimeout, "Request timeout", err.Error()), true
		}

		d.logger.Warn("Upstream attempt failed",
			slog.String("endpoint", ep.URL()),
			slog.String("error", err.Error()))
		return jsonrpc.NewErrorWithData(req.ID, jsonrpc.CodeInternalError, "Internal error", err.Error()), true
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return jsonrpc.NewErrorWithData(req.ID, jsonrpc.CodeUpstreamTimeout, "Request timeout", err.Error()), true
		}
		return jsonrpc.NewErrorWithData(req.ID, jsonrpc.CodeInternalError, "Internal error", err.Error()), true
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		detail := fmt.Sprintf("upstream returned status %d", httpResp.StatusCode)
		d.logger.Warn("Upstream returned non-2xx status",
			slog.String("endpoint", ep.URL()),
			slog.Int("status", httpResp.StatusCode))
		return jsonrpc.NewErrorWithData(req.ID, jsonrpc.CodeInternalError, "Internal error", detail), true
	}

	resp, err := jsonrpc.Normalize(raw)
	if err != nil {
		return jsonrpc.NewErrorWithData(req.ID, jsonrpc.CodeInternalError, "Internal error", "invalid JSON from upstream"), true
	}

	if resp.Error != nil && classify.IsEndpointFailure(resp.Error) {
		return resp, true
	}

	return resp, false
}
