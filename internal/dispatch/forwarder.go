package dispatch

import (
	"context"
	"log/slog"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/jsonrpc"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/selector"
)

// Forwarder resolves a client request against the upstream fleet: one
// primary attempt, then up to maxRetries sequential attempts on alternative
// endpoints when the primary came back with an endpoint-level failure.
// Application RPC errors are returned as-is; another provider would give the
// same answer.
type Forwarder struct {
	selector   *selector.Selector
	dispatcher *Dispatcher
	maxRetries int
	logger     *slog.Logger
}

func NewForwarder(sel *selector.Selector, dispatcher *Dispatcher, maxRetries int, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		selector:   sel,
		dispatcher: dispatcher,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Forward dispatches the request and reports the final envelope plus whether
// it represents an endpoint failure the proxy could not recover from.
func (f *Forwarder) Forward(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, bool) {
	primary := f.selector.PrimaryPick()
	if primary == nil {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, "Internal error"), true
	}

	resp, failure := f.dispatcher.Dispatch(ctx, req, primary)
	if resp.Error == nil || !failure || f.maxRetries <= 0 {
		return resp, failure
	}

	for _, alt := range f.selector.RetryPicks(primary.URL(), f.maxRetries) {
		f.logger.Debug("Retrying on alternative endpoint",
			slog.String("method", req.Method),
			slog.String("failed", primary.URL()),
			slog.String("endpoint", alt.URL()))

		retryResp, retryFailure := f.dispatcher.Dispatch(ctx, req, alt)
		if retryResp.Error == nil {
			return retryResp, false
		}

		resp, failure = retryResp, retryFailure
	}

	return resp, failure
}
