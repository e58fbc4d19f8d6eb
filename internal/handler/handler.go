package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/chain"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/dispatch"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/jsonrpc"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/metrics"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/rpccache"
)

// RPCHandler is the /rpc intake: it frames, validates and normalizes
// JSON-RPC traffic, answers chain-identity methods locally, consults the
// response cache, and hands everything else to the forwarder.
type RPCHandler struct {
	logger         *slog.Logger
	forwarder      *dispatch.Forwarder
	identity       chain.Identity
	cache          *rpccache.Cache
	collector      *metrics.Collector
	corsOrigins    []string
	maxRequestSize int64
}

func NewRPCHandler(
	logger *slog.Logger,
	forwarder *dispatch.Forwarder,
	identity chain.Identity,
	cache *rpccache.Cache,
	collector *metrics.Collector,
	corsOrigins []string,
	maxRequestSize int64,
) *RPCHandler {
	return &RPCHandler{
		logger:         logger,
		forwarder:      forwarder,
		identity:       identity,
		cache:          cache,
		collector:      collector,
		corsOrigins:    corsOrigins,
		maxRequestSize: maxRequestSize,
	}
}

func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.applyCORS(w, r)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		metrics.FramingRejections.Inc()
		writeJSON(w, http.StatusMethodNotAllowed,
			jsonrpc.NewError(nil, jsonrpc.CodeMethodNotAllowed, "Method not allowed"))
		return
	}

	if r.ContentLength > h.maxRequestSize {
		metrics.FramingRejections.Inc()
		writeJSON(w, http.StatusRequestEntityTooLarge,
			jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Request too large"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxRequestSize))
	if err != nil {
		metrics.FramingRejections.Inc()

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge,
				jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Request too large"))
			return
		}

		writeJSON(w, http.StatusBadRequest,
			jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error"))
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		metrics.FramingRejections.Inc()
		writeJSON(w, http.StatusBadRequest,
			jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error"))
		return
	}

	switch trimmed[0] {
	case '[':
		h.serveBatch(w, r, trimmed)
	case '{':
		h.serveSingle(w, r, trimmed)
	default:
		metrics.FramingRejections.Inc()
		writeJSON(w, http.StatusBadRequest,
			jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error"))
	}
}

func (h *RPCHandler) serveSingle(w http.ResponseWriter, r *http.Request, body []byte) {
	// Some client libraries probe endpoints with a bare "{}" handshake;
	// answer it as a chain-id query rather than rejecting it.
	if isEmptyObject(body) {
		result, _ := h.identity.Answer(chain.MethodChainID)
		writeJSON(w, http.StatusOK, jsonrpc.NewResult(json.RawMessage(`1`), result))
		return
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		metrics.FramingRejections.Inc()
		writeJSON(w, http.StatusBadRequest,
			jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error"))
		return
	}

	if !req.Valid() {
		metrics.FramingRejections.Inc()
		writeJSON(w, http.StatusBadRequest,
			jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidRequest, "Invalid Request"))
		return
	}

	writeJSON(w, http.StatusOK, h.process(r, &req))
}

func (h *RPCHandler) serveBatch(w http.ResponseWriter, r *http.Request, body []byte) {
	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err != nil {
		metrics.FramingRejections.Inc()
		writeJSON(w, http.StatusBadRequest,
			jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error"))
		return
	}

	if len(elements) == 0 {
		metrics.FramingRejections.Inc()
		writeJSON(w, http.StatusBadRequest,
			jsonrpc.NewError(nil, jsonrpc.CodeInvalidRequest, "Invalid Request"))
		return
	}

	responses := make([]*jsonrpc.Response, 0, len(elements))

	for _, element := range elements {
		var req jsonrpc.Request
		if err := json.Unmarshal(element, &req); err != nil {
			metrics.FramingRejections.Inc()
			responses = append(responses,
				jsonrpc.NewError(nil, jsonrpc.CodeInvalidRequest, "Invalid Request"))
			continue
		}

		if !req.Valid() {
			metrics.FramingRejections.Inc()
			responses = append(responses,
				jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidRequest, "Invalid Request"))
			continue
		}

		responses = append(responses, h.process(r, &req))
	}

	writeJSON(w, http.StatusOK, responses)
}

// process runs one valid envelope through the dispatch core: local
// shortcut, cache, then the forwarder.
func (h *RPCHandler) process(r *http.Request, req *jsonrpc.Request) *jsonrpc.Response {
	if result, ok := h.identity.Answer(req.Method); ok {
		h.collector.Record(metrics.OutcomeSuccess)
		return jsonrpc.NewResult(req.ID, result)
	}

	var key string
	if h.cache != nil {
		key = rpccache.Key(req.Method, req.Params)
		if result, hit := h.cache.Get(key); hit {
			metrics.CacheHits.Inc()
			h.collector.Record(metrics.OutcomeSuccess)
			return jsonrpc.NewResult(req.ID, result)
		}
		metrics.CacheMisses.Inc()
	}

	resp, failure := h.forwarder.Forward(r.Context(), req)

	switch {
	case resp.Error == nil:
		if h.cache != nil {
			h.cache.Put(key, resp.Result)
		}
		h.collector.Record(metrics.OutcomeSuccess)
	case failure:
		h.logger.Warn("Request failed on all endpoints",
			slog.String("method", req.Method),
			slog.String("client", extractClientIP(r)),
			slog.Int("code", resp.Error.Code))
		h.collector.Record(metrics.OutcomeProxyError)
	default:
		h.collector.Record(metrics.OutcomeRPCError)
	}

	return resp
}

func (h *RPCHandler) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")

	allowed := ""
	for _, o := range h.corsOrigins {
		if o == "*" {
			allowed = "*"
			break
		}
		if o == origin && origin != "" {
			allowed = origin
			break
		}
	}

	if allowed == "" {
		return
	}

	header := w.Header()
	header.Set("Access-Control-Allow-Origin", allowed)
	header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	header.Set("Access-Control-Max-Age", "86400")
}
