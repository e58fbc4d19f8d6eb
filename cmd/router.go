package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/handler"
)

func setupRouter(rpcHandler *handler.RPCHandler, healthHandler *handler.HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/rpc", rpcHandler)
	mux.Handle("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	return mux
}
