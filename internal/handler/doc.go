// Package handler implements the HTTP intake for the proxy: JSON-RPC framing
// and validation on /rpc (single and batch), CORS, the empty-object probe
// handshake, the local chain-identity shortcut, response caching, and the
// /health operational report.
package handler
