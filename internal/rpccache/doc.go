// Package rpccache provides a short-lived in-process cache of successful
// JSON-RPC results, keyed by method and canonical params. It exists to
// absorb bursts of identical reads (wallet polling, dApp page loads) before
// they reach upstream quota.
package rpccache
