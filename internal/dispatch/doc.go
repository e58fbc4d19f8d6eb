// Package dispatch forwards JSON-RPC requests to upstream providers. The
// Dispatcher performs one attempt under a per-attempt deadline and feeds the
// endpoint health table; the Forwarder composes the selector and dispatcher
// into the retry policy: endpoint failures move to the next provider,
// application errors return to the client untouched.
package dispatch
