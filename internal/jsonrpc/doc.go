// Package jsonrpc defines the JSON-RPC 2.0 request and response envelopes the
// proxy passes between clients and upstream providers. Ids and params stay as
// raw JSON so client-chosen values survive the round trip, and response
// structs declare fields in the order the wire format requires.
package jsonrpc
