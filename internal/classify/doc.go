// Package classify decides whether an upstream error is the provider's fault
// or the request's. The decision drives retries and endpoint health: only
// provider faults are retried on alternative endpoints, and only they count
// toward an endpoint's failure streak.
//
// The pattern tables are ordered configuration: application-RPC patterns are
// checked before endpoint-failure patterns, and anything matching neither is
// treated as an application error.
package classify
