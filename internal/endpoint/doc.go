// Package endpoint tracks per-upstream health: failure streaks, in-flight
// request counts and response-time windows. A streak of three consecutive
// failures disqualifies an endpoint from primary selection; any successful
// dispatch re-admits it.
package endpoint
