// Package selector implements upstream endpoint selection: round-robin over
// healthy, capacity-respecting endpoints for primary picks, a forward walk
// excluding the failed URL for retry picks, and a least-loaded last resort
// when nothing qualifies.
package selector
