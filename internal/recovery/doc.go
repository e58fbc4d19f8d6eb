// Package recovery returns unhealthy endpoints to service. A background
// scanner probes each demoted endpoint after a quiescence window; a single
// good answer re-admits it to primary selection.
package recovery
