package metrics

import (
	"context"
	"log/slog"
	"time"
)

// Event carries one resolved request outcome to the collector.
type Event struct {
	Outcome Outcome
}

// Collector funnels request outcomes through a buffered channel onto the
// stats store, and owns the once-per-second RPS tick. Emission never blocks
// the request path: events are dropped if the buffer is full.
type Collector struct {
	eventCh chan Event
	stats   *Stats
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		stats:   NewStats(),
		logger:  logger,
	}
}

// Record emits a request outcome without blocking.
func (c *Collector) Record(outcome Outcome) {
	select {
	case c.eventCh <- Event{Outcome: outcome}:
	default:
	}

	RequestsTotal.WithLabelValues(string(outcome)).Inc()
}

// Snapshot reads the current counters.
func (c *Collector) Snapshot() Snapshot {
	return c.stats.Snapshot()
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Stats collector started")
	defer c.logger.Info("Stats collector stopped")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.eventCh:
			c.stats.RecordOutcome(event.Outcome)
		case <-ticker.C:
			c.stats.TickRPS()
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.stats.RecordOutcome(event.Outcome)
		default:
			return
		}
	}
}
