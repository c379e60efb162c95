package db

import (
	"context"
	"log/slog"
	"time"
)

// QueryLatencyStats returns current per-query latency distribution samples.
func (c *Database) QueryLatencyStats() []queryLatencyStats {
	if c == nil || c.tracker == nil {
		return nil
	}
	return c.tracker.snapshot()
}

// LogLatency logs the slowest queries every interval until ctx is done.
func (c *Database) LogLatency(ctx context.Context, log *slog.Logger, interval time.Duration, top int) {
	if interval <= 0 {
		interval = time.Minute
	}
	if top <= 0 {
		top = 5
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		stats := c.QueryLatencyStats()
		if len(stats) > top {
			stats = stats[:top]
		}
		for _, entry := range stats {
			log.Info("db_query_latency",
				"query", entry.Name,
				"count", entry.Count,
				"errors", entry.Errors,
				"p50_ms", entry.P50.Milliseconds(),
				"p95_ms", entry.P95.Milliseconds(),
				"max_ms", entry.Max.Milliseconds(),
			)
		}
	}
}
