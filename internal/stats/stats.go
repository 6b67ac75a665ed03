// Package stats tracks request statistics for the coaching core.
package stats

import (
	"sync"
	"time"
)

// Collector tracks request counts, token throughput and latency.
type Collector struct {
	mu            sync.Mutex
	startTime     time.Time
	requestCount  int64
	tokenCount    int64
	errorCount    int64
	fallbackCount int64
	totalDuration int64 // nanoseconds
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
	}
}

// Stats is a point-in-time snapshot.
type Stats struct {
	Uptime        string  `json:"uptime"`
	RequestCount  int64   `json:"request_count"`
	TokenCount    int64   `json:"token_count"`
	ErrorCount    int64   `json:"error_count"`
	FallbackCount int64   `json:"fallback_count"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

// RecordRequest records a completed request.
func (c *Collector) RecordRequest(tokens int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCount++
	c.tokenCount += int64(tokens)
	c.totalDuration += duration.Nanoseconds()
}

// RecordError records a request that exhausted its fallback chain.
func (c *Collector) RecordError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCount++
}

// RecordFallback records a request served by a tier below the routed one.
func (c *Collector) RecordFallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbackCount++
}

// Snapshot returns current statistics.
func (c *Collector) Snapshot() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	avgLatency := float64(0)
	if c.requestCount > 0 {
		avgLatency = float64(c.totalDuration) / float64(c.requestCount) / 1e6
	}

	return &Stats{
		Uptime:        time.Since(c.startTime).String(),
		RequestCount:  c.requestCount,
		TokenCount:    c.tokenCount,
		ErrorCount:    c.errorCount,
		FallbackCount: c.fallbackCount,
		AvgLatencyMs:  avgLatency,
	}
}
