// Package metrics keeps cheap in-process request counters, exposed
// through the reports API rather than a separate scrape endpoint.
package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	started time.Time

	requests    atomic.Uint64
	clientErrs  atomic.Uint64
	serverErrs  atomic.Uint64
	rateLimited atomic.Uint64
	durationMs  atomic.Uint64
}

func New() *Collector {
	return &Collector{started: time.Now()}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.Add(1)
	switch {
	case status == 429:
		c.rateLimited.Add(1)
		c.clientErrs.Add(1)
	case status >= 500:
		c.serverErrs.Add(1)
	case status >= 400:
		c.clientErrs.Add(1)
	}
	c.durationMs.Add(uint64(duration.Milliseconds()))
}

func (c *Collector) Snapshot() map[string]any {
	total := c.requests.Load()
	totalMs := c.durationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":    total,
		"clientErrorTotal": c.clientErrs.Load(),
		"serverErrorTotal": c.serverErrs.Load(),
		"rateLimitedTotal": c.rateLimited.Load(),
		"avgDurationMs":    avg,
		"uptimeSeconds":    int64(time.Since(c.started).Seconds()),
	}
}
