package problem

import (
	"sync"

	"github.com/gyaneshwarpardhi/hintscan/internal/metrics"
)

// Collector accumulates the problems of one scan. Every stored problem has a
// severity above Off and is never modified after insertion.
type Collector struct {
	mu       sync.Mutex
	problems []Problem
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector { return &Collector{} }

// Add stores p and reports whether it was kept. Problems at Off (or an
// invalid level) are dropped.
func (c *Collector) Add(p Problem) bool {
	if p.Severity <= Off || !p.Severity.Valid() {
		return false
	}
	c.mu.Lock()
	c.problems = append(c.problems, p)
	c.mu.Unlock()
	metrics.ProblemsReported.WithLabelValues(p.Severity.String()).Inc()
	return true
}

// Clean removes every problem reported for resource.
func (c *Collector) Clean(resource string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.problems[:0:0]
	for _, p := range c.problems {
		if p.Resource != resource {
			kept = append(kept, p)
		}
	}
	removed := len(c.problems) - len(kept)
	c.problems = kept
	return removed
}

// Clear drops all problems.
func (c *Collector) Clear() {
	c.mu.Lock()
	c.problems = nil
	c.mu.Unlock()
}

// Problems returns a snapshot in insertion order.
func (c *Collector) Problems() []Problem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Problem(nil), c.problems...)
}

// Len returns the number of stored problems.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.problems)
}

// Summary counts stored problems per severity.
func (c *Collector) Summary() map[Severity]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Severity]int)
	for _, p := range c.problems {
		out[p.Severity]++
	}
	return out
}
