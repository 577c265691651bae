package metrics

import (
	"sync"
	"time"
)

// RunStats holds the counters reported at the end of a run.
type RunStats struct {
	WeeksPending      int
	WeeksFetched      int
	WeeksAppended     int
	WeeksSkipped      int
	RowsAppended      int
	RowsStored        int
	DuplicatesDropped int
	Retries           int64
}

// Collector accumulates counters for a single pipeline run.
type Collector struct {
	mu        sync.Mutex
	stats     RunStats
	startTime time.Time
}

// NewCollector creates a collector for one run.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
	}
}

// SetPending records how many weeks the schedule produced.
func (c *Collector) SetPending(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.WeeksPending = n
}

// IncrementFetched counts a week whose snapshot arrived.
func (c *Collector) IncrementFetched() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.WeeksFetched++
}

// IncrementAppended counts a week written to the store along with its rows.
func (c *Collector) IncrementAppended(rows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.WeeksAppended++
	c.stats.RowsAppended += rows
}

// IncrementSkipped counts a week abandoned after its retry budget.
func (c *Collector) IncrementSkipped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.WeeksSkipped++
}

// AddRetries folds in the retry count observed by the fetcher.
func (c *Collector) AddRetries(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Retries += n
}

// SetStoredRows records the store size after reconciliation.
func (c *Collector) SetStoredRows(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.RowsStored = n
}

// SetDuplicatesDropped records how many rows reconciliation discarded.
func (c *Collector) SetDuplicatesDropped(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.DuplicatesDropped = n
}

// GetStats returns a copy of the current counters.
func (c *Collector) GetStats() RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Elapsed returns the time since the collector was created.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}
