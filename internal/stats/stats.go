// Package stats keeps rolling latency figures for recent queries.
package stats

import (
	"slices"
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/circularbuffer"
)

type sample struct {
	timestamp time.Time
	micros    int64
	failed    bool
}

// Snapshot is a point-in-time aggregate of query latency samples.
type Snapshot struct {
	Count    int     `json:"count"`
	Errors   int     `json:"errors"`
	MinUs    int64   `json:"min_us"`
	MaxUs    int64   `json:"max_us"`
	AvgUs    float64 `json:"avg_us"`
	P50Us    float64 `json:"p50_us"`
	P95Us    float64 `json:"p95_us"`
	P99Us    float64 `json:"p99_us"`
	WindowSz int     `json:"window_size"`
}

// QueryStats tracks the most recent query latencies, bounded by both a
// sample count and a maximum age.
type QueryStats struct {
	mu      sync.Mutex
	samples *circularbuffer.Queue
	size    int
	maxAge  time.Duration
}

func NewQueryStats(size int, maxAge time.Duration) *QueryStats {
	if size <= 0 {
		size = 1000
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &QueryStats{
		samples: circularbuffer.New(size),
		size:    size,
		maxAge:  maxAge,
	}
}

// Record adds one query's duration. failed marks queries that returned an error.
func (s *QueryStats) Record(d time.Duration, failed bool) {
	micros := d.Microseconds()
	if micros < 0 {
		micros = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples.Enqueue(sample{timestamp: now, micros: micros, failed: failed})
}

func (s *QueryStats) Snapshot() Snapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if s.samples.Empty() {
		return Snapshot{WindowSz: s.size}
	}

	values := make([]int64, 0, s.samples.Size())
	var sum int64
	errs := 0
	for _, v := range s.samples.Values() {
		sm := v.(sample)
		values = append(values, sm.micros)
		sum += sm.micros
		if sm.failed {
			errs++
		}
	}
	slices.Sort(values)

	return Snapshot{
		Count:    len(values),
		Errors:   errs,
		MinUs:    values[0],
		MaxUs:    values[len(values)-1],
		AvgUs:    float64(sum) / float64(len(values)),
		P50Us:    percentile(values, 50),
		P95Us:    percentile(values, 95),
		P99Us:    percentile(values, 99),
		WindowSz: s.size,
	}
}

// pruneLocked drops samples older than maxAge. Samples are in arrival order.
func (s *QueryStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	for {
		v, ok := s.samples.Peek()
		if !ok || !v.(sample).timestamp.Before(cutoff) {
			return
		}
		s.samples.Dequeue()
	}
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
