// Package engine answers "top combined values with depth restraints" over a snapshot of
// parent-linked insurance records. It is the only entry point into tree construction,
// aggregation and selection.
package engine

import (
	"fmt"

	"github.com/dgallion1/insurtree/internal/engine/internal/aggregate"
	"github.com/dgallion1/insurtree/internal/engine/internal/forest"
	"github.com/dgallion1/insurtree/internal/engine/internal/topk"
)

type (
	// Record is one insurance in a snapshot.
	Record = forest.Record
	// Result is one ranked aggregated value.
	Result = topk.Result
	// DanglingPolicy selects how unresolved parent ids are treated.
	DanglingPolicy = forest.DanglingPolicy
)

const (
	DanglingAsRoot = forest.DanglingAsRoot
	DanglingReject = forest.DanglingReject
)

// ParseDanglingPolicy maps "root" or "reject" to a policy.
func ParseDanglingPolicy(s string) (DanglingPolicy, error) {
	switch s {
	case "", "root":
		return DanglingAsRoot, nil
	case "reject":
		return DanglingReject, nil
	}
	return DanglingAsRoot, fmt.Errorf("unknown dangling parent policy %q", s)
}

// Engine runs queries with fixed options. The zero value is not usable; call New.
type Engine struct {
	workers  int
	dangling DanglingPolicy
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the size of the aggregation worker pool. Values <= 1 aggregate sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithDanglingPolicy sets how records with an unresolved parent id are handled.
func WithDanglingPolicy(p DanglingPolicy) Option {
	return func(e *Engine) { e.dangling = p }
}

func New(opts ...Option) *Engine {
	e := &Engine{workers: 1, dangling: DanglingAsRoot}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query returns up to maxCount aggregated values, highest first, ties by ascending id.
// Each node's value is its own plus those of its descendants less than maxDepth links away.
func (e *Engine) Query(records []Record, maxCount, maxDepth int) ([]Result, error) {
	if err := CheckArgs(maxCount, maxDepth); err != nil {
		return nil, err
	}

	f, err := forest.Build(records, e.dangling)
	if err != nil {
		return nil, err
	}
	sums := aggregate.AggregateParallel(f, maxDepth, e.workers)
	return topk.SelectTop(sums, maxCount), nil
}

// CheckArgs validates query arguments without touching any records.
func CheckArgs(maxCount, maxDepth int) error {
	if maxCount < 1 {
		return &ValidationError{Field: "maxCount", Value: maxCount}
	}
	if maxDepth < 1 {
		return &ValidationError{Field: "maxDepth", Value: maxDepth}
	}
	return nil
}

// Validate reports whether records form a forest under the engine's dangling policy.
func (e *Engine) Validate(records []Record) error {
	_, err := forest.Build(records, e.dangling)
	return err
}

var defaultEngine = New()

// Query runs a query with default options.
func Query(records []Record, maxCount, maxDepth int) ([]Result, error) {
	return defaultEngine.Query(records, maxCount, maxDepth)
}
