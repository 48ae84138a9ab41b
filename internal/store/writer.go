package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgallion1/insurtree/internal/engine"
)

// Mode selects how a batch of records is applied.
type Mode string

const (
	ModeMerge   Mode = "merge"
	ModeReplace Mode = "replace"
)

// ParseMode maps a form value to a Mode. Empty means merge.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	}
	return "", fmt.Errorf("unknown mode %q (want merge or replace)", s)
}

// Writer serializes writes and refuses any batch that would leave the table unable to
// form a forest, so every later snapshot stays queryable.
type Writer struct {
	store Store
	eng   *engine.Engine
	mu    chan struct{}
}

func NewWriter(s Store, eng *engine.Engine) *Writer {
	return &Writer{store: s, eng: eng, mu: make(chan struct{}, 1)}
}

// Check reports whether applying records with mode would leave a valid forest,
// without writing anything.
func (w *Writer) Check(ctx context.Context, records []engine.Record, mode Mode) error {
	_, err := w.plan(ctx, records, mode)
	return err
}

// Apply validates the resulting table and writes records with the given mode.
func (w *Writer) Apply(ctx context.Context, records []engine.Record, mode Mode) error {
	select {
	case w.mu <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-w.mu }()

	if _, err := w.plan(ctx, records, mode); err != nil {
		return err
	}
	if mode == ModeReplace {
		return w.store.Replace(ctx, records)
	}
	return w.store.Upsert(ctx, records)
}

// plan returns the table that would result from applying records, validated.
func (w *Writer) plan(ctx context.Context, records []engine.Record, mode Mode) ([]engine.Record, error) {
	next := records
	if mode != ModeReplace {
		current, err := w.store.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		next = merge(current, records)
	}
	if err := w.eng.Validate(next); err != nil {
		return nil, err
	}
	return next, nil
}

// Delete removes one record under the write lock. Like Apply it refuses a delete that
// would leave the remaining records unable to form a forest, such as orphaning
// children under the reject policy.
func (w *Writer) Delete(ctx context.Context, id int64) error {
	select {
	case w.mu <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-w.mu }()

	current, err := w.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	next := slices.DeleteFunc(current, func(r engine.Record) bool { return r.ID == id })
	if err := w.eng.Validate(next); err != nil {
		return err
	}
	return w.store.Delete(ctx, id)
}

// merge overlays updates on current by id. Existing ids keep their position; new ids are
// appended in update order. A repeated id inside updates is kept twice so validation
// rejects it.
func merge(current, updates []engine.Record) []engine.Record {
	pos := make(map[int64]int, len(current))
	out := make([]engine.Record, len(current), len(current)+len(updates))
	copy(out, current)
	for i, r := range out {
		pos[r.ID] = i
	}
	seen := make(map[int64]bool, len(updates))
	for _, r := range updates {
		if i, ok := pos[r.ID]; ok && !seen[r.ID] {
			out[i] = r
		} else {
			out = append(out, r)
		}
		seen[r.ID] = true
	}
	return out
}
