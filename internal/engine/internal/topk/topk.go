// Package topk picks the highest aggregated sums with a deterministic tie-break.
package topk

import (
	"cmp"
	"slices"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// Result is one ranked node: its id and its aggregated sum.
type Result struct {
	ID    int64 `json:"id"`
	Value int64 `json:"value"`
}

// Better reports whether a ranks ahead of b: higher value first, then lower id.
func Better(a, b Result) bool {
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	return a.ID < b.ID
}

// worstFirst orders the heap so its root is the weakest candidate kept so far.
func worstFirst(x, y any) int {
	a, b := x.(Result), y.(Result)
	switch {
	case a == b:
		return 0
	case Better(a, b):
		return 1
	default:
		return -1
	}
}

// Keeper maintains the best n results seen so far.
type Keeper struct {
	n int
	h *binaryheap.Heap
}

// NewKeeper creates a Keeper that retains at most n results.
func NewKeeper(n int) *Keeper {
	return &Keeper{n: n, h: binaryheap.NewWith(worstFirst)}
}

// Consider offers a candidate, evicting the weakest kept result when full.
func (k *Keeper) Consider(r Result) {
	if k.n <= 0 {
		return
	}
	if k.h.Size() < k.n {
		k.h.Push(r)
		return
	}
	if worst, _ := k.h.Peek(); Better(r, worst.(Result)) {
		k.h.Pop()
		k.h.Push(r)
	}
}

// Desc drains the keeper and returns its results best first.
func (k *Keeper) Desc() []Result {
	out := make([]Result, k.h.Size())
	for i := len(out) - 1; i >= 0; i-- {
		v, _ := k.h.Pop()
		out[i] = v.(Result)
	}
	return out
}

// SelectTop returns the min(n, len(sums)) best entries of sums, best first.
func SelectTop(sums map[int64]int64, n int) []Result {
	if n >= len(sums) {
		return sortAll(sums)
	}
	k := NewKeeper(n)
	for id, v := range sums {
		k.Consider(Result{ID: id, Value: v})
	}
	return k.Desc()
}

// sortAll skips the heap when every entry is returned anyway.
func sortAll(sums map[int64]int64) []Result {
	out := make([]Result, 0, len(sums))
	for id, v := range sums {
		out = append(out, Result{ID: id, Value: v})
	}
	slices.SortFunc(out, func(a, b Result) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
