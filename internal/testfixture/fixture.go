// Package testfixture builds record snapshots for tests. Production code never imports it.
package testfixture

import (
	"fmt"
	"math/rand/v2"

	"github.com/dgallion1/insurtree/internal/engine"
)

// Parent returns a pointer to id for use as a Record.ParentID.
func Parent(id int64) *int64 { return &id }

// Insurances is the nine-record seed used across the service tests. Record 7 points at
// parent 0, which does not exist, so it is a root under the default policy.
func Insurances() []engine.Record {
	return []engine.Record{
		{ID: 1, Name: "insurance 1", Value: 10000},
		{ID: 2, Name: "insurance 2", ParentID: Parent(1), Value: 20000},
		{ID: 3, Name: "insurance 3", ParentID: Parent(2), Value: 30000},
		{ID: 4, Name: "insurance 4", Value: 40000},
		{ID: 5, Name: "insurance 5", ParentID: Parent(4), Value: 50000},
		{ID: 6, Name: "insurance 6", ParentID: Parent(4), Value: 50000},
		{ID: 7, Name: "insurance 7", ParentID: Parent(0), Value: 10000},
		{ID: 8, Name: "insurance 8", ParentID: Parent(7), Value: 100000},
		{ID: 9, Name: "insurance 9", ParentID: Parent(8), Value: 100},
	}
}

// Chain returns n records 1..n where record i is the parent of record i+1.
func Chain(n int, value int64) []engine.Record {
	out := make([]engine.Record, 0, n)
	for i := 1; i <= n; i++ {
		r := engine.Record{ID: int64(i), Value: value}
		if i > 1 {
			r.ParentID = Parent(int64(i - 1))
		}
		out = append(out, r)
	}
	return out
}

// Random returns a random acyclic snapshot of n records with non-negative values.
// Parents always point at an earlier id, roughly one in five records is a root and
// roughly one in twenty carries a dangling parent.
func Random(r *rand.Rand, n int, maxValue int64) []engine.Record {
	out := make([]engine.Record, 0, n)
	for i := 1; i <= n; i++ {
		rec := engine.Record{
			ID:    int64(i),
			Name:  fmt.Sprintf("insurance %d", i),
			Value: r.Int64N(maxValue + 1),
		}
		switch roll := r.IntN(20); {
		case i == 1 || roll < 4:
		case roll == 4:
			rec.ParentID = Parent(int64(n + i))
		default:
			rec.ParentID = Parent(int64(1 + r.IntN(i-1)))
		}
		out = append(out, rec)
	}
	// Shuffle so children can precede parents in the input.
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
