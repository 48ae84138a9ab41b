package aggregate_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/insurtree/internal/engine/internal/aggregate"
	"github.com/dgallion1/insurtree/internal/engine/internal/forest"
	"github.com/dgallion1/insurtree/internal/testfixture"
)

func build(t *testing.T, records []forest.Record) *forest.Forest {
	t.Helper()
	f, err := forest.Build(records, forest.DanglingAsRoot)
	require.NoError(t, err)
	return f
}

// naive re-walks every node's descendants; it is the reference for the level-sum pass.
func naive(f *forest.Forest, maxDepth int) aggregate.Sums {
	sums := make(aggregate.Sums, f.Len())
	for i := range f.Len() {
		sum := f.Record(i).Value
		for _, d := range f.Descendants(i, maxDepth-1) {
			sum += f.Record(d).Value
		}
		sums[f.Record(i).ID] = sum
	}
	return sums
}

func TestAggregate_Insurances(t *testing.T) {
	f := build(t, testfixture.Insurances())

	tests := []struct {
		depth int
		want  aggregate.Sums
	}{
		{1, aggregate.Sums{1: 10000, 2: 20000, 3: 30000, 4: 40000, 5: 50000, 6: 50000, 7: 10000, 8: 100000, 9: 100}},
		{2, aggregate.Sums{1: 30000, 2: 50000, 3: 30000, 4: 140000, 5: 50000, 6: 50000, 7: 110000, 8: 100100, 9: 100}},
		{3, aggregate.Sums{1: 60000, 2: 50000, 3: 30000, 4: 140000, 5: 50000, 6: 50000, 7: 110100, 8: 100100, 9: 100}},
	}
	for _, tt := range tests {
		got := aggregate.Aggregate(f, tt.depth)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("depth %d (-want +got):\n%s", tt.depth, diff)
		}
	}
}

func TestAggregate_DepthBeyondHeight(t *testing.T) {
	f := build(t, testfixture.Insurances())
	deep := aggregate.Aggregate(f, math.MaxInt)
	assert.Equal(t, int64(60000), deep[1])
	assert.Equal(t, int64(110100), deep[7])
	assert.Equal(t, aggregate.Aggregate(f, 3), deep)
}

func TestAggregate_Empty(t *testing.T) {
	f := build(t, nil)
	assert.Empty(t, aggregate.Aggregate(f, 4))
	assert.Empty(t, aggregate.AggregateParallel(f, 4, 8))
}

func TestAggregate_LeafStability(t *testing.T) {
	f := build(t, testfixture.Insurances())
	for _, depth := range []int{1, 2, 3, 10} {
		sums := aggregate.Aggregate(f, depth)
		for _, id := range []int64{3, 5, 6, 9} {
			i, _ := f.Lookup(id)
			assert.Equal(t, f.Record(i).Value, sums[id], "leaf %d at depth %d", id, depth)
		}
	}
}

func TestAggregate_LongChain(t *testing.T) {
	f := build(t, testfixture.Chain(20000, 1))
	sums := aggregate.Aggregate(f, 100)
	assert.Equal(t, int64(100), sums[1])
	assert.Equal(t, int64(1), sums[20000])
	assert.Equal(t, int64(50), sums[19951])
}

func TestAggregate_MatchesNaiveOnRandomForests(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for round := range 25 {
		f := build(t, testfixture.Random(r, 1+r.IntN(300), 1000))
		for _, depth := range []int{1, 2, 3, 5, 50} {
			want := naive(f, depth)
			got := aggregate.Aggregate(f, depth)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("round %d depth %d (-naive +levels):\n%s", round, depth, diff)
			}
		}
	}
}

func TestAggregate_Monotonic(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	f := build(t, testfixture.Random(r, 400, 500))
	prev := aggregate.Aggregate(f, 1)
	for depth := 2; depth <= 8; depth++ {
		cur := aggregate.Aggregate(f, depth)
		for id, v := range cur {
			require.GreaterOrEqual(t, v, prev[id], "id %d shrank at depth %d", id, depth)
		}
		prev = cur
	}
}

func TestAggregateParallel_MatchesSequential(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 1))
	f := build(t, testfixture.Random(r, 2000, 10000))
	for _, workers := range []int{0, 1, 2, 8, 64} {
		for _, depth := range []int{1, 3, 9} {
			want := aggregate.Aggregate(f, depth)
			got := aggregate.AggregateParallel(f, depth, workers)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("workers %d depth %d (-seq +par):\n%s", workers, depth, diff)
			}
		}
	}
}
