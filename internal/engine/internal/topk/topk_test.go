package topk

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTop_OrderAndTieBreak(t *testing.T) {
	sums := map[int64]int64{9: 100, 3: 500, 1: 500, 4: 700, 2: 100, 8: 500}

	got := SelectTop(sums, 4)
	want := []Result{{4, 700}, {1, 500}, {3, 500}, {8, 500}}
	assert.Equal(t, want, got)
}

func TestSelectTop_CountExceedsNodes(t *testing.T) {
	sums := map[int64]int64{1: 5, 2: 10}
	got := SelectTop(sums, 100)
	assert.Equal(t, []Result{{2, 10}, {1, 5}}, got)
}

func TestSelectTop_Empty(t *testing.T) {
	got := SelectTop(map[int64]int64{}, 5)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSelectTop_NegativeValues(t *testing.T) {
	sums := map[int64]int64{1: -5, 2: -1, 3: -10}
	assert.Equal(t, []Result{{2, -1}}, SelectTop(sums, 1))
}

func TestSelectTop_HeapMatchesFullSort(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		sums := make(map[int64]int64)
		for i := range 1 + r.IntN(500) {
			sums[int64(i)] = r.Int64N(20) // narrow range forces many ties
		}
		full := sortAll(sums)
		for _, n := range []int{1, 2, 7, len(sums) - 1} {
			if n < 1 {
				continue
			}
			assert.Equal(t, full[:n], SelectTop(sums, n))
		}
	}
}

func TestSelectTop_Ordering(t *testing.T) {
	r := rand.New(rand.NewPCG(9, 9))
	sums := make(map[int64]int64)
	for range 1000 {
		sums[int64(r.IntN(5000))] = r.Int64N(50)
	}
	got := SelectTop(sums, 200)
	require.Len(t, got, 200)
	for i := 0; i+1 < len(got); i++ {
		require.True(t, Better(got[i], got[i+1]), "position %d: %v then %v", i, got[i], got[i+1])
	}
}

func TestKeeper_ZeroCapacity(t *testing.T) {
	k := NewKeeper(0)
	k.Consider(Result{ID: 1, Value: 1})
	assert.Empty(t, k.Desc())
}
