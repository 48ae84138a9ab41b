// Package aggregate computes depth-bounded subtree sums over a forest.
//
// The bounded subtree of a node N is N itself plus every descendant whose distance from N
// is strictly less than maxDepth. Each node carries a small array levelSums where
// levelSums[k] is the total value of its descendants at distance exactly k. A child's
// array folds into its parent's shifted one slot to the right, and anything shifted past
// the bound is dropped. A node's sum is the total of its own array.
package aggregate

import (
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/insurtree/internal/engine/internal/forest"
)

// Sums maps a record id to its bounded-subtree sum.
type Sums map[int64]int64

// Aggregate computes the bounded sum of every node in f sequentially. maxDepth must be >= 1.
func Aggregate(f *forest.Forest, maxDepth int) Sums {
	out := make([]int64, f.Len())
	depth := levels(f, maxDepth)
	for _, root := range f.Roots() {
		aggregateTree(f, root, depth, out)
	}
	return toSums(f, out)
}

// AggregateParallel computes the same result as Aggregate, running each root's tree as an
// independent task on a pool of at most workers goroutines. Trees never share nodes, so
// every task writes its own slots of the result slice.
func AggregateParallel(f *forest.Forest, maxDepth, workers int) Sums {
	if workers <= 1 || len(f.Roots()) <= 1 {
		return Aggregate(f, maxDepth)
	}

	out := make([]int64, f.Len())
	depth := levels(f, maxDepth)

	var pool errgroup.Group
	pool.SetLimit(workers)
	for _, root := range f.Roots() {
		pool.Go(func() error {
			aggregateTree(f, root, depth, out)
			return nil
		})
	}
	pool.Wait() // tasks never return an error

	return toSums(f, out)
}

// levels caps the level array at the forest height so a huge maxDepth costs nothing extra.
func levels(f *forest.Forest, maxDepth int) int {
	return max(min(maxDepth, f.Height()), 1)
}

type frame struct {
	node   int
	next   int // next child to visit
	levels []int64
}

// aggregateTree walks one tree in post-order without recursion. Level arrays are only
// alive while their node is on the stack.
func aggregateTree(f *forest.Forest, root, depth int, out []int64) {
	stack := []frame{{node: root, levels: ownLevels(f, root, depth)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if children := f.Children(top.node); top.next < len(children) {
			child := children[top.next]
			top.next++
			stack = append(stack, frame{node: child, levels: ownLevels(f, child, depth)})
			continue
		}

		done := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out[done.node] = total(done.levels)
		if len(stack) > 0 {
			fold(stack[len(stack)-1].levels, done.levels)
		}
	}
}

func ownLevels(f *forest.Forest, node, depth int) []int64 {
	l := make([]int64, depth)
	l[0] = f.Record(node).Value
	return l
}

// fold adds child's distances, shifted by one, into parent.
func fold(parent, child []int64) {
	for k := 0; k+1 < len(parent); k++ {
		parent[k+1] += child[k]
	}
}

func total(l []int64) int64 {
	var sum int64
	for _, v := range l {
		sum += v
	}
	return sum
}

func toSums(f *forest.Forest, out []int64) Sums {
	sums := make(Sums, len(out))
	for i, v := range out {
		sums[f.Record(i).ID] = v
	}
	return sums
}
