// Package forest turns a flat snapshot of parent-linked records into a navigable forest.
package forest

import (
	"errors"
	"fmt"
	"slices"
)

// Record is a single insurance as supplied by a record source.
type Record struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parentId,omitempty"`
	Name     string `json:"name,omitempty"`
	Value    int64  `json:"value"`
}

// DanglingPolicy decides what happens to a record whose parent id matches no record.
type DanglingPolicy int

const (
	// DanglingAsRoot treats a dangling parent reference as "no parent".
	DanglingAsRoot DanglingPolicy = iota
	// DanglingReject fails construction on a dangling parent reference.
	DanglingReject
)

func (p DanglingPolicy) String() string {
	switch p {
	case DanglingAsRoot:
		return "root"
	case DanglingReject:
		return "reject"
	}
	return fmt.Sprintf("DanglingPolicy(%d)", int(p))
}

var (
	ErrDuplicateID    = errors.New("duplicate id")
	ErrCycle          = errors.New("parent cycle")
	ErrDanglingParent = errors.New("dangling parent reference")
)

// ConstructionError reports a snapshot that cannot form a forest.
type ConstructionError struct {
	Kind error   // one of ErrDuplicateID, ErrCycle, ErrDanglingParent
	IDs  []int64 // offending record ids, in discovery order
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("build forest: %s: ids %v", e.Kind, e.IDs)
}

func (e *ConstructionError) Unwrap() error { return e.Kind }

// Node is a record plus its structural position. Children and Parent are node indexes.
type Node struct {
	Record   Record
	Parent   int // -1 for roots
	Children []int
}

// Forest owns every node built from one snapshot.
type Forest struct {
	nodes  []Node
	index  map[int64]int
	roots  []int
	height int
}

// Build constructs a forest from records. Children keep the input order.
func Build(records []Record, policy DanglingPolicy) (*Forest, error) {
	f := &Forest{
		nodes: make([]Node, len(records)),
		index: make(map[int64]int, len(records)),
	}

	var dups []int64
	for i, r := range records {
		if _, ok := f.index[r.ID]; ok {
			dups = append(dups, r.ID)
			continue
		}
		f.index[r.ID] = i
		f.nodes[i] = Node{Record: r, Parent: -1}
	}
	if len(dups) > 0 {
		return nil, &ConstructionError{Kind: ErrDuplicateID, IDs: dups}
	}

	var dangling []int64
	for i := range f.nodes {
		parent, err := f.resolveParent(f.nodes[i].Record, policy)
		if err != nil {
			dangling = append(dangling, f.nodes[i].Record.ID)
			continue
		}
		f.nodes[i].Parent = parent
		if parent < 0 {
			f.roots = append(f.roots, i)
			continue
		}
		f.nodes[parent].Children = append(f.nodes[parent].Children, i)
	}
	if len(dangling) > 0 {
		return nil, &ConstructionError{Kind: ErrDanglingParent, IDs: dangling}
	}

	if err := f.checkReachable(); err != nil {
		return nil, err
	}
	return f, nil
}

// resolveParent is the single place where dangling references are interpreted.
func (f *Forest) resolveParent(r Record, policy DanglingPolicy) (int, error) {
	if r.ParentID == nil {
		return -1, nil
	}
	if idx, ok := f.index[*r.ParentID]; ok {
		return idx, nil
	}
	if policy == DanglingReject {
		return -1, ErrDanglingParent
	}
	return -1, nil
}

// checkReachable colors every node reachable from a root and records the height.
// Anything left uncolored sits on, or hangs below, a parent cycle.
func (f *Forest) checkReachable() error {
	seen := make([]bool, len(f.nodes))
	level := f.roots
	for len(level) > 0 {
		f.height++
		var next []int
		for _, i := range level {
			seen[i] = true
			next = append(next, f.nodes[i].Children...)
		}
		level = next
	}

	for i, ok := range seen {
		if !ok {
			return &ConstructionError{Kind: ErrCycle, IDs: f.cycleFrom(i)}
		}
	}
	return nil
}

// cycleFrom follows parent links from start until a node repeats and returns the loop.
func (f *Forest) cycleFrom(start int) []int64 {
	pos := make(map[int]int)
	var path []int
	for i := start; ; i = f.nodes[i].Parent {
		if at, ok := pos[i]; ok {
			ids := make([]int64, 0, len(path)-at)
			for _, j := range path[at:] {
				ids = append(ids, f.nodes[j].Record.ID)
			}
			return ids
		}
		pos[i] = len(path)
		path = append(path, i)
	}
}

// Len returns the number of nodes.
func (f *Forest) Len() int { return len(f.nodes) }

// Height returns the number of levels in the deepest tree; 0 for an empty forest.
func (f *Forest) Height() int { return f.height }

// Roots returns root node indexes in input order.
func (f *Forest) Roots() []int { return f.roots }

// Children returns the child indexes of node i in input order.
func (f *Forest) Children(i int) []int { return f.nodes[i].Children }

// Record returns the record held by node i.
func (f *Forest) Record(i int) Record { return f.nodes[i].Record }

// Lookup returns the node index for a record id.
func (f *Forest) Lookup(id int64) (int, bool) {
	i, ok := f.index[id]
	return i, ok
}

// Descendants lists the descendants of node i whose distance from i is at most maxDistance,
// breadth first. A negative maxDistance means unbounded.
func (f *Forest) Descendants(i, maxDistance int) []int {
	var out []int
	level := slices.Clone(f.nodes[i].Children)
	for dist := 1; len(level) > 0 && (maxDistance < 0 || dist <= maxDistance); dist++ {
		out = append(out, level...)
		var next []int
		for _, j := range level {
			next = append(next, f.nodes[j].Children...)
		}
		level = next
	}
	return out
}
