package scan

import (
	"github.com/twmb/go-rbtree"
)

// splitItem adapts a *Split into an rbtree.Item so it can live in the
// ordered structure below, ordering by the split's current lookahead row
// under the caller's Comparator with seq as a stable tie-break. Mirrors
// franz-go's sticky balancer, which implements the same `Less(rbtree.Item)
// bool` contract on its own ordered-structure payload (partitionLevel).
type splitItem struct {
	split *Split
	cmp   Comparator
}

func (s splitItem) Less(than rbtree.Item) bool {
	o := than.(splitItem)
	if c := s.cmp(*s.split.peekLookaheadOrZero(), *o.split.peekLookaheadOrZero()); c != 0 {
		return c < 0
	}
	// Stable tie-break: splits are ordered by their creation sequence so
	// sorted-mode ties are deterministic (spec.md §3, ScanState.splits
	// "iteration order must be stable").
	return s.split.seq < o.split.seq
}

// splitOrder backs sorted-mode minimum extraction with an rbtree keyed by
// (lookahead row, split) under the caller's Comparator, giving O(log n)
// find-min and reinsertion instead of a linear rescan of every live split
// on each emission. This is the role github.com/twmb/go-rbtree plays
// elsewhere in the teacher (an ordered in-memory index over a small live
// set) — see SPEC_FULL.md §6 EXPANSION and DESIGN.md.
type splitOrder struct {
	cmp  Comparator
	tree rbtree.Tree
	// nodes maps a split to its current tree node so it can be removed
	// and reinserted in O(log n) as its lookahead changes.
	nodes map[*Split]*rbtree.Node
}

func newSplitOrder(cmp Comparator) *splitOrder {
	return &splitOrder{
		cmp:   cmp,
		nodes: make(map[*Split]*rbtree.Node),
	}
}

// Upsert (re)places split's entry in the order, reflecting its current
// lookahead. Call after every advance() that changes the lookahead.
func (so *splitOrder) Upsert(split *Split) {
	so.Remove(split)
	if split.peekLookaheadOrZero() == nil {
		return
	}
	so.nodes[split] = so.tree.Insert(splitItem{split: split, cmp: so.cmp})
}

// Remove drops split from the order, if present.
func (so *splitOrder) Remove(split *Split) {
	if n, ok := so.nodes[split]; ok {
		so.tree.Delete(n)
		delete(so.nodes, split)
	}
}

// Min returns the split whose lookahead is currently smallest, or nil if
// the order is empty.
func (so *splitOrder) Min() *Split {
	n := so.tree.Min()
	if n == nil {
		return nil
	}
	return n.Item.(splitItem).split
}

func (so *splitOrder) Len() int { return len(so.nodes) }
