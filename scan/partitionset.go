package scan

import "math/bits"

// PartitionSet is a set of partition ids, represented as a bitmap over
// [0, P) (spec.md §3). The zero value is the empty set.
type PartitionSet struct {
	words []uint64
}

// NewPartitionSet builds a PartitionSet containing exactly the given ids.
func NewPartitionSet(ids ...int) PartitionSet {
	var s PartitionSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func wordIndex(p int) (word int, bit uint) {
	return p / 64, uint(p % 64)
}

// Add inserts a partition id into the set.
func (s *PartitionSet) Add(p int) {
	w, b := wordIndex(p)
	if w >= len(s.words) {
		grown := make([]uint64, w+1)
		copy(grown, s.words)
		s.words = grown
	}
	s.words[w] |= 1 << b
}

// Contains reports whether p is a member of the set.
func (s PartitionSet) Contains(p int) bool {
	w, b := wordIndex(p)
	if w < 0 || w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<b) != 0
}

// Len returns the number of members in the set.
func (s PartitionSet) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether the set has no members. An empty PartitionSet
// means "this split is done" (spec.md §3).
func (s PartitionSet) Empty() bool { return s.Len() == 0 }

// Each iterates the set's members in ascending order.
func (s PartitionSet) Each(fn func(partition int)) {
	for w, word := range s.words {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			fn(w*64 + b)
			word &= word - 1
		}
	}
}

// Slice returns the set's members as a sorted slice.
func (s PartitionSet) Slice() []int {
	out := make([]int, 0, s.Len())
	s.Each(func(p int) { out = append(out, p) })
	return out
}

// Union returns a new set containing the members of both s and other.
func (s PartitionSet) Union(other PartitionSet) PartitionSet {
	n := len(s.words)
	if len(other.words) > n {
		n = len(other.words)
	}
	out := PartitionSet{words: make([]uint64, n)}
	for i := range out.words {
		var a, b uint64
		if i < len(s.words) {
			a = s.words[i]
		}
		if i < len(other.words) {
			b = other.words[i]
		}
		out.words[i] = a | b
	}
	return out
}

// GroupBy partitions the set's members by applying fn to each, returning a
// map from the function's result to the sub-PartitionSet of members that
// mapped to it. Used by resplit.go to group a failing split's partitions
// by their newly-resolved owner (spec.md §4.3).
func GroupBy[K comparable](s PartitionSet, fn func(partition int) K) map[K]PartitionSet {
	groups := make(map[K]PartitionSet)
	s.Each(func(p int) {
		k := fn(p)
		g := groups[k]
		g.Add(p)
		groups[k] = g
	})
	return groups
}

func (s PartitionSet) String() string {
	ids := s.Slice()
	out := make([]byte, 0, 2+4*len(ids))
	out = append(out, '{')
	for i, id := range ids {
		if i > 0 {
			out = append(out, ',')
		}
		out = appendInt(out, id)
	}
	out = append(out, '}')
	return string(out)
}

func appendInt(b []byte, v int) []byte {
	if v == 0 {
		return append(b, '0')
	}
	neg := v < 0
	if neg {
		v = -v
	}
	start := len(b)
	for v > 0 {
		b = append(b, byte('0'+v%10))
		v /= 10
	}
	if neg {
		b = append(b, '-')
	}
	// reverse the appended digits
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}
