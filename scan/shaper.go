package scan

// Tribool is the three-valued logic result a residual predicate evaluates
// to. Only True survives; False and Unknown are both dropped (spec.md
// §4.1 edge cases).
type Tribool int8

const (
	Unknown Tribool = iota
	False
	True
)

// Predicate is the residual filter, evaluated against a materialized
// entry after the index-driven narrowing (spec.md glossary). Expression
// compilation itself is an external collaborator (spec.md §1); this is
// just the small tree needed to exercise RowShaper end to end.
type Predicate interface {
	Eval(entry Entry) Tribool
}

// Projection selects and renames the columns that survive into the final
// Row.
type Projection func(entry Entry) []Value

// AcceptAll is the residual predicate used when the caller supplied none.
type AcceptAll struct{}

func (AcceptAll) Eval(Entry) Tribool { return True }

// RejectAll is a Predicate that always drops; used in tests to exercise
// the "residual predicate that filters out everything" boundary (spec.md
// §8).
type RejectAll struct{}

func (RejectAll) Eval(Entry) Tribool { return False }

// And is the conjunction of predicates under three-valued logic: True only
// if every child is True; False if any child is False; Unknown otherwise.
type And []Predicate

func (a And) Eval(entry Entry) Tribool {
	sawUnknown := false
	for _, p := range a {
		switch p.Eval(entry) {
		case False:
			return False
		case Unknown:
			sawUnknown = true
		}
	}
	if sawUnknown {
		return Unknown
	}
	return True
}

// KeyInRange is a simple residual predicate comparing an entry's key
// against a byte-lexicographic range, standing in for the kind of
// predicate a real expression evaluator would compile.
type KeyInRange struct {
	Lower, Upper []byte // nil means unbounded on that side
}

func (r KeyInRange) Eval(entry Entry) Tribool {
	if r.Lower != nil && lessBytes(entry.Key, r.Lower) {
		return False
	}
	if r.Upper != nil && !lessBytes(entry.Key, r.Upper) {
		return False
	}
	return True
}

func lessBytes(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// defaultShaper implements RowShaper by evaluating a residual Predicate
// and then applying a Projection, matching the advance() algorithm in
// split.go step 4 exactly.
type defaultShaper struct {
	residual   Predicate
	projection Projection
}

// NewRowShaper builds the standard RowShaper: a residual predicate (nil
// defaults to AcceptAll) composed with a projection (nil defaults to
// "keep the key, no columns").
func NewRowShaper(residual Predicate, projection Projection) RowShaper {
	if residual == nil {
		residual = AcceptAll{}
	}
	if projection == nil {
		projection = func(Entry) []Value { return nil }
	}
	return &defaultShaper{residual: residual, projection: projection}
}

func (s *defaultShaper) Shape(entry Entry) (Row, bool) {
	if s.residual.Eval(entry) != True {
		return Row{}, false
	}
	return Row{Key: entry.Key, Columns: s.projection(entry)}, true
}
