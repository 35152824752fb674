package scan

import "context"

// Address identifies a cluster member that may own partitions. The zero
// value is never a real address; see UnknownAddress.
type Address string

// UnknownAddress is used for partitions whose current owner the oracle
// could not resolve. A split assigned to it is expected to fail fast on
// its next fetch.
const UnknownAddress Address = ""

// Entry is a single row as returned by an index fetch, prior to residual
// filtering and projection.
type Entry struct {
	Key       []byte
	Partition int
	Value     []byte
}

// Row is a materialized, projected, residually-filtered record ready for
// emission downstream.
type Row struct {
	Key     []byte
	Columns []Value
}

// Value is a single projected column value. Kept deliberately small and
// concrete rather than interface{} so that Comparators can be written
// without reflection.
type Value struct {
	Str string
	Int int64
	Bytes []byte
	Null  bool
}

// Comparator totally orders two rows for sorted-mode merge. It must agree
// with the per-partition order the index provides; the executor does not
// verify this (spec.md §4.2.2).
type Comparator func(a, b Row) int

// KeyRange is one disjoint range implied by the planner's index filter.
// The executor opens one initial split per range (spec.md §4.4).
type KeyRange struct {
	Name       string
	LowerBound []byte
	UpperBound []byte
	Descending bool
}

// FetchResult is what a successful IndexFetchClient.Read resolves to.
type FetchResult struct {
	Entries    []Entry
	NextCursor Cursor
}

// FetchFuture is the non-blocking handle for one in-flight fetch request.
// Implementations model spec.md §9's "coroutines/async ... external
// futures with an is_ready/take_result contract".
type FetchFuture interface {
	// Ready reports whether Take will return without blocking.
	Ready() bool
	// Take consumes the future's result. Undefined if called before Ready
	// reports true, or more than once.
	Take() (FetchResult, error)
}

// IndexFetchClient issues one asynchronous "fetch next batch" request
// against a target member for a partition subset and a resumable cursor.
// This is an external collaborator; its implementation is out of scope
// for the executor itself (spec.md §6).
type IndexFetchClient interface {
	Read(ctx context.Context, addr Address, parts PartitionSet, cur Cursor) FetchFuture
}

// PartitionOracle maps a partition id to its believed current owner.
type PartitionOracle interface {
	Owner(partition int) (Address, bool)
	PartitionCount() int
}

// RowShaper applies the residual predicate and the projection to a raw
// entry. ok is false when the entry is filtered out (spec.md §4.1 step 4).
type RowShaper interface {
	Shape(entry Entry) (row Row, ok bool)
}

// Sink is the downstream consumer. TryEmit never blocks; false means
// backpressure (spec.md §6).
type Sink interface {
	TryEmit(row Row) bool
}
