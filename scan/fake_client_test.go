package scan

import (
	"context"
	"testing"
)

// scriptedFuture is an already-resolved FetchFuture, used by tests that
// want full control over a split's behavior without going through
// simClient's simulated partitioning.
type scriptedFuture struct {
	result FetchResult
	err    error
}

func (f scriptedFuture) Ready() bool                   { return true }
func (f scriptedFuture) Take() (FetchResult, error) { return f.result, f.err }

// pendingFuture never becomes ready; no test in this package uses it.
type pendingFuture struct{}

func (pendingFuture) Ready() bool                   { return false }
func (pendingFuture) Take() (FetchResult, error) { panic("Take called before Ready") }

// scriptedClient replays a fixed sequence of futures, one per call to
// Read, regardless of the requested address/partitions/cursor.
type scriptedClient struct {
	responses []FetchFuture
	calls     int
}

func (c *scriptedClient) Read(_ context.Context, _ Address, _ PartitionSet, _ Cursor) FetchFuture {
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		return scriptedFuture{err: &ErrInternal{Msg: "scriptedClient ran out of responses"}}
	}
	return c.responses[i]
}

// acceptAllShaper is AcceptAll + identity projection, the common case in
// tests that don't care about filtering.
func acceptAllShaper() RowShaper {
	return NewRowShaper(AcceptAll{}, func(e Entry) []Value { return []Value{{Bytes: e.Value}} })
}

// mustMemberData builds a MemberData and fails the test immediately if
// construction errors, keeping call sites that don't care about the error
// path terse.
func mustMemberData(t *testing.T, owned PartitionSet, codec Codec, rows map[int][]Entry) *MemberData {
	t.Helper()
	m, err := NewMemberData(owned, codec, rows)
	if err != nil {
		t.Fatalf("NewMemberData: %v", err)
	}
	return m
}

// SliceSink is a test Sink that always accepts and records rows in arrival
// order.
type SliceSink struct {
	Rows []Row
}

func (s *SliceSink) TryEmit(row Row) bool {
	s.Rows = append(s.Rows, row)
	return true
}

// FlakySink rejects every Nth attempted emit (counting accepted and
// rejected attempts together), used to exercise backpressure handling
// (spec.md §8 scenario 3, "sink accepts only every other try_emit").
type FlakySink struct {
	RejectEvery int // e.g. 2 means reject attempts 2, 4, 6, ...
	attempts    int
	Rows        []Row
}

func (s *FlakySink) TryEmit(row Row) bool {
	s.attempts++
	if s.RejectEvery > 0 && s.attempts%s.RejectEvery == 0 {
		return false
	}
	s.Rows = append(s.Rows, row)
	return true
}
