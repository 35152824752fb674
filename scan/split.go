package scan

import "context"

// Split is one unit of in-flight scanning: a partition subset, a target
// member, a resume cursor, at most one outstanding fetch, and a
// single-row lookahead buffer (spec.md §3, §4.1).
type Split struct {
	// seq is assigned at creation time and never reused; it is the stable
	// tie-break sorted mode relies on, and what makes ScanState.splits'
	// "iteration order must be stable" requirement concrete (spec.md §3).
	seq int

	partitions PartitionSet
	owner      Address
	cursor     Cursor

	client IndexFetchClient
	shaper RowShaper
	logger Logger

	pending    FetchFuture
	batch      []Entry
	batchPos   int
	lookahead  *Row
	hasLookahead bool

	poisoned error // set once advance() has returned a fatal/MissingPartition error
}

// newSplit constructs a fresh, never-advanced split. seq must be unique
// within one ScanState.
func newSplit(seq int, partitions PartitionSet, owner Address, cursor Cursor, client IndexFetchClient, shaper RowShaper, logger Logger) *Split {
	return &Split{
		seq:        seq,
		partitions: partitions,
		owner:      owner,
		cursor:     cursor,
		client:     client,
		shaper:     shaper,
		logger:     logger,
	}
}

// Seq is this split's stable creation-order identifier.
func (s *Split) Seq() int { return s.seq }

// Partitions is the subset of partitions this split is responsible for.
func (s *Split) Partitions() PartitionSet { return s.partitions }

// Owner is the member currently believed to own every partition in this
// split, authoritative only until the next MissingPartition (spec.md §3).
func (s *Split) Owner() Address { return s.owner }

// Cursor is this split's resume point for the next fetch.
func (s *Split) Cursor() Cursor { return s.cursor }

// IsDone reports whether the split is exhausted: terminal cursor, empty
// batch, no lookahead (spec.md §4.1).
func (s *Split) IsDone() bool {
	return !s.hasLookahead && s.batchPos == len(s.batch) && s.cursor.Terminal() && s.pending == nil
}

// IsWaiting reports whether a fetch is outstanding with no lookahead
// available yet (spec.md §4.1).
func (s *Split) IsWaiting() bool {
	return s.pending != nil && !s.hasLookahead
}

// PeekLookahead returns a read-only view of the buffered row, or nil.
func (s *Split) PeekLookahead() *Row {
	if !s.hasLookahead {
		return nil
	}
	return s.lookahead
}

// peekLookaheadOrZero is merge.go's internal hook into the lookahead
// slot; it returns the slot's pointer, nil when no row is buffered.
// splitOrder.Upsert uses that nil to leave a split without a lookahead out
// of the order, so splitItem.Less only sees splits that have one.
func (s *Split) peekLookaheadOrZero() *Row {
	return s.lookahead
}

// TakeLookahead returns the buffered row and clears the slot. Undefined
// if PeekLookahead would return nil.
func (s *Split) TakeLookahead() Row {
	row := *s.lookahead
	s.lookahead = nil
	s.hasLookahead = false
	return row
}

// advance performs at most one unit of useful work, per the algorithm in
// spec.md §4.1. It never blocks.
func (s *Split) advance(ctx context.Context) error {
	if s.poisoned != nil {
		return s.poisoned
	}

	// Step 1: idempotent if a lookahead is already buffered.
	if s.hasLookahead {
		return nil
	}

	// Step 2: issue a fetch if none is in flight, the current batch is
	// exhausted, and more data may exist. A split whose owner the oracle
	// could never resolve fails fast instead of issuing a request to
	// UnknownAddress (spec.md §9 Open Question 1, resolved in DESIGN.md).
	if s.pending == nil && s.batchPos == len(s.batch) && !s.cursor.Terminal() {
		if s.owner == UnknownAddress {
			err := &ErrUnknownOwner{Partitions: s.partitions}
			s.poisoned = err
			logAt(s.logger, LogLevelWarn, "no known owner for split", "partitions", s.partitions)
			return err
		}
		logAt(s.logger, LogLevelDebug, "issuing fetch", "owner", s.owner, "partitions", s.partitions, "cursor", s.cursor)
		s.pending = s.client.Read(ctx, s.owner, s.partitions, s.cursor)
		return nil
	}

	// Step 3: harvest a completed fetch.
	if s.pending != nil && s.pending.Ready() {
		result, err := s.pending.Take()
		s.pending = nil
		if err != nil {
			s.poisoned = err
			logAt(s.logger, LogLevelWarn, "fetch failed", "owner", s.owner, "partitions", s.partitions, "err", err)
			return err
		}
		if !result.NextCursor.Terminal() && len(result.Entries) == 0 {
			err := &ErrInternal{Msg: "non-terminal cursor accompanied by an empty batch"}
			s.poisoned = err
			return err
		}
		s.batch = result.Entries
		s.batchPos = 0
		s.cursor = result.NextCursor
	}

	// Step 4: materialize the next row from the current batch.
	for s.batchPos < len(s.batch) && !s.hasLookahead {
		row, ok := s.shaper.Shape(s.batch[s.batchPos])
		s.batchPos++
		if ok {
			rc := row
			s.lookahead = &rc
			s.hasLookahead = true
		}
	}

	return nil
}
