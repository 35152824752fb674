package scan

import "context"

// PumpResult is pump()'s terminal-for-this-activation return value
// (spec.md §4.2).
type PumpResult int8

const (
	// Blocked means pump cannot make further progress without either
	// downstream capacity or outstanding I/O.
	Blocked PumpResult = iota
	// Done means every split is exhausted and nothing remains pending-emit.
	Done
)

func (r PumpResult) String() string {
	if r == Done {
		return "Done"
	}
	return "Blocked"
}

// Hooks are synchronous, best-effort observation points fired from
// pump(), the same calling convention broker.go uses for its
// BrokerReadHook/BrokerWriteHook/BrokerThrottleHook family
// (cfg.hooks.each(func(h Hook) {...})), collapsed here into plain
// optional callback fields since this repo has exactly one hook
// consumer rather than an open set of hook interfaces.
type Hooks struct {
	OnRowEmitted func(row Row)
	OnResplit    func(failedOwner Address, failedPartitions PartitionSet, newSplitCount int)
	OnBlocked    func(reason string)
}

// Opt configures a ScanExecutor at construction, following the teacher's
// functional-option convention (kgo.Opt / franz-go's NewClient(opts...)).
type Opt func(*execCfg)

type execCfg struct {
	logger         Logger
	hooks          Hooks
	maxRowsPerPump int
}

func defaultExecCfg() execCfg {
	return execCfg{logger: NopLogger()}
}

// WithLogger sets the Logger pump() reports its activity to.
func WithLogger(l Logger) Opt { return func(c *execCfg) { c.logger = l } }

// WithHooks installs observation callbacks.
func WithHooks(h Hooks) Opt { return func(c *execCfg) { c.hooks = h } }

// WithMaxRowsPerPump bounds how many rows a single pump() call will emit
// before returning Blocked even if more are immediately available,
// preventing one very hot split from starving a cooperative scheduler
// across many concurrently active scans. Zero (the default) disables the
// budget, matching the fact that the source bounds per-activation work
// only implicitly (spec.md §9, resolved in DESIGN.md).
func WithMaxRowsPerPump(n int) Opt { return func(c *execCfg) { c.maxRowsPerPump = n } }

// Params is everything ScanExecutor needs at construction (spec.md §4.4).
type Params struct {
	LocalAddr       Address
	LocalPartitions PartitionSet

	// Ranges decomposes the planner's index filter into one or more
	// disjoint, ascending key ranges; one initial split is opened per
	// range. A nil/empty Ranges means "the whole index", i.e. a single
	// unbounded range.
	Ranges []KeyRange

	Client IndexFetchClient
	Oracle PartitionOracle

	// Residual and Projection together form the RowShaper applied to
	// every split (spec.md §4.1, §6). Residual may be nil (AcceptAll).
	Residual   Predicate
	Projection Projection

	Sink Sink

	// Comparator, if non-nil, selects sorted mode (spec.md §4.2.2); nil
	// selects hash mode (spec.md §4.2.1).
	Comparator Comparator
}

// ScanExecutor is the top-level state machine owning the active set of
// splits, driving emission, and performing migration recovery (spec.md
// §2, §4.2). It is re-entrant at the pump() boundary and performs no
// internal synchronization: single-threaded cooperative per scan (spec.md
// §5).
type ScanExecutor struct {
	ctx context.Context

	client IndexFetchClient
	oracle PartitionOracle
	sink   Sink

	residual   Predicate
	projection Projection

	sorted bool
	cmp    Comparator

	splits []*Split
	order  *splitOrder // non-nil only in sorted mode

	pendingEmit *Row

	seqCounter int

	logger         Logger
	hooks          Hooks
	maxRowsPerPump int

	resplitHistory []resplitEvent

	errored bool
	err     error
}

// New builds a ScanExecutor for one scan invocation. No I/O is performed
// during initialization (spec.md §4.4).
func New(ctx context.Context, p Params, opts ...Opt) *ScanExecutor {
	cfg := defaultExecCfg()
	for _, o := range opts {
		o(&cfg)
	}

	e := &ScanExecutor{
		ctx:            ctx,
		client:         p.Client,
		oracle:         p.Oracle,
		sink:           p.Sink,
		residual:       p.Residual,
		projection:     p.Projection,
		sorted:         p.Comparator != nil,
		cmp:            p.Comparator,
		logger:         cfg.logger,
		hooks:          cfg.hooks,
		maxRowsPerPump: cfg.maxRowsPerPump,
	}
	if e.logger == nil {
		e.logger = NopLogger()
	}
	if e.sorted {
		e.order = newSplitOrder(e.cmp)
	}

	ranges := p.Ranges
	if len(ranges) == 0 {
		ranges = []KeyRange{{}}
	}
	for _, r := range ranges {
		if p.LocalPartitions.Empty() {
			continue
		}
		shaper := e.shaperFor(r)
		split := newSplit(e.nextSeq(), p.LocalPartitions, p.LocalAddr, ZeroCursor(), e.client, shaper, e.logger)
		e.addSplit(split)
	}

	return e
}

// shaperFor builds the RowShaper a split covering key range r should use:
// the range bound (if any) conjoined with the caller's residual predicate.
func (e *ScanExecutor) shaperFor(r KeyRange) RowShaper {
	residual := e.residual
	if r.LowerBound != nil || r.UpperBound != nil {
		bound := KeyInRange{Lower: r.LowerBound, Upper: r.UpperBound}
		if residual == nil {
			residual = bound
		} else {
			residual = And{bound, residual}
		}
	}
	return NewRowShaper(residual, e.projection)
}

func (e *ScanExecutor) nextSeq() int {
	s := e.seqCounter
	e.seqCounter++
	return s
}

func (e *ScanExecutor) addSplit(s *Split) {
	e.splits = append(e.splits, s)
}

// removeSplitAt removes the split at index i from e.splits, preserving
// the stable order of the remaining elements (spec.md §3,
// "iteration order must be stable").
func (e *ScanExecutor) removeSplitAt(i int) {
	if e.sorted {
		e.order.Remove(e.splits[i])
	}
	e.splits = append(e.splits[:i], e.splits[i+1:]...)
}

// replaceSplitAt swaps the split at index i for its resplit descendants,
// preserving stable order (spec.md §4.3 step 4).
func (e *ScanExecutor) replaceSplitAt(i int, children []*Split) {
	if e.sorted {
		e.order.Remove(e.splits[i])
	}
	tail := append([]*Split{}, e.splits[i+1:]...)
	e.splits = append(e.splits[:i], children...)
	e.splits = append(e.splits, tail...)
}

// Err returns the fatal error that put the executor into its terminal
// errored state, if any (spec.md §7).
func (e *ScanExecutor) Err() error { return e.err }

// ResplitHistory returns the bounded ring of past resplit events, for
// diagnostics only (SPEC_FULL.md supplement 3).
func (e *ScanExecutor) ResplitHistory() []resplitEvent { return e.resplitHistory }

func (e *ScanExecutor) fail(err error) PumpResult {
	e.errored = true
	e.err = err
	e.splits = nil
	e.order = nil
	e.pendingEmit = nil
	logAt(e.logger, LogLevelError, "scan failed fatally", "err", err)
	return Blocked
}

func isRecoverable(err error) bool {
	switch err.(type) {
	case *ErrMissingPartition, *ErrUnknownOwner:
		return true
	default:
		return false
	}
}

func (e *ScanExecutor) tryEmit(row Row) bool {
	if !e.sink.TryEmit(row) {
		return false
	}
	if e.hooks.OnRowEmitted != nil {
		e.hooks.OnRowEmitted(row)
	}
	return true
}

func (e *ScanExecutor) blocked(reason string) PumpResult {
	if e.hooks.OnBlocked != nil {
		e.hooks.OnBlocked(reason)
	}
	return Blocked
}

// Pump drives the scan: it returns Done iff every split is exhausted and
// nothing remains pending-emit, Blocked if it cannot make progress
// without downstream capacity or outstanding I/O, and otherwise emits
// rows until one of those conditions holds (spec.md §4.2). If a fatal
// (non-MissingPartition) error occurs, Pump returns Blocked and Err()
// becomes non-nil; the caller must not call Pump again.
func (e *ScanExecutor) Pump() PumpResult {
	if e.errored {
		return Blocked
	}
	if e.sorted {
		return e.pumpSorted()
	}
	return e.pumpHash()
}

// pumpHash implements spec.md §4.2.1.
func (e *ScanExecutor) pumpHash() PumpResult {
	emitted := 0
	budgetExceeded := func() bool {
		return e.maxRowsPerPump > 0 && emitted >= e.maxRowsPerPump
	}

	if e.pendingEmit != nil {
		if !e.tryEmit(*e.pendingEmit) {
			return e.blocked("pending emit rejected")
		}
		e.pendingEmit = nil
		emitted++
	}

	for i := 0; i < len(e.splits); {
		if budgetExceeded() {
			return e.blocked("row budget exhausted")
		}

		split := e.splits[i]
		if err := split.advance(e.ctx); err != nil {
			if !isRecoverable(err) {
				return e.fail(err)
			}
			children := e.resplit(split)
			e.replaceSplitAt(i, children)
			continue // continue iteration at the first descendant, per spec.md §4.2.1
		}

		if row := split.PeekLookahead(); row != nil {
			if !e.tryEmit(*row) {
				cp := split.TakeLookahead()
				e.pendingEmit = &cp
				return e.blocked("downstream backpressure")
			}
			split.TakeLookahead()
			emitted++
			continue // re-examine the same index: more lookahead may follow
		}

		if split.IsDone() {
			e.removeSplitAt(i)
			continue
		}

		i++
	}

	if len(e.splits) == 0 {
		return Done
	}
	return e.blocked("all splits waiting or exhausted this tick")
}

// pumpSorted implements spec.md §4.2.2.
func (e *ScanExecutor) pumpSorted() PumpResult {
	emitted := 0
	budgetExceeded := func() bool {
		return e.maxRowsPerPump > 0 && emitted >= e.maxRowsPerPump
	}

	if e.pendingEmit != nil {
		if !e.tryEmit(*e.pendingEmit) {
			return e.blocked("pending emit rejected")
		}
		e.pendingEmit = nil
		emitted++
	}

	for {
		if budgetExceeded() {
			return e.blocked("row budget exhausted")
		}

		for i := 0; i < len(e.splits); {
			split := e.splits[i]
			hadLookahead := split.PeekLookahead() != nil
			if err := split.advance(e.ctx); err != nil {
				if !isRecoverable(err) {
					return e.fail(err)
				}
				children := e.resplit(split)
				e.replaceSplitAt(i, children)
				for _, c := range children {
					e.order.Upsert(c)
				}
				continue
			}
			if !hadLookahead && split.PeekLookahead() != nil {
				e.order.Upsert(split)
			}
			i++
		}

		// If any live (not-done) split still lacks a lookahead, we cannot
		// safely pick the global minimum (spec.md §4.2.2 step 3).
		for _, split := range e.splits {
			if split.PeekLookahead() == nil && !split.IsDone() {
				return e.blocked("waiting for full information across splits")
			}
		}

		// Remove all done splits.
		for i := 0; i < len(e.splits); {
			if e.splits[i].IsDone() {
				e.removeSplitAt(i)
				continue
			}
			i++
		}
		if len(e.splits) == 0 {
			return Done
		}

		min := e.order.Min()
		if min == nil {
			return e.blocked("no split has a lookahead yet")
		}
		row := min.TakeLookahead()
		e.order.Remove(min)

		if !e.tryEmit(row) {
			e.pendingEmit = &row
			return e.blocked("downstream backpressure")
		}
		emitted++
		// loop: re-advance the split we just drained and pick the next min
	}
}
