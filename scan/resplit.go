package scan

// resplitEvent is a bookkeeping record of one migration recovery,
// retained only for diagnostics (SPEC_FULL.md "Resplit history" supplement)
// — never consulted for correctness.
type resplitEvent struct {
	failedOwner     Address
	failedPartitions PartitionSet
	cursor          Cursor
	newGroups       map[Address]PartitionSet
}

// resplit implements spec.md §4.3: given a split that just failed with
// ErrMissingPartition (or ErrUnknownOwner), group its partitions by their
// current oracle-resolved owner and build one fresh split per non-empty
// group, each inheriting the failed split's cursor unchanged.
//
// Grounded on consumer.go's assignPartitions(assignInvalidateMatching)
// path: drop exactly the affected entries, rebuild from an authoritative
// source (there: the caller's new assignment map; here: the oracle),
// preserve everything untouched.
//
// Partitions are bucketed by walking failed.partitions in ascending id
// order (PartitionSet.Each's iteration order) rather than by ranging over
// a map, so the owner order — and therefore each child's assigned seq and
// position in replaceSplitAt — is deterministic run to run, matching
// spec.md §4.3 step 4's "stable order" requirement.
func (e *ScanExecutor) resplit(failed *Split) []*Split {
	type bucket struct {
		owner Address
		parts []int
	}
	var order []Address
	byOwner := make(map[Address]*bucket)
	failed.partitions.Each(func(p int) {
		addr, ok := e.oracle.Owner(p)
		if !ok {
			addr = UnknownAddress
		}
		b, seen := byOwner[addr]
		if !seen {
			b = &bucket{owner: addr}
			byOwner[addr] = b
			order = append(order, addr)
		}
		b.parts = append(b.parts, p)
	})

	groups := make(map[Address]PartitionSet, len(order))
	for _, addr := range order {
		groups[addr] = NewPartitionSet(byOwner[addr].parts...)
	}

	event := resplitEvent{
		failedOwner:      failed.owner,
		failedPartitions: failed.partitions,
		cursor:           failed.cursor,
		newGroups:        groups,
	}
	e.recordResplit(event)

	out := make([]*Split, 0, len(order))
	for _, addr := range order {
		parts := groups[addr]
		if parts.Empty() {
			continue
		}
		child := newSplit(e.nextSeq(), parts, addr, failed.cursor, e.client, failed.shaper, e.logger)
		out = append(out, child)
	}

	logAt(e.logger, LogLevelInfo, "resplit",
		"failed_owner", failed.owner,
		"failed_partitions", failed.partitions,
		"new_splits", len(out))

	if e.hooks.OnResplit != nil {
		e.hooks.OnResplit(failed.owner, failed.partitions, len(out))
	}

	return out
}

// recordResplit keeps a bounded ring of the most recent resplit events
// for diagnostics (SPEC_FULL.md supplement 3).
func (e *ScanExecutor) recordResplit(ev resplitEvent) {
	const maxHistory = 32
	e.resplitHistory = append(e.resplitHistory, ev)
	if len(e.resplitHistory) > maxHistory {
		e.resplitHistory = e.resplitHistory[len(e.resplitHistory)-maxHistory:]
	}
}
