package scan

import "fmt"

// ErrMissingPartition is returned by a Split's advance when the completed
// fetch reports that the target no longer owns some partition in the
// split's subset. It is the sole recoverable error kind; ScanExecutor
// handles it internally via resplit (spec.md §4.3, §7).
type ErrMissingPartition struct {
	Partitions PartitionSet
}

func (e *ErrMissingPartition) Error() string {
	return fmt.Sprintf("scan: target no longer owns partitions %s", e.Partitions)
}

// ErrUnknownOwner is what a split assigned to UnknownAddress raises on its
// first fetch attempt; it is treated identically to ErrMissingPartition by
// ScanExecutor so resplit retries the oracle lookup (see DESIGN.md, Open
// Question 1).
type ErrUnknownOwner struct {
	Partitions PartitionSet
}

func (e *ErrUnknownOwner) Error() string {
	return fmt.Sprintf("scan: no known owner for partitions %s", e.Partitions)
}

// ErrStaleIndexStamp means the target's index view changed incompatibly
// under the scan. Fatal; the planner is expected to retry the query
// end-to-end (spec.md §4.5, §7).
type ErrStaleIndexStamp struct {
	Index string
}

func (e *ErrStaleIndexStamp) Error() string {
	return fmt.Sprintf("scan: index %q changed incompatibly mid-scan", e.Index)
}

// ErrIndexNotFound means the target member does not have the named index.
// Fatal.
type ErrIndexNotFound struct {
	Index string
}

func (e *ErrIndexNotFound) Error() string {
	return fmt.Sprintf("scan: index %q not found on target", e.Index)
}

// ErrSerialization wraps a codec failure on a fetch response. Fatal, and
// distinguishable in the error message per spec.md §7.
type ErrSerialization struct {
	Cause error
}

func (e *ErrSerialization) Error() string {
	return fmt.Sprintf("scan: serialization failure: %v", e.Cause)
}

func (e *ErrSerialization) Unwrap() error { return e.Cause }

// ErrInternal signals a self-check / invariant failure inside the
// executor — a bug, not a recoverable condition (spec.md §7).
type ErrInternal struct {
	Msg string
}

func (e *ErrInternal) Error() string { return "scan: internal invariant violated: " + e.Msg }
