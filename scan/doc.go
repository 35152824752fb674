// Package scan implements a migration-tolerant, parallel index-scan
// executor for a partitioned key/value store with a secondary index.
//
// ScanExecutor owns a set of Splits, each a partition subset fetched from
// one target member through an IndexFetchClient. Pump drives the scan one
// cooperative activation at a time: it issues and harvests fetches,
// applies a RowShaper's residual predicate and projection, and emits rows
// downstream through a Sink, either in per-split arrival order (hash
// mode) or as a total order under a caller-supplied Comparator (sorted
// mode). A MissingPartition failure from a split triggers resplit,
// replacing it with descendants grouped by a PartitionOracle's current
// ownership view.
//
// Query planning, expression compilation, wire serialization, the
// key/value store, and the secondary index itself are all out of scope;
// this package only consumes their capabilities through the
// IndexFetchClient, PartitionOracle, RowShaper, and Sink interfaces.
package scan
