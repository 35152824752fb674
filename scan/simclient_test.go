package scan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4"
)

// Codec selects how a simulated member's rows are compressed "at rest" and
// what a simClient expects to decompress them with, mirroring the
// per-batch record compression the teacher depends on klauspost/compress,
// golang/snappy and pierrec/lz4 for (see SPEC_FULL.md §6 EXPANSION). Real
// wire transport is out of scope for the executor itself; this in-memory
// fixture exists solely so those teacher dependencies have a concrete,
// exercised home in this repo's tests.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecFlate
	CodecSnappy
	CodecLZ4
)

func compress(codec Codec, p []byte) ([]byte, error) {
	switch codec {
	case CodecNone:
		return p, nil
	case CodecFlate:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecSnappy:
		return snappy.Encode(nil, p), nil
	case CodecLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(p); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("scan: unknown codec %d", codec)
	}
}

func decompress(codec Codec, p []byte) ([]byte, error) {
	switch codec {
	case CodecNone:
		return p, nil
	case CodecFlate:
		r := flate.NewReader(bytes.NewReader(p))
		defer r.Close()
		return io.ReadAll(r)
	case CodecSnappy:
		return snappy.Decode(nil, p)
	case CodecLZ4:
		r := lz4.NewReader(bytes.NewReader(p))
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("scan: unknown codec %d", codec)
	}
}

// storedEntry is a row as held "at rest" by a simulated member: its value
// already compressed under the member's storage codec. Unlike a bare
// compress-then-immediately-decompress round trip, the packed form is what
// actually sits in MemberData between construction and fetch time, so a
// storage codec that doesn't match what a reading simClient expects
// produces a genuine decompression failure surfaced as ErrSerialization,
// instead of the codec calls being inert.
type storedEntry struct {
	Key       []byte
	Partition int
	Packed    []byte
}

// MemberData is one simulated remote member's view of the world: which
// partitions it currently owns and the rows available per partition, in
// index order. It is the "remote index" side of the IndexFetchClient
// contract, entirely local to this package's tests.
type MemberData struct {
	mu    sync.Mutex
	owned PartitionSet
	rows  map[int][]storedEntry
}

// NewMemberData builds a member owning exactly the given partitions,
// compressing every row's value under codec as if it had already been
// written to the remote's index.
func NewMemberData(owned PartitionSet, codec Codec, rows map[int][]Entry) (*MemberData, error) {
	stored := make(map[int][]storedEntry, len(rows))
	for p, entries := range rows {
		se := make([]storedEntry, len(entries))
		for i, e := range entries {
			packed, err := compress(codec, e.Value)
			if err != nil {
				return nil, err
			}
			se[i] = storedEntry{Key: e.Key, Partition: e.Partition, Packed: packed}
		}
		stored[p] = se
	}
	return &MemberData{owned: owned, rows: stored}, nil
}

func (m *MemberData) owns(parts PartitionSet) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := true
	parts.Each(func(p int) {
		if !m.owned.Contains(p) {
			ok = false
		}
	})
	return ok
}

// simClient is the in-memory IndexFetchClient simulator grounded on
// broker.go's per-target async promise pipeline (promisedReq/promisedResp,
// one in-flight request resolved on a background goroutine). Every batch
// payload is decompressed from each member's stored form under codec,
// which must match the codec the member was constructed with for a fetch
// to succeed.
type simClient struct {
	members map[Address]*MemberData
	codec   Codec
	// batchSize caps how many entries a single fetch returns, forcing
	// multi-batch traversals the way a real paginated index would.
	batchSize int
	// latency, if non-zero, is how long a future takes to become ready.
	// NewSimClient leaves it zero and no test sets it.
	latency time.Duration
}

// NewSimClient builds an IndexFetchClient backed by the given members,
// decompressing stored payloads under codec.
func NewSimClient(members map[Address]*MemberData, codec Codec, batchSize int) IndexFetchClient {
	if batchSize <= 0 {
		batchSize = 1 << 30
	}
	return &simClient{members: members, codec: codec, batchSize: batchSize}
}

type simFuture struct {
	ready  chan struct{}
	result FetchResult
	err    error
	taken  bool
}

func (f *simFuture) Ready() bool {
	select {
	case <-f.ready:
		return true
	default:
		return false
	}
}

func (f *simFuture) Take() (FetchResult, error) {
	f.taken = true
	return f.result, f.err
}

func (c *simClient) Read(ctx context.Context, addr Address, parts PartitionSet, cur Cursor) FetchFuture {
	f := &simFuture{ready: make(chan struct{})}
	go func() {
		defer close(f.ready)
		if c.latency > 0 {
			t := time.NewTimer(c.latency)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				f.err = ctx.Err()
				return
			}
		}
		f.result, f.err = c.doFetch(addr, parts, cur)
	}()
	return f
}

func (c *simClient) doFetch(addr Address, parts PartitionSet, cur Cursor) (FetchResult, error) {
	member, ok := c.members[addr]
	if !ok || !member.owns(parts) {
		return FetchResult{}, &ErrMissingPartition{Partitions: parts}
	}
	if cur.Terminal() {
		return FetchResult{NextCursor: TerminalCursor()}, nil
	}

	member.mu.Lock()
	defer member.mu.Unlock()

	// Flatten the owned partitions' rows into one globally ordered
	// sequence by treating cur.Pos() as an index into the concatenation
	// of per-partition rows in ascending partition-id order. This mirrors
	// how a real composite index would hand back a single ordered stream
	// across the requested partition subset.
	var all []storedEntry
	for _, p := range parts.Slice() {
		all = append(all, member.rows[p]...)
	}

	start := int(cur.Pos())
	if start > len(all) {
		start = len(all)
	}
	end := start + c.batchSize
	if end > len(all) {
		end = len(all)
	}
	batch := all[start:end]

	out := make([]Entry, len(batch))
	for i, se := range batch {
		unpacked, err := decompress(c.codec, se.Packed)
		if err != nil {
			return FetchResult{}, &ErrSerialization{Cause: err}
		}
		out[i] = Entry{Key: se.Key, Partition: se.Partition, Value: unpacked}
	}

	next := TerminalCursor()
	if end < len(all) {
		next = cur.Advanced(int64(end))
	}
	return FetchResult{Entries: out, NextCursor: next}, nil
}
