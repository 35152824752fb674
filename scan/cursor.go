package scan

import (
	"encoding/binary"
	"fmt"
)

// Cursor is the resumable position within one partition subset's index
// traversal. It is opaque to the executor except for Terminal: the
// executor only ever compares, stores, and forwards cursors (spec.md §3).
//
// The concrete representation here (an ordinal position plus a terminal
// flag) is a stand-in for whatever opaque token a real index would hand
// back; the in-memory fetch simulator in simclient_test.go reads its
// position through Pos, the same way consumer.go's Offset is a concrete
// stand-in for "resume token" scoped to Kafka's int64 offsets.
type Cursor struct {
	pos      int64
	terminal bool
}

// ZeroCursor is the cursor a fresh split starts from: the beginning of the
// range, not yet known to be terminal.
func ZeroCursor() Cursor { return Cursor{pos: 0, terminal: false} }

// TerminalCursor reports the end of a traversal; a split holding one, with
// an empty batch, is done (spec.md §3).
func TerminalCursor() Cursor { return Cursor{pos: -1, terminal: true} }

// Terminal reports whether no further rows remain to be fetched.
func (c Cursor) Terminal() bool { return c.terminal }

// Pos is the simulator's internal ordinal position; exported only for use
// by other packages building their own IndexFetchClient against this
// Cursor shape. The executor never reads it.
func (c Cursor) Pos() int64 { return c.pos }

// Advanced returns a copy of c advanced to a new ordinal position, not yet
// terminal.
func (c Cursor) Advanced(pos int64) Cursor { return Cursor{pos: pos, terminal: false} }

func (c Cursor) String() string {
	if c.terminal {
		return "cursor(terminal)"
	}
	return fmt.Sprintf("cursor(%d)", c.pos)
}

// MarshalBinary encodes the cursor in a binary wire form. Terminal cursors
// encode as a single sentinel byte. The in-memory simulator passes cursors
// by value and does not use this encoding.
func (c Cursor) MarshalBinary() ([]byte, error) {
	if c.terminal {
		return []byte{1}, nil
	}
	buf := make([]byte, 9)
	buf[0] = 0
	binary.BigEndian.PutUint64(buf[1:], uint64(c.pos))
	return buf, nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (c *Cursor) UnmarshalBinary(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("scan: empty cursor encoding")
	}
	if b[0] == 1 {
		*c = TerminalCursor()
		return nil
	}
	if len(b) != 9 {
		return fmt.Errorf("scan: malformed non-terminal cursor encoding (len=%d)", len(b))
	}
	c.terminal = false
	c.pos = int64(binary.BigEndian.Uint64(b[1:]))
	return nil
}
