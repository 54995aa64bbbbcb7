// Package buffer implements the byte cursor used by every device decoder.
//
// A Cursor reads fixed-width integers and strings relative to its current
// position. Cursors created from a BlockSource grow their backing storage on
// demand, one whole block at a time; cursors created from a byte slice are
// bounded and fail with ErrOutOfBounds.
package buffer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when a read falls outside the available data.
var ErrOutOfBounds = errors.New("buffer: read out of bounds")

// BlockSource supplies fixed-size device blocks.
type BlockSource interface {
	BlockSize() int
	ReadBlock(index int64) ([]byte, error)
}

// storage is shared by a cursor and all of its forks. It only ever grows.
type storage struct {
	src  BlockSource
	base int64
	data []byte
}

func (s *storage) ensure(end int) error {
	if end <= len(s.data) {
		return nil
	}
	if s.src == nil {
		return ErrOutOfBounds
	}
	bs := int64(s.src.BlockSize())
	for len(s.data) < end {
		index := (s.base + int64(len(s.data))) / bs
		block, err := s.src.ReadBlock(index)
		if err != nil {
			return fmt.Errorf("read block %d: %w", index, err)
		}
		if len(block) == 0 {
			return ErrOutOfBounds
		}
		s.data = append(s.data, block...)
	}
	return nil
}

// Cursor is a read position over shared storage. The first failed read is
// remembered and returned by Err; later reads return zero values.
type Cursor struct {
	st  *storage
	pos int
	err error
}

// New returns a bounded cursor over data positioned at 0.
func New(data []byte) *Cursor {
	return &Cursor{st: &storage{data: data}}
}

// NewBlockCursor returns a cursor positioned at the absolute offset. The
// block holding offset is read immediately; further blocks are read when a
// read runs past the data fetched so far.
func NewBlockCursor(src BlockSource, offset int64) (*Cursor, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d: %w", offset, ErrOutOfBounds)
	}
	bs := int64(src.BlockSize())
	rel := offset % bs
	st := &storage{src: src, base: offset - rel}
	if err := st.ensure(int(rel) + 1); err != nil {
		return nil, err
	}
	return &Cursor{st: st, pos: int(rel)}, nil
}

// Err returns the first error encountered by a read.
func (c *Cursor) Err() error { return c.err }

// Offset returns the absolute position of the cursor.
func (c *Cursor) Offset() int64 { return c.st.base + int64(c.pos) }

// Advance moves the cursor by delta bytes, which may be negative.
func (c *Cursor) Advance(delta int) { c.pos += delta }

// Fork returns an independent cursor at off bytes from the current position.
func (c *Cursor) Fork(off int) *Cursor {
	return &Cursor{st: c.st, pos: c.pos + off, err: c.err}
}

// Remaining reports how many bytes are already available after the cursor.
// Block-backed cursors may hold more data than this on the device.
func (c *Cursor) Remaining() int {
	if c.pos >= len(c.st.data) {
		return 0
	}
	return len(c.st.data) - c.pos
}

func (c *Cursor) read(off, n int) []byte {
	if c.err != nil {
		return nil
	}
	start := c.pos + off
	if start < 0 {
		c.err = fmt.Errorf("offset %d: %w", c.st.base+int64(start), ErrOutOfBounds)
		return nil
	}
	if err := c.st.ensure(start + n); err != nil {
		c.err = fmt.Errorf("read %d bytes at %d: %w", n, c.st.base+int64(start), err)
		return nil
	}
	return c.st.data[start : start+n]
}

// Bytes returns a copy of n bytes at off.
func (c *Cursor) Bytes(off, n int) []byte {
	b := c.read(off, n)
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

// String reads n bytes at off, dropping trailing NUL padding.
func (c *Cursor) String(off, n int) string {
	b := c.read(off, n)
	return string(bytes.TrimRight(b, "\x00"))
}

func (c *Cursor) Uint8(off int) uint8 {
	b := c.read(off, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *Cursor) Int8(off int) int8 { return int8(c.Uint8(off)) }

func (c *Cursor) Uint16(off int) uint16 {
	b := c.read(off, 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *Cursor) Int16(off int) int16 { return int16(c.Uint16(off)) }

func (c *Cursor) Uint32(off int) uint32 {
	b := c.read(off, 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *Cursor) Int32(off int) int32 { return int32(c.Uint32(off)) }

// Big-endian variants.

func (c *Cursor) BEUint16(off int) uint16 {
	b := c.read(off, 2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (c *Cursor) BEInt16(off int) int16 { return int16(c.BEUint16(off)) }

func (c *Cursor) BEUint32(off int) uint32 {
	b := c.read(off, 4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (c *Cursor) BEInt32(off int) int32 { return int32(c.BEUint32(off)) }
