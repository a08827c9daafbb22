/*
DESCRIPTION
  reader.go provides a bit reader that can read or peek from a byte slice
  holding compressed elementary stream data.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bits provides a bit reader over an in-memory bitstream, together
// with the start code and resync marker scanning used by the MPEG parsers.
package bits

import (
	"fmt"
	"io"
)

// MaxPeek is the largest number of bits that may be read or peeked at once.
const MaxPeek = 32

// Reader is a bit reader over a byte slice. Bits are read most significant
// first. The position of the reader never exceeds the length of the data;
// reads beyond the end of the data return zero bits and are reported through
// Err and the error returning methods.
type Reader struct {
	buf []byte
	pos int // Position in bits.
	err error
}

// NewReader returns a new Reader reading from buf. The Reader does not copy
// buf, so it must not be modified while the Reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Peek returns the next n bits in the least significant part of a uint32
// without advancing the reader. Bits past the end of the data are zero.
// For example, with a source as []byte{0x8f,0xe3} (1000 1111, 1110 0011), we
// would get the following results for peeks with n values:
// n = 4, res = 0x8 (1000)
// n = 8, res = 0x8f (1000 1111)
// n = 16, res = 0x8fe3 (1000 1111, 1110 0011)
// Peek panics if n is negative or larger than MaxPeek.
func (r *Reader) Peek(n int) uint32 {
	checkWidth(n)
	if n == 0 {
		return 0
	}

	// Load the 5 bytes containing the bits we want into w, zero padding past
	// the end of buf. 5 bytes always suffice since the bit offset within the
	// first byte is at most 7 and n is at most 32.
	i := r.pos >> 3
	var w uint64
	for j := 0; j < 5; j++ {
		w <<= 8
		if i+j < len(r.buf) {
			w |= uint64(r.buf[i+j])
		}
	}

	off := uint(r.pos & 7)
	return uint32((w >> (40 - off - uint(n))) & (1<<uint(n) - 1))
}

// Read returns the next n bits in the least significant part of a uint32 and
// advances the reader by n bits. See Peek for behaviour at the end of the
// data.
func (r *Reader) Read(n int) uint32 {
	v := r.Peek(n)
	r.Skip(n)
	return v
}

// ReadBits is like Read but returns io.ErrUnexpectedEOF if the read extends
// past the end of the data. The zero padded value is still returned.
func (r *Reader) ReadBits(n int) (uint32, error) {
	short := r.pos+n > r.Len()
	v := r.Read(n)
	if short {
		return v, io.ErrUnexpectedEOF
	}
	return v, nil
}

// PeekBits is like Peek but returns io.ErrUnexpectedEOF if the peek extends
// past the end of the data.
func (r *Reader) PeekBits(n int) (uint32, error) {
	v := r.Peek(n)
	if r.pos+n > r.Len() {
		return v, io.ErrUnexpectedEOF
	}
	return v, nil
}

// Skip advances the reader by n bits. Skipping past the end of the data
// leaves the reader at the end and records io.ErrUnexpectedEOF.
func (r *Reader) Skip(n int) {
	r.pos += n
	if r.pos > r.Len() {
		r.pos = r.Len()
		r.err = io.ErrUnexpectedEOF
	}
}

// ByteAlign advances the reader to the next byte boundary. It returns true if
// the data was exhausted in doing so, in which case the reader is left at the
// end of the data.
func (r *Reader) ByteAlign() bool {
	p := (r.pos + 7) &^ 7
	if p > r.Len() {
		r.pos = r.Len()
		return true
	}
	r.pos = p
	return false
}

// Aligned returns true if the reader position is at the start of a byte.
func (r *Reader) Aligned() bool {
	return r.pos&7 == 0
}

// More returns true if the byte containing the current position lies within
// the data.
func (r *Reader) More() bool {
	return r.pos>>3 < len(r.buf)
}

// Pos returns the current position in bits.
func (r *Reader) Pos() int {
	return r.pos
}

// SetPos moves the reader to bit position p, clamped to the data.
func (r *Reader) SetPos(p int) {
	switch {
	case p < 0:
		p = 0
	case p > r.Len():
		p = r.Len()
	}
	r.pos = p
}

// Len returns the length of the data in bits.
func (r *Reader) Len() int {
	return len(r.buf) * 8
}

// Remaining returns the number of bits between the current position and the
// end of the data.
func (r *Reader) Remaining() int {
	return r.Len() - r.pos
}

// Bytes returns the underlying data.
func (r *Reader) Bytes() []byte {
	return r.buf
}

// Err returns io.ErrUnexpectedEOF if a read or skip has run past the end of
// the data since the reader was created.
func (r *Reader) Err() error {
	return r.err
}

func checkWidth(n int) {
	if n < 0 || n > MaxPeek {
		panic(fmt.Sprintf("bits: invalid bit count %d", n))
	}
}
