/*
DESCRIPTION
  parse.go provides a field reader with a sticky error for the MPEG-4 Part 2
  header parsers, including marker bit checking.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mpeg4

import (
	"github.com/ausocean/cedar/codec/bits"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Errors returned by the parsers.
var (
	ErrMarker           = errors.New("marker bit not set")
	ErrNoVOL            = errors.New("no video object layer header")
	ErrMBNumber         = errors.New("macroblock number out of range")
	ErrWarpingPoints    = errors.New("unsupported number of sprite warping points")
	ErrInvalidCode      = errors.New("invalid variable length code")
	ErrPictureTooLarge  = errors.New("picture exceeds macroblock grid")
	ErrQuantPrecision   = errors.New("invalid quantiser precision")
	ErrUnsupportedShape = errors.New("unsupported video object layer shape")
)

// fieldReader provides methods for reading flag and integer fields from a
// bits.Reader with a sticky error that may be checked after a series of
// parsing read calls.
type fieldReader struct {
	br     *bits.Reader
	e      error
	strict bool
	log    logging.Logger
}

// newFieldReader returns a new fieldReader. If strict is true, marker bit
// mismatches are recorded as errors, otherwise they are logged.
func newFieldReader(br *bits.Reader, strict bool, log logging.Logger) *fieldReader {
	return &fieldReader{br: br, strict: strict, log: log}
}

// readBits returns the next n bits. If we have an error already, we do not
// continue with the read.
func (r *fieldReader) readBits(n int) uint32 {
	if r.e != nil {
		return 0
	}
	var b uint32
	b, r.e = r.br.ReadBits(n)
	return b
}

// readFlag reads a single bit as a bool.
func (r *fieldReader) readFlag() bool {
	return r.readBits(1) == 1
}

// skip skips n bits, which may exceed bits.MaxPeek.
func (r *fieldReader) skip(n int) {
	for n > 0 {
		m := n
		if m > bits.MaxPeek {
			m = bits.MaxPeek
		}
		r.readBits(m)
		n -= m
	}
}

// marker reads a marker bit. A zero bit is logged, or recorded as ErrMarker
// if the reader is strict.
func (r *fieldReader) marker(field string) {
	if r.e != nil {
		return
	}
	if r.readBits(1) == 1 || r.e != nil {
		return
	}
	if r.strict {
		r.e = errors.Wrapf(ErrMarker, "after %s", field)
		return
	}
	if r.log != nil {
		r.log.Warning(pkg+"marker bit not set", "after", field, "pos", r.br.Pos())
	}
}

// fail records err if no error has been recorded yet.
func (r *fieldReader) fail(err error) {
	if r.e == nil {
		r.e = err
	}
}

// err returns the fieldReader's error e.
func (r *fieldReader) err() error {
	return r.e
}

// bitLen returns the number of bits needed to code values in [0, n-1], with a
// minimum of 1.
func bitLen(n int) int {
	l := 0
	for v := uint32(n-1) | 1; v != 0; v >>= 1 {
		l++
	}
	return l
}
