/*
NAME
  bytescanner.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package codecutil provides the codec list and elementary stream lexing
// shared by the MPEG codec packages.
package codecutil

import "io"

// ByteScanner is a byte scanner that finds MPEG start code prefixes in an
// io.Reader.
type ByteScanner struct {
	buf []byte
	off int

	// r is the source of data for the scanner.
	r io.Reader
}

// NewByteScanner returns a scanner initialised with an io.Reader and a read buffer.
func NewByteScanner(r io.Reader, buf []byte) *ByteScanner {
	return &ByteScanner{r: r, buf: buf[:0]}
}

// ScanStartCode scans the underlying io.Reader until a start code prefix
// (two or more zero bytes followed by 0x01) and the start code value that
// follows it have been read. All read bytes are appended to dst. The
// appended data is returned along with the start code value and the total
// length of the prefix and value, so that the start code occupies the last n
// bytes of res. If the source is exhausted the data read so far is returned
// with io.EOF.
func (c *ByteScanner) ScanStartCode(dst []byte) (res []byte, code byte, n int, err error) {
	zeros := 0
	for {
		var b byte
		b, err = c.ReadByte()
		if err != nil {
			return dst, 0, 0, err
		}
		dst = append(dst, b)

		switch {
		case b == 0x00:
			zeros++
			continue
		case b == 0x01 && zeros >= 2:
			code, err = c.ReadByte()
			if err != nil {
				return dst, 0, 0, err
			}
			dst = append(dst, code)
			return dst, code, 4, nil
		}
		zeros = 0

		// Skip ahead to the next zero byte in bulk.
		i := c.off
		for i < len(c.buf) && c.buf[i] != 0x00 {
			i++
		}
		dst = append(dst, c.buf[c.off:i]...)
		c.off = i
	}
}

// ReadByte reads the next byte from the scanner.
func (c *ByteScanner) ReadByte() (byte, error) {
	if c.off >= len(c.buf) {
		err := c.reload()
		if err != nil {
			return 0, err
		}
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// reload re-fills the scanner's buffer.
func (c *ByteScanner) reload() error {
	n, err := c.r.Read(c.buf[:cap(c.buf)])
	c.buf = c.buf[:n]
	if err != nil {
		if err != io.EOF {
			return err
		}
		if n == 0 {
			return io.EOF
		}
	}
	c.off = 0
	return nil
}
