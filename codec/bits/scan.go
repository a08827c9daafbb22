/*
DESCRIPTION
  scan.go provides start code and resync marker scanning for the Reader.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bits

// stuffing is the MPEG-4 byte aligned stuffing pattern (0111 1111).
const stuffing = 0x7f

// FindStartCode scans forward from the byte containing the current position
// for the byte aligned prefix 00 00 01. If found the reader is positioned
// immediately after the prefix, i.e. at the start code value, and true is
// returned. Otherwise the reader is left at the end of the data.
func (r *Reader) FindStartCode() bool {
	zeros := 0
	for i := r.pos >> 3; i < len(r.buf); i++ {
		switch b := r.buf[i]; {
		case b == 0x00:
			zeros++
		case b == 0x01 && zeros >= 2:
			r.pos = (i + 1) * 8
			return true
		default:
			zeros = 0
		}
	}
	r.pos = r.Len()
	return false
}

// FindResyncCode byte aligns the reader and then scans for a byte aligned
// field of n bits equal to 1, i.e. n-1 zero bits followed by a one bit. If
// found the reader is positioned at the start of the field and true is
// returned. Otherwise the reader is left at the end of the data.
func (r *Reader) FindResyncCode(n int) bool {
	checkWidth(n)
	if r.ByteAlign() {
		return false
	}
	for i := r.pos >> 3; i < len(r.buf); i++ {
		if r.buf[i] != 0 {
			continue
		}
		r.pos = i * 8
		if r.Peek(n) == 1 {
			return true
		}
	}
	r.pos = r.Len()
	return false
}

// NextBitsAligned returns the n bits that follow the next byte boundary
// without advancing the reader. If the reader is already aligned and the next
// byte is a stuffing byte, the stuffing byte is skipped. This is the
// nextbits_bytealigned() function of ISO/IEC 14496-2.
func (r *Reader) NextBitsAligned(n int) uint32 {
	skip := 0
	if r.Aligned() {
		if r.Peek(8) == stuffing {
			skip = 8
		}
	} else {
		skip = 8 - r.pos&7
	}
	return r.Peek(n+skip) & (1<<uint(n) - 1)
}
