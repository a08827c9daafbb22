/*
NAME
  list.go

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved. 

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

// All codecs known to the decoder, for reference in any application.
// When adding or removing a codec from this list, the IsValid and
// Accelerated functions below must be updated.
const (
	MPEG1 = "mpeg1" // MPEG-1 video bytestream (requires lexing).
	MPEG2 = "mpeg2" // MPEG-2 video bytestream (requires lexing).
	MPEG4 = "mpeg4" // MPEG-4 Part 2 bytestream (requires lexing).
	DivX3 = "divx3"
	H264  = "h264"
	H265  = "h265"
)

// IsValid checks if a string is a known and valid codec in the right format.
func IsValid(s string) bool {
	switch s {
	case MPEG1, MPEG2, MPEG4, DivX3, H264, H265:
		return true
	default:
		return false
	}
}

// Accelerated returns true if the codec named s has a decode path in this
// module. Codecs that are valid but not accelerated are reported as
// unsupported profiles by the decoder.
func Accelerated(s string) bool {
	switch s {
	case MPEG1, MPEG2, MPEG4:
		return true
	default:
		return false
	}
}
