/*
DESCRIPTION
  types.go provides start code values, picture coding types and picture
  structures for MPEG-1 and MPEG-2 video.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mpeg12 provides parsing of MPEG-1 and MPEG-2 video headers into the
// picture parameters needed to program a hardware decoder, and a lexer for
// MPEG-1/2 elementary streams.
package mpeg12

const pkg = "mpeg12: "

// Start code values, i.e. the byte following 0x000001.
const (
	PictureStartCode   = 0x00
	SliceFirst         = 0x01
	SliceLast          = 0xaf
	UserDataStartCode  = 0xb2
	SequenceStartCode  = 0xb3
	ExtensionStartCode = 0xb5
	SequenceEndCode    = 0xb7
	GroupStartCode     = 0xb8
)

// Extension start code identifiers.
const (
	extSequence        = 1
	extSequenceDisplay = 2
	extQuantMatrix     = 3
	extPictureCoding   = 8
)

// CodingType is the picture_coding_type of a picture header.
type CodingType uint8

// Picture coding types.
const (
	IPicture CodingType = 1
	PPicture CodingType = 2
	BPicture CodingType = 3
	DPicture CodingType = 4
)

func (t CodingType) String() string {
	switch t {
	case IPicture:
		return "I"
	case PPicture:
		return "P"
	case BPicture:
		return "B"
	case DPicture:
		return "D"
	default:
		return "unknown"
	}
}

// Picture structures. MPEG-1 pictures are always frames.
const (
	TopField    = 1
	BottomField = 2
	Frame       = 3
)

// unusedFCode is the f_code value for a motion direction that is not used.
const unusedFCode = 15

// IsSlice returns true if code is a slice start code value.
func IsSlice(code byte) bool { return code >= SliceFirst && code <= SliceLast }
