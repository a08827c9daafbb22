/*
DESCRIPTION
  types.go provides the enumerated types and limits used by the MPEG-4 Part 2
  header and macroblock parsers.

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

// Start code values following the 00 00 01 prefix, see table 6-3 of
// ISO/IEC 14496-2.
const (
	VOLStartMin  = 0x20
	VOLStartMax  = 0x2f
	VOSStartCode = 0xb0
	VOSEndCode   = 0xb1
	UserDataCode = 0xb2
	GOVStartCode = 0xb3
	VOStartCode  = 0xb5
	VOPStartCode = 0xb6
)

// IsVOLStart returns true if code is a video object layer start code value.
func IsVOLStart(code byte) bool { return code >= VOLStartMin && code <= VOLStartMax }

// CodingType is a VOP coding type.
type CodingType uint8

// VOP coding types.
const (
	IVOP CodingType = iota // Intra.
	PVOP                   // Predicted.
	BVOP                   // Bidirectionally predicted.
	SVOP                   // Sprite (static or GMC).
)

func (t CodingType) String() string {
	switch t {
	case IVOP:
		return "I"
	case PVOP:
		return "P"
	case BVOP:
		return "B"
	case SVOP:
		return "S"
	default:
		return "unknown"
	}
}

// Shape is a video_object_layer_shape value.
type Shape uint8

// Video object layer shapes.
const (
	Rectangular Shape = iota
	Binary
	BinaryOnly
	Grayscale
)

// SpriteMode is a sprite_enable value.
type SpriteMode uint8

// Sprite modes.
const (
	NoSprite SpriteMode = iota
	StaticSprite
	GMCSprite
)

// Derived macroblock types, see table 6-25 of ISO/IEC 14496-2.
const (
	mbInter    = 0
	mbInterQ   = 1
	mbInter4V  = 2
	mbIntra    = 3
	mbIntraQ   = 4
	mbStuffing = 7
)

// extendedPAR is the aspect_ratio_info value signalling an explicit pixel
// aspect ratio.
const extendedPAR = 15

// MaxMBCols and MaxMBRows bound the picture size, in macroblocks, that the
// macroblock layer parser tracks. They match the largest picture the engine
// decodes in MPEG-4 mode (720x576).
const (
	MaxMBCols = 45
	MaxMBRows = 36
)
