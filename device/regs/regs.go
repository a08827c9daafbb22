/*
DESCRIPTION
  regs.go provides named register offsets for the video engine and the Bus
  interface through which they are accessed.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package regs provides a typed view of the video engine register window:
// named offsets, a Bus interface for register access and field packing
// helpers for the multi-field registers.
package regs

import "fmt"

// Reg is a register offset from the start of the engine register window.
type Reg uint32

// Engine wide registers.
const (
	Ctrl               Reg = 0x000
	Timeout            Reg = 0x00c
	OutputChromaOffset Reg = 0x0c4
	OutputStride       Reg = 0x0c8
	ExtraOutStride     Reg = 0x0cc
	ExtraOutFmtOffset  Reg = 0x0e8
	OutputFormat       Reg = 0x0ec
	Version            Reg = 0x0f0
)

// MPEG engine registers.
const (
	MPEGPicHdr      Reg = 0x100
	MPEGVOPHdr      Reg = 0x104
	MPEGSize        Reg = 0x108
	MPEGFrameSize   Reg = 0x10c
	MPEGMBA         Reg = 0x110
	MPEGCtrl        Reg = 0x114
	MPEGTrigger     Reg = 0x118
	MPEGStatus      Reg = 0x11c
	MPEGTRBTRDField Reg = 0x120
	MPEGTRBTRDFrame Reg = 0x124
	MPEGVLDAddr     Reg = 0x128
	MPEGVLDOffset   Reg = 0x12c
	MPEGVLDLen      Reg = 0x130
	MPEGVLDEnd      Reg = 0x134
	MPEGMBHAddr     Reg = 0x138
	MPEGDCACAddr    Reg = 0x13c
	MPEGNCFAddr     Reg = 0x144
	MPEGRecLuma     Reg = 0x148
	MPEGRecChroma   Reg = 0x14c
	MPEGFwdLuma     Reg = 0x150
	MPEGFwdChroma   Reg = 0x154
	MPEGBackLuma    Reg = 0x158
	MPEGBackChroma  Reg = 0x15c
	MPEGSOCX        Reg = 0x160
	MPEGSOCY        Reg = 0x164
	MPEGSOL         Reg = 0x168
	MPEGSDLX        Reg = 0x16c
	MPEGSDLY        Reg = 0x170
	MPEGSpriteShift Reg = 0x174
	MPEGSDCX        Reg = 0x178
	MPEGSDCY        Reg = 0x17c
	MPEGIQMinInput  Reg = 0x180
	MPEGQPInput     Reg = 0x184
	MPEGMSMPEG4Hdr  Reg = 0x188
	MPEGMV5         Reg = 0x1a8
	MPEGMV6         Reg = 0x1ac
	MPEGError       Reg = 0x1c4
	MPEGCtrMB       Reg = 0x1c8
	MPEGRotLuma     Reg = 0x1cc
	MPEGRotChroma   Reg = 0x1d0
	MPEGSDRotCtrl   Reg = 0x1d4
)

// WindowSize is the size in bytes of the register window that must be
// mapped to reach every register above.
const WindowSize = 0x800

var names = map[Reg]string{
	Ctrl:               "CTRL",
	Timeout:            "TIMEOUT",
	OutputChromaOffset: "OUTPUT_CHROMA_OFFSET",
	OutputStride:       "OUTPUT_STRIDE",
	ExtraOutStride:     "EXTRA_OUT_STRIDE",
	ExtraOutFmtOffset:  "EXTRA_OUT_FMT_OFFSET",
	OutputFormat:       "OUTPUT_FORMAT",
	Version:            "VERSION",
	MPEGPicHdr:         "MPEG_PIC_HDR",
	MPEGVOPHdr:         "MPEG_VOP_HDR",
	MPEGSize:           "MPEG_SIZE",
	MPEGFrameSize:      "MPEG_FRAME_SIZE",
	MPEGMBA:            "MPEG_MBA",
	MPEGCtrl:           "MPEG_CTRL",
	MPEGTrigger:        "MPEG_TRIGGER",
	MPEGStatus:         "MPEG_STATUS",
	MPEGTRBTRDField:    "MPEG_TRBTRD_FIELD",
	MPEGTRBTRDFrame:    "MPEG_TRBTRD_FRAME",
	MPEGVLDAddr:        "MPEG_VLD_ADDR",
	MPEGVLDOffset:      "MPEG_VLD_OFFSET",
	MPEGVLDLen:         "MPEG_VLD_LEN",
	MPEGVLDEnd:         "MPEG_VLD_END",
	MPEGMBHAddr:        "MPEG_MBH_ADDR",
	MPEGDCACAddr:       "MPEG_DCAC_ADDR",
	MPEGNCFAddr:        "MPEG_NCF_ADDR",
	MPEGRecLuma:        "MPEG_REC_LUMA",
	MPEGRecChroma:      "MPEG_REC_CHROMA",
	MPEGFwdLuma:        "MPEG_FWD_LUMA",
	MPEGFwdChroma:      "MPEG_FWD_CHROMA",
	MPEGBackLuma:       "MPEG_BACK_LUMA",
	MPEGBackChroma:     "MPEG_BACK_CHROMA",
	MPEGSOCX:           "MPEG_SOCX",
	MPEGSOCY:           "MPEG_SOCY",
	MPEGSOL:            "MPEG_SOL",
	MPEGSDLX:           "MPEG_SDLX",
	MPEGSDLY:           "MPEG_SDLY",
	MPEGSpriteShift:    "MPEG_SPRITESHIFT",
	MPEGSDCX:           "MPEG_SDCX",
	MPEGSDCY:           "MPEG_SDCY",
	MPEGIQMinInput:     "MPEG_IQ_MIN_INPUT",
	MPEGQPInput:        "MPEG_QP_INPUT",
	MPEGMSMPEG4Hdr:     "MPEG_MSMPEG4_HDR",
	MPEGMV5:            "MPEG_MV5",
	MPEGMV6:            "MPEG_MV6",
	MPEGError:          "MPEG_ERROR",
	MPEGCtrMB:          "MPEG_CTR_MB",
	MPEGRotLuma:        "MPEG_ROT_LUMA",
	MPEGRotChroma:      "MPEG_ROT_CHROMA",
	MPEGSDRotCtrl:      "MPEG_SDROT_CTRL",
}

func (r Reg) String() string {
	if n, ok := names[r]; ok {
		return n
	}
	return fmt.Sprintf("REG_%#03x", uint32(r))
}

// Bus provides 32 bit access to the engine registers.
type Bus interface {
	Read(r Reg) uint32
	Write(r Reg, v uint32)
}

// Engine selection values held in the low nibble of Ctrl.
const (
	EngineMPEG = 0x0
	EngineH264 = 0x1
	EngineHEVC = 0x4
	EngineNone = 0x7
)

// Select routes the register window to the sub-engine e by setting the low
// nibble of Ctrl, leaving the remaining bits untouched.
func Select(b Bus, e uint32) {
	b.Write(Ctrl, b.Read(Ctrl)&^0xf|e&0xf)
}

// Output formats for OutputFormat.
const (
	FormatTile32x32  = 0x0 << 4
	FormatTile128x32 = 0x1 << 4
	FormatI420       = 0x2 << 4
	FormatYV12       = 0x3 << 4
	FormatNV12       = 0x4 << 4
	FormatNV21       = 0x5 << 4

	ExtraFormatTile32x32 = 0x0
	ExtraFormatNV12      = 0x4
)

// Miscellaneous register values.
const (
	// StatusClear acknowledges the finish and error interrupts.
	StatusClear = 0x0000c00f

	// StatusClearAll clears every status bit.
	StatusClearAll = 0xffffffff

	// ExtraOutFmtEnable enables the secondary output path on engines with
	// version >= 0x1680.
	ExtraOutFmtEnable = 1<<30 | 1<<28

	// SDRotCtrlNone disables scaling and rotation of the secondary output.
	SDRotCtrlNone = 0x40620000

	// CtrlResume is OR'ed into MPEGCtrl after each wait.
	CtrlResume = 0x7c
)
