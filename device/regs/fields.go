/*
DESCRIPTION
  fields.go provides packing of the multi-field MPEG engine registers.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package regs

// field masks v to width bits and shifts it to shift.
func field(v uint32, width, shift uint) uint32 {
	return (v & (1<<width - 1)) << shift
}

func flag(b bool, shift uint) uint32 {
	if b {
		return 1 << shift
	}
	return 0
}

// MPEGControl holds the fields of MPEGCtrl.
type MPEGControl struct {
	FinishIntEnable  bool  // Bit 3.
	ErrorIntEnable   bool  // Bit 4.
	VLDMemReqEnable  bool  // Bit 5.
	NotWriteRecons   bool  // Bit 7.
	WriteRotate      bool  // Bit 8.
	OutputEnable     bool  // Bit 12.
	OutloopDeblock   bool  // Bit 13.
	QPACDCOutEnable  bool  // Bit 14.
	Histogram        bool  // Bit 16.
	BypassIQIS       bool  // Bit 17.
	MVCSFieldHM      bool  // Bit 19.
	MVCSFieldQM      uint8 // Bits 20-21.
	MVCSMV1QM        uint8 // Bits 22-23.
	MVCSMV4QM        uint8 // Bits 24-25.
	SoftwareVLD      bool  // Bit 27.
	SWChromaMVSelect bool  // Bit 28.
	FDCQACInDRAM     bool  // Bit 30.
	MCCacheEnable    bool  // Bit 31.
}

// Word packs c into a register value.
func (c MPEGControl) Word() uint32 {
	return flag(c.FinishIntEnable, 3) |
		flag(c.ErrorIntEnable, 4) |
		flag(c.VLDMemReqEnable, 5) |
		flag(c.NotWriteRecons, 7) |
		flag(c.WriteRotate, 8) |
		flag(c.OutputEnable, 12) |
		flag(c.OutloopDeblock, 13) |
		flag(c.QPACDCOutEnable, 14) |
		flag(c.Histogram, 16) |
		flag(c.BypassIQIS, 17) |
		flag(c.MVCSFieldHM, 19) |
		field(uint32(c.MVCSFieldQM), 2, 20) |
		field(uint32(c.MVCSMV1QM), 2, 22) |
		field(uint32(c.MVCSMV4QM), 2, 24) |
		flag(c.SoftwareVLD, 27) |
		flag(c.SWChromaMVSelect, 28) |
		flag(c.FDCQACInDRAM, 30) |
		flag(c.MCCacheEnable, 31)
}

// VOPHeader holds the fields of MPEGVOPHdr.
type VOPHeader struct {
	FCodeBackward       uint8
	FCodeForward        uint8
	AlternateVScan      bool
	TopFieldFirst       bool
	IntraDCVLCThreshold uint8
	H263UMV             bool
	AdvancedIntraPred   bool
	ModifiedQuant       bool
	H263PMV             bool
	H263Escape          bool
	RoundingType        bool
	CodingType          uint8
	WarpingPoints       uint8
	ResyncMarkerDisable bool
	QuarterSample       bool
	QuantType           bool
	SpriteAccuracy      uint8
	CoLocatedType       uint8
	Interlaced          bool
	ShortVideoHeader    bool
}

// Word packs h into a register value.
func (h VOPHeader) Word() uint32 {
	return field(uint32(h.FCodeBackward), 3, 0) |
		field(uint32(h.FCodeForward), 3, 3) |
		flag(h.AlternateVScan, 6) |
		flag(h.TopFieldFirst, 7) |
		field(uint32(h.IntraDCVLCThreshold), 3, 8) |
		flag(h.H263UMV, 12) |
		flag(h.AdvancedIntraPred, 13) |
		flag(h.ModifiedQuant, 14) |
		flag(h.H263PMV, 15) |
		flag(h.H263Escape, 16) |
		flag(h.RoundingType, 17) |
		field(uint32(h.CodingType), 2, 18) |
		field(uint32(h.WarpingPoints), 2, 20) |
		flag(h.ResyncMarkerDisable, 22) |
		flag(h.QuarterSample, 23) |
		flag(h.QuantType, 24) |
		field(uint32(h.SpriteAccuracy), 2, 25) |
		field(uint32(h.CoLocatedType), 2, 28) |
		flag(h.Interlaced, 30) |
		flag(h.ShortVideoHeader, 31)
}

// Trigger start types, decode formats and chroma formats.
const (
	StartTypeMPEG4 = 0xd
	StartTypeMPEG2 = 0xf

	DecFormatMPEG1 = 1
	DecFormatMPEG2 = 2
	DecFormatMPEG4 = 4

	Chroma420 = 0
)

// Trigger holds the fields of MPEGTrigger.
type Trigger struct {
	StartType    uint8
	STCDType     uint8
	IsGetBits    bool
	NumMBInGOB   uint16
	DecFormat    uint8
	ChromaFormat uint8
	MBBoundary   bool
}

// Word packs t into a register value.
func (t Trigger) Word() uint32 {
	return field(uint32(t.StartType), 4, 0) |
		field(uint32(t.STCDType), 2, 4) |
		flag(t.IsGetBits, 7) |
		field(uint32(t.NumMBInGOB), 16, 8) |
		field(uint32(t.DecFormat), 3, 24) |
		field(uint32(t.ChromaFormat), 3, 27) |
		flag(t.MBBoundary, 31)
}

// PicHeader holds the fields of MPEGPicHdr for MPEG-1/2 pictures.
type PicHeader struct {
	CodingType               uint8
	FCode                    [2][2]uint8
	IntraDCPrecision         uint8
	Structure                uint8
	TopFieldFirst            bool
	FramePredFrameDCT        bool
	ConcealmentMotionVectors bool
	QScaleType               bool
	IntraVLCFormat           bool
	AlternateScan            bool
	FullPelForward           bool
	FullPelBackward          bool

	// MPEG1 sets the MPEG-1 bits, 6 to 9.
	MPEG1 bool
}

// mpeg1PicHdr are the bits set in MPEGPicHdr for MPEG-1 pictures.
const mpeg1PicHdr = 0x3c0

// Word packs h into a register value.
func (h PicHeader) Word() uint32 {
	w := field(uint32(h.CodingType), 3, 28) |
		field(uint32(h.FCode[0][0]), 4, 24) |
		field(uint32(h.FCode[0][1]), 4, 20) |
		field(uint32(h.FCode[1][0]), 4, 16) |
		field(uint32(h.FCode[1][1]), 4, 12) |
		field(uint32(h.IntraDCPrecision), 2, 10) |
		field(uint32(h.Structure), 2, 8) |
		flag(h.TopFieldFirst, 7) |
		flag(h.FramePredFrameDCT, 6) |
		flag(h.ConcealmentMotionVectors, 5) |
		flag(h.QScaleType, 4) |
		flag(h.IntraVLCFormat, 3) |
		flag(h.AlternateScan, 2) |
		flag(h.FullPelForward, 1) |
		flag(h.FullPelBackward, 0)
	if h.MPEG1 {
		w |= mpeg1PicHdr
	}
	return w
}

// Size returns the MPEGSize value for a picture of mbw by mbh macroblocks.
// If stride is true the macroblock stride, mbw rounded up to even, is placed
// in bits 16 and up as the MPEG-4 path requires.
func Size(mbw, mbh int, stride bool) uint32 {
	v := uint32(mbw&0xff)<<8 | uint32(mbh&0xff)
	if stride {
		v |= uint32(mbw+mbw&1) << 16
	}
	return v
}

// FrameSize returns the MPEGFrameSize value for a picture of mbw by mbh
// macroblocks.
func FrameSize(mbw, mbh int) uint32 {
	return uint32(mbw*16)<<16 | uint32(mbh*16)
}

// VLDAddr returns the MPEGVLDAddr value for a bitstream buffer at physical
// address phys, with the first, last and valid bits set.
func VLDAddr(phys uint32) uint32 {
	return phys&0x0ffffff0 | phys>>28 | 0x7<<28
}

// IQEntry returns an MPEGIQMinInput value loading v at quantiser table
// index idx. Intra entries occupy indices 64 to 127.
func IQEntry(idx int, v uint8) uint32 {
	return uint32(idx)<<8 | uint32(v)
}

// Stride returns the OutputStride value for an output width in pixels.
func Stride(width int) uint32 {
	return uint32(align(width, 16)/2)<<16 | uint32(align(width, 32))
}

// Pair packs hi into the upper and the low 16 bits of lo into the lower half
// of a register.
func Pair(hi, lo int32) uint32 {
	return uint32(hi)<<16 | uint32(lo)&0xffff
}

func align(v, n int) int { return (v + n - 1) &^ (n - 1) }
