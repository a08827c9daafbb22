/*
DESCRIPTION
  vol.go provides parsing of the MPEG-4 Part 2 video object layer header, as
  specified in section 6.2.3 of ISO/IEC 14496-2.

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
	"github.com/pkg/errors"
)

// VOL describes a video object layer header. Values persist across pictures
// until the next VOL start code.
type VOL struct {
	RandomAccessible     bool
	ObjectTypeIndication uint8
	Verid                uint8
	Priority             uint8
	AspectRatioInfo      uint8
	PARWidth             uint8
	PARHeight            uint8

	ControlParameters bool
	ChromaFormat      uint8
	LowDelay          bool
	VBVParameters     bool
	BitRate           uint32
	VBVBufferSize     uint32
	VBVOccupancy      uint32

	Shape          Shape
	ShapeExtension uint8

	TimeIncrementResolution uint16

	// TimeIncrementBits is the width of vop_time_increment, derived from
	// TimeIncrementResolution.
	TimeIncrementBits     int
	FixedVOPRate          bool
	FixedVOPTimeIncrement uint16

	Width       uint16
	Height      uint16
	Interlaced  bool
	OBMCDisable bool

	Sprite                 SpriteMode
	SpriteWidth            uint16
	SpriteHeight           uint16
	SpriteLeft             uint16
	SpriteTop              uint16
	WarpingPoints          int
	WarpingAccuracy        int
	BrightnessChange       bool
	LowLatencySpriteEnable bool

	SADCTDisable      bool
	Not8Bit           bool
	QuantPrecision    int
	BitsPerPixel      int
	NoGrayQuantUpdate bool
	CompositionMethod bool
	LinearComposition bool

	// QuantType is true for MPEG quantisation, false for H.263.
	QuantType            bool
	LoadIntraQuantMat    bool
	LoadNonIntraQuantMat bool

	// IntraQuantMat and NonIntraQuantMat hold the quantisation matrices in
	// raster order. They hold the default matrices unless loaded.
	IntraQuantMat    [64]uint8
	NonIntraQuantMat [64]uint8

	QuarterSample               bool
	ComplexityEstimationDisable bool
	Complexity                  Complexity
	ResyncMarkerDisable         bool
	DataPartitioned             bool
	ReversibleVLC               bool

	NewPred                      bool
	RequestedUpstreamMessageType uint8
	NewPredSegmentType           uint8
	ReducedResolutionVOPEnable   bool

	Scalability           bool
	HierarchyType         uint8
	RefLayerID            uint8
	RefLayerSamplingDirec bool
	HorSamplingFactorN    uint8
	HorSamplingFactorM    uint8
	VertSamplingFactorN   uint8
	VertSamplingFactorM   uint8
	EnhancementType       bool
	UseRefShape           bool
	UseRefTexture         bool
	ShapeHorSamplingN     uint8
	ShapeHorSamplingM     uint8
	ShapeVertSamplingN    uint8
	ShapeVertSamplingM    uint8
}

// Complexity holds the define_vop_complexity_estimation_header fields needed
// to skip the per VOP complexity estimates. The Trash fields give the number
// of estimate bits present in each VOP for I, P and B coding types.
type Complexity struct {
	EstimationMethod uint8
	TrashI           int
	TrashP           int
	TrashB           int
}

// MBWidth returns the picture width in macroblocks.
func (v *VOL) MBWidth() int { return (int(v.Width) + 15) / 16 }

// MBHeight returns the picture height in macroblocks.
func (v *VOL) MBHeight() int { return (int(v.Height) + 15) / 16 }

// MBCount returns the number of macroblocks in a picture.
func (v *VOL) MBCount() int { return v.MBWidth() * v.MBHeight() }

// parseVOL parses a video object layer header from br, which must be
// positioned immediately after the start code value.
func (p *Parser) parseVOL(br *bits.Reader) (*VOL, error) {
	v := &VOL{}
	r := newFieldReader(br, p.strict, p.log)

	v.RandomAccessible = r.readFlag()
	v.ObjectTypeIndication = uint8(r.readBits(8))
	if r.readFlag() { // is_object_layer_identifier
		v.Verid = uint8(r.readBits(4))
		v.Priority = uint8(r.readBits(3))
	} else {
		v.Verid = 1
	}

	v.AspectRatioInfo = uint8(r.readBits(4))
	if v.AspectRatioInfo == extendedPAR {
		v.PARWidth = uint8(r.readBits(8))
		v.PARHeight = uint8(r.readBits(8))
	}

	v.ControlParameters = r.readFlag()
	if v.ControlParameters {
		v.ChromaFormat = uint8(r.readBits(2))
		v.LowDelay = r.readFlag()
		v.VBVParameters = r.readFlag()
		if v.VBVParameters {
			v.BitRate = r.readBits(15) << 15
			r.marker("first_half_bit_rate")
			v.BitRate |= r.readBits(15)
			r.marker("latter_half_bit_rate")
			v.VBVBufferSize = r.readBits(15) << 3
			r.marker("first_half_vbv_buffer_size")
			v.VBVBufferSize |= r.readBits(3)
			v.VBVOccupancy = r.readBits(11) << 15
			r.marker("first_half_vbv_occupancy")
			v.VBVOccupancy |= r.readBits(15)
			r.marker("latter_half_vbv_occupancy")
		}
	}

	v.Shape = Shape(r.readBits(2))
	if v.Shape == Grayscale && v.Verid != 1 {
		v.ShapeExtension = uint8(r.readBits(4))
	}

	r.marker("video_object_layer_shape")
	v.TimeIncrementResolution = uint16(r.readBits(16))
	r.marker("vop_time_increment_resolution")
	v.TimeIncrementBits = bitLen(int(v.TimeIncrementResolution))

	v.FixedVOPRate = r.readFlag()
	if v.FixedVOPRate {
		v.FixedVOPTimeIncrement = uint16(r.readBits(v.TimeIncrementBits))
	} else {
		v.FixedVOPTimeIncrement = 1
	}

	if v.Shape == BinaryOnly {
		if v.Verid != 1 {
			v.Scalability = r.readFlag()
			if v.Scalability {
				v.RefLayerID = uint8(r.readBits(4))
				v.ShapeHorSamplingN = uint8(r.readBits(5))
				v.ShapeHorSamplingM = uint8(r.readBits(5))
				v.ShapeVertSamplingN = uint8(r.readBits(5))
				v.ShapeVertSamplingM = uint8(r.readBits(5))
			}
		}
		v.ResyncMarkerDisable = r.readFlag()
		return v, errors.Wrap(r.err(), "could not parse video object layer")
	}

	if v.Shape == Rectangular {
		r.marker("vop_time_increment")
		v.Width = uint16(r.readBits(13))
		r.marker("video_object_layer_width")
		v.Height = uint16(r.readBits(13))
		r.marker("video_object_layer_height")
	}
	v.Interlaced = r.readFlag()
	v.OBMCDisable = r.readFlag()
	if v.Verid == 1 {
		v.Sprite = SpriteMode(r.readBits(1))
	} else {
		v.Sprite = SpriteMode(r.readBits(2))
	}

	if v.Sprite == StaticSprite || v.Sprite == GMCSprite {
		if v.Sprite == StaticSprite {
			v.SpriteWidth = uint16(r.readBits(13))
			r.marker("sprite_width")
			v.SpriteHeight = uint16(r.readBits(13))
			r.marker("sprite_height")
			v.SpriteLeft = uint16(r.readBits(13))
			r.marker("sprite_left_coordinate")
			v.SpriteTop = uint16(r.readBits(13))
			r.marker("sprite_top_coordinate")
		}
		v.WarpingPoints = int(r.readBits(6))
		v.WarpingAccuracy = int(r.readBits(2))
		v.BrightnessChange = r.readFlag()
		if v.Sprite != GMCSprite {
			v.LowLatencySpriteEnable = r.readFlag()
		}
		if r.err() == nil && v.WarpingPoints > 3 {
			r.fail(errors.Wrapf(ErrWarpingPoints, "%d points", v.WarpingPoints))
		}
	}

	if v.Verid != 1 && v.Shape != Rectangular {
		v.SADCTDisable = r.readFlag()
	}

	v.Not8Bit = r.readFlag()
	if v.Not8Bit {
		v.QuantPrecision = int(r.readBits(4))
		v.BitsPerPixel = int(r.readBits(4))
		if r.err() == nil && (v.QuantPrecision < 3 || v.QuantPrecision > 9) {
			r.fail(errors.Wrapf(ErrQuantPrecision, "%d bits", v.QuantPrecision))
		}
	} else {
		v.QuantPrecision = 5
		v.BitsPerPixel = 8
	}

	if v.Shape == Grayscale {
		v.NoGrayQuantUpdate = r.readFlag()
		v.CompositionMethod = r.readFlag()
		v.LinearComposition = r.readFlag()
	}

	v.IntraQuantMat = DefaultIntraQuantMatrix
	v.NonIntraQuantMat = DefaultNonIntraQuantMatrix
	v.QuantType = r.readFlag()
	if v.QuantType {
		v.LoadIntraQuantMat = r.readFlag()
		if v.LoadIntraQuantMat {
			readQuantMatrix(r, &v.IntraQuantMat)
		}
		v.LoadNonIntraQuantMat = r.readFlag()
		if v.LoadNonIntraQuantMat {
			readQuantMatrix(r, &v.NonIntraQuantMat)
		}
		if v.Shape == Grayscale {
			r.fail(errors.Wrap(ErrUnsupportedShape, "grayscale quantisation matrices"))
		}
	}

	if v.Verid != 1 {
		v.QuarterSample = r.readFlag()
	}

	v.ComplexityEstimationDisable = r.readFlag()
	if !v.ComplexityEstimationDisable {
		readComplexityEstimation(r, &v.Complexity, p)
	}

	v.ResyncMarkerDisable = r.readFlag()
	v.DataPartitioned = r.readFlag()
	if v.DataPartitioned {
		v.ReversibleVLC = r.readFlag()
	}

	if v.Verid != 1 {
		v.NewPred = r.readFlag()
		if v.NewPred {
			v.RequestedUpstreamMessageType = uint8(r.readBits(2))
			v.NewPredSegmentType = uint8(r.readBits(1))
		}
		v.ReducedResolutionVOPEnable = r.readFlag()
	}

	v.Scalability = r.readFlag()
	if v.Scalability {
		v.HierarchyType = uint8(r.readBits(1))
		v.RefLayerID = uint8(r.readBits(4))
		v.RefLayerSamplingDirec = r.readFlag()
		v.HorSamplingFactorN = uint8(r.readBits(5))
		v.HorSamplingFactorM = uint8(r.readBits(5))
		v.VertSamplingFactorN = uint8(r.readBits(5))
		v.VertSamplingFactorM = uint8(r.readBits(5))
		v.EnhancementType = r.readFlag()
		if v.Shape == Binary && v.HierarchyType == 0 {
			v.UseRefShape = r.readFlag()
			v.UseRefTexture = r.readFlag()
			v.ShapeHorSamplingN = uint8(r.readBits(5))
			v.ShapeHorSamplingM = uint8(r.readBits(5))
			v.ShapeVertSamplingN = uint8(r.readBits(5))
			v.ShapeVertSamplingM = uint8(r.readBits(5))
		}
	}

	return v, errors.Wrap(r.err(), "could not parse video object layer")
}

// readQuantMatrix reads a quantisation matrix coded in zigzag scan order into
// m in raster order. A zero value ends the matrix early, in which case the
// remaining entries repeat the last value read.
func readQuantMatrix(r *fieldReader, m *[64]uint8) {
	var last uint8
	i := 0
	for ; i < 64; i++ {
		v := uint8(r.readBits(8))
		if v == 0 {
			break
		}
		last = v
		m[ZigZag[i]] = v
	}
	if i == 0 {
		return
	}
	for ; i < 64; i++ {
		m[ZigZag[i]] = last
	}
}

// readComplexityEstimation parses define_vop_complexity_estimation_header,
// accumulating the number of estimate bits each VOP coding type will carry.
func readComplexityEstimation(r *fieldReader, c *Complexity, p *Parser) {
	c.EstimationMethod = uint8(r.readBits(2))
	if c.EstimationMethod >= 2 {
		if p.log != nil {
			p.log.Warning(pkg+"invalid complexity estimation method", "method", c.EstimationMethod)
		}
		return
	}

	flag := func(n int) int {
		if r.readFlag() {
			return n
		}
		return 0
	}

	if !r.readFlag() { // shape_complexity_estimation_disable
		c.TrashI += flag(8) // opaque
		c.TrashI += flag(8) // transparent
		c.TrashI += flag(8) // intra_cae
		c.TrashI += flag(8) // inter_cae
		c.TrashI += flag(8) // no_update
		c.TrashI += flag(8) // upsampling
	}
	if !r.readFlag() { // texture_complexity_estimation_set_1_disable
		c.TrashI += flag(8) // intra_blocks
		c.TrashP += flag(8) // inter_blocks
		c.TrashP += flag(8) // inter4v_blocks
		c.TrashI += flag(8) // not_coded_blocks
	}
	r.marker("texture_complexity_estimation_set_1")
	if !r.readFlag() { // texture_complexity_estimation_set_2_disable
		c.TrashI += flag(8) // dct_coefs
		c.TrashI += flag(8) // dct_lines
		c.TrashI += flag(8) // vlc_symbols
		c.TrashI += flag(4) // vlc_bits
	}
	if !r.readFlag() { // motion_compensation_complexity_disable
		c.TrashP += flag(8) // apm
		c.TrashP += flag(8) // npm
		c.TrashB += flag(8) // interpolate_mc_q
		c.TrashP += flag(8) // forw_back_mc_q
		c.TrashP += flag(8) // halfpel2
		c.TrashP += flag(8) // halfpel4
	}
	r.marker("motion_compensation_complexity")
	if c.EstimationMethod == 1 {
		if !r.readFlag() { // version2_complexity_estimation_disable
			c.TrashI += flag(8) // sadct
			c.TrashP += flag(8) // quarterpel
		}
	}
}
