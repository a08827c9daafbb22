/*
DESCRIPTION
  vop.go provides parsing of the MPEG-4 Part 2 video object plane header, as
  specified in section 6.2.5 of ISO/IEC 14496-2.

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

import "github.com/pkg/errors"

// VOP describes a video object plane header together with state carried
// between pictures.
type VOP struct {
	CodingType CodingType

	// LastCodingType is the coding type of the previous coded VOP and
	// OldCodingType that of the most recent non-B VOP before it.
	LastCodingType CodingType
	OldCodingType  CodingType

	ModuloTimeBase int
	TimeIncrement  uint32
	Coded          bool

	VOPID              uint32
	VOPIDForPrediction uint32

	RoundingType          bool
	ReducedResolution     bool
	Width                 uint16
	Height                uint16
	HorizontalMCRef       uint16
	VerticalMCRef         uint16
	BackgroundComposite   bool
	ChangeConvRatioOff    bool
	ConstantAlpha         bool
	ConstantAlphaValue    uint8
	IntraDCVLCThreshold   uint8
	TopFieldFirst         bool
	AlternateVerticalScan bool

	GMC GMC

	Quant         int
	FCodeForward  int
	FCodeBackward int

	ShapeCodingType bool
	RefSelectCode   uint8

	// Quantizer is the running quantiser updated by the macroblock layer.
	Quantizer int
}

// parseVOP parses a VOP header following the start code value. It returns
// false if the VOP is not coded, in which case the remaining fields are not
// read.
func (p *Parser) parseVOP(r *fieldReader) (bool, error) {
	v := &p.VOP
	vol := &p.VOL

	// Only the coding type chain carries over from the previous header.
	*v = VOP{LastCodingType: p.lastCoded, OldCodingType: v.OldCodingType}
	v.CodingType = CodingType(r.readBits(2))

	v.ModuloTimeBase = 0
	for r.readFlag() {
		v.ModuloTimeBase++
	}
	r.marker("modulo_time_base")
	v.TimeIncrement = r.readBits(vol.TimeIncrementBits)
	r.marker("vop_time_increment")

	v.Coded = r.readFlag()
	if !v.Coded || r.err() != nil {
		return false, errors.Wrap(r.err(), "could not parse video object plane")
	}

	if v.LastCodingType != BVOP {
		v.OldCodingType = v.LastCodingType
	} else {
		v.OldCodingType = IVOP
	}

	if vol.NewPred {
		n := vol.TimeIncrementBits + 3
		if n > 15 {
			n = 15
		}
		v.VOPID = r.readBits(n)
		if r.readFlag() { // vop_id_for_prediction_indication
			v.VOPIDForPrediction = r.readBits(n)
		}
		r.marker("vop_id")
	}

	if vol.Shape != BinaryOnly && (v.CodingType == PVOP || (v.CodingType == SVOP && vol.Sprite == GMCSprite)) {
		v.RoundingType = r.readFlag()
	} else {
		v.RoundingType = false
	}

	v.ReducedResolution = false
	if vol.ReducedResolutionVOPEnable && vol.Shape == Rectangular && (v.CodingType == PVOP || v.CodingType == IVOP) {
		v.ReducedResolution = r.readFlag()
	}

	if vol.Shape != Rectangular {
		if !(vol.Sprite == StaticSprite && v.CodingType == IVOP) {
			v.Width = uint16(r.readBits(13))
			r.marker("vop_width")
			v.Height = uint16(r.readBits(13))
			r.marker("vop_height")
			v.HorizontalMCRef = uint16(r.readBits(13))
			r.marker("vop_horizontal_mc_spatial_ref")
			v.VerticalMCRef = uint16(r.readBits(13))
			r.marker("vop_vertical_mc_spatial_ref")
		}
		if vol.Shape != BinaryOnly && vol.Scalability && vol.EnhancementType {
			v.BackgroundComposite = r.readFlag()
		}
		v.ChangeConvRatioOff = r.readFlag()
		v.ConstantAlpha = r.readFlag()
		if v.ConstantAlpha {
			v.ConstantAlphaValue = uint8(r.readBits(8))
		}
	}

	if vol.Shape != BinaryOnly {
		if !vol.ComplexityEstimationDisable {
			c := vol.Complexity
			n := c.TrashI
			if v.CodingType != IVOP {
				n += c.TrashP
			}
			if v.CodingType == BVOP {
				n += c.TrashB
			}
			r.skip(n)
		}

		v.IntraDCVLCThreshold = uint8(r.readBits(3))
		if vol.Interlaced {
			v.TopFieldFirst = r.readFlag()
			v.AlternateVerticalScan = r.readFlag()
		}
	}

	v.GMC = GMC{}
	if (vol.Sprite == StaticSprite || vol.Sprite == GMCSprite) && v.CodingType == SVOP {
		var d [4][2]int32
		if vol.WarpingPoints > 0 {
			d = readSpriteTrajectory(r, vol.WarpingPoints)
		}
		v.GMC = SolveGMC(d, vol.WarpingPoints, vol.WarpingAccuracy, int(vol.Width), int(vol.Height))
		if vol.BrightnessChange && p.log != nil {
			p.log.Warning(pkg + "sprite brightness change not supported")
		}
		if vol.Sprite == StaticSprite && p.log != nil {
			p.log.Warning(pkg + "static sprite pieces not supported")
		}
	}

	if vol.Shape == BinaryOnly {
		return true, errors.Wrap(r.err(), "could not parse video object plane")
	}

	v.Quant = int(r.readBits(vol.QuantPrecision))
	v.Quantizer = v.Quant

	v.FCodeForward = 1
	if v.CodingType != IVOP {
		v.FCodeForward = int(r.readBits(3))
	}
	v.FCodeBackward = 1
	if v.CodingType == BVOP {
		v.FCodeBackward = int(r.readBits(3))
	}

	if !vol.Scalability {
		if vol.Shape != Rectangular && v.CodingType != IVOP {
			v.ShapeCodingType = r.readFlag()
		}
		return true, errors.Wrap(r.err(), "could not parse video object plane")
	}

	if vol.EnhancementType {
		if r.readFlag() { // load_backward_shape
			skipShapeDimensions(r, "backward_shape")
			if r.readFlag() { // load_forward_shape
				skipShapeDimensions(r, "forward_shape")
			}
		}
	}
	v.RefSelectCode = uint8(r.readBits(2))
	return true, errors.Wrap(r.err(), "could not parse video object plane")
}

// skipShapeDimensions skips the width, height and spatial reference fields of
// a scalable shape.
func skipShapeDimensions(r *fieldReader, name string) {
	for _, f := range []string{"_width", "_height", "_horizontal_mc_spatial_ref", "_vertical_mc_spatial_ref"} {
		r.readBits(13)
		r.marker(name + f)
	}
}

// MarkerLength returns the length in bits of the resync marker for a VOL
// shape, VOP coding type and forward and backward fcodes.
func MarkerLength(shape Shape, ct CodingType, fcodeForward, fcodeBackward int) int {
	if shape == Binary {
		return 17
	}
	switch ct {
	case IVOP:
		return 17
	case BVOP:
		f := fcodeForward
		if fcodeBackward > f {
			f = fcodeBackward
		}
		n := 15 + f
		if n > 17 {
			n = 17
		}
		return n + 1
	default:
		return 15 + fcodeForward + 1
	}
}
