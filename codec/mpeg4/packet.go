/*
DESCRIPTION
  packet.go provides parsing of the MPEG-4 Part 2 video packet header that
  follows a resync marker, as specified in section 6.2.5.2 of ISO/IEC 14496-2.

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

// PacketHeader holds the position state of the current video packet.
type PacketHeader struct {
	// MBWidth and MBHeight are the picture dimensions in macroblocks.
	MBWidth  int
	MBHeight int

	// MBNum is the macroblock address at the start of the packet and MBX,
	// MBY its column and row.
	MBNum int
	MBX   int
	MBY   int

	// MBXPos and MBYPos track the position of the macroblock layer parser.
	MBXPos int
	MBYPos int

	// CurrMBNum is the macroblock address of the next video packet found by
	// lookahead, or the macroblock count if there is none.
	CurrMBNum int

	HeaderExtension bool
}

// MBA returns the packet start address in the form programmed into the
// engine macroblock address register.
func (h *PacketHeader) MBA() uint32 {
	return uint32(h.MBY) | uint32(h.MBX)<<8
}

// ParsePacketHeader parses a video packet header. The reader must be
// positioned at the start of the resync marker. A macroblock number outside
// the picture yields ErrMBNumber, which ends recovery for the current packet
// without invalidating the picture.
func (p *Parser) ParsePacketHeader(br *bits.Reader) error {
	if !p.HasVOL {
		return ErrNoVOL
	}
	vol := &p.VOL
	vop := &p.VOP
	h := &p.Packet
	r := newFieldReader(br, p.strict, p.log)

	h.MBWidth = vol.MBWidth()
	h.MBHeight = vol.MBHeight()
	total := h.MBWidth * h.MBHeight

	// Resync marker.
	for i := 0; i < 32; i++ {
		if r.readFlag() || r.err() != nil {
			break
		}
	}

	h.HeaderExtension = false
	if vol.Shape != Rectangular {
		h.HeaderExtension = r.readFlag()
	}

	num := int(r.readBits(bitLen(total)))
	if r.err() != nil {
		return errors.Wrap(r.err(), "could not parse video packet header")
	}
	if num >= total {
		return errors.Wrapf(ErrMBNumber, "got %d with %d macroblocks", num, total)
	}
	h.MBNum = num
	h.MBX = num % h.MBWidth
	h.MBY = num / h.MBWidth
	h.MBXPos = h.MBX
	h.MBYPos = h.MBY

	if vol.Shape != BinaryOnly {
		if q := int(r.readBits(vol.QuantPrecision)); q != 0 {
			vop.Quant = q
		}
	}

	if vol.Shape == Rectangular {
		h.HeaderExtension = r.readFlag()
	}
	if !h.HeaderExtension {
		return errors.Wrap(r.err(), "could not parse video packet header")
	}

	for r.readFlag() {
		// modulo_time_base
	}
	r.marker("modulo_time_base")
	r.readBits(vol.TimeIncrementBits)
	r.marker("vop_time_increment")
	ct := CodingType(r.readBits(2))

	if vol.Shape != Rectangular {
		r.readFlag() // change_conv_ratio_disable
		if ct != IVOP {
			r.readFlag() // vop_shape_coding_type
		}
	}

	if vol.Shape == BinaryOnly {
		return errors.Wrap(r.err(), "could not parse video packet header")
	}

	r.readBits(3) // intra_dc_vlc_thr
	if vop.CodingType == SVOP && vol.Sprite == GMCSprite && vol.WarpingPoints > 0 {
		d := readSpriteTrajectory(r, vol.WarpingPoints)
		vop.GMC = SolveGMC(d, vol.WarpingPoints, vol.WarpingAccuracy, int(vol.Width), int(vol.Height))
	}
	if vol.ReducedResolutionVOPEnable && vol.Shape == Rectangular && (ct == PVOP || ct == IVOP) {
		r.readFlag() // vop_reduced_resolution
	}
	if vop.CodingType != IVOP {
		if f := r.readBits(3); f == 0 && r.err() == nil && p.log != nil {
			p.log.Warning(pkg+"video packet header damaged", "fcode", "forward")
		}
	}
	if vop.CodingType == BVOP {
		if f := r.readBits(3); f == 0 && r.err() == nil && p.log != nil {
			p.log.Warning(pkg+"video packet header damaged", "fcode", "backward")
		}
	}
	return errors.Wrap(r.err(), "could not parse video packet header")
}
