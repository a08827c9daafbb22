/*
DESCRIPTION
  parser.go provides the Parser type, which holds MPEG-4 Part 2 header state
  across pictures and exposes the header, video packet and macroblock layer
  parsers.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mpeg4 provides parsing of MPEG-4 Part 2 visual headers and the
// parameters derived from them that are needed to drive a hardware decoder.
package mpeg4

import (
	"github.com/ausocean/cedar/codec/bits"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Log prefix.
const pkg = "mpeg4: "

// Parser holds the state of an MPEG-4 Part 2 elementary stream. The VOL
// persists until replaced by a new VOL header, and the VOP holds the most
// recent picture header.
type Parser struct {
	VOL    VOL
	HasVOL bool
	VOP    VOP
	Packet PacketHeader
	MB     Macroblock
	MV     *MVGrid

	clock     clock
	lastCoded CodingType // Type of the last coded VOP.
	strict    bool
	log    logging.Logger
}

// NewParser returns a new Parser. If strict is true marker bit errors fail
// parsing, otherwise they are logged to log, which may be nil.
func NewParser(log logging.Logger, strict bool) *Parser {
	return &Parser{MV: &MVGrid{}, strict: strict, log: log}
}

// ParseVOL parses a video object layer header from br, positioned after the
// start code value, and makes it the current VOL. The current VOL is left
// unchanged if parsing fails.
func (p *Parser) ParseVOL(br *bits.Reader) error {
	v, err := p.parseVOL(br)
	if err != nil {
		return err
	}
	p.VOL = *v
	p.HasVOL = true
	if p.log != nil {
		p.log.Debug(pkg+"parsed video object layer",
			"width", v.Width,
			"height", v.Height,
			"sprite", v.Sprite,
			"quarterSample", v.QuarterSample,
			"resyncMarkerDisable", v.ResyncMarkerDisable,
		)
	}
	return nil
}

// ParseVOP parses a VOP header from br, positioned after the start code
// value, and resets the video packet and motion vector state for the new
// picture. It returns false if the VOP is not coded. Uncoded VOPs do not
// enter the coding type chain. A VOL must have been parsed first.
func (p *Parser) ParseVOP(br *bits.Reader) (bool, error) {
	if !p.HasVOL {
		return false, ErrNoVOL
	}
	coded, err := p.parseVOP(newFieldReader(br, p.strict, p.log))
	if err != nil {
		return false, err
	}
	if coded {
		p.lastCoded = p.VOP.CodingType
	}
	p.clock.update(p.VOP.CodingType, p.VOP.ModuloTimeBase, p.VOP.TimeIncrement, p.VOL.TimeIncrementResolution)
	p.ResetPacket()
	p.MV.Reset()
	return coded, nil
}

// ResetPacket resets the video packet state to the start of the picture.
func (p *Parser) ResetPacket() {
	p.Packet = PacketHeader{
		MBWidth:   p.VOL.MBWidth(),
		MBHeight:  p.VOL.MBHeight(),
		CurrMBNum: p.VOL.MBCount(),
	}
}

// MarkerLength returns the resync marker length for the current VOP.
func (p *Parser) MarkerLength() int {
	return MarkerLength(p.VOL.Shape, p.VOP.CodingType, p.VOP.FCodeForward, p.VOP.FCodeBackward)
}

// Clone returns a copy of p for lookahead parsing. The copy shares the motion
// vector grid with p.
func (p *Parser) Clone() *Parser {
	c := *p
	return &c
}

// NextPacketMB returns the macroblock address of the first video packet
// following the position of br, or the macroblock count of the picture if
// there is none or resync markers are disabled. Neither br nor p are
// modified.
func (p *Parser) NextPacketMB(br *bits.Reader) int {
	total := p.VOL.MBCount()
	if p.VOL.ResyncMarkerDisable {
		return total
	}
	c := p.Clone()
	r := *br
	if !r.FindResyncCode(c.MarkerLength()) {
		return total
	}
	err := c.ParsePacketHeader(&r)
	if err != nil {
		if p.log != nil && !errors.Is(err, ErrMBNumber) {
			p.log.Debug(pkg+"lookahead packet header failed", "error", err)
		}
		return total
	}
	return c.Packet.MBNum
}
