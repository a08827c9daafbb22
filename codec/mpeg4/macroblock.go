/*
DESCRIPTION
  macroblock.go provides parsing of MPEG-4 Part 2 macroblock headers and
  motion vector prediction, used to follow the macroblock layer between
  resync points.

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

// ErrTexture is returned by ParseMacroblocks when a macroblock carries coded
// texture. Block coefficients are decoded by the engine, so the macroblock
// layer cannot be followed past such a macroblock in software.
var ErrTexture = errors.New("macroblock carries coded texture")

// MVGrid holds the luma motion vectors of each macroblock, indexed by
// component, block, row and column. Rows and columns are offset by one so
// that neighbours of edge macroblocks read as zero.
type MVGrid [2][4][MaxMBRows + 1][MaxMBCols + 2]int32

// Reset zeroes the grid.
func (g *MVGrid) Reset() { *g = MVGrid{} }

// Macroblock holds the header fields of the most recently parsed macroblock.
type Macroblock struct {
	NotCoded bool
	MCBPC    int
	Type     int
	CBPC     int
	CBPY     int
	CBP      int
	ACPred   bool
	DQuant   int
}

// Intra returns true if the macroblock is intra coded.
func (m *Macroblock) Intra() bool { return m.Type == mbIntra || m.Type == mbIntraQ }

// ParseMacroblocks parses macroblock headers from br until the next resync
// marker or start code, returning the number of macroblocks parsed. Parsing
// stops with ErrTexture at the first macroblock with coded texture.
func (p *Parser) ParseMacroblocks(br *bits.Reader) (int, error) {
	if !p.HasVOL {
		return 0, ErrNoVOL
	}
	if p.VOL.MBWidth() > MaxMBCols || p.VOL.MBHeight() > MaxMBRows {
		return 0, errors.Wrapf(ErrPictureTooLarge, "%dx%d", p.VOL.Width, p.VOL.Height)
	}

	h := &p.Packet
	h.MBWidth = p.VOL.MBWidth()
	h.MBHeight = p.VOL.MBHeight()
	marker := p.MarkerLength()

	var n int
	for br.More() && br.NextBitsAligned(23) != 0 && br.NextBitsAligned(marker) != 1 {
		if h.MBYPos >= h.MBHeight {
			return n, errors.Wrap(ErrMBNumber, "macroblock beyond end of picture")
		}
		pos := br.Pos()
		err := p.parseMacroblock(br)
		if err != nil {
			return n, err
		}
		n++
		if br.Err() != nil {
			return n, errors.Wrap(br.Err(), "could not parse macroblock")
		}
		if !p.MB.NotCoded && p.MB.Type != mbStuffing && (p.MB.Intra() || p.MB.CBP != 0) {
			return n, ErrTexture
		}
		if br.Pos() == pos {
			return n, errors.New("macroblock parser made no progress")
		}
	}
	return n, nil
}

// parseMacroblock parses a single macroblock header, updating the motion
// vector grid and packet position.
func (p *Parser) parseMacroblock(br *bits.Reader) error {
	vop := &p.VOP
	h := &p.Packet
	mb := &p.MB

	if vop.CodingType == BVOP || p.VOL.Shape == BinaryOnly {
		return nil
	}

	*mb = Macroblock{}
	if vop.CodingType != IVOP {
		mb.NotCoded = br.Read(1) == 1
	}

	x, y := h.MBXPos+1, h.MBYPos+1
	if mb.NotCoded {
		for b := 0; b < 4; b++ {
			p.MV[0][b][y][x] = 0
			p.MV[1][b][y][x] = 0
		}
		h.advance()
		return nil
	}

	var err error
	mb.MCBPC, err = readMCBPC(br, vop.CodingType)
	if err != nil {
		return err
	}
	mb.Type = mb.MCBPC & 7
	mb.CBPC = (mb.MCBPC >> 4) & 3
	if mb.Intra() {
		mb.ACPred = br.Read(1) == 1
	}
	if mb.Type == mbStuffing {
		return nil
	}

	mb.CBPY, err = readCBPY(br, mb.Type)
	if err != nil {
		return err
	}
	mb.CBP = mb.CBPY<<2 | mb.CBPC

	if mb.Type == mbInterQ || mb.Type == mbIntraQ {
		mb.DQuant = int(br.Read(2))
		vop.Quantizer += dquantTab[mb.DQuant]
		switch {
		case vop.Quantizer > 31:
			vop.Quantizer = 31
		case vop.Quantizer < 1:
			vop.Quantizer = 1
		}
	}

	switch mb.Type {
	case mbInter, mbInterQ:
		err = p.setMV(br, -1)
	case mbInter4V:
		for b := 0; b < 4 && err == nil; b++ {
			err = p.setMV(br, b)
		}
	default:
		if vop.CodingType == PVOP {
			for b := 0; b < 4; b++ {
				p.MV[0][b][y][x] = 0
				p.MV[1][b][y][x] = 0
			}
		}
	}
	if err != nil {
		return err
	}

	h.advance()
	return nil
}

// advance moves the macroblock position on in raster order.
func (h *PacketHeader) advance() {
	if h.MBXPos < h.MBWidth-1 {
		h.MBXPos++
		return
	}
	h.MBXPos = 0
	h.MBYPos++
}

// setMV decodes a motion vector for block b, or for the whole macroblock if
// b is -1, and stores it in the grid.
func (p *Parser) setMV(br *bits.Reader, b int) error {
	f := p.VOP.FCodeForward
	if f < 1 {
		f = 1
	}
	scale := 1 << uint(f-1)
	high := 32*scale - 1
	low := -32 * scale
	rng := 64 * scale

	var mvd [2]int
	for c := range mvd {
		data, err := readMVData(br)
		if err != nil {
			return err
		}
		if scale == 1 || data == 0 {
			mvd[c] = data
			continue
		}
		res := int(br.Read(f - 1))
		abs := data
		if abs < 0 {
			abs = -abs
		}
		mvd[c] = (abs-1)*scale + res + 1
		if data < 0 {
			mvd[c] = -mvd[c]
		}
	}

	pb := b
	if b == -1 {
		pb = 0
	}
	h := &p.Packet
	x, y := h.MBXPos+1, h.MBYPos+1
	for c := 0; c < 2; c++ {
		mv := int(p.predictMV(pb, c)) + mvd[c]
		if mv < low {
			mv += rng
		}
		if mv > high {
			mv -= rng
		}
		if b == -1 {
			for i := 0; i < 4; i++ {
				p.MV[c][i][y][x] = int32(mv)
			}
		} else {
			p.MV[c][b][y][x] = int32(mv)
		}
	}
	return nil
}

// predictMV returns the median prediction of component c of the motion
// vector of block b of the current macroblock.
func (p *Parser) predictMV(b, c int) int32 {
	h := &p.Packet
	x, y := h.MBXPos, h.MBYPos
	g := &p.MV[c]

	if y == 0 && (b == 0 || b == 1) {
		switch {
		case x == 0 && b == 0:
			return 0
		case b == 1:
			return g[0][y+1][x+1]
		default:
			return g[1][y+1][x]
		}
	}

	x++
	y++
	var p1, p2, p3 int32
	switch b {
	case 0:
		p1, p2, p3 = g[1][y][x-1], g[2][y-1][x], g[2][y-1][x+1]
	case 1:
		p1, p2, p3 = g[0][y][x], g[3][y-1][x], g[2][y-1][x+1]
	case 2:
		p1, p2, p3 = g[3][y][x-1], g[0][y][x], g[1][y][x]
	default:
		p1, p2, p3 = g[2][y][x], g[0][y][x], g[1][y][x]
	}
	return median(p1, p2, p3)
}

func median(a, b, c int32) int32 {
	return min32(max32(a, b), min32(max32(b, c), max32(a, c)))
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
