/*
DESCRIPTION
  packet_test.go provides testing for functionality defined in packet.go and
  the lookahead in parser.go.

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
	"testing"

	"github.com/ausocean/cedar/codec/bits"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// cifIParser returns a parser for a CIF I-VOP with quantiser 7.
func cifIParser(t *testing.T) *Parser {
	p := NewParser((*logging.TestLogger)(t), true)
	p.VOL = VOL{Width: 352, Height: 288, QuantPrecision: 5, TimeIncrementResolution: 30, TimeIncrementBits: 5}
	p.HasVOL = true
	p.VOP = VOP{CodingType: IVOP, Quant: 7, Quantizer: 7, FCodeForward: 1, FCodeBackward: 1}
	p.ResetPacket()
	return p
}

func TestParsePacketHeader(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantErr   error
		wantNum   int
		wantX     int
		wantY     int
		wantQuant int
		wantExt   bool
	}{
		{
			name: "CIF macroblock 50",
			in: "0000 0000 0000 0000 1" + // resync_marker
				"0 0011 0010" + // macroblock_number
				"00000" +       // quant_scale
				"0",            // header_extension_code
			wantNum:   50,
			wantX:     6,
			wantY:     2,
			wantQuant: 7,
		},
		{
			name: "new quantiser",
			in: "0000 0000 0000 0000 1" +
				"1 1000 1011" + // macroblock_number, 395
				"01100" +       // quant_scale
				"0",
			wantNum:   395,
			wantX:     21,
			wantY:     17,
			wantQuant: 12,
		},
		{
			name: "header extension",
			in: "0000 0000 0000 0000 1" +
				"0 0001 0110" + // macroblock_number, 22
				"00000" +
				"1" +     // header_extension_code
				"10" +    // modulo_time_base
				"1" +     // marker_bit
				"00011" + // vop_time_increment
				"1" +     // marker_bit
				"00" +    // vop_coding_type
				"010",    // intra_dc_vlc_thr
			wantNum:   22,
			wantX:     0,
			wantY:     1,
			wantQuant: 7,
			wantExt:   true,
		},
		{
			name: "macroblock number out of range",
			in: "0000 0000 0000 0000 1" +
				"1 1001 0000" + // macroblock_number, 400
				"00000" +
				"0",
			wantErr: ErrMBNumber,
		},
	}

	for _, test := range tests {
		b, err := bits.BinToSlice(test.in)
		if err != nil {
			t.Fatalf("could not convert binary string for test %q: %v", test.name, err)
		}
		p := cifIParser(t)
		err = p.ParsePacketHeader(bits.NewReader(b))
		if !errors.Is(err, test.wantErr) {
			t.Errorf("unexpected error for test %q: got %v, want %v", test.name, err, test.wantErr)
			continue
		}
		if test.wantErr != nil {
			continue
		}
		h := p.Packet
		if h.MBNum != test.wantNum || h.MBX != test.wantX || h.MBY != test.wantY {
			t.Errorf("unexpected position for test %q: got %d (%d,%d), want %d (%d,%d)",
				test.name, h.MBNum, h.MBX, h.MBY, test.wantNum, test.wantX, test.wantY)
		}
		if h.MBWidth != 22 || h.MBHeight != 18 {
			t.Errorf("unexpected dimensions for test %q: %dx%d", test.name, h.MBWidth, h.MBHeight)
		}
		if p.VOP.Quant != test.wantQuant {
			t.Errorf("unexpected quantiser for test %q: got %d, want %d", test.name, p.VOP.Quant, test.wantQuant)
		}
		if h.HeaderExtension != test.wantExt {
			t.Errorf("unexpected header extension for test %q: got %v", test.name, h.HeaderExtension)
		}
	}
}

func TestPacketHeaderMBA(t *testing.T) {
	h := PacketHeader{MBX: 6, MBY: 2}
	if got := h.MBA(); got != 0x0602 {
		t.Errorf("unexpected MBA: got %#x, want %#x", got, 0x0602)
	}
}

// TestNextPacketMB checks lookahead to the following video packet.
func TestNextPacketMB(t *testing.T) {
	b, err := bits.BinToSlice(
		"1010 1010 1111 1111" + // Macroblock data.
			"0000 0000 0000 0000 1" +
			"0 0011 0010" +
			"00000" +
			"0",
	)
	if err != nil {
		t.Fatalf("could not convert binary string: %v", err)
	}

	p := cifIParser(t)
	br := bits.NewReader(b)
	br.Skip(3)
	if got := p.NextPacketMB(br); got != 50 {
		t.Errorf("unexpected next macroblock: got %d, want 50", got)
	}
	if br.Pos() != 3 {
		t.Errorf("lookahead moved reader to %d", br.Pos())
	}
	if p.Packet.MBNum != 0 || p.VOP.Quant != 7 {
		t.Errorf("lookahead modified parser state: %+v", p.Packet)
	}

	p.VOL.ResyncMarkerDisable = true
	if got := p.NextPacketMB(br); got != 396 {
		t.Errorf("unexpected next macroblock with resync disabled: got %d, want 396", got)
	}

	p = cifIParser(t)
	if got := p.NextPacketMB(bits.NewReader([]byte{0xff, 0xff})); got != 396 {
		t.Errorf("unexpected next macroblock without packet: got %d, want 396", got)
	}
}
