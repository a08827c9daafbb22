/*
DESCRIPTION
  picture_test.go provides testing for functionality defined in picture.go.

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
)

// timedVOP returns a coded VOP of type ct at modulo time base modulo and
// time increment inc for the CIF VOL of cifParser.
func timedVOP(ct CodingType, modulo int, inc uint32) []byte {
	b := (&builder{}).put(uint32(ct), 2)
	for i := 0; i < modulo; i++ {
		b.put(1, 1)
	}
	b.put(0, 1).marker().put(inc, 5).marker().put(1, 1)
	if ct == PVOP {
		b.put(0, 1) // vop_rounding_type
	}
	b.put(0, 3).put(4, 5) // intra_dc_vlc_thr, vop_quant
	if ct != IVOP {
		b.put(2, 3)
	}
	if ct == BVOP {
		b.put(3, 3)
	}
	return b.bytes()
}

// TestPictureInfoTiming follows an I P B P sequence and checks the temporal
// distances reported for the B picture.
func TestPictureInfoTiming(t *testing.T) {
	p := cifParser(t)
	tests := []struct {
		ct      CodingType
		modulo  int
		inc     uint32
		wantTRD int32
		wantTRB int32
	}{
		{ct: IVOP, inc: 0},
		{ct: PVOP, inc: 6},
		{ct: BVOP, inc: 2, wantTRD: 6, wantTRB: 2},
		{ct: BVOP, inc: 4, wantTRD: 6, wantTRB: 4},
		{ct: PVOP, modulo: 1, inc: 0},
		{ct: BVOP, inc: 25, wantTRD: 24, wantTRB: 19},
	}

	for i, test := range tests {
		coded, err := p.ParseVOP(bits.NewReader(timedVOP(test.ct, test.modulo, test.inc)))
		if err != nil || !coded {
			t.Fatalf("could not parse picture %d: coded %v, err %v", i, coded, err)
		}
		info := p.PictureInfo()
		if info.CodingType != test.ct {
			t.Errorf("unexpected coding type for picture %d: got %v, want %v", i, info.CodingType, test.ct)
		}
		want := [2]int32{test.wantTRD, test.wantTRD}
		if info.TRD != want {
			t.Errorf("unexpected TRD for picture %d: got %v, want %v", i, info.TRD, want)
		}
		want = [2]int32{test.wantTRB, test.wantTRB}
		if info.TRB != want {
			t.Errorf("unexpected TRB for picture %d: got %v, want %v", i, info.TRB, want)
		}
	}
}

func TestPictureInfoFields(t *testing.T) {
	p := cifParser(t)
	_, err := p.ParseVOP(bits.NewReader(timedVOP(BVOP, 0, 1)))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	info := p.PictureInfo()

	if info.FCodeForward != 2 || info.FCodeBackward != 3 {
		t.Errorf("unexpected fcodes: got %d/%d, want 2/3", info.FCodeForward, info.FCodeBackward)
	}
	if !info.QuantType || info.ResyncMarkerDisable || info.Interlaced {
		t.Errorf("unexpected layer flags: %+v", info)
	}
	if info.TimeIncrementResolution != 30 {
		t.Errorf("unexpected time increment resolution: %d", info.TimeIncrementResolution)
	}

	// The loaded intra matrix is 10 followed by 20s.
	if info.IntraQuantMatrix[0] != 10 || info.IntraQuantMatrix[1] != 20 || info.IntraQuantMatrix[63] != 20 {
		t.Errorf("unexpected intra matrix: %v", info.IntraQuantMatrix)
	}
	for i, want := range map[int]uint8{0: 16, 1: 17, 2: 17, 3: 18, 63: 33} {
		if got := info.NonIntraQuantMatrix[i]; got != want {
			t.Errorf("unexpected non-intra matrix entry %d: got %d, want %d", i, got, want)
		}
	}
}
