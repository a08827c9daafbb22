/*
DESCRIPTION
  vdp_test.go provides testing for the Device API against the simulated
  engine.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vdp

import (
	"testing"

	"github.com/ausocean/cedar/codec/mpeg12"
	"github.com/ausocean/cedar/config"
	"github.com/ausocean/cedar/decoder"
	"github.com/ausocean/cedar/device/regs"
	"github.com/ausocean/cedar/device/sim"
	"github.com/ausocean/cedar/handle"
	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"
)

func newDevice(t *testing.T, version uint32, limit int) (*Device, *sim.Engine, *sim.Allocator) {
	eng := sim.New(version, (*logging.TestLogger)(t))
	alloc := sim.NewAllocator(limit)
	cfg := config.Config{Logger: (*logging.TestLogger)(t), BitstreamBufferSize: 4096}
	return NewDevice(cfg, eng, alloc, nil), eng, alloc
}

// slice is an MPEG-2 access unit whose slice starts at byte 4.
var slice = []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x01, 0xff}

func TestRender(t *testing.T) {
	d, eng, alloc := newDevice(t, sim.DefaultVersion, 0)
	dec, err := d.CreateDecoder(decoder.ProfileMPEG2Main, 176, 144, 2)
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	var surfaces [3]handle.Handle
	for i := range surfaces {
		surfaces[i], err = d.CreateSurface(176, 144)
		if err != nil {
			t.Fatalf("could not create surface %d: %v", i, err)
		}
	}
	eng.ClearOps()

	info := &MPEG12Info{
		PictureInfo: mpeg12.PictureInfo{CodingType: mpeg12.BPicture, Structure: mpeg12.Frame},
		Forward:     surfaces[0],
		Backward:    surfaces[1],
	}
	err = d.Render(dec, surfaces[2], info, slice)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	f, decoded, err := d.SurfaceState(surfaces[2])
	if err != nil || !decoded || f != decoder.FormatNV12 {
		t.Errorf("unexpected surface state: %v, %v, %v", f, decoded, err)
	}
	luma, chroma, err := d.SurfaceData(surfaces[2])
	if err != nil || len(luma) != 192*160 || len(chroma) != 192*80 {
		t.Errorf("unexpected surface data: %d, %d, %v", len(luma), len(chroma), err)
	}

	// References are programmed with the buffers of the referenced surfaces.
	ref := func(h handle.Handle) uint32 {
		s, err := d.surface(h)
		if err != nil {
			t.Fatalf("could not get surface: %v", err)
		}
		defer d.handles.Release(h)
		return s.Luma.Phys()
	}
	want := []uint32{ref(surfaces[0]), ref(surfaces[1])}
	var got []uint32
	for _, o := range eng.Writes(regs.MPEGFwdLuma, regs.MPEGBackLuma) {
		got = append(got, o.Val)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected reference writes (-want +got):\n%s", diff)
	}

	p, w, h, err := d.DecoderParameters(dec)
	if err != nil || p != decoder.ProfileMPEG2Main || w != 176 || h != 144 {
		t.Errorf("unexpected parameters: %v %dx%d, %v", p, w, h, err)
	}

	if err := d.DestroyDecoder(dec); err != nil {
		t.Errorf("did not expect error destroying decoder: %v", err)
	}
	for _, s := range surfaces {
		if err := d.DestroySurface(s); err != nil {
			t.Errorf("did not expect error destroying surface: %v", err)
		}
	}
	if n := alloc.Live(); n != 0 {
		t.Errorf("buffers leaked: %d", n)
	}
	if err := d.Close(); err != nil {
		t.Errorf("did not expect error from Close: %v", err)
	}
}

func TestInvalidHandles(t *testing.T) {
	d, eng, _ := newDevice(t, sim.DefaultVersion, 0)
	dec, err := d.CreateDecoder(decoder.ProfileMPEG1, 176, 144, 2)
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	out, err := d.CreateSurface(176, 144)
	if err != nil {
		t.Fatalf("could not create surface: %v", err)
	}
	eng.ClearOps()

	tests := []struct {
		name   string
		dec    handle.Handle
		target handle.Handle
		fwd    handle.Handle
	}{
		{name: "unknown decoder", dec: 1234, target: out},
		{name: "surface as decoder", dec: out, target: out},
		{name: "decoder as target", dec: dec, target: dec},
		{name: "unknown reference", dec: dec, target: out, fwd: 1234},
	}
	for _, test := range tests {
		err := d.Render(test.dec, test.target, &MPEG12Info{Forward: test.fwd}, slice)
		if got := decoder.StatusOf(err); got != decoder.StatusInvalidHandle {
			t.Errorf("unexpected status for test %q: got %v (%v)", test.name, got, err)
		}
	}
	if n := len(eng.Ops()); n != 0 {
		t.Errorf("engine touched with invalid handles: %v", eng.Ops())
	}

	if err := d.DestroySurface(dec); decoder.StatusOf(err) != decoder.StatusInvalidHandle {
		t.Errorf("unexpected result destroying decoder as surface: %v", err)
	}
	if err := d.DestroyDecoder(out); decoder.StatusOf(err) != decoder.StatusInvalidHandle {
		t.Errorf("unexpected result destroying surface as decoder: %v", err)
	}
	if err := d.DestroyDecoder(dec); err != nil {
		t.Errorf("did not expect error: %v", err)
	}
	if _, _, _, err := d.DecoderParameters(dec); decoder.StatusOf(err) != decoder.StatusInvalidHandle {
		t.Errorf("unexpected result for destroyed decoder: %v", err)
	}
}

func TestCreateDecoderStatus(t *testing.T) {
	tests := []struct {
		name    string
		profile decoder.Profile
		width   int
		maxRefs int
		limit   int
		want    decoder.Status
	}{
		{name: "ok", profile: decoder.ProfileMPEG4PartASP, width: 352, maxRefs: 2, want: decoder.StatusOK},
		{name: "too many references", profile: decoder.ProfileMPEG4PartASP, width: 352, maxRefs: 17, want: decoder.StatusError},
		{name: "too wide", profile: decoder.ProfileMPEG1, width: 4096, maxRefs: 2, want: decoder.StatusError},
		{name: "H.264", profile: decoder.ProfileH264Main, width: 352, maxRefs: 2, want: decoder.StatusInvalidDecoderProfile},
		{name: "no memory", profile: decoder.ProfileMPEG4PartSP, width: 352, maxRefs: 2, limit: 8192, want: decoder.StatusResources},
	}
	for _, test := range tests {
		d, _, alloc := newDevice(t, sim.DefaultVersion, test.limit)
		h, err := d.CreateDecoder(test.profile, test.width, 288, test.maxRefs)
		if got := decoder.StatusOf(err); got != test.want {
			t.Errorf("unexpected status for test %q: got %v, want %v (%v)", test.name, got, test.want, err)
		}
		if err != nil {
			if h != handle.Invalid {
				t.Errorf("got valid handle for failed test %q", test.name)
			}
			if n := alloc.Live(); n != 0 {
				t.Errorf("buffers leaked for test %q: %d", test.name, n)
			}
		}
	}
}

func TestQueryCapabilities(t *testing.T) {
	d, _, _ := newDevice(t, sim.DefaultVersion, 0)
	want := Capabilities{Supported: true, MaxLevel: 16, MaxMacroblocks: 3840 * 2160 / 256, MaxWidth: 3840, MaxHeight: 2160}
	for _, p := range []decoder.Profile{decoder.ProfileMPEG1, decoder.ProfileMPEG2Main, decoder.ProfileMPEG4PartSP, decoder.ProfileDivX5HD1080P} {
		if diff := cmp.Diff(want, d.QueryCapabilities(p)); diff != "" {
			t.Errorf("unexpected capabilities for %v (-want +got):\n%s", p, diff)
		}
	}
	for _, p := range []decoder.Profile{decoder.ProfileH264High, decoder.ProfileHEVCMain, decoder.ProfileDivX3HD720P} {
		if d.QueryCapabilities(p).Supported {
			t.Errorf("%v reported as supported", p)
		}
	}
}
