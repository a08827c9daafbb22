/*
DESCRIPTION
  decoder_test.go provides testing for the decoder lifecycle and the MPEG-1/2
  and MPEG-4 engine sequencers against the simulated engine.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package decoder

import (
	"testing"

	"github.com/ausocean/cedar/codec/mpeg12"
	"github.com/ausocean/cedar/codec/mpeg4"
	"github.com/ausocean/cedar/device"
	"github.com/ausocean/cedar/device/regs"
	"github.com/ausocean/cedar/device/sim"
	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

// bitWriter builds MSB first bitstreams for test fixtures.
type bitWriter struct {
	buf  []byte
	nbit int
}

// put appends the n least significant bits of v.
func (w *bitWriter) put(v uint32, n int) *bitWriter {
	for i := n - 1; i >= 0; i-- {
		if w.nbit%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 == 1 {
			w.buf[len(w.buf)-1] |= 0x80 >> uint(w.nbit%8)
		}
		w.nbit++
	}
	return w
}

func (w *bitWriter) marker() *bitWriter { return w.put(1, 1) }

// stuff byte aligns with MPEG-4 stuffing, a zero followed by ones.
func (w *bitWriter) stuff() *bitWriter {
	w.put(0, 1)
	for w.nbit%8 != 0 {
		w.put(1, 1)
	}
	return w
}

// startCode stuffs and appends a start code prefix and value.
func (w *bitWriter) startCode(v byte) *bitWriter {
	if w.nbit%8 != 0 {
		w.stuff()
	}
	return w.put(0x000001, 24).put(uint32(v), 8)
}

// cifStream returns an MPEG-4 stream holding a 352x288 VOL followed by an
// I-VOP with quantiser 7 split into two video packets, the second starting
// at macroblock 200. The VOP header ends at bit 163 and the second packet's
// resync marker starts at bit 184 of the 240 bit stream.
func cifStream(withVOL bool) []byte {
	w := &bitWriter{}
	if withVOL {
		w.startCode(0x20)
		w.put(0, 1) // random_accessible_vol
		w.put(1, 8) // video_object_type_indication
		w.put(0, 1) // is_object_layer_identifier
		w.put(1, 4) // aspect_ratio_info
		w.put(0, 1) // vol_control_parameters
		w.put(0, 2) // video_object_layer_shape
		w.marker()
		w.put(30, 16) // vop_time_increment_resolution
		w.marker()
		w.put(0, 1) // fixed_vop_rate
		w.marker()
		w.put(352, 13)
		w.marker()
		w.put(288, 13)
		w.marker()
		w.put(0, 1) // interlaced
		w.put(1, 1) // obmc_disable
		w.put(0, 1) // sprite_enable
		w.put(0, 1) // not_8_bit
		w.put(0, 1) // quant_type
		w.put(1, 1) // complexity_estimation_disable
		w.put(0, 1) // resync_marker_disable
		w.put(0, 1) // data_partitioned
		w.put(0, 1) // scalability
	}

	w.startCode(mpeg4.VOPStartCode)
	w.put(0, 2) // vop_coding_type
	w.put(0, 1) // modulo_time_base
	w.marker()
	w.put(3, 5) // vop_time_increment
	w.marker()
	w.put(1, 1) // vop_coded
	w.put(0, 3) // intra_dc_vlc_thr
	w.put(7, 5) // vop_quant
	w.put(0xffff, 16)
	w.stuff()

	w.put(1, 17)  // resync_marker
	w.put(200, 9) // macroblock_number
	w.put(0, 5)   // quant_scale
	w.put(0, 1)   // header_extension_code
	w.put(0xa55a, 16)
	w.stuff()
	return w.buf
}

type fixture struct {
	eng   *sim.Engine
	alloc *sim.Allocator
	obs   *Counter
	dec   *Decoder
	out   *Surface
}

func newFixture(t *testing.T, version uint32, p Profile, w, h int) *fixture {
	log := (*logging.TestLogger)(t)
	f := &fixture{eng: sim.New(version, log), alloc: sim.NewAllocator(0), obs: &Counter{}}
	var err error
	f.dec, err = New(f.eng, f.alloc, log, p, w, h, 2, BitstreamSize(4096), WithObserver(f.obs))
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	f.out, err = NewSurface(f.alloc, w, h)
	if err != nil {
		t.Fatalf("could not create surface: %v", err)
	}
	f.eng.ClearOps()
	return f
}

func vals(ops []sim.Op) []uint32 {
	var v []uint32
	for _, o := range ops {
		v = append(v, o.Val)
	}
	return v
}

// TestMPEG4Resync checks that a picture is decoded in two runs when the
// engine stops at a video packet boundary.
func TestMPEG4Resync(t *testing.T) {
	f := newFixture(t, sim.DefaultVersion, ProfileMPEG4PartASP, 352, 288)
	calls := 0
	f.eng.SetWait(func(b regs.Bus) error {
		calls++
		if calls == 1 {
			b.Write(regs.MPEGVLDOffset, 184)
			return nil
		}
		return sim.Complete(b)
	})

	err := f.dec.Render(f.out, &MPEG4Picture{}, cifStream(true))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if !f.out.Decoded || f.out.Format != FormatNV12 {
		t.Errorf("unexpected surface state: decoded %v, format %v", f.out.Decoded, f.out.Format)
	}

	tests := []struct {
		reg  regs.Reg
		want []uint32
	}{
		{reg: regs.MPEGMBA, want: []uint32{0, 0, 0x0209}},
		{reg: regs.MPEGTrigger, want: []uint32{0x8400c80d, 0x8400c40d}},
		{reg: regs.MPEGVLDOffset, want: []uint32{163, 216}},
		{reg: regs.MPEGVLDLen, want: []uint32{96, 32}},
		{reg: regs.MPEGQPInput, want: []uint32{7, 7}},
		{reg: regs.MPEGVOPHdr, want: []uint32{0, 0}},
		{reg: regs.MPEGCtrl, want: []uint32{0x80086118, 0x8008617c, 0x8008617c}},
		{reg: regs.MPEGSize, want: []uint32{0x00161612}},
		{reg: regs.MPEGFrameSize, want: []uint32{0x01600120}},
		{reg: regs.MPEGVLDAddr, want: []uint32{0x70000004, 0x70000004}},
		{reg: regs.OutputFormat, want: []uint32{regs.FormatNV12 | regs.ExtraFormatNV12}},
		{reg: regs.OutputStride, want: []uint32{0x00b00160}},
		{reg: regs.MPEGBackLuma, want: []uint32{0}},
	}
	for _, test := range tests {
		got := vals(f.eng.Writes(test.reg))
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("unexpected %s writes (-want +got):\n%s", test.reg, diff)
		}
	}

	if n := len(f.eng.Writes(regs.MPEGIQMinInput)); n != 128 {
		t.Errorf("unexpected number of quantiser writes: %d", n)
	}
	if n := f.eng.Count(sim.OpWait); n != 2 {
		t.Errorf("unexpected number of waits: %d", n)
	}
	if f.eng.Count(sim.OpAcquire) != 1 || f.eng.Count(sim.OpRelease) != 1 {
		t.Errorf("unbalanced acquire and release")
	}
	if ctrl := f.eng.Reg(regs.Ctrl) & 0xf; ctrl != regs.EngineNone {
		t.Errorf("engine left selected: %d", ctrl)
	}

	s := f.obs.Stats()
	if s.Pictures != 1 || s.Resyncs != 1 || s.Errors != 0 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

// TestMPEG4Timeout checks that a timeout resets the engine once, fails only
// the picture concerned, and leaves the decoder usable.
func TestMPEG4Timeout(t *testing.T) {
	f := newFixture(t, sim.DefaultVersion, ProfileMPEG4PartSP, 352, 288)
	f.eng.SetWait(sim.Timeout)

	err := f.dec.Render(f.out, &MPEG4Picture{}, cifStream(true))
	if !errors.Is(err, device.ErrTimeout) {
		t.Fatalf("did not get expected error, got: %v", err)
	}
	if StatusOf(err) != StatusError {
		t.Errorf("unexpected status: %v", StatusOf(err))
	}
	if n := f.eng.Count(sim.OpReset); n != 1 {
		t.Errorf("unexpected number of resets: got %d, want 1", n)
	}
	if f.out.Decoded {
		t.Error("surface marked decoded after timeout")
	}
	if f.eng.Count(sim.OpRelease) != 1 {
		t.Error("engine not released after timeout")
	}

	f.eng.SetWait(sim.Complete)
	f.eng.ClearOps()
	err = f.dec.Render(f.out, &MPEG4Picture{}, cifStream(false))
	if err != nil {
		t.Fatalf("did not expect error after recovery: %v", err)
	}
	if !f.out.Decoded {
		t.Error("surface not decoded after recovery")
	}
	if n := f.eng.Count(sim.OpReset); n != 0 {
		t.Errorf("unexpected reset after recovery: %d", n)
	}

	s := f.obs.Stats()
	if s.Pictures != 2 || s.Timeouts != 1 || s.Errors != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

// TestMPEG4NoVOL checks that a VOP without a preceding VOL fails before the
// engine is touched.
func TestMPEG4NoVOL(t *testing.T) {
	f := newFixture(t, sim.DefaultVersion, ProfileDivX5HomeTheater, 352, 288)
	err := f.dec.Render(f.out, &MPEG4Picture{}, cifStream(false))
	if !errors.Is(err, mpeg4.ErrNoVOL) {
		t.Errorf("did not get expected error, got: %v", err)
	}
	if n := len(f.eng.Ops()); n != 0 {
		t.Errorf("engine touched: %v", f.eng.Ops())
	}
}

func TestMPEG12(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x01, 0x00, 0x12, 0x34, 0x56, 0x78, // Picture header.
		0x00, 0x00, 0x01, 0x01, 0xaa, 0xbb, // Slice.
	}
	pic := &MPEG12Picture{
		PictureInfo: mpeg12.PictureInfo{
			CodingType:        mpeg12.IPicture,
			FCode:             [2][2]uint8{{15, 15}, {15, 15}},
			Structure:         mpeg12.Frame,
			FramePredFrameDCT: true,
		},
	}
	pic.IntraQuantMatrix[1] = 16

	tests := []struct {
		name       string
		version    uint32
		profile    Profile
		wantCtrl   uint32
		wantHdr    uint32
		wantTrig   uint32
		wantFormat Format
		wantExtra  int
	}{
		{
			name:       "MPEG-2 NV12",
			version:    0x1680,
			profile:    ProfileMPEG2Main,
			wantCtrl:   0x80000138,
			wantHdr:    0x1ffff340,
			wantTrig:   0x8200000f,
			wantFormat: FormatNV12,
			wantExtra:  1,
		},
		{
			name:       "MPEG-1 tiled",
			version:    0x1663,
			profile:    ProfileMPEG1,
			wantCtrl:   0x800001b8,
			wantHdr:    0x1ffff3c0 | 0x340,
			wantTrig:   0x8100000f,
			wantFormat: FormatTiled,
		},
	}

	for _, test := range tests {
		f := newFixture(t, test.version, test.profile, 720, 576)
		err := f.dec.Render(f.out, pic, data[:8], data[8:])
		if err != nil {
			t.Errorf("did not expect error for test %q: %v", test.name, err)
			continue
		}
		if !f.out.Decoded || f.out.Format != test.wantFormat {
			t.Errorf("unexpected surface for test %q: %+v", test.name, f.out)
		}

		want := map[regs.Reg][]uint32{
			regs.MPEGCtrl:          {test.wantCtrl},
			regs.MPEGPicHdr:        {test.wantHdr},
			regs.MPEGTrigger:       {test.wantTrig},
			regs.MPEGVLDOffset:     {64},
			regs.MPEGVLDLen:        {48},
			regs.MPEGVLDEnd:        {sim.BaseAddr + 4095},
			regs.MPEGSize:          {0x2d24},
			regs.MPEGFrameSize:     {0x02d00240},
			regs.MPEGStatus:        {regs.StatusClear},
			regs.MPEGRecLuma:       {f.out.Luma.Phys()},
			regs.MPEGRotChroma:     {f.out.Chroma.Phys()},
			regs.ExtraOutFmtOffset: nil,
		}
		if test.wantExtra > 0 {
			want[regs.ExtraOutFmtOffset] = []uint32{regs.ExtraOutFmtEnable}
		}
		for r, w := range want {
			if diff := cmp.Diff(w, vals(f.eng.Writes(r))); diff != "" {
				t.Errorf("unexpected %s writes for test %q (-want +got):\n%s", r, test.name, diff)
			}
		}

		iq := vals(f.eng.Writes(regs.MPEGIQMinInput))
		if len(iq) != 128 || iq[1] != (64+1)<<8|16 || iq[64] != 0 {
			t.Errorf("unexpected quantiser writes for test %q: %d writes", test.name, len(iq))
		}
	}
}

func TestRenderErrors(t *testing.T) {
	f := newFixture(t, sim.DefaultVersion, ProfileMPEG2Simple, 64, 64)

	err := f.dec.Render(f.out, &MPEG4Picture{}, []byte{0, 0, 1, 1})
	if !errors.Is(err, ErrPictureInfo) {
		t.Errorf("did not get expected error for mismatched info, got: %v", err)
	}
	err = f.dec.Render(f.out, &MPEG12Picture{}, make([]byte, 4097))
	if !errors.Is(err, ErrBitstreamSize) {
		t.Errorf("did not get expected error for oversized bitstream, got: %v", err)
	}
	err = f.dec.Render(nil, &MPEG12Picture{}, []byte{0})
	if err == nil {
		t.Error("expected error for missing surface")
	}
	if n := len(f.eng.Ops()); n != 0 {
		t.Errorf("engine touched by failed renders: %v", f.eng.Ops())
	}

	if err := f.dec.Close(); err != nil {
		t.Errorf("did not expect error from Close: %v", err)
	}
	if err := f.dec.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("did not get expected error from second Close, got: %v", err)
	}
	if err := f.dec.Render(f.out, &MPEG12Picture{}); !errors.Is(err, ErrClosed) {
		t.Errorf("did not get expected error from Render after Close, got: %v", err)
	}
	if err := f.out.Free(f.alloc); err != nil {
		t.Errorf("did not expect error freeing surface: %v", err)
	}
	if n := f.alloc.Live(); n != 0 {
		t.Errorf("buffers leaked: %d", n)
	}
}

func TestNew(t *testing.T) {
	// Bitstream, macroblock header and DC/AC buffers fit; NCF does not.
	const limit = 4096 + 18*2048 + 22*18*2

	tests := []struct {
		name       string
		profile    Profile
		maxRefs    int
		limit      int
		wantStatus Status
	}{
		{name: "MPEG-4", profile: ProfileMPEG4PartASP, maxRefs: 2, wantStatus: StatusOK},
		{name: "DivX4", profile: ProfileDivX4Mobile, maxRefs: 16, wantStatus: StatusOK},
		{name: "too many references", profile: ProfileMPEG1, maxRefs: 17, wantStatus: StatusError},
		{name: "H.264", profile: ProfileH264High, maxRefs: 2, wantStatus: StatusInvalidDecoderProfile},
		{name: "HEVC", profile: ProfileHEVCMain, maxRefs: 2, wantStatus: StatusInvalidDecoderProfile},
		{name: "DivX3", profile: ProfileDivX3Mobile, maxRefs: 2, wantStatus: StatusInvalidDecoderProfile},
		{name: "no memory", profile: ProfileMPEG4PartSP, maxRefs: 2, limit: limit, wantStatus: StatusResources},
		{name: "no bitstream memory", profile: ProfileMPEG2Main, maxRefs: 2, limit: 100, wantStatus: StatusResources},
	}

	for _, test := range tests {
		log := (*logging.TestLogger)(t)
		eng := sim.New(sim.DefaultVersion, log)
		alloc := sim.NewAllocator(test.limit)
		d, err := New(eng, alloc, log, test.profile, 352, 288, test.maxRefs, BitstreamSize(4096))
		if got := StatusOf(err); got != test.wantStatus {
			t.Errorf("unexpected status for test %q: got %v, want %v (%v)", test.name, got, test.wantStatus, err)
			continue
		}
		if err == nil {
			p, w, h := d.Parameters()
			if p != test.profile || w != 352 || h != 288 {
				t.Errorf("unexpected parameters for test %q: %v %dx%d", test.name, p, w, h)
			}
			if err := d.Close(); err != nil {
				t.Errorf("did not expect error from Close for test %q: %v", test.name, err)
			}
		}

		// Nothing is left allocated on success after Close, or on failure.
		if n := alloc.Live(); n != 0 {
			t.Errorf("buffers leaked for test %q: %d", test.name, n)
		}
		if err := eng.Allocate(device.KindMPEG); err != nil {
			t.Errorf("engine not freed for test %q: %v", test.name, err)
		}
	}
}

func TestMPEG4Fields(t *testing.T) {
	tests := []struct {
		name     string
		ct       mpeg4.CodingType
		last     mpeg4.CodingType
		pic      MPEG4Picture
		version  uint32
		wantCtrl uint32
		wantHdr  uint32
	}{
		{
			name:     "P quarter sample old engine",
			ct:       mpeg4.PVOP,
			pic:      MPEG4Picture{PictureInfo: mpeg4.PictureInfo{QuarterSample: true, FCodeForward: 2, FCodeBackward: 3}},
			version:  0x1663,
			wantCtrl: 0x80086118 | 1<<7 | 1<<12 | 2<<22 | 1<<24 | 2<<20,
			wantHdr:  1<<18 | 1<<23 | 2<<3,
		},
		{
			name:     "B after S",
			ct:       mpeg4.BVOP,
			last:     mpeg4.SVOP,
			pic:      MPEG4Picture{PictureInfo: mpeg4.PictureInfo{QuarterSample: true, FCodeForward: 2, FCodeBackward: 3}},
			version:  0x1680,
			wantCtrl: 0x80086118 | 1<<22 | 2<<24 | 1<<20,
			wantHdr:  2<<18 | 1<<23 | 2<<3 | 3 | 3<<28,
		},
		{
			name:     "B after P short header",
			ct:       mpeg4.BVOP,
			last:     mpeg4.PVOP,
			pic:      MPEG4Picture{PictureInfo: mpeg4.PictureInfo{ShortVideoHeader: true, FCodeForward: 1, FCodeBackward: 1}},
			version:  0x1680,
			wantCtrl: 0x80086118,
			wantHdr:  2<<18 | 1<<3 | 1 | 1<<28 | 1<<31 | 1<<16,
		},
		{
			name:     "I ignores fcodes",
			ct:       mpeg4.IVOP,
			pic:      MPEG4Picture{PictureInfo: mpeg4.PictureInfo{FCodeForward: 7, FCodeBackward: 7}},
			version:  0x1680,
			wantCtrl: 0x80086118,
			wantHdr:  0,
		},
	}

	for _, test := range tests {
		c := &mpeg4Codec{p: mpeg4.NewParser(nil, false)}
		c.p.VOP.CodingType = test.ct
		c.p.VOP.LastCodingType = test.last
		if got := c.control(&test.pic, test.version).Word(); got != test.wantCtrl {
			t.Errorf("unexpected control for test %q: got %#08x, want %#08x", test.name, got, test.wantCtrl)
		}
		if got := c.vopHeader(&test.pic).Word(); got != test.wantHdr {
			t.Errorf("unexpected VOP header for test %q: got %#08x, want %#08x", test.name, got, test.wantHdr)
		}
	}
}
