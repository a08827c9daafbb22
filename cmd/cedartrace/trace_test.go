/*
DESCRIPTION
  trace_test.go provides testing for the tracer and configuration loading of
  cedartrace.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ausocean/utils/logging"
	"github.com/fsnotify/fsnotify"

	"github.com/ausocean/cedar/codec/codecutil"
	"github.com/ausocean/cedar/config"
	"github.com/ausocean/cedar/decoder"
	"github.com/ausocean/cedar/protocol/rtp"
)

// builder builds MSB first bit strings for test fixtures.
type builder struct {
	buf  []byte
	nbit int
}

func (b *builder) put(v uint32, n int) *builder {
	for i := n - 1; i >= 0; i-- {
		if b.nbit%8 == 0 {
			b.buf = append(b.buf, 0)
		}
		if v>>uint(i)&1 == 1 {
			b.buf[len(b.buf)-1] |= 0x80 >> uint(b.nbit%8)
		}
		b.nbit++
	}
	return b
}

func (b *builder) code(v byte) *builder {
	if b.nbit%8 != 0 {
		b.put(0, 8-b.nbit%8)
	}
	return b.put(1, 24).put(uint32(v), 8)
}

// picture appends an MPEG-1 picture header of coding type ct followed by a
// slice.
func (b *builder) picture(ct uint32) *builder {
	b.code(0x00)
	b.put(0, 10)      // temporal_reference
	b.put(ct, 3)      // picture_coding_type
	b.put(0xffff, 16) // vbv_delay
	if ct == 2 || ct == 3 {
		b.put(0, 1).put(1, 3) // Forward full pel and f_code.
	}
	if ct == 3 {
		b.put(0, 1).put(1, 3) // Backward full pel and f_code.
	}
	b.put(0, 1) // extra_bit_picture
	return b.code(0x01).put(0x123456, 24)
}

// mpeg1Stream returns a 64x48 MPEG-1 stream holding an I, P and B picture.
func mpeg1Stream() []byte {
	b := &builder{}
	b.code(0xb3)
	b.put(64, 12).put(48, 12)
	b.put(1, 4)     // aspect_ratio_information
	b.put(3, 4)     // frame_rate_code
	b.put(1000, 18) // bit_rate_value
	b.put(1, 1)     // marker_bit
	b.put(20, 10)   // vbv_buffer_size_value
	b.put(0, 3)     // Constrained parameters and matrix flags.
	return b.picture(1).picture(2).picture(3).buf
}

// mpeg4Stream returns a 64x48 MPEG-4 stream holding an I-VOP whose first
// macroblock carries texture and a P-VOP of 12 uncoded macroblocks.
func mpeg4Stream() []byte {
	b := &builder{}
	b.code(0x20)
	b.put(0, 1)   // random_accessible_vol
	b.put(1, 8)   // video_object_type_indication
	b.put(0, 1)   // is_object_layer_identifier
	b.put(1, 4)   // aspect_ratio_info
	b.put(0, 1)   // vol_control_parameters
	b.put(0, 2)   // video_object_layer_shape
	b.put(1, 1)   // marker_bit
	b.put(30, 16) // vop_time_increment_resolution
	b.put(1, 1)   // marker_bit
	b.put(0, 1)   // fixed_vop_rate
	b.put(1, 1).put(64, 13).put(1, 1).put(48, 13).put(1, 1)
	b.put(0, 1) // interlaced
	b.put(1, 1) // obmc_disable
	b.put(0, 1) // sprite_enable
	b.put(0, 1) // not_8_bit
	b.put(0, 1) // quant_type
	b.put(1, 1) // complexity_estimation_disable
	b.put(1, 1) // resync_marker_disable
	b.put(0, 1) // data_partitioned
	b.put(0, 1) // scalability

	b.code(0xb6)
	b.put(0, 2)           // vop_coding_type
	b.put(0, 1).put(1, 1) // modulo_time_base and marker_bit
	b.put(0, 5).put(1, 1) // vop_time_increment and marker_bit
	b.put(1, 1)           // vop_coded
	b.put(0, 3)           // intra_dc_vlc_thr
	b.put(7, 5)           // vop_quant
	b.put(1, 1)           // mcbpc, intra with no chroma
	b.put(0, 1)           // ac_pred_flag
	b.put(3, 2)           // cbpy, all luma
	b.put(0xa5a5, 16)

	b.code(0xb6)
	b.put(1, 2)           // vop_coding_type
	b.put(0, 1).put(1, 1) // modulo_time_base and marker_bit
	b.put(1, 5).put(1, 1) // vop_time_increment and marker_bit
	b.put(1, 1)           // vop_coded
	b.put(0, 1)           // vop_rounding_type
	b.put(0, 3)           // intra_dc_vlc_thr
	b.put(7, 5)           // vop_quant
	b.put(1, 3)           // vop_fcode_forward
	b.put(0xfff, 12)      // not_coded for every macroblock
	return b.buf
}

func testConfig(t *testing.T) config.Config {
	return config.Config{Logger: (*logging.TestLogger)(t), BitstreamBufferSize: 4096}
}

func TestTraceMPEG1(t *testing.T) {
	var out bytes.Buffer
	tr, err := newTracer(testConfig(t), &out, true)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	err = tr.run(bytes.NewReader(mpeg1Stream()), codecutil.MPEG1, false)
	if err != nil {
		t.Fatalf("did not expect error from run: %v", err)
	}

	for i, s := range tr.surfaces {
		f, decoded, err := tr.dev.SurfaceState(s)
		if err != nil || !decoded || f != decoder.FormatNV12 {
			t.Errorf("unexpected state for surface %d: %v, decoded %v, %v", i, f, decoded, err)
		}
	}

	stats := tr.stats.Stats()
	if stats.Pictures != 3 || stats.Errors != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	tr.summary(&out)
	err = tr.close()
	if err != nil {
		t.Errorf("did not expect error from close: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"decoder MPEG1 64x48 engine 0x1680\n",
		"picture 0 I\n",
		"picture 1 P\n",
		"picture 2 B\n",
		"pictures 3 errors 0 timeouts 0 engine errors 0 resyncs 0\n",
		"render time mean",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("trace does not contain %q:\n%s", want, got)
		}
	}
	if n := strings.Count(got, "MPEG_FWD_LUMA"); n != 2 {
		t.Errorf("unexpected forward reference writes: got %d, want 2", n)
	}
	if n := strings.Count(got, "MPEG_BACK_LUMA"); n != 1 {
		t.Errorf("unexpected backward reference writes: got %d, want 1", n)
	}
}

// TestTraceMPEG4 checks that the macroblock layer of each VOP is followed
// until coded texture or the end of the picture.
func TestTraceMPEG4(t *testing.T) {
	var out bytes.Buffer
	tr, err := newTracer(testConfig(t), &out, true)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	err = tr.run(bytes.NewReader(mpeg4Stream()), codecutil.MPEG4, false)
	if err != nil {
		t.Fatalf("did not expect error from run: %v", err)
	}
	if stats := tr.stats.Stats(); stats.Pictures != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	tr.close()

	got := out.String()
	for _, want := range []string{
		"decoder MPEG4_PART2_ASP 64x48",
		"picture 0 I macroblocks 1 to texture\n",
		"picture 1 P macroblocks 12 to packet end\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("trace does not contain %q:\n%s", want, got)
		}
	}
	if tr.m4.Packet.MBYPos != 3 {
		t.Errorf("unexpected final macroblock row: got %d, want 3", tr.m4.Packet.MBYPos)
	}
}

// packetSource is an io.Reader returning one packet per Read.
type packetSource [][]byte

func (p *packetSource) Read(b []byte) (int, error) {
	if len(*p) == 0 {
		return 0, io.EOF
	}
	n := copy(b, (*p)[0])
	*p = (*p)[1:]
	return n, nil
}

func TestTraceRTP(t *testing.T) {
	const chunk = 20
	var src packetSource
	es := mpeg1Stream()
	for seq := 0; len(es) > 0; seq++ {
		n := chunk
		if n > len(es) {
			n = len(es)
		}
		p := &rtp.Packet{
			Version:     2,
			PayloadType: rtp.PayloadTypeMPV,
			Sequence:    uint16(seq),
			SSRC:        1,
			Payload:     append([]byte{0, 0, 0, 0}, es[:n]...),
		}
		src = append(src, p.Bytes(nil))
		es = es[n:]
	}

	var out bytes.Buffer
	tr, err := newTracer(testConfig(t), &out, false)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	d := rtp.NewDepacketizer(&src, (*logging.TestLogger)(t))
	err = tr.run(d, codecutil.MPEG1, false)
	if err != nil {
		t.Fatalf("did not expect error from run: %v", err)
	}
	if stats := tr.stats.Stats(); stats.Pictures != 3 || stats.Errors != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if d.Lost() != 0 {
		t.Errorf("unexpected lost packets: %d", d.Lost())
	}
	tr.close()
}

func TestTraceProfile(t *testing.T) {
	var out bytes.Buffer
	tr, err := newTracer(testConfig(t), &out, false)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	tr.profile = decoder.ProfileH264Main

	err = tr.run(bytes.NewReader(mpeg1Stream()), codecutil.MPEG2, false)
	if decoder.StatusOf(err) != decoder.StatusInvalidDecoderProfile {
		t.Errorf("unexpected status for unsupported profile: %v", err)
	}
	if strings.Contains(out.String(), "MPEG_") {
		t.Errorf("unexpected register trace:\n%s", out.String())
	}
	tr.close()
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cedar.conf")
	err := os.WriteFile(path, []byte("# Older engine.\nEngineVersion = 0x1663\n\nOutputFormat=tiled\n"), 0644)
	if err != nil {
		t.Fatalf("could not write config: %v", err)
	}

	cfg, err := loadConfig(path, (*logging.TestLogger)(t))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if cfg.EngineVersion != 0x1663 || cfg.OutputFormat != config.FormatTiled {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.WaitTimeout == 0 || cfg.MaxReferences == 0 {
		t.Errorf("config not validated: %+v", cfg)
	}

	err = os.WriteFile(path, []byte("EngineVersion\n"), 0644)
	if err != nil {
		t.Fatalf("could not write config: %v", err)
	}
	if _, err := loadConfig(path, (*logging.TestLogger)(t)); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestCodecFor(t *testing.T) {
	tests := map[string]string{
		"clip.m1v":     codecutil.MPEG1,
		"clip.MPG":     codecutil.MPEG2,
		"dir/clip.m4v": codecutil.MPEG4,
		"clip.cmp":     codecutil.MPEG4,
		"clip.ts":      "",
		"clip.h264":    "",
	}
	for path, want := range tests {
		if got := codecFor(path); got != want {
			t.Errorf("unexpected codec for %s: got %q, want %q", path, got, want)
		}
	}
}

func TestSpoolEvents(t *testing.T) {
	s := &spool{dir: "/spool/", confPath: "/etc/cedar.conf"}
	tests := []struct {
		ev     fsnotify.Event
		config bool
		stream bool
	}{
		{ev: fsnotify.Event{Name: "/spool/a.m4v", Op: fsnotify.Create}, stream: true},
		{ev: fsnotify.Event{Name: "/spool/a.ts", Op: fsnotify.Create}, stream: true},
		{ev: fsnotify.Event{Name: "/spool/a.m4v.trace", Op: fsnotify.Create}},
		{ev: fsnotify.Event{Name: "/spool/a.m4v", Op: fsnotify.Write}},
		{ev: fsnotify.Event{Name: "/spool/sub/a.m4v", Op: fsnotify.Create}},
		{ev: fsnotify.Event{Name: "/etc/cedar.conf", Op: fsnotify.Write}, config: true},
		{ev: fsnotify.Event{Name: "/etc/cedar.conf", Op: fsnotify.Chmod}},
	}

	for i, test := range tests {
		if got := s.isConfig(test.ev); got != test.config {
			t.Errorf("unexpected isConfig for test %d: got %v", i, got)
		}
		if _, got := s.stream(test.ev); got != test.stream {
			t.Errorf("unexpected stream for test %d: got %v", i, got)
		}
	}
}
