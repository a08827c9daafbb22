/*
DESCRIPTION
  trace.go provides tracer, which decodes a video stream through a decode
  device, printing the register accesses of each picture when the engine is
  simulated, and summarises the decode.

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
	"fmt"
	"io"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/cedar/codec/bits"
	"github.com/ausocean/cedar/codec/codecutil"
	"github.com/ausocean/cedar/codec/mpeg12"
	"github.com/ausocean/cedar/codec/mpeg4"
	"github.com/ausocean/cedar/config"
	"github.com/ausocean/cedar/container/ts"
	"github.com/ausocean/cedar/decoder"
	"github.com/ausocean/cedar/device"
	"github.com/ausocean/cedar/device/sim"
	"github.com/ausocean/cedar/handle"
	"github.com/ausocean/cedar/vdp"
)

// Number of surfaces cycled through: two references and one B picture.
const numSurfaces = 3

// Max references requested of each decoder.
const maxRefs = 2

var errNoPicture = errors.New("no picture in access unit")

// tracer decodes one stream. It implements io.Writer so that it can receive
// access units from a lexer.
type tracer struct {
	dev     *vdp.Device
	eng     *sim.Engine // Nil unless the engine is simulated.
	log     logging.Logger
	out     io.Writer
	stats   *decoder.Counter
	regs    bool
	strict  bool
	profile decoder.Profile // Forced profile, or -1 to derive from the stream.

	m12 *mpeg12.Parser
	m4  *mpeg4.Parser

	dec      handle.Handle
	surfaces [numSurfaces]handle.Handle
	past     handle.Handle
	future   handle.Handle
	n        int
}

// newTracer opens the device selected by cfg. If regs is true the register
// accesses of each picture are written to out, which is only possible for
// the simulated engine.
func newTracer(cfg config.Config, out io.Writer, regs bool) (*tracer, error) {
	cfg.Validate()
	t := &tracer{
		log:     cfg.Logger,
		out:     out,
		stats:   &decoder.Counter{},
		regs:    regs,
		strict:  cfg.StrictMarkers,
		profile: -1,
		dec:     handle.Invalid,
		past:    handle.Invalid,
		future:  handle.Invalid,
	}
	for i := range t.surfaces {
		t.surfaces[i] = handle.Invalid
	}

	if cfg.Engine == config.EngineUIO {
		dev, err := vdp.Open(cfg, t.stats)
		if err != nil {
			return nil, err
		}
		t.dev = dev
		if regs {
			t.log.Info(pkg + "register trace needs the simulated engine")
			t.regs = false
		}
		return t, nil
	}

	t.eng = sim.New(uint32(cfg.EngineVersion), cfg.Logger)
	t.dev = vdp.NewDevice(cfg, t.eng, sim.NewAllocator(0), t.stats)
	return t, nil
}

// run decodes the stream read from r. c names the codec of an elementary
// stream and is ignored for MPEG-TS input, where the codec is given by the
// stream type of the selected video stream.
func (t *tracer) run(r io.Reader, c string, isTS bool) error {
	if isTS {
		d := ts.NewDemuxer(r, t.log)
		u, err := d.Next()
		if err != nil {
			return errors.Wrap(err, "could not demux first unit")
		}
		c = ts.Codec(u.StreamType)
		t.log.Info(pkg+"demuxing transport stream", "pid", u.PID, "codec", c)
		r = io.MultiReader(bytes.NewReader(u.Data), &unitReader{d: d})
	}

	var lex func(io.Writer, io.Reader, time.Duration) error
	switch c {
	case codecutil.MPEG1, codecutil.MPEG2:
		t.m12 = mpeg12.NewParser(t.log)
		lex = mpeg12.Lex
	case codecutil.MPEG4:
		t.m4 = mpeg4.NewParser(t.log, t.strict)
		lex = mpeg4.Lex
	default:
		return errors.Errorf("unsupported codec %q", c)
	}

	err := lex(t, r, 0)
	if err != io.EOF {
		return err
	}
	return nil
}

// Write decodes the access unit au. Errors decoding a single picture are
// reported and do not stop the stream.
func (t *tracer) Write(au []byte) (int, error) {
	info, p, w, h, err := t.parse(au)
	if err == errNoPicture {
		return len(au), nil
	}
	if err != nil {
		t.log.Warning(pkg+"could not parse access unit", "error", err.Error())
		fmt.Fprintf(t.out, "unit %d: parse: %v\n", t.n, err)
		t.n++
		return len(au), nil
	}

	if t.dec == handle.Invalid {
		err = t.setup(p, w, h)
		if err != nil {
			return 0, err
		}
	}

	err = t.render(info, au)
	if err != nil {
		t.log.Warning(pkg+"could not render picture", "picture", t.n, "error", err.Error())
		fmt.Fprintf(t.out, "picture %d: %v (%s)\n", t.n, err, decoder.StatusOf(err))
	}
	t.n++
	return len(au), nil
}

// picture is a parsed picture ready for rendering.
type picture struct {
	info      vdp.PictureInfo
	reference bool // Pictures that become the future reference.
	forward   bool // Pictures predicted from the future reference.
	backward  bool // Pictures predicted from both references.
	typ       string
	layer     string // Macroblock layer followed in software, MPEG-4 only.
}

// parse parses the headers of au, returning its picture, the profile the
// stream needs and the picture dimensions.
func (t *tracer) parse(au []byte) (pic picture, p decoder.Profile, w, h int, err error) {
	if t.m12 != nil {
		info, err := t.m12.Parse(au)
		if errors.Is(err, mpeg12.ErrNoPicture) {
			return pic, 0, 0, 0, errNoPicture
		}
		if err != nil {
			return pic, 0, 0, 0, err
		}
		p = decoder.ProfileMPEG1
		if t.m12.MPEG2 {
			p = decoder.ProfileMPEG2Main
		}
		pic = picture{
			info:      &vdp.MPEG12Info{PictureInfo: info},
			reference: info.CodingType != mpeg12.BPicture,
			forward:   info.CodingType == mpeg12.PPicture || info.CodingType == mpeg12.BPicture,
			backward:  info.CodingType == mpeg12.BPicture,
			typ:       info.CodingType.String(),
		}
		return pic, p, t.m12.Width(), t.m12.Height(), nil
	}

	br := bits.NewReader(au)
	for br.FindStartCode() {
		code := byte(br.Read(8))
		switch {
		case mpeg4.IsVOLStart(code):
			err := t.m4.ParseVOL(br)
			if err != nil {
				return pic, 0, 0, 0, err
			}
		case code == mpeg4.VOPStartCode:
			coded, err := t.m4.ParseVOP(br)
			if err != nil {
				return pic, 0, 0, 0, err
			}
			if !coded {
				return pic, 0, 0, 0, errNoPicture
			}
			info := t.m4.PictureInfo()
			ct := info.CodingType
			pic = picture{
				info:      &vdp.MPEG4Info{PictureInfo: info},
				reference: ct != mpeg4.BVOP,
				forward:   ct != mpeg4.IVOP,
				backward:  ct == mpeg4.BVOP,
				typ:       ct.String(),
				layer:     t.follow(br),
			}
			vol := &t.m4.VOL
			return pic, decoder.ProfileMPEG4PartASP, int(vol.Width), int(vol.Height), nil
		}
	}
	return pic, 0, 0, 0, errNoPicture
}

// follow follows the macroblock layer of the VOP just parsed from br until
// the first macroblock with coded texture or the end of the first video
// packet, returning a description of how far it got.
func (t *tracer) follow(br *bits.Reader) string {
	if t.m4.VOP.CodingType == mpeg4.BVOP || t.m4.VOL.Shape == mpeg4.BinaryOnly {
		return ""
	}
	n, err := t.m4.ParseMacroblocks(br)
	switch {
	case err == nil:
		return fmt.Sprintf("macroblocks %d to packet end", n)
	case errors.Is(err, mpeg4.ErrTexture):
		return fmt.Sprintf("macroblocks %d to texture", n)
	case errors.Is(err, mpeg4.ErrPictureTooLarge):
		t.log.Debug(pkg+"not following macroblock layer", "error", err.Error())
		return ""
	default:
		t.log.Warning(pkg+"could not follow macroblock layer", "macroblocks", n, "error", err.Error())
		return fmt.Sprintf("macroblocks %d to error", n)
	}
}

// setup creates the decoder and its surfaces.
func (t *tracer) setup(p decoder.Profile, w, h int) error {
	if t.profile >= 0 {
		p = t.profile
	}
	dec, err := t.dev.CreateDecoder(p, w, h, maxRefs)
	if err != nil {
		return errors.Wrapf(err, "could not create %s decoder (%s)", p, decoder.StatusOf(err))
	}
	t.dec = dec
	for i := range t.surfaces {
		t.surfaces[i], err = t.dev.CreateSurface(w, h)
		if err != nil {
			return errors.Wrapf(err, "could not create surface (%s)", decoder.StatusOf(err))
		}
	}
	t.log.Info(pkg+"created decoder", "profile", p.String(), "width", w, "height", h)
	fmt.Fprintf(t.out, "decoder %s %dx%d engine %#04x\n", p, w, h, t.dev.Version())
	return nil
}

// render renders pic into a surface not holding a reference and updates
// the references.
func (t *tracer) render(pic picture, au []byte) error {
	var target handle.Handle
	for _, s := range t.surfaces {
		if s != t.past && s != t.future {
			target = s
			break
		}
	}

	fwd, bwd := handle.Invalid, handle.Invalid
	switch {
	case pic.backward:
		fwd, bwd = t.past, t.future
	case pic.forward:
		fwd = t.future
	}
	switch info := pic.info.(type) {
	case *vdp.MPEG12Info:
		info.Forward, info.Backward = fwd, bwd
	case *vdp.MPEG4Info:
		info.Forward, info.Backward = fwd, bwd
	}

	err := t.dev.Render(t.dec, target, pic.info, au)
	if pic.reference {
		t.past, t.future = t.future, target
	}

	if t.regs {
		fmt.Fprintf(t.out, "picture %d %s", t.n, pic.typ)
		if pic.layer != "" {
			fmt.Fprintf(t.out, " %s", pic.layer)
		}
		fmt.Fprintln(t.out)
		for _, op := range t.eng.Ops() {
			fmt.Fprintf(t.out, "  %s\n", op)
		}
	}
	if t.eng != nil {
		t.eng.ClearOps()
	}
	return err
}

// summary writes the decode statistics to w.
func (t *tracer) summary(w io.Writer) {
	s := t.stats.Stats()
	fmt.Fprintf(w, "pictures %d errors %d timeouts %d engine errors %d resyncs %d\n",
		s.Pictures, s.Errors, s.Timeouts, s.EngineErrors, s.Resyncs)
	if len(s.Durations) == 0 {
		return
	}

	xs := make([]float64, len(s.Durations))
	for i, d := range s.Durations {
		xs[i] = float64(d) / float64(time.Microsecond)
	}
	mean, std := stat.Mean(xs, nil), 0.0
	if len(xs) > 1 {
		std = stat.StdDev(xs, nil)
	}
	fmt.Fprintf(w, "render time mean %.1fus std dev %.1fus\n", mean, std)
}

// close destroys the decoder and surfaces and closes the device.
func (t *tracer) close() error {
	var errs device.MultiError
	if t.dec != handle.Invalid {
		errs.Add(t.dev.DestroyDecoder(t.dec))
	}
	for _, s := range t.surfaces {
		if s != handle.Invalid {
			errs.Add(t.dev.DestroySurface(s))
		}
	}
	errs.Add(t.dev.Close())
	return errs.Err()
}

// unitReader reads the concatenated payloads of demuxed units.
type unitReader struct {
	d   *ts.Demuxer
	buf []byte
}

func (r *unitReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		u, err := r.d.Next()
		if err != nil {
			return 0, err
		}
		r.buf = u.Data
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
