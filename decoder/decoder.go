/*
DESCRIPTION
  decoder.go provides Decoder, which owns the engine, bitstream buffer and
  codec state for one stream and programs the engine for each picture given
  to Render.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decoder provides a hardware accelerated video decoder for MPEG-1,
// MPEG-2 and MPEG-4 Part 2 streams. A Decoder programs a device.Engine one
// picture at a time from picture parameters and a compressed bitstream.
package decoder

import (
	"sync"
	"time"

	"github.com/ausocean/cedar/codec/codecutil"
	"github.com/ausocean/cedar/device"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Log prefix.
const pkg = "decoder: "

// MaxReferences is the largest number of reference surfaces a decoder may
// be created with.
const MaxReferences = 16

// Defaults.
const (
	defaultWaitTimeout   = time.Second
	defaultBitstreamSize = 1 << 20
)

var errNoSurface = errors.New("no output surface")

// codec is implemented by the per codec engine sequencers.
type codec interface {
	// decode programs the engine to decode the n bytes held in the
	// bitstream buffer into out.
	decode(info PictureInfo, n int, out *Surface) error

	// close frees codec private buffers.
	close() error
}

// Decoder decodes pictures of a single stream. Render calls are
// serialised.
type Decoder struct {
	mu sync.Mutex

	eng   device.Engine
	alloc device.Allocator
	log   logging.Logger
	obs   Observer

	profile Profile
	width   int
	height  int

	timeout time.Duration
	strict  bool
	vbvSize int
	nv12    bool

	vbv    device.Buffer
	codec  codec
	closed bool
}

// WaitTimeout is an option that can be passed to New to set how long the
// decoder waits for the engine to complete before resetting it.
func WaitTimeout(t time.Duration) func(*Decoder) error {
	return func(d *Decoder) error {
		if t <= 0 {
			return errors.Errorf("invalid wait timeout %v", t)
		}
		d.timeout = t
		d.log.Debug(pkg+"configured wait timeout", "timeout", t)
		return nil
	}
}

// StrictMarkers is an option that can be passed to New. If strict is true
// marker bit errors in MPEG-4 headers fail parsing rather than being
// logged.
func StrictMarkers(strict bool) func(*Decoder) error {
	return func(d *Decoder) error {
		d.strict = strict
		d.log.Debug(pkg+"configured marker checking", "strict", strict)
		return nil
	}
}

// BitstreamSize is an option that can be passed to New to set the size of
// the bitstream buffer, which bounds the compressed size of a picture.
func BitstreamSize(n int) func(*Decoder) error {
	return func(d *Decoder) error {
		if n <= 0 {
			return errors.Errorf("invalid bitstream buffer size %d", n)
		}
		d.vbvSize = n
		d.log.Debug(pkg+"configured bitstream buffer", "size", n)
		return nil
	}
}

// OutputFormat is an option that can be passed to New. FormatNV12, the
// default, selects NV12 output on engines that support it; FormatTiled
// keeps the engine's native tiled output.
func OutputFormat(f Format) func(*Decoder) error {
	return func(d *Decoder) error {
		switch f {
		case FormatNV12:
			d.nv12 = true
		case FormatTiled:
			d.nv12 = false
		default:
			return errors.Errorf("invalid output format %d", int(f))
		}
		d.log.Debug(pkg+"configured output format", "format", f)
		return nil
	}
}

// WithObserver is an option that can be passed to New to receive decode
// events.
func WithObserver(o Observer) func(*Decoder) error {
	return func(d *Decoder) error {
		if o == nil {
			return errors.New("nil observer")
		}
		d.obs = o
		return nil
	}
}

// New returns a Decoder for streams of profile p with pictures of width by
// height pixels, using up to maxRefs reference surfaces. The engine is
// allocated for the lifetime of the decoder. Errors map to a Status with
// StatusOf.
func New(eng device.Engine, alloc device.Allocator, log logging.Logger, p Profile, width, height, maxRefs int, options ...func(*Decoder) error) (*Decoder, error) {
	if maxRefs > MaxReferences {
		return nil, errors.Wrapf(ErrTooManyReferences, "%d requested, limit is %d", maxRefs, MaxReferences)
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "%dx%d", width, height)
	}
	if !p.Supported() {
		return nil, errors.Wrapf(ErrInvalidProfile, "%s is not supported", p)
	}

	d := &Decoder{
		eng:     eng,
		alloc:   alloc,
		log:     log,
		obs:     Nop{},
		profile: p,
		width:   width,
		height:  height,
		timeout: defaultWaitTimeout,
		vbvSize: defaultBitstreamSize,
		nv12:    true,
	}
	for _, option := range options {
		err := option(d)
		if err != nil {
			return nil, errors.Wrap(err, "option failed")
		}
	}

	var err error
	d.vbv, err = alloc.Alloc(d.vbvSize)
	if err != nil {
		return nil, errors.Wrapf(ErrResources, "could not allocate bitstream buffer: %v", err)
	}

	err = eng.Allocate(p.Kind())
	if err != nil {
		alloc.Free(d.vbv)
		return nil, errors.Wrapf(ErrResources, "could not allocate %s engine: %v", p.Kind(), err)
	}

	switch p.Codec() {
	case codecutil.MPEG1, codecutil.MPEG2:
		d.codec = &mpeg12Codec{d: d, mpeg1: p == ProfileMPEG1}
	case codecutil.MPEG4:
		d.codec, err = newMPEG4Codec(d)
	}
	if err != nil {
		eng.Free()
		alloc.Free(d.vbv)
		return nil, err
	}

	log.Info(pkg+"created decoder", "profile", p, "width", width, "height", height, "version", eng.Version())
	return d, nil
}

// Parameters returns the profile and dimensions the decoder was created
// with.
func (d *Decoder) Parameters() (p Profile, width, height int) {
	return d.profile, d.width, d.height
}

// Render decodes one picture, described by info and held in the
// concatenation of bufs, into out. On return out.Format holds the layout of
// the decoded picture and out.Decoded whether it was decoded. An engine
// timeout fails only this picture.
func (d *Decoder) Render(out *Surface, info PictureInfo, bufs ...[]byte) error {
	start := time.Now()
	err := d.render(out, info, bufs)
	d.obs.Picture(d.profile, time.Since(start), err)
	if err != nil {
		d.log.Warning(pkg+"render failed", "profile", d.profile, "error", err)
	}
	return err
}

func (d *Decoder) render(out *Surface, info PictureInfo, bufs [][]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if out == nil || out.Luma == nil || out.Chroma == nil {
		return errNoSurface
	}

	n := 0
	for _, b := range bufs {
		err := device.CopyInto(d.vbv, n, b)
		if err != nil {
			return errors.Wrapf(ErrBitstreamSize, "%v", err)
		}
		n += len(b)
	}
	err := d.vbv.Flush(n)
	if err != nil {
		return errors.Wrap(err, "could not flush bitstream buffer")
	}

	out.Decoded = false
	out.Format = FormatTiled
	return d.codec.decode(info, n, out)
}

// Close frees the codec buffers, the bitstream buffer and the engine.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.closed = true

	var errs device.MultiError
	errs.Add(d.codec.close())
	errs.Add(d.alloc.Free(d.vbv))
	errs.Add(d.eng.Free())
	d.log.Debug(pkg+"closed decoder", "profile", d.profile)
	return errs.Err()
}

// wait blocks until the engine completes. On a timeout the engine is reset
// once and device.ErrTimeout returned.
func (d *Decoder) wait() error {
	err := d.eng.Wait(d.timeout)
	if err == nil {
		return nil
	}
	if errors.Is(err, device.ErrTimeout) {
		d.obs.Timeout()
		d.log.Warning(pkg+"engine timed out, resetting", "timeout", d.timeout)
		rerr := d.eng.Reset()
		if rerr != nil {
			d.log.Error(pkg+"could not reset engine", "error", rerr)
		}
	}
	return err
}

// mbDims returns the macroblock dimensions of a picture.
func mbDims(width, height int) (int, int) {
	return (width + 15) / 16, (height + 15) / 16
}
