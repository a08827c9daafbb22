/*
DESCRIPTION
  decoder.go provides the decoder operations of Device: creation,
  destruction, parameter and capability queries, and rendering pictures into
  surfaces referenced by handle.

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
	"github.com/ausocean/cedar/codec/mpeg12"
	"github.com/ausocean/cedar/codec/mpeg4"
	"github.com/ausocean/cedar/config"
	"github.com/ausocean/cedar/decoder"
	"github.com/ausocean/cedar/handle"
	"github.com/pkg/errors"
)

// Capability limits reported by QueryCapabilities.
const maxLevel = 16

// PictureInfo is the per picture parameter set given to Render, with
// reference surfaces given by handle. Zero or handle.Invalid means no
// reference.
type PictureInfo interface {
	refs() (forward, backward handle.Handle)
	picture(forward, backward *decoder.Surface) decoder.PictureInfo
}

// MPEG12Info describes an MPEG-1 or MPEG-2 picture.
type MPEG12Info struct {
	mpeg12.PictureInfo
	Forward  handle.Handle
	Backward handle.Handle
}

func (i *MPEG12Info) refs() (handle.Handle, handle.Handle) { return i.Forward, i.Backward }

func (i *MPEG12Info) picture(f, b *decoder.Surface) decoder.PictureInfo {
	return &decoder.MPEG12Picture{PictureInfo: i.PictureInfo, Forward: f, Backward: b}
}

// MPEG4Info describes an MPEG-4 Part 2 picture.
type MPEG4Info struct {
	mpeg4.PictureInfo
	Forward  handle.Handle
	Backward handle.Handle
}

func (i *MPEG4Info) refs() (handle.Handle, handle.Handle) { return i.Forward, i.Backward }

func (i *MPEG4Info) picture(f, b *decoder.Surface) decoder.PictureInfo {
	return &decoder.MPEG4Picture{PictureInfo: i.PictureInfo, Forward: f, Backward: b}
}

// Capabilities describes the decode limits for a profile.
type Capabilities struct {
	Supported      bool
	MaxLevel       int
	MaxMacroblocks int
	MaxWidth       int
	MaxHeight      int
}

// QueryCapabilities returns the decode limits for profile p. Profiles
// without a decode path are reported as unsupported.
func (d *Device) QueryCapabilities(p decoder.Profile) Capabilities {
	if !p.Supported() {
		return Capabilities{}
	}
	w, h := int(d.cfg.MaxWidth), int(d.cfg.MaxHeight)
	return Capabilities{
		Supported:      true,
		MaxLevel:       maxLevel,
		MaxMacroblocks: w * h / 256,
		MaxWidth:       w,
		MaxHeight:      h,
	}
}

// CreateDecoder creates a decoder for profile p with pictures of width by
// height pixels using up to maxRefs reference surfaces.
func (d *Device) CreateDecoder(p decoder.Profile, width, height, maxRefs int) (handle.Handle, error) {
	if maxRefs > int(d.cfg.MaxReferences) {
		return handle.Invalid, errors.Wrapf(decoder.ErrTooManyReferences, "%d requested, limit is %d", maxRefs, d.cfg.MaxReferences)
	}
	if width > int(d.cfg.MaxWidth) || height > int(d.cfg.MaxHeight) {
		return handle.Invalid, errors.Wrapf(decoder.ErrInvalidSize, "%dx%d exceeds %dx%d", width, height, d.cfg.MaxWidth, d.cfg.MaxHeight)
	}

	format := decoder.FormatNV12
	if d.cfg.OutputFormat == config.FormatTiled {
		format = decoder.FormatTiled
	}
	dec, err := decoder.New(d.eng, d.alloc, d.log, p, width, height, maxRefs,
		decoder.WaitTimeout(d.cfg.WaitTimeout),
		decoder.StrictMarkers(d.cfg.StrictMarkers),
		decoder.BitstreamSize(int(d.cfg.BitstreamBufferSize)),
		decoder.OutputFormat(format),
		decoder.WithObserver(d.obs),
	)
	if err != nil {
		return handle.Invalid, err
	}

	h := d.handles.Create(handle.Decoder, dec, func() {
		err := dec.Close()
		if err != nil {
			d.log.Error(pkg+"could not close decoder", "error", err)
		}
	})
	d.log.Debug(pkg+"created decoder", "handle", h, "profile", p)
	return h, nil
}

// DestroyDecoder destroys the decoder h, freeing its engine and buffers
// once any render in progress completes.
func (d *Device) DestroyDecoder(h handle.Handle) error {
	if t := d.handles.Type(h); t != handle.Decoder {
		return errors.Wrapf(handle.ErrInvalidHandle, "handle %d is %s, want %s", h, t, handle.Decoder)
	}
	return d.handles.Destroy(h)
}

// DecoderParameters returns the profile and dimensions of the decoder h.
func (d *Device) DecoderParameters(h handle.Handle) (p decoder.Profile, width, height int, err error) {
	obj, err := d.handles.Get(h, handle.Decoder)
	if err != nil {
		return 0, 0, 0, err
	}
	defer d.handles.Release(h)
	p, width, height = obj.(*decoder.Decoder).Parameters()
	return p, width, height, nil
}

// Render decodes the picture described by info and held in bufs into the
// surface target. All handles are resolved before the engine is touched.
func (d *Device) Render(h, target handle.Handle, info PictureInfo, bufs ...[]byte) error {
	if info == nil {
		return errors.New("no picture info")
	}

	obj, err := d.handles.Get(h, handle.Decoder)
	if err != nil {
		return err
	}
	defer d.handles.Release(h)
	dec := obj.(*decoder.Decoder)

	out, err := d.surface(target)
	if err != nil {
		return err
	}
	defer d.handles.Release(target)

	fh, bh := info.refs()
	fwd, err := d.reference(fh)
	if err != nil {
		return err
	}
	if fwd != nil {
		defer d.handles.Release(fh)
	}
	back, err := d.reference(bh)
	if err != nil {
		return err
	}
	if back != nil {
		defer d.handles.Release(bh)
	}

	return dec.Render(out, info.picture(fwd, back), bufs...)
}

// reference resolves the reference surface h, returning nil for zero or
// handle.Invalid.
func (d *Device) reference(h handle.Handle) (*decoder.Surface, error) {
	if h == 0 || h == handle.Invalid {
		return nil, nil
	}
	return d.surface(h)
}
