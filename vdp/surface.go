/*
DESCRIPTION
  surface.go provides the video surface operations of Device.

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
	"github.com/ausocean/cedar/decoder"
	"github.com/ausocean/cedar/handle"
	"github.com/pkg/errors"
)

// CreateSurface allocates a video surface of width by height pixels.
func (d *Device) CreateSurface(width, height int) (handle.Handle, error) {
	if width > int(d.cfg.MaxWidth) || height > int(d.cfg.MaxHeight) {
		return handle.Invalid, errors.Wrapf(decoder.ErrInvalidSize, "%dx%d exceeds %dx%d", width, height, d.cfg.MaxWidth, d.cfg.MaxHeight)
	}
	s, err := decoder.NewSurface(d.alloc, width, height)
	if err != nil {
		return handle.Invalid, err
	}
	h := d.handles.Create(handle.VideoSurface, s, func() {
		err := s.Free(d.alloc)
		if err != nil {
			d.log.Error(pkg+"could not free surface", "error", err)
		}
	})
	d.log.Debug(pkg+"created surface", "handle", h, "width", width, "height", height)
	return h, nil
}

// DestroySurface destroys the surface h. Its buffers are freed once no
// render using it is in progress.
func (d *Device) DestroySurface(h handle.Handle) error {
	if t := d.handles.Type(h); t != handle.VideoSurface {
		return errors.Wrapf(handle.ErrInvalidHandle, "handle %d is %s, want %s", h, t, handle.VideoSurface)
	}
	return d.handles.Destroy(h)
}

// SurfaceState returns the format of the surface h and whether a picture
// has been decoded into it.
func (d *Device) SurfaceState(h handle.Handle) (f decoder.Format, decoded bool, err error) {
	s, err := d.surface(h)
	if err != nil {
		return 0, false, err
	}
	defer d.handles.Release(h)
	return s.Format, s.Decoded, nil
}

// SurfaceData returns copies of the luma and chroma planes of the surface h.
func (d *Device) SurfaceData(h handle.Handle) (luma, chroma []byte, err error) {
	s, err := d.surface(h)
	if err != nil {
		return nil, nil, err
	}
	defer d.handles.Release(h)
	luma = append([]byte(nil), s.Luma.Bytes()...)
	chroma = append([]byte(nil), s.Chroma.Bytes()...)
	return luma, chroma, nil
}

// surface returns the surface h, taking a reference that must be released.
func (d *Device) surface(h handle.Handle) (*decoder.Surface, error) {
	obj, err := d.handles.Get(h, handle.VideoSurface)
	if err != nil {
		return nil, err
	}
	return obj.(*decoder.Surface), nil
}
