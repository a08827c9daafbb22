/*
DESCRIPTION
  surface.go provides Surface, a decoded picture held in DMA memory, and the
  picture info types passed to Decoder.Render.

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
	"github.com/ausocean/cedar/codec/mpeg12"
	"github.com/ausocean/cedar/codec/mpeg4"
	"github.com/ausocean/cedar/device"
	"github.com/pkg/errors"
)

// Format is the pixel layout of a decoded surface.
type Format int

// Surface formats.
const (
	FormatTiled Format = iota
	FormatNV12
)

func (f Format) String() string {
	if f == FormatNV12 {
		return "nv12"
	}
	return "tiled"
}

// Surface is a picture buffer in DMA memory, split into luma and
// interleaved chroma planes.
type Surface struct {
	Width  int
	Height int
	Luma   device.Buffer
	Chroma device.Buffer

	// Format and Decoded are set by Render.
	Format  Format
	Decoded bool
}

// SurfaceSizes returns the luma and chroma buffer sizes for a surface of
// the given dimensions.
func SurfaceSizes(width, height int) (luma, chroma int) {
	luma = align(width, 32) * align(height, 32)
	return luma, luma / 2
}

// NewSurface allocates a surface of the given dimensions from a.
func NewSurface(a device.Allocator, width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "%dx%d", width, height)
	}
	ls, cs := SurfaceSizes(width, height)
	luma, err := a.Alloc(ls)
	if err != nil {
		return nil, errors.Wrapf(ErrResources, "could not allocate luma buffer: %v", err)
	}
	chroma, err := a.Alloc(cs)
	if err != nil {
		a.Free(luma)
		return nil, errors.Wrapf(ErrResources, "could not allocate chroma buffer: %v", err)
	}
	return &Surface{Width: width, Height: height, Luma: luma, Chroma: chroma}, nil
}

// Free returns the surface buffers to a.
func (s *Surface) Free(a device.Allocator) error {
	var errs device.MultiError
	errs.Add(a.Free(s.Chroma))
	errs.Add(a.Free(s.Luma))
	return errs.Err()
}

// PictureInfo is the per picture parameter set given to Render. It is
// implemented by *MPEG12Picture and *MPEG4Picture.
type PictureInfo interface {
	references() (forward, backward *Surface)
}

// MPEG12Picture describes an MPEG-1 or MPEG-2 picture.
type MPEG12Picture struct {
	mpeg12.PictureInfo
	Forward  *Surface
	Backward *Surface
}

func (p *MPEG12Picture) references() (*Surface, *Surface) { return p.Forward, p.Backward }

// MPEG4Picture describes an MPEG-4 Part 2 picture.
type MPEG4Picture struct {
	mpeg4.PictureInfo
	Forward  *Surface
	Backward *Surface
}

func (p *MPEG4Picture) references() (*Surface, *Surface) { return p.Forward, p.Backward }

func align(v, n int) int { return (v + n - 1) &^ (n - 1) }
