/*
DESCRIPTION
  headers.go provides parsing of MPEG-1/2 sequence headers, sequence
  extensions, picture headers, picture coding extensions and quant matrix
  extensions.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mpeg12

import (
	"github.com/ausocean/cedar/codec/bits"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Errors returned by the parsers.
var (
	ErrNoSequence = errors.New("no sequence header")
	ErrNoPicture  = errors.New("no picture header")
	ErrDimensions = errors.New("invalid picture dimensions")
	ErrCodingType = errors.New("invalid picture coding type")
)

// SequenceHeader holds the fields of a sequence_header. Matrices are in
// raster order.
type SequenceHeader struct {
	Width                 int
	Height                int
	AspectRatio           uint8
	FrameRateCode         uint8
	BitRate               uint32
	VBVBufferSize         uint16
	ConstrainedParameters bool
	LoadIntraQuantMat     bool
	IntraQuantMat         [64]uint8
	LoadNonIntraQuantMat  bool
	NonIntraQuantMat      [64]uint8
}

// SequenceExtension holds the fields of a sequence_extension.
type SequenceExtension struct {
	ProfileLevel     uint8
	Progressive      bool
	ChromaFormat     uint8
	WidthExtension   uint8
	HeightExtension  uint8
	BitRateExtension uint16
	VBVExtension     uint8
	LowDelay         bool
	FrameRateExtN    uint8
	FrameRateExtD    uint8
}

// PictureHeader holds the fields of a picture_header.
type PictureHeader struct {
	TemporalReference uint16
	CodingType        CodingType
	VBVDelay          uint16
	FullPelForward    bool
	ForwardFCode      uint8
	FullPelBackward   bool
	BackwardFCode     uint8
}

// PictureCodingExtension holds the fields of a picture_coding_extension.
type PictureCodingExtension struct {
	FCode                    [2][2]uint8
	IntraDCPrecision         uint8
	Structure                uint8
	TopFieldFirst            bool
	FramePredFrameDCT        bool
	ConcealmentMotionVectors bool
	QScaleType               bool
	IntraVLCFormat           bool
	AlternateScan            bool
	RepeatFirstField         bool
	Chroma420Type            bool
	ProgressiveFrame         bool
	CompositeDisplay         bool
}

// QuantMatrixExtension holds the luma matrices of a quant_matrix_extension
// in raster order. Chroma matrices are read but not kept.
type QuantMatrixExtension struct {
	LoadIntraQuantMat    bool
	IntraQuantMat        [64]uint8
	LoadNonIntraQuantMat bool
	NonIntraQuantMat     [64]uint8
}

// fieldReader provides flag and integer reads from a bits.Reader with a
// sticky error.
type fieldReader struct {
	br  *bits.Reader
	e   error
	log logging.Logger
}

func (r *fieldReader) readBits(n int) uint32 {
	if r.e != nil {
		return 0
	}
	var b uint32
	b, r.e = r.br.ReadBits(n)
	return b
}

func (r *fieldReader) readFlag() bool { return r.readBits(1) == 1 }

// marker reads a marker bit, logging if it is not set.
func (r *fieldReader) marker(field string) {
	if r.readBits(1) == 0 && r.e == nil && r.log != nil {
		r.log.Warning(pkg+"marker bit not set", "after", field, "pos", r.br.Pos())
	}
}

func (r *fieldReader) err() error { return r.e }

// readMatrix reads a 64 entry matrix sent in zigzag order into raster order.
func readMatrix(r *fieldReader, m *[64]uint8) {
	for i := 0; i < 64; i++ {
		m[ZigZag[i]] = uint8(r.readBits(8))
	}
}

// parseSequenceHeader parses a sequence_header following its start code.
func parseSequenceHeader(r *fieldReader) (SequenceHeader, error) {
	var h SequenceHeader
	h.Width = int(r.readBits(12))
	h.Height = int(r.readBits(12))
	h.AspectRatio = uint8(r.readBits(4))
	h.FrameRateCode = uint8(r.readBits(4))
	h.BitRate = r.readBits(18)
	r.marker("bit_rate_value")
	h.VBVBufferSize = uint16(r.readBits(10))
	h.ConstrainedParameters = r.readFlag()

	h.LoadIntraQuantMat = r.readFlag()
	if h.LoadIntraQuantMat {
		readMatrix(r, &h.IntraQuantMat)
	} else {
		h.IntraQuantMat = DefaultIntraQuantMatrix
	}
	h.LoadNonIntraQuantMat = r.readFlag()
	if h.LoadNonIntraQuantMat {
		readMatrix(r, &h.NonIntraQuantMat)
	} else {
		h.NonIntraQuantMat = DefaultNonIntraQuantMatrix
	}

	if r.err() != nil {
		return h, errors.Wrap(r.err(), "could not parse sequence header")
	}
	if h.Width == 0 || h.Height == 0 {
		return h, errors.Wrapf(ErrDimensions, "%dx%d", h.Width, h.Height)
	}
	return h, nil
}

// parseSequenceExtension parses a sequence_extension following its extension
// start code identifier.
func parseSequenceExtension(r *fieldReader) (SequenceExtension, error) {
	var e SequenceExtension
	e.ProfileLevel = uint8(r.readBits(8))
	e.Progressive = r.readFlag()
	e.ChromaFormat = uint8(r.readBits(2))
	e.WidthExtension = uint8(r.readBits(2))
	e.HeightExtension = uint8(r.readBits(2))
	e.BitRateExtension = uint16(r.readBits(12))
	r.marker("bit_rate_extension")
	e.VBVExtension = uint8(r.readBits(8))
	e.LowDelay = r.readFlag()
	e.FrameRateExtN = uint8(r.readBits(2))
	e.FrameRateExtD = uint8(r.readBits(5))
	return e, errors.Wrap(r.err(), "could not parse sequence extension")
}

// parsePictureHeader parses a picture_header following its start code.
func parsePictureHeader(r *fieldReader) (PictureHeader, error) {
	var h PictureHeader
	h.TemporalReference = uint16(r.readBits(10))
	h.CodingType = CodingType(r.readBits(3))
	h.VBVDelay = uint16(r.readBits(16))
	if h.CodingType == PPicture || h.CodingType == BPicture {
		h.FullPelForward = r.readFlag()
		h.ForwardFCode = uint8(r.readBits(3))
	}
	if h.CodingType == BPicture {
		h.FullPelBackward = r.readFlag()
		h.BackwardFCode = uint8(r.readBits(3))
	}
	if r.err() != nil {
		return h, errors.Wrap(r.err(), "could not parse picture header")
	}
	if h.CodingType < IPicture || h.CodingType > DPicture {
		return h, errors.Wrapf(ErrCodingType, "%d", h.CodingType)
	}
	return h, nil
}

// parsePictureCodingExtension parses a picture_coding_extension following its
// extension start code identifier.
func parsePictureCodingExtension(r *fieldReader) (PictureCodingExtension, error) {
	var e PictureCodingExtension
	e.FCode[0][0] = uint8(r.readBits(4))
	e.FCode[0][1] = uint8(r.readBits(4))
	e.FCode[1][0] = uint8(r.readBits(4))
	e.FCode[1][1] = uint8(r.readBits(4))
	e.IntraDCPrecision = uint8(r.readBits(2))
	e.Structure = uint8(r.readBits(2))
	e.TopFieldFirst = r.readFlag()
	e.FramePredFrameDCT = r.readFlag()
	e.ConcealmentMotionVectors = r.readFlag()
	e.QScaleType = r.readFlag()
	e.IntraVLCFormat = r.readFlag()
	e.AlternateScan = r.readFlag()
	e.RepeatFirstField = r.readFlag()
	e.Chroma420Type = r.readFlag()
	e.ProgressiveFrame = r.readFlag()
	e.CompositeDisplay = r.readFlag()
	if e.CompositeDisplay {
		r.readFlag()  // v_axis
		r.readBits(3) // field_sequence
		r.readFlag()  // sub_carrier
		r.readBits(7) // burst_amplitude
		r.readBits(8) // sub_carrier_phase
	}
	return e, errors.Wrap(r.err(), "could not parse picture coding extension")
}

// parseQuantMatrixExtension parses a quant_matrix_extension following its
// extension start code identifier.
func parseQuantMatrixExtension(r *fieldReader) (QuantMatrixExtension, error) {
	var e QuantMatrixExtension
	e.LoadIntraQuantMat = r.readFlag()
	if e.LoadIntraQuantMat {
		readMatrix(r, &e.IntraQuantMat)
	}
	e.LoadNonIntraQuantMat = r.readFlag()
	if e.LoadNonIntraQuantMat {
		readMatrix(r, &e.NonIntraQuantMat)
	}

	var chroma [64]uint8
	for i := 0; i < 2; i++ {
		if r.readFlag() {
			readMatrix(r, &chroma)
		}
	}
	return e, errors.Wrap(r.err(), "could not parse quant matrix extension")
}
