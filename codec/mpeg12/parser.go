/*
DESCRIPTION
  parser.go provides Parser, which follows the headers of an MPEG-1/2
  elementary stream and produces the picture parameters of each picture.

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

// PictureInfo holds the parameters of one picture as consumed by the
// hardware decoder. Matrices are in raster order.
type PictureInfo struct {
	CodingType               CodingType
	FCode                    [2][2]uint8
	IntraDCPrecision         uint8
	Structure                uint8
	TopFieldFirst            bool
	FramePredFrameDCT        bool
	ConcealmentMotionVectors bool
	QScaleType               bool
	IntraVLCFormat           bool
	AlternateScan            bool
	FullPelForward           bool
	FullPelBackward          bool
	IntraQuantMatrix         [64]uint8
	NonIntraQuantMatrix      [64]uint8
}

// Parser tracks the sequence level state of an MPEG-1/2 stream.
type Parser struct {
	Seq    SequenceHeader
	HasSeq bool
	SeqExt SequenceExtension

	// MPEG2 is true once a sequence extension has been seen.
	MPEG2 bool

	Pic    PictureHeader
	PicExt PictureCodingExtension

	intra    [64]uint8
	nonIntra [64]uint8
	log      logging.Logger
}

// NewParser returns a new Parser logging to log, which may be nil.
func NewParser(log logging.Logger) *Parser {
	return &Parser{log: log}
}

// Width returns the sequence width including any MPEG-2 extension bits.
func (p *Parser) Width() int { return p.Seq.Width | int(p.SeqExt.WidthExtension)<<12 }

// Height returns the sequence height including any MPEG-2 extension bits.
func (p *Parser) Height() int { return p.Seq.Height | int(p.SeqExt.HeightExtension)<<12 }

// Parse parses the headers of the access unit au, which is expected to hold
// a single picture and any sequence or group headers preceding it. Parsing
// stops at the first slice. The sequence state is retained for subsequent
// units.
func (p *Parser) Parse(au []byte) (PictureInfo, error) {
	br := bits.NewReader(au)
	r := &fieldReader{br: br, log: p.log}
	var (
		pic     bool
		picExt  bool
		picQExt QuantMatrixExtension
	)

	for br.FindStartCode() {
		code := byte(br.Read(8))
		var err error
		switch {
		case code == SequenceStartCode:
			var h SequenceHeader
			h, err = parseSequenceHeader(r)
			if err != nil {
				err = errors.Wrap(err, "could not parse sequence header")
				break
			}
			p.Seq, p.HasSeq = h, true
			p.SeqExt = SequenceExtension{}
			p.MPEG2 = false
			p.intra, p.nonIntra = h.IntraQuantMat, h.NonIntraQuantMat
			if p.log != nil {
				p.log.Debug(pkg+"parsed sequence header", "width", h.Width, "height", h.Height)
			}

		case code == ExtensionStartCode:
			err = p.parseExtension(r, pic, &picExt, &picQExt)
			if err != nil {
				err = errors.Wrap(err, "could not parse extension")
			}

		case code == PictureStartCode:
			if !p.HasSeq {
				return PictureInfo{}, ErrNoSequence
			}
			p.Pic, err = parsePictureHeader(r)
			pic = err == nil
			if err != nil {
				err = errors.Wrap(err, "could not parse picture header")
			}

		case IsSlice(code):
			if pic {
				return p.info(picExt, picQExt), nil
			}
		}
		if err != nil {
			return PictureInfo{}, err
		}
		r.e = nil
	}

	if !pic {
		return PictureInfo{}, ErrNoPicture
	}
	return p.info(picExt, picQExt), nil
}

// parseExtension parses the extension following an extension start code.
// Extensions after a picture header belong to that picture.
func (p *Parser) parseExtension(r *fieldReader, pic bool, picExt *bool, q *QuantMatrixExtension) error {
	id := r.readBits(4)
	var err error
	switch id {
	case extSequence:
		p.SeqExt, err = parseSequenceExtension(r)
		p.MPEG2 = err == nil
	case extPictureCoding:
		if !pic {
			break
		}
		p.PicExt, err = parsePictureCodingExtension(r)
		*picExt = err == nil
	case extQuantMatrix:
		*q, err = parseQuantMatrixExtension(r)
		if err == nil && !pic {
			// A quant matrix extension before a picture persists for the
			// sequence.
			if q.LoadIntraQuantMat {
				p.intra = q.IntraQuantMat
			}
			if q.LoadNonIntraQuantMat {
				p.nonIntra = q.NonIntraQuantMat
			}
			*q = QuantMatrixExtension{}
		}
	case extSequenceDisplay:
	default:
		if p.log != nil {
			p.log.Debug(pkg+"skipping extension", "id", id)
		}
	}
	return err
}

// info builds the PictureInfo for the current picture.
func (p *Parser) info(hasExt bool, q QuantMatrixExtension) PictureInfo {
	if q.LoadIntraQuantMat {
		p.intra = q.IntraQuantMat
	}
	if q.LoadNonIntraQuantMat {
		p.nonIntra = q.NonIntraQuantMat
	}

	info := PictureInfo{
		CodingType:          p.Pic.CodingType,
		IntraQuantMatrix:    p.intra,
		NonIntraQuantMatrix: p.nonIntra,
	}

	if p.MPEG2 && hasExt {
		e := p.PicExt
		info.FCode = e.FCode
		info.IntraDCPrecision = e.IntraDCPrecision
		info.Structure = e.Structure
		info.TopFieldFirst = e.TopFieldFirst
		info.FramePredFrameDCT = e.FramePredFrameDCT
		info.ConcealmentMotionVectors = e.ConcealmentMotionVectors
		info.QScaleType = e.QScaleType
		info.IntraVLCFormat = e.IntraVLCFormat
		info.AlternateScan = e.AlternateScan
		return info
	}

	// MPEG-1 carries its motion parameters in the picture header.
	info.FCode = [2][2]uint8{{unusedFCode, unusedFCode}, {unusedFCode, unusedFCode}}
	if p.Pic.CodingType == PPicture || p.Pic.CodingType == BPicture {
		info.FCode[0] = [2]uint8{p.Pic.ForwardFCode, p.Pic.ForwardFCode}
		info.FullPelForward = p.Pic.FullPelForward
	}
	if p.Pic.CodingType == BPicture {
		info.FCode[1] = [2]uint8{p.Pic.BackwardFCode, p.Pic.BackwardFCode}
		info.FullPelBackward = p.Pic.FullPelBackward
	}
	info.Structure = Frame
	info.FramePredFrameDCT = true
	return info
}
