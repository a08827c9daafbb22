/*
DESCRIPTION
  mpeg12.go provides the engine sequencer for MPEG-1 and MPEG-2 pictures.

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
	"github.com/ausocean/cedar/device"
	"github.com/ausocean/cedar/device/regs"
	"github.com/pkg/errors"
)

type mpeg12Codec struct {
	d     *Decoder
	mpeg1 bool
}

func (c *mpeg12Codec) decode(info PictureInfo, n int, out *Surface) error {
	pic, ok := info.(*MPEG12Picture)
	if !ok || pic == nil {
		return errors.Wrapf(ErrPictureInfo, "got %T", info)
	}
	d := c.d
	data := d.vbv.Bytes()[:n]
	start := mpeg12.FindSliceOffset(data)

	b, err := d.eng.Acquire(device.KindMPEG)
	if err != nil {
		return errors.Wrap(err, "could not acquire engine")
	}

	// Quantiser matrices, indexed by scan position.
	for i := 0; i < 64; i++ {
		b.Write(regs.MPEGIQMinInput, regs.IQEntry(64+int(mpeg12.RasterToScan[i]), pic.IntraQuantMatrix[i]))
	}
	for i := 0; i < 64; i++ {
		b.Write(regs.MPEGIQMinInput, regs.IQEntry(int(mpeg12.RasterToScan[i]), pic.NonIntraQuantMatrix[i]))
	}

	mbw, mbh := mbDims(d.width, d.height)
	b.Write(regs.MPEGSize, regs.Size(mbw, mbh, false))
	b.Write(regs.MPEGFrameSize, regs.FrameSize(mbw, mbh))

	b.Write(regs.MPEGPicHdr, regs.PicHeader{
		CodingType:               uint8(pic.CodingType),
		FCode:                    pic.FCode,
		IntraDCPrecision:         pic.IntraDCPrecision,
		Structure:                pic.Structure,
		TopFieldFirst:            pic.TopFieldFirst,
		FramePredFrameDCT:        pic.FramePredFrameDCT,
		ConcealmentMotionVectors: pic.ConcealmentMotionVectors,
		QScaleType:               pic.QScaleType,
		IntraVLCFormat:           pic.IntraVLCFormat,
		AlternateScan:            pic.AlternateScan,
		FullPelForward:           pic.FullPelForward,
		FullPelBackward:          pic.FullPelBackward,
		MPEG1:                    c.mpeg1,
	}.Word())

	ver := d.eng.Version()
	b.Write(regs.MPEGCtrl, regs.MPEGControl{
		FinishIntEnable: true,
		ErrorIntEnable:  true,
		VLDMemReqEnable: true,
		NotWriteRecons:  !device.HasNV12(ver),
		WriteRotate:     true,
		MCCacheEnable:   true,
	}.Word())
	if device.HasNV12(ver) {
		b.Write(regs.ExtraOutFmtOffset, regs.ExtraOutFmtEnable)
	}

	if pic.Forward != nil {
		b.Write(regs.MPEGFwdLuma, pic.Forward.Luma.Phys())
		b.Write(regs.MPEGFwdChroma, pic.Forward.Chroma.Phys())
	}
	if pic.Backward != nil {
		b.Write(regs.MPEGBackLuma, pic.Backward.Luma.Phys())
		b.Write(regs.MPEGBackChroma, pic.Backward.Chroma.Phys())
	}
	b.Write(regs.MPEGRecLuma, out.Luma.Phys())
	b.Write(regs.MPEGRecChroma, out.Chroma.Phys())
	b.Write(regs.MPEGRotLuma, out.Luma.Phys())
	b.Write(regs.MPEGRotChroma, out.Chroma.Phys())

	if d.nv12 && device.HasNV12(ver) {
		b.Write(regs.OutputFormat, regs.FormatNV12|regs.ExtraFormatNV12)
		out.Format = FormatNV12
	}

	phys := d.vbv.Phys()
	b.Write(regs.MPEGVLDOffset, uint32(start*8))
	b.Write(regs.MPEGVLDLen, uint32((n-start)*8))
	b.Write(regs.MPEGVLDEnd, phys+uint32(d.vbv.Size())-1)
	b.Write(regs.MPEGVLDAddr, regs.VLDAddr(phys))

	format := uint8(regs.DecFormatMPEG2)
	if c.mpeg1 {
		format = regs.DecFormatMPEG1
	}
	b.Write(regs.MPEGTrigger, regs.Trigger{
		StartType:  regs.StartTypeMPEG2,
		DecFormat:  format,
		MBBoundary: true,
	}.Word())

	werr := d.wait()
	b.Write(regs.MPEGStatus, regs.StatusClear)
	rerr := d.eng.Release()
	if werr != nil {
		return errors.Wrap(werr, "picture not decoded")
	}
	if rerr != nil {
		return errors.Wrap(rerr, "could not release engine")
	}
	out.Decoded = true
	return nil
}

func (c *mpeg12Codec) close() error { return nil }
