/*
DESCRIPTION
  mpeg4.go provides the engine sequencer for MPEG-4 Part 2 pictures. The
  bitstream is scanned for VOL and VOP headers, and each coded VOP is decoded
  one video packet run at a time, resynchronising at packet headers when the
  engine stops short of the end of the picture.

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
	"github.com/ausocean/cedar/codec/bits"
	"github.com/ausocean/cedar/codec/mpeg4"
	"github.com/ausocean/cedar/device"
	"github.com/ausocean/cedar/device/regs"
	"github.com/pkg/errors"
)

// Private buffer sizes.
const (
	mbhBytesPerRow = 2048
	dcacBytesPerMB = 2
	ncfBytes       = 4096
)

type mpeg4Codec struct {
	d *Decoder
	p *mpeg4.Parser

	// Engine scratch buffers for macroblock headers, DC/AC prediction and
	// the neighbour context.
	mbh  device.Buffer
	dcac device.Buffer
	ncf  device.Buffer
}

func newMPEG4Codec(d *Decoder) (*mpeg4Codec, error) {
	mbw, mbh := mbDims(d.width, d.height)
	c := &mpeg4Codec{d: d, p: mpeg4.NewParser(d.log, d.strict)}

	var err error
	c.mbh, err = d.alloc.Alloc(mbh * mbhBytesPerRow)
	if err != nil {
		return nil, errors.Wrapf(ErrResources, "could not allocate macroblock header buffer: %v", err)
	}
	c.dcac, err = d.alloc.Alloc(mbw * mbh * dcacBytesPerMB)
	if err != nil {
		d.alloc.Free(c.mbh)
		return nil, errors.Wrapf(ErrResources, "could not allocate DC/AC buffer: %v", err)
	}
	c.ncf, err = d.alloc.Alloc(ncfBytes)
	if err != nil {
		d.alloc.Free(c.dcac)
		d.alloc.Free(c.mbh)
		return nil, errors.Wrapf(ErrResources, "could not allocate NCF buffer: %v", err)
	}
	return c, nil
}

func (c *mpeg4Codec) close() error {
	var errs device.MultiError
	errs.Add(c.d.alloc.Free(c.ncf))
	errs.Add(c.d.alloc.Free(c.dcac))
	errs.Add(c.d.alloc.Free(c.mbh))
	return errs.Err()
}

// decode scans the bitstream for headers, decoding every coded VOP found.
// A VOP before any VOL fails the call. Other header errors and engine
// timeouts fail only the picture concerned; the first such error is
// returned once the scan completes.
func (c *mpeg4Codec) decode(info PictureInfo, n int, out *Surface) error {
	pic, ok := info.(*MPEG4Picture)
	if !ok || pic == nil {
		return errors.Wrapf(ErrPictureInfo, "got %T", info)
	}
	d := c.d
	br := bits.NewReader(d.vbv.Bytes()[:n])

	var first error
	for br.FindStartCode() {
		code := byte(br.Read(8))
		switch {
		case code == mpeg4.VOPStartCode:
			coded, err := c.p.ParseVOP(br)
			if errors.Is(err, mpeg4.ErrNoVOL) {
				return errors.Wrap(err, "uninitialized sequence")
			}
			if err != nil {
				d.log.Warning(pkg+"could not parse VOP header", "error", err)
				if first == nil {
					first = err
				}
				continue
			}
			if !coded {
				d.log.Debug(pkg + "skipping uncoded VOP")
				continue
			}
			err = c.picture(br, pic, n, out)
			if err != nil && first == nil {
				first = err
			}

		case mpeg4.IsVOLStart(code):
			err := c.p.ParseVOL(br)
			if err != nil {
				d.log.Warning(pkg+"could not parse VOL header", "error", err)
			}
		}
	}
	return first
}

// picture programs the engine for the VOP just parsed from br and runs it
// to completion, resuming at each video packet the engine stops before.
func (c *mpeg4Codec) picture(br *bits.Reader, pic *MPEG4Picture, n int, out *Surface) error {
	d := c.d
	p := c.p
	vop := &p.VOP

	b, err := d.eng.Acquire(device.KindMPEG)
	if err != nil {
		return errors.Wrap(err, "could not acquire engine")
	}
	regs.Select(b, regs.EngineMPEG)

	for i := 0; i < 64; i++ {
		b.Write(regs.MPEGIQMinInput, regs.IQEntry(64+i, pic.IntraQuantMatrix[i]))
	}
	for i := 0; i < 64; i++ {
		b.Write(regs.MPEGIQMinInput, regs.IQEntry(i, pic.NonIntraQuantMatrix[i]))
	}

	if pic.Forward != nil {
		b.Write(regs.MPEGFwdLuma, pic.Forward.Luma.Phys())
		b.Write(regs.MPEGFwdChroma, pic.Forward.Chroma.Phys())
	}
	if pic.Backward != nil {
		b.Write(regs.MPEGBackLuma, pic.Backward.Luma.Phys())
		b.Write(regs.MPEGBackChroma, pic.Backward.Chroma.Phys())
	} else {
		b.Write(regs.MPEGBackLuma, 0)
		b.Write(regs.MPEGBackChroma, 0)
	}

	if vop.CodingType == mpeg4.BVOP {
		b.Write(regs.MPEGTRBTRDFrame, regs.Pair(pic.TRB[0], pic.TRD[0]))
		if pic.Interlaced {
			b.Write(regs.MPEGTRBTRDField, uint32((pic.TRB[1]<<1)&0xff)<<8|uint32((pic.TRD[1]<<1)&0xff))
		}
	}

	mbw, mbh := p.VOL.MBWidth(), p.VOL.MBHeight()
	if p.VOL.Width == 0 || p.VOL.Height == 0 {
		mbw, mbh = mbDims(d.width, d.height)
	}
	total := mbw * mbh
	b.Write(regs.MPEGSize, regs.Size(mbw, mbh, true))
	b.Write(regs.MPEGFrameSize, regs.FrameSize(mbw, mbh))

	b.Write(regs.MPEGMBHAddr, c.mbh.Phys())
	b.Write(regs.MPEGDCACAddr, c.dcac.Phys())
	b.Write(regs.MPEGNCFAddr, c.ncf.Phys())

	b.Write(regs.MPEGRecLuma, out.Luma.Phys())
	b.Write(regs.MPEGRecChroma, out.Chroma.Phys())
	b.Write(regs.MPEGRotLuma, out.Luma.Phys())
	b.Write(regs.MPEGRotChroma, out.Chroma.Phys())

	ver := d.eng.Version()
	if d.nv12 && device.HasNV12(ver) {
		b.Write(regs.OutputFormat, regs.FormatNV12|regs.ExtraFormatNV12)
		b.Write(regs.ExtraOutFmtOffset, regs.ExtraOutFmtEnable)
		b.Write(regs.OutputStride, regs.Stride(out.Width))
		b.Write(regs.ExtraOutStride, regs.Stride(out.Width))
		out.Format = FormatNV12
	}

	b.Write(regs.MPEGSDRotCtrl, regs.SDRotCtrlNone)
	b.Write(regs.MPEGCtrl, c.control(pic, ver).Word())
	b.Write(regs.MPEGMBA, 0)

	hdr := c.vopHeader(pic).Word()
	markerLen := p.MarkerLength()
	phys := d.vbv.Phys()

	var (
		mba  uint32
		last int
		werr error
	)
	for {
		b.Write(regs.MPEGVOPHdr, hdr)
		b.Write(regs.MPEGQPInput, uint32(vop.Quant))
		b.Write(regs.MPEGMBA, mba)
		b.Write(regs.MPEGMSMPEG4Hdr, 0)
		b.Write(regs.MPEGCtrMB, 0)
		if vop.CodingType == mpeg4.SVOP {
			writeSprite(b, &vop.GMC)
		}

		// The run ends at the next video packet, or the end of the picture.
		next := p.Packet.CurrMBNum
		if !pic.ResyncMarkerDisable {
			next = p.NextPacketMB(br)
		}
		if next == 0 {
			next = total
		}
		gob := next - last
		if gob <= 0 {
			next = total
			gob = total - last
		}

		pos := br.Pos()
		b.Write(regs.MPEGStatus, regs.StatusClearAll)
		b.Write(regs.MPEGVLDOffset, uint32(pos))
		b.Write(regs.MPEGVLDLen, uint32((n*8-pos+31)&^31))
		b.Write(regs.MPEGVLDEnd, phys+uint32(d.vbv.Size())-1)
		b.Write(regs.MPEGVLDAddr, regs.VLDAddr(phys))
		b.Write(regs.MPEGTrigger, regs.Trigger{
			StartType:    regs.StartTypeMPEG4,
			NumMBInGOB:   uint16(gob),
			DecFormat:    regs.DecFormatMPEG4,
			ChromaFormat: regs.Chroma420,
			MBBoundary:   true,
		}.Word())
		last = next

		werr = d.wait()
		b.Write(regs.MPEGStatus, regs.StatusClear)
		if werr != nil {
			break
		}

		if e := b.Read(regs.MPEGError); e != 0 {
			d.log.Warning(pkg+"engine reported error", "error", e, "mb", last)
			d.obs.EngineError(e)
		}
		b.Write(regs.MPEGError, 0)

		resume := false
		off := int(b.Read(regs.MPEGVLDOffset))
		if off < n*8 && !pic.ResyncMarkerDisable {
			resume = c.resync(br, off, pos, markerLen)
			if resume {
				mba = p.Packet.MBA()
			}
		}
		b.Write(regs.MPEGCtrl, b.Read(regs.MPEGCtrl)|regs.CtrlResume)
		if !resume {
			break
		}
	}

	regs.Select(b, regs.EngineNone)
	rerr := d.eng.Release()
	if werr != nil {
		return errors.Wrapf(werr, "%s picture not decoded", vop.CodingType)
	}
	if rerr != nil {
		return errors.Wrap(rerr, "could not release engine")
	}
	out.Decoded = true
	return nil
}

// resync positions br at the video packet following the engine's stopping
// offset off and parses its header. It returns false if there is no such
// packet, its header is corrupt, or it does not lie beyond the start of the
// previous run at prev.
func (c *mpeg4Codec) resync(br *bits.Reader, off, prev, markerLen int) bool {
	d := c.d
	p := c.p
	br.SetPos(off &^ 7)
	if !br.FindResyncCode(markerLen) {
		return false
	}
	err := p.ParsePacketHeader(br)
	if err != nil {
		d.log.Warning(pkg+"abandoning resync", "offset", off, "error", err)
		return false
	}
	if br.Pos() <= prev {
		d.log.Warning(pkg+"engine made no progress", "offset", off, "mb", p.Packet.MBNum)
		return false
	}
	p.VOP.Quantizer = p.VOP.Quant
	d.obs.Resync(p.Packet.MBNum)
	d.log.Debug(pkg+"resuming at video packet", "mb", p.Packet.MBNum, "quant", p.VOP.Quant)
	return true
}

// control returns the MPEGCtrl fields for the current VOP.
func (c *mpeg4Codec) control(pic *MPEG4Picture, ver uint32) regs.MPEGControl {
	ct := c.p.VOP.CodingType
	ctl := regs.MPEGControl{
		FinishIntEnable: true,
		ErrorIntEnable:  true,
		NotWriteRecons:  !device.HasNV12(ver),
		WriteRotate:     true,
		OutputEnable:    ct == mpeg4.PVOP,
		OutloopDeblock:  true,
		QPACDCOutEnable: true,
		MVCSFieldHM:     true,
		MCCacheEnable:   true,
	}
	if pic.QuarterSample {
		switch ct {
		case mpeg4.BVOP:
			ctl.MVCSMV1QM, ctl.MVCSMV4QM, ctl.MVCSFieldQM = 1, 2, 1
		case mpeg4.PVOP, mpeg4.SVOP:
			ctl.MVCSMV1QM, ctl.MVCSMV4QM, ctl.MVCSFieldQM = 2, 1, 2
		}
	}
	return ctl
}

// vopHeader returns the MPEGVOPHdr fields for the current VOP.
func (c *mpeg4Codec) vopHeader(pic *MPEG4Picture) regs.VOPHeader {
	vol := &c.p.VOL
	vop := &c.p.VOP
	h := regs.VOPHeader{
		ShortVideoHeader:    pic.ShortVideoHeader,
		Interlaced:          pic.Interlaced,
		SpriteAccuracy:      uint8(vol.WarpingAccuracy),
		QuantType:           pic.QuantType,
		QuarterSample:       pic.QuarterSample,
		ResyncMarkerDisable: pic.ResyncMarkerDisable,
		WarpingPoints:       uint8(vop.GMC.EffectivePoints),
		CodingType:          uint8(vop.CodingType),
		RoundingType:        pic.RoundingControl,
		IntraDCVLCThreshold: vop.IntraDCVLCThreshold,
		TopFieldFirst:       pic.TopFieldFirst,
		AlternateVScan:      pic.AlternateVerticalScan,
		H263Escape:          pic.ShortVideoHeader,
	}
	if vop.CodingType != mpeg4.IVOP {
		h.FCodeForward = pic.FCodeForward
	}
	if vop.CodingType == mpeg4.BVOP {
		h.FCodeBackward = pic.FCodeBackward
		h.CoLocatedType = 1
		if vop.LastCodingType == mpeg4.SVOP {
			h.CoLocatedType = 3
		}
	}
	return h
}

// writeSprite writes the global motion compensation registers of an S-VOP.
func writeSprite(b regs.Bus, g *mpeg4.GMC) {
	x := regs.Pair(g.VirtualRef2[0][0], g.VirtualRef2[1][0])
	y := regs.Pair(g.VirtualRef2[0][1], g.VirtualRef2[1][1])
	b.Write(regs.MPEGSDLX, x)
	b.Write(regs.MPEGSDLY, y)
	b.Write(regs.MPEGSpriteShift, uint32(g.Shift[0])&0xff|(uint32(g.Shift[1])&0xff)<<8)
	b.Write(regs.MPEGSDCX, x)
	b.Write(regs.MPEGSDCY, y)
	b.Write(regs.MPEGSOL, regs.Pair(g.Ref[0][0], g.Ref[0][1]))
	b.Write(regs.MPEGSOCX, uint32(g.SOCX))
	b.Write(regs.MPEGSOCY, uint32(g.SOCY))
	b.Write(regs.MPEGMV5, g.MV5Upper<<16|g.MV5Lower)
	b.Write(regs.MPEGMV6, g.MV6Upper<<16|g.MV6Lower)
}
