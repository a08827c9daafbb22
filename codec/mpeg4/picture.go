/*
DESCRIPTION
  picture.go provides PictureInfo, the per picture parameters handed to the
  hardware decoder, and their derivation from parsed VOL and VOP headers.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mpeg4

// PictureInfo holds the parameters of one picture as supplied to the
// hardware decoder. Matrices are in zigzag scan order.
type PictureInfo struct {
	// TRD and TRB are the temporal distances between the surrounding
	// reference pictures, and between the forward reference and a B picture.
	// Index 0 is the frame distance and 1 the field distance.
	TRD [2]int32
	TRB [2]int32

	TimeIncrementResolution uint16
	CodingType              CodingType
	FCodeForward            uint8
	FCodeBackward           uint8
	ResyncMarkerDisable     bool
	Interlaced              bool
	QuantType               bool
	QuarterSample           bool
	ShortVideoHeader        bool
	RoundingControl         bool
	AlternateVerticalScan   bool
	TopFieldFirst           bool
	IntraQuantMatrix        [64]uint8
	NonIntraQuantMatrix     [64]uint8
}

// clock tracks VOP display times to derive the TRD and TRB distances.
type clock struct {
	timeBase     int64
	lastTimeBase int64
	lastNonBTime int64
	ppTime       int64
	pbTime       int64
}

// update advances the clock for a VOP of type ct. Reference pictures move
// the time base forward; B pictures are timed against the base of the
// previous reference.
func (c *clock) update(ct CodingType, modulo int, inc uint32, res uint16) {
	r := int64(res)
	if r == 0 {
		r = 1
	}
	if ct != BVOP {
		c.lastTimeBase = c.timeBase
		c.timeBase += int64(modulo)
		t := c.timeBase*r + int64(inc)
		c.ppTime = t - c.lastNonBTime
		c.lastNonBTime = t
		return
	}
	t := (c.lastTimeBase+int64(modulo))*r + int64(inc)
	c.pbTime = c.ppTime - (c.lastNonBTime - t)
}

// PictureInfo returns the hardware picture parameters for the current VOP.
func (p *Parser) PictureInfo() PictureInfo {
	vol := &p.VOL
	vop := &p.VOP
	info := PictureInfo{
		TimeIncrementResolution: vol.TimeIncrementResolution,
		CodingType:              vop.CodingType,
		FCodeForward:            uint8(vop.FCodeForward),
		FCodeBackward:           uint8(vop.FCodeBackward),
		ResyncMarkerDisable:     vol.ResyncMarkerDisable,
		Interlaced:              vol.Interlaced,
		QuantType:               vol.QuantType,
		QuarterSample:           vol.QuarterSample,
		RoundingControl:         vop.RoundingType,
		AlternateVerticalScan:   vop.AlternateVerticalScan,
		TopFieldFirst:           vop.TopFieldFirst,
	}
	if vop.CodingType == BVOP {
		info.TRD = [2]int32{int32(p.clock.ppTime), int32(p.clock.ppTime)}
		info.TRB = [2]int32{int32(p.clock.pbTime), int32(p.clock.pbTime)}
	}
	for i := 0; i < 64; i++ {
		info.IntraQuantMatrix[i] = vol.IntraQuantMat[ZigZag[i]]
		info.NonIntraQuantMatrix[i] = vol.NonIntraQuantMat[ZigZag[i]]
	}
	return info
}
