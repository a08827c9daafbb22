/*
NAME
  rtp.go

DESCRIPTION
  rtp.go provides Packet, which encodes the fields of an RTP packet.

  See https://tools.ietf.org/html/rfc3550 for the RTP standard, and
  https://tools.ietf.org/html/rfc2250 and https://tools.ietf.org/html/rfc3016
  for the MPEG-1/2 and MPEG-4 Visual payload formats.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package rtp provides reception of MPEG video elementary streams carried
// over RTP, along with functions to encode and access the fields of RTP
// packets.
package rtp

import (
	"encoding/binary"
)

const (
	rtpVer           = 2  // Version of RTP that this package is compatible with.
	headSize         = 12 // Header size of an rtp packet.
	optionalFieldIdx = 12 // This is the idx of optional fields including CSRC and extension header in an RTP packet.
)

// Payload types of the MPEG video payload formats.
const (
	PayloadTypeMPV     = 32 // MPEG-1/2 video, RFC 2250.
	PayloadTypeDynamic = 96 // First dynamic type, as negotiated for MP4V-ES, RFC 3016.
)

// Packet provides fields consistent with RFC3550 definition of an rtp packet.
// The padding indicator does not need to be set manually, only the padding.
type Packet struct {
	Version     uint8           // Version (currently 2).
	ExtHeadFlag bool            // Extension header indicator.
	CSRCCount   uint8           // CSRC count.
	Marker      bool            // Marker bit, set on the last packet of a picture.
	PayloadType uint8           // Payload type.
	Sequence    uint16          // Sequence number.
	Timestamp   uint32          // Timestamp.
	SSRC        uint32          // Synchronisation source identifier.
	CSRC        [][4]byte       // Contributing source identifier.
	Extension   ExtensionHeader // Header extension.
	Payload     []byte          // Payload data.
	Padding     int             // Number of padding bytes, including the count.
}

// ExtensionHeader header provides fields for an RTP packet extension header.
type ExtensionHeader struct {
	ID     uint16
	Header [][4]byte
}

// Bytes returns the encoded packet, using buf if it has sufficient capacity.
func (p *Packet) Bytes(buf []byte) []byte {
	extLen := 0
	if p.ExtHeadFlag {
		extLen = 4 + 4*len(p.Extension.Header)
	}
	n := headSize + 4*int(p.CSRCCount) + extLen + len(p.Payload) + p.Padding
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]

	buf[0] = p.Version<<6 | asByte(p.Padding > 0)<<5 | asByte(p.ExtHeadFlag)<<4 | p.CSRCCount
	buf[1] = asByte(p.Marker)<<7 | p.PayloadType&0x7f
	binary.BigEndian.PutUint16(buf[2:4], p.Sequence)
	binary.BigEndian.PutUint32(buf[4:8], p.Timestamp)
	binary.BigEndian.PutUint32(buf[8:12], p.SSRC)

	if int(p.CSRCCount) != len(p.CSRC) {
		panic("CSRC count in RTP packet is incorrect")
	}
	for i, c := range p.CSRC {
		copy(buf[optionalFieldIdx+i*4:], c[:])
	}

	idx := optionalFieldIdx + 4*int(p.CSRCCount)
	if p.ExtHeadFlag {
		binary.BigEndian.PutUint16(buf[idx:idx+2], p.Extension.ID)
		binary.BigEndian.PutUint16(buf[idx+2:idx+4], uint16(len(p.Extension.Header)))
		idx += 4
		for _, h := range p.Extension.Header {
			copy(buf[idx:], h[:])
			idx += 4
		}
	}

	idx += copy(buf[idx:], p.Payload)

	if p.Padding > 0 {
		for i := idx; i < n-1; i++ {
			buf[i] = 0
		}
		buf[n-1] = byte(p.Padding)
	}
	return buf
}

func asByte(b bool) byte {
	if b {
		return 0x01
	}
	return 0x00
}
