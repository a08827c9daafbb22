/*
NAME
  ts.go

DESCRIPTION
  ts.go provides constants and packet level helpers for reading MPEG-TS
  carrying MPEG video elementary streams.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ts provides demultiplexing of MPEG video elementary streams from
// MPEG-TS.
package ts

import (
	gotspsi "github.com/Comcast/gots/psi"
	"github.com/pkg/errors"

	"github.com/ausocean/cedar/codec/codecutil"
)

// PacketSize is the size of an MPEG-TS packet.
const PacketSize = 188

// syncByte starts every MPEG-TS packet.
const syncByte = 0x47

// Standard program IDs.
const (
	PatPid  = 0
	NullPid = 0x1fff
)

// Stream types of the video elementary streams that can be decoded.
const (
	StreamTypeMPEG1 = 0x01
	StreamTypeMPEG2 = 0x02
	StreamTypeMPEG4 = 0x10
)

// Errors returned by packet helpers.
var (
	ErrShortPacket = errors.New("packet length less than 188")
	ErrNoPayload   = errors.New("no payload")
	ErrSync        = errors.New("lost packet sync")
	ErrNoPrograms  = errors.New("no programs in PAT")
	ErrNoVideo     = errors.New("no decodable video stream in PMT")
)

// Codec returns the codec name of a video stream type, or the empty string
// if the stream type cannot be decoded.
func Codec(streamType uint8) string {
	switch streamType {
	case StreamTypeMPEG1:
		return codecutil.MPEG1
	case StreamTypeMPEG2:
		return codecutil.MPEG2
	case StreamTypeMPEG4:
		return codecutil.MPEG4
	default:
		return ""
	}
}

// PID returns the packet identifier for the given packet.
func PID(p []byte) (uint16, error) {
	if len(p) < PacketSize {
		return 0, ErrShortPacket
	}
	return uint16(p[1]&0x1f)<<8 | uint16(p[2]), nil
}

// PUSI reports whether the payload unit start indicator of p is set.
func PUSI(p []byte) bool { return p[1]&0x40 != 0 }

// Payload returns the payload of an MPEG-TS packet p. The payload is not a
// copy.
func Payload(p []byte) ([]byte, error) {
	if len(p) < PacketSize {
		return nil, ErrShortPacket
	}
	afc := (p[3] & 0x30) >> 4
	if afc&0x1 == 0 {
		return nil, ErrNoPayload
	}

	off := 4
	if afc&0x2 != 0 {
		off += 1 + int(p[4])
	}
	if off >= PacketSize {
		return nil, ErrNoPayload
	}
	return p[off:PacketSize], nil
}

// Programs returns a map of program numbers and corresponding PMT PIDs for a
// given MPEG-TS PAT packet. The network PID entry, program 0, is omitted.
func Programs(p []byte) (map[uint16]uint16, error) {
	pat, err := gotspsi.NewPAT(p)
	if err != nil {
		return nil, err
	}
	m := make(map[uint16]uint16)
	for k, v := range pat.ProgramMap() {
		if k == 0 {
			continue
		}
		m[uint16(k)] = uint16(v)
	}
	return m, nil
}

// Streams returns the elementary stream PIDs and stream types defined in a
// given MPEG-TS PMT packet.
func Streams(p []byte) (map[uint16]uint8, error) {
	payload, err := Payload(p)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get packet payload")
	}
	pmt, err := gotspsi.NewPMT(payload)
	if err != nil {
		return nil, err
	}
	m := make(map[uint16]uint8)
	for _, s := range pmt.ElementaryStreams() {
		m[uint16(s.ElementaryPid())] = s.StreamType()
	}
	return m, nil
}

// VideoStream returns the lowest PID of the decodable video streams in
// streams, along with its stream type.
func VideoStream(streams map[uint16]uint8) (pid uint16, typ uint8, err error) {
	found := false
	for p, t := range streams {
		if Codec(t) == "" {
			continue
		}
		if !found || p < pid {
			pid, typ, found = p, t, true
		}
	}
	if !found {
		return 0, 0, ErrNoVideo
	}
	return pid, typ, nil
}
