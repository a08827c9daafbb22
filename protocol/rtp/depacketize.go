/*
NAME
  depacketize.go

DESCRIPTION
  depacketize.go provides Depacketizer, which recovers an MPEG video
  elementary stream from the RTP packets carrying it.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package rtp

import (
	"io"
	"net"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Log prefix.
const pkg = "rtp: "

// Size of the buffer packets are read into, the largest UDP payload.
const maxPacketSize = 1 << 16

// RFC 2250 header sizes and the flag marking an MPEG-2 extension header.
const (
	mpvHeadSize    = 4
	mpvExtHeadSize = 4
	mpvExtFlag     = 0x04
)

// ErrSSRC is reported for packets from a source other than the first.
var ErrSSRC = errors.New("packet from unexpected source")

// Depacketizer reads RTP packets, one per Read of the source, and provides
// the elementary stream they carry through its own Read method. Payload
// type 32 is taken to be MPEG-1/2 video with RFC 2250 headers; any other
// type is taken to carry the stream directly, as MP4V-ES does. Packets from
// sources other than the first are dropped. A source read timing out ends
// the stream.
type Depacketizer struct {
	src io.Reader
	log logging.Logger

	pkt     []byte
	buf     []byte
	ssrc    uint32
	seq     uint16
	started bool

	lost int
}

// NewDepacketizer returns a Depacketizer reading packets from src.
func NewDepacketizer(src io.Reader, log logging.Logger) *Depacketizer {
	return &Depacketizer{src: src, log: log, pkt: make([]byte, maxPacketSize)}
}

// Lost returns the number of packets found missing from the sequence.
func (d *Depacketizer) Lost() int { return d.lost }

// Read implements io.Reader.
func (d *Depacketizer) Read(p []byte) (int, error) {
	for len(d.buf) == 0 {
		n, err := d.src.Read(d.pkt)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				d.log.Info(pkg + "stream timed out")
				return 0, io.EOF
			}
			return 0, err
		}
		d.buf, err = d.payload(d.pkt[:n])
		if err != nil {
			d.log.Warning(pkg+"dropping packet", "error", err.Error())
		}
	}
	n := copy(p, d.buf)
	d.buf = d.buf[n:]
	return n, nil
}

// payload returns the elementary stream data in pkt.
func (d *Depacketizer) payload(pkt []byte) ([]byte, error) {
	ssrc, err := SSRC(pkt)
	if err != nil {
		return nil, err
	}
	seq, _ := Sequence(pkt)
	switch {
	case !d.started:
		d.ssrc, d.started = ssrc, true
	case ssrc != d.ssrc:
		return nil, errors.Wrapf(ErrSSRC, "got %#x, want %#x", ssrc, d.ssrc)
	default:
		// Gaps of half the sequence space or more are reordering.
		if gap := seq - d.seq - 1; gap != 0 && gap < 0x8000 {
			d.lost += int(gap)
			d.log.Warning(pkg+"packets lost", "count", gap, "sequence", seq)
		}
	}
	d.seq = seq

	b, err := Payload(pkt)
	if err != nil {
		return nil, err
	}
	pt, _ := PayloadType(pkt)
	if pt != PayloadTypeMPV {
		return b, nil
	}

	off := mpvHeadSize
	if len(b) > 0 && b[0]&mpvExtFlag != 0 {
		off += mpvExtHeadSize
	}
	if len(b) < off {
		return nil, errors.Wrap(ErrShortPacket, "MPEG video header")
	}
	return b[off:], nil
}
