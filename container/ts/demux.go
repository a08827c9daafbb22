/*
NAME
  demux.go

DESCRIPTION
  demux.go provides Demuxer, which reassembles the PES packets of the first
  decodable video stream in an MPEG-TS stream into access units.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ts

import (
	"io"

	"github.com/Comcast/gots/packet"
	"github.com/Comcast/gots/pes"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Log prefix.
const pkg = "ts: "

// Unit is the payload of one PES packet of the video stream.
type Unit struct {
	PID        uint16
	StreamType uint8
	StreamID   uint8
	PTS        uint64
	Data       []byte
}

// Demuxer reads MPEG-TS from an io.Reader. The PAT selects the program with
// the lowest program number, and that program's PMT selects the video
// stream. PSI tables must fit in a single packet.
type Demuxer struct {
	r   io.Reader
	log logging.Logger

	pmt   int // PMT PID, -1 until a PAT is seen.
	video int // Video PID, -1 until a PMT is seen.
	typ   uint8
	cur   *Unit
	pkt   packet.Packet
	eof   bool
}

// NewDemuxer returns a Demuxer reading from r and logging to log.
func NewDemuxer(r io.Reader, log logging.Logger) *Demuxer {
	return &Demuxer{r: r, log: log, pmt: -1, video: -1}
}

// StreamType returns the type of the selected video stream, or 0 if no PMT
// has been seen yet.
func (d *Demuxer) StreamType() uint8 { return d.typ }

// Next returns the next complete unit of the video stream. A unit is
// complete once the next payload unit start of the stream is seen or the
// input ends. Next returns io.EOF when no units remain.
func (d *Demuxer) Next() (*Unit, error) {
	for !d.eof {
		_, err := io.ReadFull(d.r, d.pkt[:])
		switch err {
		case nil:
		case io.ErrUnexpectedEOF:
			d.log.Warning(pkg+"discarding truncated packet")
			fallthrough
		case io.EOF:
			d.eof = true
			continue
		default:
			return nil, errors.Wrap(err, "could not read packet")
		}

		if d.pkt[0] != syncByte {
			return nil, ErrSync
		}

		u, err := d.handle(d.pkt[:])
		if err != nil {
			return nil, err
		}
		if u != nil {
			return u, nil
		}
	}

	if d.cur == nil {
		if d.video < 0 {
			return nil, ErrNoVideo
		}
		return nil, io.EOF
	}
	u := d.cur
	d.cur = nil
	return u, nil
}

// handle processes one packet, returning a unit if the packet completes one.
func (d *Demuxer) handle(p []byte) (*Unit, error) {
	pid, _ := PID(p)
	switch {
	case pid == PatPid:
		if !PUSI(p) {
			return nil, nil
		}
		progs, err := Programs(p)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse PAT")
		}
		if len(progs) == 0 {
			return nil, ErrNoPrograms
		}
		first := true
		var num uint16
		for n, pmt := range progs {
			if first || n < num {
				num, d.pmt, first = n, int(pmt), false
			}
		}

	case int(pid) == d.pmt:
		if !PUSI(p) {
			return nil, nil
		}
		streams, err := Streams(p)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse PMT")
		}
		vpid, typ, err := VideoStream(streams)
		if err != nil {
			return nil, err
		}
		if d.video != int(vpid) || d.typ != typ {
			d.log.Debug(pkg+"selected video stream", "pid", vpid, "streamType", typ)
		}
		d.video, d.typ = int(vpid), typ

	case int(pid) == d.video:
		return d.accumulate()
	}
	return nil, nil
}

// accumulate adds the current packet to the video unit in progress.
func (d *Demuxer) accumulate() (*Unit, error) {
	payload, err := d.pkt.Payload()
	if err != nil {
		// Adaptation field only.
		return nil, nil
	}

	if !d.pkt.PayloadUnitStartIndicator() {
		if d.cur == nil {
			return nil, nil
		}
		d.cur.Data = append(d.cur.Data, payload...)
		return nil, nil
	}

	h, err := pes.NewPESHeader(payload)
	if err != nil {
		d.log.Warning(pkg+"could not parse PES header", "error", err.Error())
		return nil, nil
	}
	prev := d.cur
	d.cur = &Unit{
		PID:        uint16(d.video),
		StreamType: d.typ,
		StreamID:   h.StreamId(),
		PTS:        h.PTS(),
		Data:       append([]byte(nil), h.Data()...),
	}
	return prev, nil
}
