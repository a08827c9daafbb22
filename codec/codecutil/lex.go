/*
NAME
  lex.go

AUTHOR
  Trek Hopton <trek@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// Splitter classifies start code values for Lex.
type Splitter interface {
	// IsPicture returns true if code starts a coded picture.
	IsPicture(code byte) bool

	// InPicture returns true if a start code with value code, found after a
	// picture start code, still belongs to that picture (e.g. slices).
	InPicture(code byte) bool
}

// Lex lexes an MPEG elementary stream read from src into access units, each
// written to dst in a separate write, with successive writes being performed
// not earlier than the specified delay. An access unit holds any headers
// preceding a picture together with the picture itself. No data is dropped;
// bytes trailing the last picture are written as a final unit. Lex returns
// io.EOF once src is exhausted and the final write has been performed.
func Lex(dst io.Writer, src io.Reader, delay time.Duration, s Splitter) error {
	if delay < 0 {
		return errors.Errorf("invalid delay: %v", delay)
	}

	var tick <-chan time.Time
	if delay == 0 {
		tick = noDelay
	} else {
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		tick = ticker.C
	}

	const bufSize = 64 << 10

	c := NewByteScanner(src, make([]byte, 4<<10)) // Standard file buffer size.
	buf := make([]byte, 0, bufSize)
	var inPic bool

	for {
		var (
			code byte
			n    int
			err  error
		)
		buf, code, n, err = c.ScanStartCode(buf)
		if err != nil {
			if err != io.EOF {
				return err
			}
			if len(buf) != 0 {
				<-tick
				_, err := dst.Write(buf)
				if err != nil {
					return err
				}
			}
			return io.EOF
		}

		if inPic && !s.InPicture(code) {
			<-tick
			_, err := dst.Write(buf[:len(buf)-n])
			if err != nil {
				return err
			}
			next := make([]byte, n, bufSize)
			copy(next, buf[len(buf)-n:])
			buf = next
			inPic = false
		}

		if s.IsPicture(code) {
			inPic = true
		}
	}
}

var noDelay = make(chan time.Time)

func init() {
	close(noDelay)
}
