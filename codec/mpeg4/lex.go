/*
DESCRIPTION
  lex.go provides a lexer for MPEG-4 Part 2 elementary streams.

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

import (
	"io"
	"time"

	"github.com/ausocean/cedar/codec/codecutil"
)

// Lex lexes an MPEG-4 Part 2 elementary stream read from src into access
// units, one per VOP, written to dst with successive writes performed not
// earlier than delay. Any VOS, VO, VOL or GOV headers are written together
// with the VOP that follows them.
func Lex(dst io.Writer, src io.Reader, delay time.Duration) error {
	return codecutil.Lex(dst, src, delay, splitter{})
}

type splitter struct{}

func (splitter) IsPicture(code byte) bool { return code == VOPStartCode }

// InPicture returns false since a VOP contains no nested start codes.
func (splitter) InPicture(code byte) bool { return false }
