/*
DESCRIPTION
  lex.go provides a lexer for MPEG-1 and MPEG-2 video elementary streams.

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
	"io"
	"time"

	"github.com/ausocean/cedar/codec/codecutil"
)

// Lex lexes an MPEG-1/2 video elementary stream read from src into access
// units, one per picture, written to dst with successive writes performed not
// earlier than delay. Sequence and group headers are written together with
// the picture that follows them; extensions, user data and slices stay with
// the picture they follow.
func Lex(dst io.Writer, src io.Reader, delay time.Duration) error {
	return codecutil.Lex(dst, src, delay, splitter{})
}

type splitter struct{}

func (splitter) IsPicture(code byte) bool { return code == PictureStartCode }

func (splitter) InPicture(code byte) bool {
	return IsSlice(code) || code == ExtensionStartCode || code == UserDataStartCode
}
