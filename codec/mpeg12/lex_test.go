/*
DESCRIPTION
  lex_test.go provides testing for the lexer in lex.go.

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
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type chunkWriter [][]byte

func (w *chunkWriter) Write(b []byte) (int, error) {
	*w = append(*w, append([]byte(nil), b...))
	return len(b), nil
}

func TestLex(t *testing.T) {
	in := []byte{
		0x00, 0x00, 0x01, 0xb3, 0x16, 0x00, // Sequence.
		0x00, 0x00, 0x01, 0xb8, 0x00,       // GOP.
		0x00, 0x00, 0x01, 0x00, 0x00, 0x0f, // Picture.
		0x00, 0x00, 0x01, 0xb5, 0x8f,       // Extension.
		0x00, 0x00, 0x01, 0xb2, 0x41,       // User data.
		0x00, 0x00, 0x01, 0x01, 0x22,       // Slice.
		0x00, 0x00, 0x01, 0x00, 0x00, 0x17, // Picture.
		0x00, 0x00, 0x01, 0x01, 0x33,       // Slice.
		0x00, 0x00, 0x01, 0xb7,             // Sequence end.
	}
	want := [][]byte{in[:32], in[32:43], in[43:]}

	var dst chunkWriter
	err := Lex(&dst, bytes.NewReader(in), 0)
	if err != io.EOF {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(want, [][]byte(dst)); diff != "" {
		t.Errorf("unexpected access units (-want +got):\n%s", diff)
	}
}
