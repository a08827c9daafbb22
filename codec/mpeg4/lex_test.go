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

package mpeg4

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
		0x00, 0x00, 0x01, 0xb0, 0x01, // VOS
		0x00, 0x00, 0x01, 0x20, 0x08, 0xc8, // VOL
		0x00, 0x00, 0x01, 0xb6, 0x10, 0x20, // I-VOP
		0x00, 0x00, 0x01, 0xb3, 0x00, // GOV
		0x00, 0x00, 0x01, 0xb6, 0x50, 0x60, // P-VOP
	}
	want := [][]byte{
		in[:17],
		in[17:],
	}

	var dst chunkWriter
	err := Lex(&dst, bytes.NewReader(in), 0)
	if err != io.EOF {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(want, [][]byte(dst)); diff != "" {
		t.Errorf("unexpected access units (-want +got):\n%s", diff)
	}
}
