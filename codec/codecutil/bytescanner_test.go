/*
NAME
  bytescanner_test.go

AUTHOR
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
	"bytes"
	"io"
	"reflect"
	"testing"
)

func TestScannerReadByte(t *testing.T) {
	data := []byte("Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.")

	for _, size := range []int{1, 2, 8, 1 << 10} {
		r := NewByteScanner(bytes.NewReader(data), make([]byte, size))
		var got []byte
		for {
			b, err := r.ReadByte()
			if err != nil {
				break
			}
			got = append(got, b)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("unexpected result for buffer size %d:\ngot :%q\nwant:%q", size, got, data)
		}
	}
}

func TestScannerScanStartCode(t *testing.T) {
	data := []byte{
		0xaa, 0x00, 0x01, 0x00, 0x00, 0x01, 0xb0, 0x05,
		0x00, 0x00, 0x00, 0x01, 0xb6, 0x12, 0x00, 0x34,
		0x00, 0x00, 0x01, 0x20, 0x99,
	}
	want := [][]byte{
		{0xaa, 0x00, 0x01, 0x00, 0x00, 0x01, 0xb0},
		{0x05, 0x00, 0x00, 0x00, 0x01, 0xb6},
		{0x12, 0x00, 0x34, 0x00, 0x00, 0x01, 0x20},
		{0x99},
	}
	wantCodes := []byte{0xb0, 0xb6, 0x20}

	for _, size := range []int{1, 2, 8, 1 << 10} {
		r := NewByteScanner(bytes.NewReader(data), make([]byte, size))
		var (
			got   [][]byte
			codes []byte
		)
		for {
			buf, code, n, err := r.ScanStartCode(nil)
			got = append(got, buf)
			if err != nil {
				if err != io.EOF {
					t.Fatalf("unexpected error for buffer size %d: %v", size, err)
				}
				break
			}
			if n != 4 {
				t.Errorf("unexpected start code length for buffer size %d: %d", size, n)
			}
			codes = append(codes, code)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("unexpected result for buffer size %d:\ngot :%x\nwant:%x", size, got, want)
		}
		if !bytes.Equal(codes, wantCodes) {
			t.Errorf("unexpected codes for buffer size %d:\ngot :%x\nwant:%x", size, codes, wantCodes)
		}
	}
}
