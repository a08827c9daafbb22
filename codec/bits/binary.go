/*
DESCRIPTION
  binary.go provides helpers for building bitstreams from strings of binary
  digits, mostly for use in tests.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bits

import "github.com/pkg/errors"

// ErrInvalidBinary is returned by BinToSlice for strings containing
// characters other than '0', '1' and ' '.
var ErrInvalidBinary = errors.New("invalid binary string")

// BinToSlice converts a string of binary into a corresponding byte slice,
// e.g. "0100 0001 1000 1100" => {0x41,0x8c}. Spaces in the string are
// ignored and a trailing partial byte is zero padded.
func BinToSlice(s string) ([]byte, error) {
	var (
		a     byte = 0x80
		cur   byte
		n     int
		bytes []byte
	)

	for _, c := range s {
		switch c {
		case ' ':
			continue
		case '1':
			cur |= a
		case '0':
		default:
			return nil, ErrInvalidBinary
		}

		n++
		a >>= 1
		if a == 0 {
			bytes = append(bytes, cur)
			cur = 0
			a = 0x80
		}
	}
	if n%8 != 0 {
		bytes = append(bytes, cur)
	}
	return bytes, nil
}
