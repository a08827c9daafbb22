/*
DESCRIPTION
  slice.go provides FindSliceOffset for locating the first slice of an
  MPEG-1/2 picture.

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

// FindSliceOffset returns the byte offset in data of the first slice start
// code, i.e. the offset of the 0x000001 prefix preceding a start code value
// in [0x01, 0xaf]. If no slice start code is present 0 is returned. Zero
// bytes in excess of the two prefix zeros are not included.
func FindSliceOffset(data []byte) int {
	pos := 0
	for pos < len(data) {
		zeros := 0
		found := false
		for ; pos < len(data); pos++ {
			switch {
			case data[pos] == 0x00:
				zeros++
			case data[pos] == 0x01 && zeros >= 2:
				found = true
			default:
				zeros = 0
			}
			if found {
				pos++
				break
			}
		}
		if !found || pos >= len(data) {
			return 0
		}

		code := data[pos]
		pos++
		if IsSlice(code) {
			return pos - 4
		}
	}
	return 0
}
