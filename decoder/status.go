/*
DESCRIPTION
  status.go provides the decoder status codes and the mapping from errors
  returned by this package to them.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package decoder

import (
	"fmt"

	"github.com/ausocean/cedar/handle"
	"github.com/pkg/errors"
)

// Status is the result code reported to API callers.
type Status int

// Status codes.
const (
	StatusOK Status = iota
	StatusError
	StatusInvalidHandle
	StatusResources
	StatusInvalidDecoderProfile
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	case StatusInvalidHandle:
		return "INVALID_HANDLE"
	case StatusResources:
		return "RESOURCES"
	case StatusInvalidDecoderProfile:
		return "INVALID_DECODER_PROFILE"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Errors returned by the decoder.
var (
	ErrInvalidProfile    = errors.New("invalid decoder profile")
	ErrResources         = errors.New("insufficient resources")
	ErrTooManyReferences = errors.New("too many reference surfaces")
	ErrInvalidSize       = errors.New("invalid picture size")
	ErrPictureInfo       = errors.New("picture info does not match decoder profile")
	ErrBitstreamSize     = errors.New("bitstream exceeds buffer")
	ErrClosed            = errors.New("decoder closed")
)

// StatusOf returns the status code for err.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, handle.ErrInvalidHandle):
		return StatusInvalidHandle
	case errors.Is(err, ErrInvalidProfile):
		return StatusInvalidDecoderProfile
	case errors.Is(err, ErrResources):
		return StatusResources
	default:
		return StatusError
	}
}
