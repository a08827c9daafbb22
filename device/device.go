/*
DESCRIPTION
  device.go provides Engine, Allocator and Buffer, interfaces describing the
  fixed function video engine and the physically contiguous memory it
  decodes from and into.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package device provides interfaces for the video decode engine and its DMA
// memory, with implementations for a Linux UIO device and a simulator.
package device

import (
	"fmt"
	"time"

	"github.com/ausocean/cedar/device/regs"
	"github.com/pkg/errors"
)

// Kind identifies an engine sub-unit.
type Kind uint32

// Engine kinds. Values are those written to the low nibble of the control
// register to select the sub-unit.
const (
	KindMPEG Kind = regs.EngineMPEG
	KindH264 Kind = regs.EngineH264
	KindHEVC Kind = regs.EngineHEVC
)

func (k Kind) String() string {
	switch k {
	case KindMPEG:
		return "mpeg"
	case KindH264:
		return "h264"
	case KindHEVC:
		return "hevc"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// NewFormatVersion is the first engine version with NV12 output, the
// secondary output path and HEVC support.
const NewFormatVersion = 0x1680

// HasNV12 returns true if an engine of version v can write NV12 output.
func HasNV12(v uint32) bool { return v >= NewFormatVersion }

// HasHEVC returns true if an engine of version v supports HEVC.
func HasHEVC(v uint32) bool { return v >= NewFormatVersion }

// Errors returned by Engine and Allocator implementations.
var (
	ErrTimeout     = errors.New("engine wait timed out")
	ErrNotAcquired = errors.New("engine not acquired")
	ErrBusy        = errors.New("engine already allocated")
	ErrNoMemory    = errors.New("out of DMA memory")
	ErrBadBuffer   = errors.New("buffer not owned by allocator")
)

// Engine describes the fixed function video engine. An engine is allocated
// to a single decoder for its lifetime, and acquired around the programming
// of each picture.
type Engine interface {
	// Version returns the engine version, the upper half of the version
	// register.
	Version() uint32

	// Allocate reserves the engine sub-unit k for a decoder. It fails with
	// ErrBusy if another kind is allocated.
	Allocate(k Kind) error

	// Free releases the reservation made by Allocate.
	Free() error

	// Acquire selects the sub-unit k and returns the register bus through
	// which it is programmed. The bus is valid until Release.
	Acquire(k Kind) (regs.Bus, error)

	// Release deselects the sub-unit selected by Acquire.
	Release() error

	// Wait blocks until the engine signals completion of the triggered
	// operation or the timeout elapses, in which case ErrTimeout is
	// returned.
	Wait(timeout time.Duration) error

	// Reset resets the engine after a timeout.
	Reset() error
}

// Buffer is a physically contiguous DMA buffer.
type Buffer interface {
	// Bytes returns the CPU mapping of the buffer.
	Bytes() []byte

	// Phys returns the bus address of the buffer.
	Phys() uint32

	// Size returns the buffer size in bytes.
	Size() int

	// Flush writes back the first n bytes of the CPU cache so that the engine
	// observes them.
	Flush(n int) error
}

// Allocator provides DMA buffers.
type Allocator interface {
	Alloc(size int) (Buffer, error)
	Free(b Buffer) error
}

// CopyInto copies src into b at offset off, returning an error if it does
// not fit.
func CopyInto(b Buffer, off int, src []byte) error {
	dst := b.Bytes()
	if off < 0 || off+len(src) > len(dst) {
		return errors.Errorf("copy of %d bytes at %d overflows %d byte buffer", len(src), off, len(dst))
	}
	copy(dst[off:], src)
	return nil
}

// MultiError implements the built in error interface. MultiError is used to
// collect the errors of a sequence of cleanup operations that should all be
// attempted.
type MultiError []error

func (me MultiError) Error() string {
	if len(me) == 0 {
		panic("device: invalid use of MultiError")
	}
	return fmt.Sprintf("%v", []error(me))
}

// Add appends err if it is not nil.
func (me *MultiError) Add(err error) {
	if err != nil {
		*me = append(*me, err)
	}
}

// Err returns me as an error, or nil if it holds no errors.
func (me MultiError) Err() error {
	if len(me) == 0 {
		return nil
	}
	return me
}
