/*
DESCRIPTION
  uio.go provides Engine, a device.Engine for the video engine exposed
  through the Linux userspace I/O framework.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package uio provides device.Engine and device.Allocator implementations
// for a video engine bound to a UIO driver. Map 0 of the UIO device is the
// engine register window and map 1, if present, a reserved DMA region.
package uio

import (
	"encoding/binary"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ausocean/cedar/device"
	"github.com/ausocean/cedar/device/regs"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Log prefix.
const pkg = "uio: "

// Engine is a device.Engine backed by a UIO device node.
type Engine struct {
	mu       sync.Mutex
	f        *os.File
	mem      []byte
	words    []uint32
	version  uint32
	alloc    bool
	kind     device.Kind
	acquired bool
	log      logging.Logger
}

// Open opens the UIO device node at path, such as /dev/uio0, and maps its
// register window.
func Open(path string, log logging.Logger) (*Engine, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "could not open UIO device")
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, regs.WindowSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "could not map register window")
	}
	e := &Engine{
		f:     f,
		mem:   mem,
		words: unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), len(mem)/4),
		log:   log,
	}
	e.version = e.load(regs.Version) >> 16
	if log != nil {
		log.Info(pkg+"opened engine", "path", path, "version", e.version)
	}
	return e, nil
}

// Close unmaps the register window and closes the device node.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var me device.MultiError
	if e.mem != nil {
		me.Add(unix.Munmap(e.mem))
		e.mem, e.words = nil, nil
	}
	me.Add(e.f.Close())
	return me.Err()
}

func (e *Engine) load(r regs.Reg) uint32 {
	return atomic.LoadUint32(&e.words[r/4])
}

func (e *Engine) store(r regs.Reg, v uint32) {
	atomic.StoreUint32(&e.words[r/4], v)
}

// Version implements device.Engine.
func (e *Engine) Version() uint32 { return e.version }

// Allocate implements device.Engine.
func (e *Engine) Allocate(k device.Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alloc {
		return errors.Wrapf(device.ErrBusy, "%s allocated", e.kind)
	}
	e.alloc, e.kind = true, k
	return nil
}

// Free implements device.Engine.
func (e *Engine) Free() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alloc = false
	return nil
}

// Acquire implements device.Engine.
func (e *Engine) Acquire(k device.Kind) (regs.Bus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.acquired {
		return nil, errors.Wrap(device.ErrBusy, "engine already acquired")
	}
	e.acquired, e.kind = true, k
	regs.Select((*bus)(e), uint32(k))
	return (*bus)(e), nil
}

// Release implements device.Engine.
func (e *Engine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.acquired {
		return device.ErrNotAcquired
	}
	regs.Select((*bus)(e), regs.EngineNone)
	e.acquired = false
	return nil
}

// Wait implements device.Engine. The interrupt is re-enabled by writing to
// the device node, which is then polled for the next interrupt event.
func (e *Engine) Wait(timeout time.Duration) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], 1)
	_, err := e.f.Write(buf[:])
	if err != nil {
		return errors.Wrap(err, "could not enable interrupt")
	}

	fds := []unix.PollFd{{Fd: int32(e.f.Fd()), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "could not poll for interrupt")
		}
		if n == 0 {
			return device.ErrTimeout
		}
		break
	}

	// Consume the interrupt count.
	_, err = e.f.Read(buf[:])
	if err != nil {
		return errors.Wrap(err, "could not read interrupt count")
	}
	return nil
}

// Reset implements device.Engine. The sub-unit is deselected and its
// status cleared before it is selected again.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := (*bus)(e)
	regs.Select(b, regs.EngineNone)
	if e.acquired {
		regs.Select(b, uint32(e.kind))
		b.Write(regs.MPEGStatus, regs.StatusClearAll)
	}
	if e.log != nil {
		e.log.Warning(pkg+"engine reset", "kind", e.kind)
	}
	return nil
}

// bus gives register access to an acquired engine.
type bus Engine

func (b *bus) Read(r regs.Reg) uint32     { return (*Engine)(b).load(r) }
func (b *bus) Write(r regs.Reg, v uint32) { (*Engine)(b).store(r, v) }
