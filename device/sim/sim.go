/*
DESCRIPTION
  sim.go provides a simulated video engine and DMA allocator that record
  every operation performed on them, for testing register programming and
  for tracing decodes without hardware.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sim provides implementations of device.Engine and
// device.Allocator backed by memory.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/ausocean/cedar/device"
	"github.com/ausocean/cedar/device/regs"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Log prefix.
const pkg = "sim: "

// OpType is the type of a recorded engine operation.
type OpType int

// Recorded operation types.
const (
	OpAllocate OpType = iota
	OpFree
	OpAcquire
	OpRelease
	OpRead
	OpWrite
	OpWait
	OpReset
)

var opNames = [...]string{"allocate", "free", "acquire", "release", "read", "write", "wait", "reset"}

func (t OpType) String() string {
	if int(t) < len(opNames) {
		return opNames[t]
	}
	return fmt.Sprintf("op(%d)", int(t))
}

// Op is a recorded engine operation. Reg and Val are set for reads and
// writes, Kind for allocate and acquire.
type Op struct {
	Type OpType
	Reg  regs.Reg
	Val  uint32
	Kind device.Kind
}

func (o Op) String() string {
	switch o.Type {
	case OpRead, OpWrite:
		return fmt.Sprintf("%-5s %-22s %#08x", o.Type, o.Reg, o.Val)
	case OpAllocate, OpAcquire:
		return fmt.Sprintf("%-5s %s", o.Type, o.Kind)
	default:
		return o.Type.String()
	}
}

// DefaultVersion is the engine version reported by a new Engine.
const DefaultVersion = 0x1680

// WaitFunc is called by Engine.Wait with the engine's register bus. It
// models the hardware operation that was triggered and returns nil for
// completion or device.ErrTimeout.
type WaitFunc func(b regs.Bus) error

// Complete is the default WaitFunc. It models an engine that consumes the
// entire bitstream window by advancing the VLD offset by the VLD length.
func Complete(b regs.Bus) error {
	b.Write(regs.MPEGVLDOffset, b.Read(regs.MPEGVLDOffset)+b.Read(regs.MPEGVLDLen))
	return nil
}

// Timeout is a WaitFunc for an engine that never completes.
func Timeout(regs.Bus) error { return device.ErrTimeout }

// Engine is a simulated device.Engine. Registers are held in memory and all
// operations are appended to a trace that may be inspected with Ops.
type Engine struct {
	mu       sync.Mutex
	regs     map[regs.Reg]uint32
	ops      []Op
	alloc    bool
	kind     device.Kind
	acquired bool
	wait     WaitFunc
	log      logging.Logger
}

// New returns a new Engine reporting version and completing every wait
// with Complete. log may be nil.
func New(version uint32, log logging.Logger) *Engine {
	e := &Engine{regs: make(map[regs.Reg]uint32), wait: Complete, log: log}
	e.regs[regs.Version] = version << 16
	return e
}

// SetWait sets the function modelling hardware completion.
func (e *Engine) SetWait(f WaitFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wait = f
}

// Version implements device.Engine.
func (e *Engine) Version() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regs[regs.Version] >> 16
}

// Allocate implements device.Engine.
func (e *Engine) Allocate(k device.Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alloc {
		return errors.Wrapf(device.ErrBusy, "%s allocated", e.kind)
	}
	e.alloc, e.kind = true, k
	e.ops = append(e.ops, Op{Type: OpAllocate, Kind: k})
	return nil
}

// Free implements device.Engine.
func (e *Engine) Free() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alloc = false
	e.ops = append(e.ops, Op{Type: OpFree})
	return nil
}

// Acquire implements device.Engine.
func (e *Engine) Acquire(k device.Kind) (regs.Bus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.acquired {
		return nil, errors.Wrap(device.ErrBusy, "engine already acquired")
	}
	e.acquired = true
	e.ops = append(e.ops, Op{Type: OpAcquire, Kind: k})
	e.regs[regs.Ctrl] = e.regs[regs.Ctrl]&^0xf | uint32(k)
	return (*bus)(e), nil
}

// Release implements device.Engine.
func (e *Engine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.acquired {
		return device.ErrNotAcquired
	}
	e.acquired = false
	e.regs[regs.Ctrl] = e.regs[regs.Ctrl]&^0xf | regs.EngineNone
	e.ops = append(e.ops, Op{Type: OpRelease})
	return nil
}

// Wait implements device.Engine. The WaitFunc is run with the engine lock
// held and its register accesses are not traced.
func (e *Engine) Wait(timeout time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ops = append(e.ops, Op{Type: OpWait})
	err := e.wait(rawBus(e.regs))
	if err != nil && e.log != nil {
		e.log.Debug(pkg+"wait failed", "timeout", timeout, "error", err)
	}
	return err
}

// Reset implements device.Engine.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ops = append(e.ops, Op{Type: OpReset})
	return nil
}

// Ops returns a copy of the operations recorded so far.
func (e *Engine) Ops() []Op {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Op(nil), e.ops...)
}

// Writes returns the recorded writes, optionally limited to the registers
// in filter.
func (e *Engine) Writes(filter ...regs.Reg) []Op {
	var w []Op
	for _, o := range e.Ops() {
		if o.Type != OpWrite {
			continue
		}
		if len(filter) == 0 {
			w = append(w, o)
			continue
		}
		for _, r := range filter {
			if o.Reg == r {
				w = append(w, o)
				break
			}
		}
	}
	return w
}

// Count returns the number of recorded operations of type t.
func (e *Engine) Count(t OpType) int {
	n := 0
	for _, o := range e.Ops() {
		if o.Type == t {
			n++
		}
	}
	return n
}

// ClearOps discards the recorded operations.
func (e *Engine) ClearOps() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ops = nil
}

// Reg returns the current value of register r.
func (e *Engine) Reg(r regs.Reg) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regs[r]
}

// bus is the traced register bus handed out by Acquire.
type bus Engine

func (b *bus) Read(r regs.Reg) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.regs[r]
	b.ops = append(b.ops, Op{Type: OpRead, Reg: r, Val: v})
	return v
}

func (b *bus) Write(r regs.Reg, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[r] = v
	b.ops = append(b.ops, Op{Type: OpWrite, Reg: r, Val: v})
}

// rawBus provides untraced register access to a WaitFunc.
type rawBus map[regs.Reg]uint32

func (b rawBus) Read(r regs.Reg) uint32     { return b[r] }
func (b rawBus) Write(r regs.Reg, v uint32) { b[r] = v }
