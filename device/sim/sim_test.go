/*
DESCRIPTION
  sim_test.go provides testing for functionality defined in sim.go and
  alloc.go.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sim

import (
	"testing"
	"time"

	"github.com/ausocean/cedar/device"
	"github.com/ausocean/cedar/device/regs"
	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestEngineTrace(t *testing.T) {
	e := New(0x1663, (*logging.TestLogger)(t))
	if v := e.Version(); v != 0x1663 {
		t.Errorf("unexpected version: got %#x, want 0x1663", v)
	}

	err := e.Allocate(device.KindMPEG)
	if err != nil {
		t.Fatalf("did not expect error from Allocate: %v", err)
	}
	if err := e.Allocate(device.KindH264); !errors.Is(err, device.ErrBusy) {
		t.Errorf("did not get expected error from second Allocate, got: %v", err)
	}

	b, err := e.Acquire(device.KindMPEG)
	if err != nil {
		t.Fatalf("did not expect error from Acquire: %v", err)
	}
	b.Write(regs.MPEGVLDOffset, 16)
	b.Write(regs.MPEGVLDLen, 256)
	if err := e.Wait(time.Second); err != nil {
		t.Errorf("did not expect error from Wait: %v", err)
	}
	got := b.Read(regs.MPEGVLDOffset)
	if err := e.Release(); err != nil {
		t.Errorf("did not expect error from Release: %v", err)
	}
	if err := e.Free(); err != nil {
		t.Errorf("did not expect error from Free: %v", err)
	}

	if got != 272 {
		t.Errorf("unexpected VLD offset after wait: got %d, want 272", got)
	}
	want := []Op{
		{Type: OpAllocate, Kind: device.KindMPEG},
		{Type: OpAcquire, Kind: device.KindMPEG},
		{Type: OpWrite, Reg: regs.MPEGVLDOffset, Val: 16},
		{Type: OpWrite, Reg: regs.MPEGVLDLen, Val: 256},
		{Type: OpWait},
		{Type: OpRead, Reg: regs.MPEGVLDOffset, Val: 272},
		{Type: OpRelease},
		{Type: OpFree},
	}
	if diff := cmp.Diff(want, e.Ops()); diff != "" {
		t.Errorf("unexpected trace (-want +got):\n%s", diff)
	}
	if ctrl := e.Reg(regs.Ctrl) & 0xf; ctrl != regs.EngineNone {
		t.Errorf("unexpected engine selection after release: %d", ctrl)
	}
}

func TestEngineTimeout(t *testing.T) {
	e := New(DefaultVersion, nil)
	e.SetWait(Timeout)
	if err := e.Wait(time.Millisecond); !errors.Is(err, device.ErrTimeout) {
		t.Errorf("did not get expected error, got: %v", err)
	}
	if err := e.Release(); !errors.Is(err, device.ErrNotAcquired) {
		t.Errorf("did not get expected error from Release, got: %v", err)
	}
}

func TestAllocator(t *testing.T) {
	a := NewAllocator(3 * pageSize)
	b1, err := a.Alloc(100)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	b2, err := a.Alloc(pageSize + 1)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if b1.Phys() != BaseAddr || b2.Phys() != BaseAddr+pageSize {
		t.Errorf("unexpected addresses: %#x, %#x", b1.Phys(), b2.Phys())
	}
	if _, err := a.Alloc(2 * pageSize); !errors.Is(err, device.ErrNoMemory) {
		t.Errorf("did not get expected error, got: %v", err)
	}

	if err := device.CopyInto(b1, 98, []byte{1, 2}); err != nil {
		t.Errorf("did not expect error from CopyInto: %v", err)
	}
	if err := device.CopyInto(b1, 99, []byte{1, 2}); err == nil {
		t.Error("expected error for overflowing copy")
	}
	if err := b1.Flush(100); err != nil || a.Flushes != 1 {
		t.Errorf("unexpected flush result: %v, %d flushes", err, a.Flushes)
	}

	if err := a.Free(b1); err != nil {
		t.Errorf("did not expect error from Free: %v", err)
	}
	if err := a.Free(b1); !errors.Is(err, device.ErrBadBuffer) {
		t.Errorf("did not get expected error from double Free, got: %v", err)
	}
	if a.Live() != 1 {
		t.Errorf("unexpected live buffer count: %d", a.Live())
	}
}
