/*
DESCRIPTION
  pool_test.go provides testing for functionality defined in pool.go.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package uio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/cedar/device"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func testPool() *Pool {
	p := newPool(make([]byte, 8*pageSize), 0x48000000)
	p.flush = func([]byte) error { return nil }
	return p
}

func TestPoolAlloc(t *testing.T) {
	p := testPool()
	var bufs []device.Buffer
	for i, size := range []int{100, pageSize, 2*pageSize + 1} {
		b, err := p.Alloc(size)
		if err != nil {
			t.Fatalf("did not expect error for allocation %d: %v", i, err)
		}
		if b.Size() != size || len(b.Bytes()) != size {
			t.Errorf("unexpected size for allocation %d: %d", i, b.Size())
		}
		bufs = append(bufs, b)
	}

	want := []uint32{0x48000000, 0x48001000, 0x48002000}
	for i, b := range bufs {
		if b.Phys() != want[i] {
			t.Errorf("unexpected address for allocation %d: got %#x, want %#x", i, b.Phys(), want[i])
		}
	}
	if diff := cmp.Diff([]span{{5 * pageSize, 3 * pageSize}}, p.free, cmp.AllowUnexported(span{})); diff != "" {
		t.Errorf("unexpected free list (-want +got):\n%s", diff)
	}

	_, err := p.Alloc(4 * pageSize)
	if !errors.Is(err, device.ErrNoMemory) {
		t.Errorf("did not get expected error, got: %v", err)
	}
}

func TestPoolFreeMerge(t *testing.T) {
	p := testPool()
	a, _ := p.Alloc(pageSize)
	b, _ := p.Alloc(pageSize)
	c, _ := p.Alloc(pageSize)

	for _, buf := range []device.Buffer{a, c, b} {
		if err := p.Free(buf); err != nil {
			t.Fatalf("did not expect error: %v", err)
		}
	}
	if diff := cmp.Diff([]span{{0, 8 * pageSize}}, p.free, cmp.AllowUnexported(span{})); diff != "" {
		t.Errorf("unexpected free list (-want +got):\n%s", diff)
	}
	if err := p.Free(a); !errors.Is(err, device.ErrBadBuffer) {
		t.Errorf("did not get expected error, got: %v", err)
	}

	// The whole region is available again.
	if _, err := p.Alloc(8 * pageSize); err != nil {
		t.Errorf("did not expect error: %v", err)
	}
}

func TestPoolFlush(t *testing.T) {
	p := testPool()
	var flushed int
	p.flush = func(b []byte) error { flushed = len(b); return nil }
	b, _ := p.Alloc(100)
	if err := b.Flush(64); err != nil || flushed != 64 {
		t.Errorf("unexpected flush: %v, %d bytes", err, flushed)
	}
	if err := b.Flush(101); err == nil {
		t.Error("expected error for oversized flush")
	}
}

func TestReadMapAttr(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "addr"), []byte("0x48000000\n"), 0644)
	if err != nil {
		t.Fatalf("could not write attribute: %v", err)
	}
	err = os.WriteFile(filepath.Join(dir, "size"), []byte("bogus\n"), 0644)
	if err != nil {
		t.Fatalf("could not write attribute: %v", err)
	}

	got, err := readMapAttr(dir, "addr")
	if err != nil || got != 0x48000000 {
		t.Errorf("unexpected addr: %#x, %v", got, err)
	}
	if _, err := readMapAttr(dir, "size"); err == nil {
		t.Error("expected error for unparsable attribute")
	}
	if _, err := readMapAttr(dir, "offset"); err == nil {
		t.Error("expected error for missing attribute")
	}
}
