/*
DESCRIPTION
  alloc.go provides Allocator, a memory backed device.Allocator handing out
  buffers at sequential page aligned bus addresses.

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
	"sync"

	"github.com/ausocean/cedar/device"
	"github.com/pkg/errors"
)

// BaseAddr is the bus address of the first buffer handed out.
const BaseAddr = 0x40000000

const pageSize = 4096

// Allocator is a device.Allocator backed by Go memory.
type Allocator struct {
	mu    sync.Mutex
	next  uint32
	live  map[*buffer]bool
	limit int
	used  int

	// Flushes counts Flush calls across all buffers.
	Flushes int
}

// NewAllocator returns a new Allocator. If limit is greater than zero,
// allocations beyond limit bytes in total fail with device.ErrNoMemory.
func NewAllocator(limit int) *Allocator {
	return &Allocator{next: BaseAddr, live: make(map[*buffer]bool), limit: limit}
}

// Alloc implements device.Allocator.
func (a *Allocator) Alloc(size int) (device.Buffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if size <= 0 {
		return nil, errors.Errorf("invalid buffer size %d", size)
	}
	if a.limit > 0 && a.used+size > a.limit {
		return nil, errors.Wrapf(device.ErrNoMemory, "%d of %d bytes used, want %d", a.used, a.limit, size)
	}
	b := &buffer{a: a, data: make([]byte, size), phys: a.next}
	a.next += uint32((size + pageSize - 1) &^ (pageSize - 1))
	a.used += size
	a.live[b] = true
	return b, nil
}

// Free implements device.Allocator.
func (a *Allocator) Free(b device.Buffer) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	sb, ok := b.(*buffer)
	if !ok || !a.live[sb] {
		return device.ErrBadBuffer
	}
	delete(a.live, sb)
	a.used -= len(sb.data)
	return nil
}

// Live returns the number of allocated buffers.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

type buffer struct {
	a    *Allocator
	data []byte
	phys uint32
}

func (b *buffer) Bytes() []byte { return b.data }
func (b *buffer) Phys() uint32  { return b.phys }
func (b *buffer) Size() int     { return len(b.data) }

func (b *buffer) Flush(n int) error {
	if n > len(b.data) {
		return errors.Errorf("flush of %d bytes exceeds %d byte buffer", n, len(b.data))
	}
	b.a.mu.Lock()
	b.a.Flushes++
	b.a.mu.Unlock()
	return nil
}
