/*
DESCRIPTION
  pool.go provides Pool, a device.Allocator carving DMA buffers out of a
  reserved memory region exposed as a UIO map.

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
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ausocean/cedar/device"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Allocation granularity; buffers are page aligned.
const pageSize = 4096

// sysfs root for UIO devices.
var sysfsRoot = "/sys/class/uio"

// span is a free region of the pool, as offsets.
type span struct{ off, size int }

// Pool is a first fit device.Allocator over a physically contiguous region.
type Pool struct {
	mu    sync.Mutex
	f     *os.File
	mem   []byte
	phys  uint32
	free  []span
	live  map[*poolBuffer]bool
	flush func(b []byte) error
}

// OpenPool maps map index idx of the UIO device node at path as a DMA pool.
// The region's bus address and size are read from sysfs.
func OpenPool(path string, idx int) (*Pool, error) {
	dir := filepath.Join(sysfsRoot, filepath.Base(path), "maps", "map"+strconv.Itoa(idx))
	addr, err := readMapAttr(dir, "addr")
	if err != nil {
		return nil, err
	}
	size, err := readMapAttr(dir, "size")
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "could not open UIO device")
	}
	mem, err := unix.Mmap(int(f.Fd()), int64(idx*pageSize), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "could not map DMA region")
	}
	p := newPool(mem, uint32(addr))
	p.f = f
	return p, nil
}

// newPool returns a Pool managing mem, located at bus address phys.
func newPool(mem []byte, phys uint32) *Pool {
	return &Pool{
		mem:  mem,
		phys: phys,
		free: []span{{0, len(mem)}},
		live: make(map[*poolBuffer]bool),
		flush: func(b []byte) error {
			return unix.Msync(b, unix.MS_SYNC)
		},
	}
}

// readMapAttr reads a numeric UIO map attribute such as addr or size.
func readMapAttr(dir, name string) (uint64, error) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return 0, errors.Wrapf(err, "could not read map %s", name)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "could not parse map %s", name)
	}
	return v, nil
}

// Alloc implements device.Allocator.
func (p *Pool) Alloc(size int) (device.Buffer, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid buffer size %d", size)
	}
	n := (size + pageSize - 1) &^ (pageSize - 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.free {
		if s.size < n {
			continue
		}
		b := &poolBuffer{p: p, off: s.off, size: size, span: n}
		if s.size == n {
			p.free = append(p.free[:i], p.free[i+1:]...)
		} else {
			p.free[i] = span{s.off + n, s.size - n}
		}
		p.live[b] = true
		return b, nil
	}
	return nil, errors.Wrapf(device.ErrNoMemory, "no free span of %d bytes", n)
}

// Free implements device.Allocator. Adjacent free spans are merged.
func (p *Pool) Free(b device.Buffer) error {
	pb, ok := b.(*poolBuffer)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !ok || !p.live[pb] {
		return device.ErrBadBuffer
	}
	delete(p.live, pb)

	p.free = append(p.free, span{pb.off, pb.span})
	sort.Slice(p.free, func(i, j int) bool { return p.free[i].off < p.free[j].off })
	merged := p.free[:1]
	for _, s := range p.free[1:] {
		last := &merged[len(merged)-1]
		if last.off+last.size == s.off {
			last.size += s.size
			continue
		}
		merged = append(merged, s)
	}
	p.free = merged
	return nil
}

// Close unmaps the pool. Outstanding buffers must not be used afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var me device.MultiError
	if p.f != nil {
		me.Add(unix.Munmap(p.mem))
		me.Add(p.f.Close())
		p.f = nil
	}
	return me.Err()
}

type poolBuffer struct {
	p    *Pool
	off  int
	size int
	span int
}

func (b *poolBuffer) Bytes() []byte { return b.p.mem[b.off : b.off+b.size] }
func (b *poolBuffer) Phys() uint32  { return b.p.phys + uint32(b.off) }
func (b *poolBuffer) Size() int     { return b.size }

func (b *poolBuffer) Flush(n int) error {
	if n > b.size {
		return errors.Errorf("flush of %d bytes exceeds %d byte buffer", n, b.size)
	}
	// msync requires a page aligned start, which every buffer has.
	return errors.Wrap(b.p.flush(b.p.mem[b.off:b.off+n]), "could not flush buffer")
}
