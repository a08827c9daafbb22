/*
DESCRIPTION
  vdp.go provides Device, the entry point of the decode API. A Device owns
  the engine and DMA allocator selected by its configuration and the handle
  store through which decoders and surfaces are referenced.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package vdp provides a handle based video decode API over the decoder
// package, in the manner of VDPAU. Every method reports failure with an
// error that maps to a decoder.Status through decoder.StatusOf.
package vdp

import (
	"io"
	"sync"

	"github.com/ausocean/cedar/config"
	"github.com/ausocean/cedar/decoder"
	"github.com/ausocean/cedar/device"
	"github.com/ausocean/cedar/device/sim"
	"github.com/ausocean/cedar/device/uio"
	"github.com/ausocean/cedar/handle"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Log prefix.
const pkg = "vdp: "

// Device is an open decode device.
type Device struct {
	cfg     config.Config
	log     logging.Logger
	eng     device.Engine
	alloc   device.Allocator
	handles *handle.Store
	obs     decoder.Observer

	mu      sync.Mutex
	closers []io.Closer
	closed  bool
}

// Open validates cfg and opens the engine backend it selects. obs receives
// the events of every decoder created on the device and may be nil.
func Open(cfg config.Config, obs decoder.Observer) (*Device, error) {
	cfg.Validate()

	if cfg.Engine != config.EngineUIO {
		eng := sim.New(uint32(cfg.EngineVersion), cfg.Logger)
		return NewDevice(cfg, eng, sim.NewAllocator(0), obs), nil
	}

	eng, err := uio.Open(cfg.UIODevice, cfg.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "could not open engine")
	}
	pool, err := uio.OpenPool(cfg.UIODevice, int(cfg.DMAMap))
	if err != nil {
		eng.Close()
		return nil, errors.Wrap(err, "could not open DMA pool")
	}
	d := NewDevice(cfg, eng, pool, obs)
	d.closers = []io.Closer{pool, eng}
	return d, nil
}

// NewDevice returns a Device using the given engine and allocator. cfg is
// validated first.
func NewDevice(cfg config.Config, eng device.Engine, alloc device.Allocator, obs decoder.Observer) *Device {
	cfg.Validate()
	if obs == nil {
		obs = decoder.Nop{}
	}
	d := &Device{
		cfg:     cfg,
		log:     cfg.Logger,
		eng:     eng,
		alloc:   alloc,
		handles: handle.NewStore(),
		obs:     obs,
	}
	d.log.Info(pkg+"opened device", "version", eng.Version())
	return d
}

// Version returns the engine version.
func (d *Device) Version() uint32 { return d.eng.Version() }

// Close closes the engine backend. Handles still live are reported but
// not freed.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if n := d.handles.Len(); n != 0 {
		d.log.Warning(pkg+"closing with live handles", "count", n)
	}
	var errs device.MultiError
	for _, c := range d.closers {
		errs.Add(c.Close())
	}
	return errs.Err()
}
