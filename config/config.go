/*
NAME
  config.go

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for a cedar decode
// device.
package config

import (
	"time"

	"github.com/ausocean/utils/logging"
)

// Engine backends.
const (
	// Indicates no option has been set.
	NothingDefined = iota

	EngineSim
	EngineUIO
)

// Output surface formats.
const (
	FormatNV12 = iota + 1
	FormatTiled
)

// Config provides parameters relevant to a decode device. Default values
// for these fields are defined in variables.go.
type Config struct {
	// Logger holds an implementation of the Logger interface.
	Logger logging.Logger

	// LogLevel is the logging verbosity level.
	// Valid values are defined by enums from the logger package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	Suppress bool // Holds logger suppression state.

	// Engine selects the engine backend, EngineSim or EngineUIO.
	Engine uint8

	// UIODevice is the device node of the engine when the UIO backend is used.
	UIODevice string

	// DMAMap is the index of the UIO map holding the reserved DMA region.
	DMAMap uint

	// EngineVersion is the version reported by the simulated engine.
	EngineVersion uint

	// WaitTimeout bounds each wait for engine completion. A timed out wait
	// resets the engine and fails the picture.
	WaitTimeout time.Duration

	// StrictMarkers makes marker bit mismatches in headers parse errors. By
	// default they are logged and parsing continues.
	StrictMarkers bool

	BitstreamBufferSize uint // Size in bytes of each decoder's bitstream buffer.
	MaxReferences       uint // Upper bound on decoder reference surfaces.
	MaxWidth            uint // Largest decodable width in pixels.
	MaxHeight           uint // Largest decodable height in pixels.

	// OutputFormat is the requested surface format, FormatNV12 or
	// FormatTiled. NV12 output needs engine version 0x1680 or later, and
	// older engines fall back to the tiled format.
	OutputFormat uint8
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
