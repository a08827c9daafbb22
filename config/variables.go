/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
)

// Config map Keys.
const (
	KeyBitstreamBufferSize = "BitstreamBufferSize"
	KeyDMAMap              = "DMAMap"
	KeyEngine              = "Engine"
	KeyEngineVersion       = "EngineVersion"
	KeyLogging             = "logging"
	KeyMaxHeight           = "MaxHeight"
	KeyMaxReferences       = "MaxReferences"
	KeyMaxWidth            = "MaxWidth"
	KeyOutputFormat        = "OutputFormat"
	KeyStrictMarkers       = "StrictMarkers"
	KeySuppress            = "Suppress"
	KeyUIODevice           = "UIODevice"
	KeyWaitTimeout         = "WaitTimeout"
)

// Config map parameter types.
const (
	typeString   = "string"
	typeUint     = "uint"
	typeBool     = "bool"
	typeDuration = "duration"
)

// Default variable values.
const (
	defaultVerbosity           = logging.Error
	defaultEngine              = EngineSim
	defaultUIODevice           = "/dev/uio0"
	defaultDMAMap              = 1
	defaultEngineVersion       = 0x1680
	defaultWaitTimeout         = time.Second
	defaultBitstreamBufferSize = 1 << 20 // 1 MiB.
	defaultMaxReferences       = 16
	defaultMaxWidth            = 3840
	defaultMaxHeight           = 2160
	defaultOutputFormat        = FormatNV12

	// Hard limit on reference surfaces imposed by the decode API.
	maxReferences = 16
)

// Variables describes the variables that can be used to configure a decode
// device. These structs provide the name and type of variable, a function for
// updating this variable in a Config, and a function for validating the value
// of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyBitstreamBufferSize,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.BitstreamBufferSize = parseUint(KeyBitstreamBufferSize, v, c) },
		Validate: func(c *Config) {
			c.BitstreamBufferSize = lessThanOrEqual(KeyBitstreamBufferSize, c.BitstreamBufferSize, 0, c, defaultBitstreamBufferSize)
		},
	},
	{
		Name:   KeyDMAMap,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.DMAMap = parseUint(KeyDMAMap, v, c) },
		Validate: func(c *Config) {
			c.DMAMap = lessThanOrEqual(KeyDMAMap, c.DMAMap, 0, c, defaultDMAMap)
		},
	},
	{
		Name: KeyEngine,
		Type: "enum:sim,uio",
		Update: func(c *Config, v string) {
			c.Engine = parseEnum(
				KeyEngine,
				v,
				map[string]uint8{
					"sim": EngineSim,
					"uio": EngineUIO,
				},
				c,
			)
		},
		Validate: func(c *Config) {
			switch c.Engine {
			case EngineSim, EngineUIO:
			default:
				c.LogInvalidField(KeyEngine, defaultEngine)
				c.Engine = defaultEngine
			}
		},
	},
	{
		Name: KeyEngineVersion,
		Type: typeUint,
		Update: func(c *Config, v string) {
			_v, err := strconv.ParseUint(v, 0, 32)
			if err != nil {
				c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", KeyEngineVersion), "value", v)
			}
			c.EngineVersion = uint(_v)
		},
		Validate: func(c *Config) {
			if c.EngineVersion == 0 || c.EngineVersion > 0xffff {
				c.LogInvalidField(KeyEngineVersion, defaultEngineVersion)
				c.EngineVersion = defaultEngineVersion
			}
		},
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyMaxHeight,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MaxHeight = parseUint(KeyMaxHeight, v, c) },
		Validate: func(c *Config) {
			c.MaxHeight = lessThanOrEqual(KeyMaxHeight, c.MaxHeight, 0, c, defaultMaxHeight)
		},
	},
	{
		Name:   KeyMaxReferences,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MaxReferences = parseUint(KeyMaxReferences, v, c) },
		Validate: func(c *Config) {
			if c.MaxReferences == 0 || c.MaxReferences > maxReferences {
				c.LogInvalidField(KeyMaxReferences, defaultMaxReferences)
				c.MaxReferences = defaultMaxReferences
			}
		},
	},
	{
		Name:   KeyMaxWidth,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MaxWidth = parseUint(KeyMaxWidth, v, c) },
		Validate: func(c *Config) {
			c.MaxWidth = lessThanOrEqual(KeyMaxWidth, c.MaxWidth, 0, c, defaultMaxWidth)
		},
	},
	{
		Name: KeyOutputFormat,
		Type: "enum:nv12,tiled",
		Update: func(c *Config, v string) {
			c.OutputFormat = parseEnum(
				KeyOutputFormat,
				v,
				map[string]uint8{
					"nv12":  FormatNV12,
					"tiled": FormatTiled,
				},
				c,
			)
		},
		Validate: func(c *Config) {
			switch c.OutputFormat {
			case FormatNV12, FormatTiled:
			default:
				c.LogInvalidField(KeyOutputFormat, defaultOutputFormat)
				c.OutputFormat = defaultOutputFormat
			}
		},
	},
	{
		Name:   KeyStrictMarkers,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.StrictMarkers = parseBool(KeyStrictMarkers, v, c) },
	},
	{
		Name:   KeySuppress,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Suppress = parseBool(KeySuppress, v, c) },
	},
	{
		Name:   KeyUIODevice,
		Type:   typeString,
		Update: func(c *Config, v string) { c.UIODevice = v },
		Validate: func(c *Config) {
			if c.UIODevice == "" {
				c.LogInvalidField(KeyUIODevice, defaultUIODevice)
				c.UIODevice = defaultUIODevice
			}
		},
	},
	{
		Name: KeyWaitTimeout,
		Type: typeDuration,
		Update: func(c *Config, v string) {
			_v, err := time.ParseDuration(v)
			if err != nil {
				c.Logger.Warning("invalid WaitTimeout param", "value", v)
			}
			c.WaitTimeout = _v
		},
		Validate: func(c *Config) {
			if c.WaitTimeout <= 0 {
				c.LogInvalidField(KeyWaitTimeout, defaultWaitTimeout)
				c.WaitTimeout = defaultWaitTimeout
			}
		},
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

func parseEnum(n, v string, enums map[string]uint8, c *Config) uint8 {
	_v, ok := enums[strings.ToLower(v)]
	if !ok {
		c.Logger.Warning(fmt.Sprintf("invalid value for %s param", n), "value", v)
	}
	return _v
}

func lessThanOrEqual(n string, v, cmp uint, c *Config, def uint) uint {
	if v <= cmp {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}
