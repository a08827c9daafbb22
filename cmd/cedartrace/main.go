/*
DESCRIPTION
  cedartrace decodes MPEG-1, MPEG-2 and MPEG-4 Part 2 video, given as an
  elementary stream, MPEG-TS or RTP, against a simulated or UIO backed decode
  engine. It prints the engine register accesses of every picture and a
  summary of the decode, and can run as a service decoding the streams
  dropped into a spool directory.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package cedartrace is a command for tracing hardware video decode.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/cedar/codec/codecutil"
	"github.com/ausocean/cedar/config"
	"github.com/ausocean/cedar/decoder"
	"github.com/ausocean/cedar/protocol/rtp"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logPath      = "/var/log/cedar/cedartrace.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// Misc constants.
const (
	pkg       = "cedartrace: "
	traceExt  = ".trace"
	tsExt     = ".ts"
	configSep = "="
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version")
		inPath      = flag.String("in", "", "input elementary stream or MPEG-TS file")
		codecName   = flag.String("codec", "", "codec of an elementary stream input (mpeg1, mpeg2 or mpeg4), by default inferred from the file extension")
		profileName = flag.String("profile", "", "decoder profile, by default derived from the stream")
		confPath    = flag.String("config", "", "file of Name=value configuration variables")
		logFile     = flag.String("log", logPath, "log file path")
		regTrace    = flag.Bool("trace", true, "print register accesses (simulated engine only)")
		watchDir    = flag.String("watch", "", "spool directory to watch for streams")
		rtpAddr     = flag.String("rtp", "", "address to receive an RTP stream at, <ip>:<port>")
		rtpTimeout  = flag.Duration("rtp-timeout", rtp.DefaultTimeout, "time without packets that ends an RTP stream")
	)
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   *logFile,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(os.Stderr, fileLog), logSuppress)
	log.Info("starting cedartrace", "version", version)

	cfg, err := loadConfig(*confPath, log)
	if err != nil {
		log.Fatal(pkg+"could not load config", "error", err.Error())
	}

	profile := decoder.Profile(-1)
	if *profileName != "" {
		profile, err = decoder.ParseProfile(*profileName)
		if err != nil {
			log.Fatal(pkg+"invalid profile", "error", err.Error())
		}
	}

	if *watchDir != "" {
		err = watch(*watchDir, *confPath, profile, *regTrace, log)
		if err != nil {
			log.Fatal(pkg+"watch failed", "error", err.Error())
		}
		return
	}

	if *rtpAddr != "" {
		err = traceRTP(cfg, *rtpAddr, *rtpTimeout, *codecName, profile, os.Stdout, *regTrace, log)
		if err != nil {
			log.Fatal(pkg+"could not trace RTP stream", "error", err.Error())
		}
		return
	}

	if *inPath == "" {
		log.Fatal(pkg + "no input given")
	}
	err = traceFile(cfg, *inPath, *codecName, profile, os.Stdout, *regTrace)
	if err != nil {
		log.Fatal(pkg+"could not trace input", "error", err.Error())
	}
}

// traceFile decodes the stream in the file at path, writing the trace and
// summary to out. c is the codec of an elementary stream, and if empty is
// inferred from the file extension.
func traceFile(cfg config.Config, path, c string, profile decoder.Profile, out io.Writer, regs bool) error {
	isTS := strings.EqualFold(filepath.Ext(path), tsExt)
	if c == "" && !isTS {
		c = codecFor(path)
		if c == "" {
			return errors.Errorf("cannot infer codec of %s", path)
		}
	}
	if c != "" && !codecutil.IsValid(c) {
		return errors.Errorf("invalid codec %q", c)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	t, err := newTracer(cfg, out, regs)
	if err != nil {
		return errors.Wrap(err, "could not open device")
	}
	t.profile = profile

	err = t.run(bufio.NewReader(f), c, isTS)
	t.summary(out)
	cerr := t.close()
	if err != nil {
		return err
	}
	return cerr
}

// traceRTP decodes the stream received over RTP at addr until no packet
// arrives for timeout. c is the codec of the stream, MPEG-4 if empty.
func traceRTP(cfg config.Config, addr string, timeout time.Duration, c string, profile decoder.Profile, out io.Writer, regs bool, log logging.Logger) error {
	if c == "" {
		c = codecutil.MPEG4
	}
	if !codecutil.IsValid(c) {
		return errors.Errorf("invalid codec %q", c)
	}

	client, err := rtp.NewClient(addr, timeout)
	if err != nil {
		return errors.Wrap(err, "could not create RTP client")
	}
	defer client.Close()
	log.Info(pkg+"receiving RTP", "address", client.Addr().String(), "codec", c)

	t, err := newTracer(cfg, out, regs)
	if err != nil {
		return errors.Wrap(err, "could not open device")
	}
	t.profile = profile

	d := rtp.NewDepacketizer(client, log)
	err = t.run(d, c, false)
	t.summary(out)
	if d.Lost() != 0 {
		fmt.Fprintf(out, "packets lost %d\n", d.Lost())
	}
	cerr := t.close()
	if err != nil {
		return err
	}
	return cerr
}

// codecFor returns the codec implied by the extension of path, or the
// empty string if there is none.
func codecFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m1v":
		return codecutil.MPEG1
	case ".m2v", ".mpv", ".mpg", ".mpeg":
		return codecutil.MPEG2
	case ".m4v", ".cmp", ".mp4v", ".divx", ".xvid":
		return codecutil.MPEG4
	default:
		return ""
	}
}

// loadConfig returns a validated Config logging to log, updated with the
// variables in the file at path if path is not empty. Each line of the file
// holds one Name=value pair. Blank lines and lines starting with # are
// ignored.
func loadConfig(path string, log logging.Logger) (config.Config, error) {
	cfg := config.Config{Logger: log, LogLevel: logVerbosity}
	if path != "" {
		vars, err := readVars(path)
		if err != nil {
			return cfg, err
		}
		cfg.Update(vars)
	}
	cfg.Validate()
	log.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// readVars reads the Name=value pairs of the file at path.
func readVars(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vars := make(map[string]string)
	s := bufio.NewScanner(f)
	for n := 1; s.Scan(); n++ {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, configSep)
		if !ok {
			return nil, errors.Errorf("%s:%d: expected Name=value", path, n)
		}
		vars[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return vars, s.Err()
}
