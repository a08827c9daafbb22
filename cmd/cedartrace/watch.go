/*
DESCRIPTION
  watch.go provides the spool directory mode of cedartrace, in which streams
  moved into a directory are decoded as they arrive and configuration
  changes are applied without a restart.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ausocean/utils/logging"
	"github.com/coreos/go-systemd/daemon"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ausocean/cedar/config"
	"github.com/ausocean/cedar/decoder"
)

// spool decodes the streams arriving in a directory.
type spool struct {
	dir      string
	confPath string
	profile  decoder.Profile
	regs     bool
	log      logging.Logger
}

// watch decodes each stream created in dir, writing its trace alongside it
// with the .trace extension, until the process is interrupted. Streams
// should be moved into dir once complete, since decoding starts as soon as
// the file appears. If confPath is not empty the configuration is reloaded
// from it whenever it is written. systemd is notified once the watch is
// ready.
func watch(dir, confPath string, profile decoder.Profile, regs bool, log logging.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "could not create watcher")
	}
	defer w.Close()

	err = w.Add(dir)
	if err != nil {
		return errors.Wrapf(err, "could not watch %s", dir)
	}
	if confPath != "" {
		err = w.Add(confPath)
		if err != nil {
			return errors.Wrapf(err, "could not watch %s", confPath)
		}
	}

	s := &spool{dir: dir, confPath: confPath, profile: profile, regs: regs, log: log}
	cfg, err := loadConfig(confPath, log)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	notify(daemon.SdNotifyReady, log)
	log.Info(pkg+"watching spool directory", "dir", dir)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if s.isConfig(ev) {
				notify(daemon.SdNotifyReloading, log)
				next, err := loadConfig(confPath, log)
				if err != nil {
					log.Warning(pkg+"could not reload config", "error", err.Error())
				} else {
					cfg = next
					log.Info(pkg + "config reloaded")
				}
				notify(daemon.SdNotifyReady, log)
				continue
			}
			if path, ok := s.stream(ev); ok {
				s.decode(cfg, path)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warning(pkg+"watcher error", "error", err.Error())

		case <-sig:
			notify(daemon.SdNotifyStopping, log)
			log.Info(pkg + "stopping")
			return nil
		}
	}
}

// isConfig reports whether ev changes the config file.
func (s *spool) isConfig(ev fsnotify.Event) bool {
	if s.confPath == "" || filepath.Clean(ev.Name) != filepath.Clean(s.confPath) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

// stream returns the path of a stream created in the spool directory by
// ev. Trace files and files of unknown type are ignored.
func (s *spool) stream(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) || filepath.Dir(ev.Name) != filepath.Clean(s.dir) {
		return "", false
	}
	ext := strings.ToLower(filepath.Ext(ev.Name))
	if ext != tsExt && codecFor(ev.Name) == "" {
		return "", false
	}
	return ev.Name, true
}

// decode traces the stream at path into path.trace.
func (s *spool) decode(cfg config.Config, path string) {
	out, err := os.Create(path + traceExt)
	if err != nil {
		s.log.Error(pkg+"could not create trace file", "path", path, "error", err.Error())
		return
	}
	defer out.Close()

	s.log.Info(pkg+"decoding", "path", path)
	err = traceFile(cfg, path, "", s.profile, out, s.regs)
	if err != nil {
		s.log.Warning(pkg+"could not decode stream", "path", path, "error", err.Error())
	}
}

// notify sends state to systemd, if it is supervising the process.
func notify(state string, log logging.Logger) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		log.Warning(pkg+"could not notify systemd", "state", state, "error", err.Error())
	case sent:
		log.Debug(pkg+"notified systemd", "state", state)
	}
}
