// Package netwatch turns changes of the device's network state file into
// sync triggers.
package netwatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"hvac_dispatch_backend/platform/logger"

	"github.com/fsnotify/fsnotify"
)

// State is the device connectivity written by the OS integration.
type State int

const (
	StateUnknown State = iota
	StateOffline
	StateOnline
)

// ReadState parses the state file. A missing file means offline; an empty
// or unrecognised file (for example mid-write) is unknown.
func ReadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StateOffline, nil
		}
		return StateUnknown, fmt.Errorf("read network state: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(string(data))) {
	case "online":
		return StateOnline, nil
	case "offline":
		return StateOffline, nil
	default:
		return StateUnknown, nil
	}
}

// Detector reports offline to online transitions.
type Detector struct {
	online bool
}

func NewDetector(online bool) *Detector {
	return &Detector{online: online}
}

func (d *Detector) Online() bool { return d.online }

// Observe records the latest state and returns true only when it moved
// from offline to online.
func (d *Detector) Observe(online bool) bool {
	transitioned := online && !d.online
	d.online = online
	return transitioned
}

// Watcher observes the state file and calls trigger once per transition,
// after the settle delay. Going offline again inside the delay cancels the
// pending trigger.
type Watcher struct {
	path    string
	settle  time.Duration
	trigger func(context.Context)
	log     *logger.Logger

	wg      sync.WaitGroup
	started chan struct{}
}

func New(path string, settle time.Duration, trigger func(context.Context), log *logger.Logger) *Watcher {
	return &Watcher{
		path:    filepath.Clean(path),
		settle:  settle,
		trigger: trigger,
		log:     log,
	}
}

// Run blocks until ctx is cancelled. When the device is already online a
// pass is triggered immediately.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create network watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory so atomic replacements of the file are seen.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	state, err := ReadState(w.path)
	if err != nil {
		w.log.Warn("could not read network state", "path", w.path, "error", err)
	}
	detector := NewDetector(state == StateOnline)
	if detector.Online() {
		w.fire(ctx)
	}
	if w.started != nil {
		close(w.started)
	}

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				w.wg.Wait()
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			state, err := ReadState(w.path)
			if err != nil {
				w.log.Warn("could not read network state", "path", w.path, "error", err)
				continue
			}
			if state == StateUnknown {
				continue
			}
			online := state == StateOnline
			if detector.Observe(online) {
				w.log.Info("network back online", "settle", w.settle)
				settle = time.After(w.settle)
			} else if !online {
				settle = nil
			}

		case <-settle:
			settle = nil
			if detector.Online() {
				w.fire(ctx)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				w.wg.Wait()
				return nil
			}
			w.log.Warn("network watcher error", "error", err)
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.trigger(ctx)
	}()
}
