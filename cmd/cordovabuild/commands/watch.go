package commands

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/stages"
)

const defaultWatchDebounce = 300 * time.Millisecond

// WatchCmd re-runs the configure stage list whenever the manifest source
// changes. With an inline manifest the configuration file is watched.
type WatchCmd struct {
	Path     string        `short:"p" name:"path" help:"Override build.path"`
	Manifest string        `short:"m" name:"manifest" help:"Manifest source file (JSON or XML)"`
	Debounce time.Duration `name:"debounce" default:"300ms" help:"Quiet period before a re-run"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	flags := PipelineFlags{Path: w.Path, Manifest: w.Manifest}
	cfg, err := loadConfig(root, flags)
	if err != nil {
		return err
	}
	target := root.Config
	if cfg.ManifestFile != "" {
		target = cfg.ManifestFile
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return errors.FileSystemError("failed to resolve watch target").WithCause(err).Build()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.FileSystemError("failed to create file watcher").WithCause(err).Build()
	}
	defer func() { _ = watcher.Close() }()
	// Editors often replace files, so the parent directory is watched.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.FileSystemError("failed to watch directory").
			WithCause(err).
			WithContext("path", filepath.Dir(target)).
			Build()
	}

	rerun := func() {
		if err := runMode(g, root, stages.ModeConfigure, flags); err != nil {
			slog.Error("Configure run failed", logfields.Error(err))
		}
	}
	slog.Info("Watching manifest source", logfields.Path(target))
	rerun()
	return watchLoop(g.context(), watcher, target, w.Debounce, rerun)
}

// setupDebouncer returns a channel receiving one request per quiet period
// and the trigger that (re)arms it.
func setupDebouncer(delay time.Duration) (chan struct{}, func()) {
	if delay <= 0 {
		delay = defaultWatchDebounce
	}
	var mu sync.Mutex
	var timer *time.Timer
	req := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			select {
			case req <- struct{}{}:
			default:
			}
		})
	}
	return req, trigger
}

// watchLoop calls rerun once per debounced burst of events on target until
// ctx is done. Runs happen on the loop goroutine, one at a time.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, target string, delay time.Duration, rerun func()) error {
	req, trigger := setupDebouncer(delay)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch stopped")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				slog.Debug("Manifest source changed", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
				trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		case <-req:
			rerun()
		}
	}
}
