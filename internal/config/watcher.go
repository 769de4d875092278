package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
)

// ApplyBuilders receives every successfully parsed version of the builders file.
type ApplyBuilders func(ctx context.Context, builders []domainbuilder.Builder) error

// BuildersWatcher reloads the builders file when it changes on disk. Bursts of writes
// are collapsed into one reload.
type BuildersWatcher struct {
	path     string
	apply    ApplyBuilders
	debounce time.Duration
	watcher  *fsnotify.Watcher
	reload   chan struct{}
	done     chan struct{}
}

func NewBuildersWatcher(path string, apply ApplyBuilders, debounce time.Duration) (*BuildersWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve builders file path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &BuildersWatcher{
		path:     abs,
		apply:    apply,
		debounce: debounce,
		watcher:  w,
		reload:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the file's directory, which survives editors that replace the file.
func (bw *BuildersWatcher) Start(ctx context.Context) error {
	if err := bw.watcher.Add(filepath.Dir(bw.path)); err != nil {
		bw.watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(bw.path), err)
	}
	slog.Info("watching builders file", "path", bw.path)
	go bw.watchLoop(ctx)
	go bw.reloadLoop(ctx)
	return nil
}

func (bw *BuildersWatcher) Stop() error {
	select {
	case <-bw.done:
		return nil
	default:
		close(bw.done)
	}
	return bw.watcher.Close()
}

func (bw *BuildersWatcher) watchLoop(ctx context.Context) {
	name := filepath.Base(bw.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-bw.done:
			return
		case ev, ok := <-bw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op.Has(fsnotify.Remove) {
				slog.Warn("builders file removed, keeping current builders", "path", ev.Name)
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				select {
				case bw.reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-bw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("builders watcher error", "error", err)
		}
	}
}

func (bw *BuildersWatcher) reloadLoop(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-bw.done:
			return
		case <-bw.reload:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(bw.debounce, func() { bw.Reload(ctx) })
		}
	}
}

// Reload parses the file and applies it. A file that fails to parse or apply leaves the
// running builders untouched.
func (bw *BuildersWatcher) Reload(ctx context.Context) {
	builders, err := LoadBuilders(bw.path)
	if err != nil {
		slog.Error("builders reload failed", "path", bw.path, "error", err)
		return
	}
	if err := bw.apply(ctx, builders); err != nil {
		slog.Error("builders reload rejected", "path", bw.path, "error", err)
		return
	}
	slog.Info("builders reloaded", "path", bw.path, "count", len(builders))
}
