package protosync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval coalesces bursts of editor writes into one sweep.
const debounceInterval = 100 * time.Millisecond

// WatchFunc receives the outcome of each sync triggered by the watcher.
type WatchFunc func(res *Result, err error)

// Watch syncs langs once, then again whenever a .proto file under the IDL
// root is written or created, until ctx is cancelled.
func (s *Syncer) Watch(ctx context.Context, langs []string, onSync WatchFunc) error {
	syncAll := func() {
		for _, lang := range langs {
			res, err := s.Sync(ctx, lang)
			if onSync != nil {
				onSync(res, err)
			}
		}
	}

	syncAll()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchTree(watcher, s.IDLRoot()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.IDLRoot(), err)
	}

	s.logger.Info("watching for IDL changes", slog.String("dir", s.IDLRoot()))

	// Sweeps only run on this goroutine, one at a time.
	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			syncAll()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// New subdirectories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				_ = watchTree(watcher, event.Name)
			}

			if !strings.HasSuffix(event.Name, ProtoSuffix) {
				continue
			}

			s.logger.Debug("change detected", slog.String("file", filepath.Base(event.Name)))

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceInterval, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// watchTree recursively adds dir and its subdirectories to the watcher.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
