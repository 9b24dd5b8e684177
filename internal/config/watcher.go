// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// SETTINGS FILE WATCHER
// =============================================================================

// Watcher reports external changes to the durable settings file so the UI
// can pick up edits made by another process (or a text editor). Events are
// debounced; atomic-rename saves produce a single notification.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration

	events chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending time.Time
}

// NewWatcher watches the settings file at path. The parent directory is
// watched rather than the file itself because atomic saves replace the inode.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fsw,
		path:     path,
		debounce: 250 * time.Millisecond,
		events:   make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	go w.processEvents()
	go w.processPending()

	return w, nil
}

// Events delivers one value per settled change to the settings file.
// The channel is never closed while the watcher is open.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next poll tick still fires.
		}
	}
}

func (w *Watcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			fire := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if fire {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if fire {
				select {
				case w.events <- struct{}{}:
				default:
					// A notification is already queued.
				}
			}
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}
