// Package definitions keeps the container definitions of a directory loaded
// and reloads them when the files change.
package definitions

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-optionbuilder/pkg/field"
)

// Holder provides thread-safe access to the definitions loaded from dir.
type Holder struct {
	mu       sync.RWMutex
	store    *field.Store
	dir      string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onReload []func(*field.Store, error)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads the definitions under dir.
func NewHolder(dir string, logger zerolog.Logger) (*Holder, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("definitions: absolute path: %w", err)
	}
	store, err := field.LoadFS(os.DirFS(absDir))
	if err != nil {
		return nil, fmt.Errorf("definitions: load %s: %w", dir, err)
	}
	return &Holder{
		store:  store,
		dir:    absDir,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Store returns the current definitions.
func (h *Holder) Store() *field.Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store
}

// Container returns the container registered under id in the current
// definitions.
func (h *Holder) Container(id string) (field.Container, bool) {
	return h.Store().Container(id)
}

// IDs returns the sorted container ids of the current definitions.
func (h *Holder) IDs() []string {
	return h.Store().IDs()
}

// Reload re-reads the directory. On failure the previous definitions stay
// in place.
func (h *Holder) Reload() error {
	store, err := field.LoadFS(os.DirFS(h.dir))
	if err != nil {
		err = fmt.Errorf("definitions: reload %s: %w", h.dir, err)
		h.logger.Error().Err(err).Msg("definitions reload failed, keeping previous definitions")
		h.notify(nil, err)
		return err
	}

	h.mu.Lock()
	previous := len(h.store.IDs())
	h.store = store
	h.mu.Unlock()

	h.logger.Info().
		Int("old", previous).
		Int("new", len(store.IDs())).
		Msg("definitions reloaded")
	h.notify(store, nil)
	return nil
}

// OnReload registers a callback invoked after every reload attempt.
func (h *Holder) OnReload(fn func(store *field.Store, err error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}

func (h *Holder) notify(store *field.Store, err error) {
	h.mu.RLock()
	callbacks := slices.Clone(h.onReload)
	h.mu.RUnlock()
	for _, fn := range callbacks {
		fn(store, err)
	}
}

// Watch starts watching dir and its subdirectories. Changes to definition
// files trigger a reload.
func (h *Holder) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("definitions: create watcher: %w", err)
	}

	if err := addTree(watcher, h.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("definitions: watch %s: %w", h.dir, err)
	}
	h.watcher = watcher

	go h.watchLoop()

	h.logger.Info().Str("dir", h.dir).Msg("watching definitions for changes")
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				// files may land in the new directory before it is watched
				if err := addTree(h.watcher, event.Name); err != nil {
					h.logger.Error().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
					continue
				}
				h.logger.Debug().Str("dir", event.Name).Msg("watching new directory")
				_ = h.Reload()
				continue
			}
			if !isDefinitionFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			h.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("definition file changed")
			_ = h.Reload()

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("definitions watcher error")

		case <-h.stopCh:
			return
		}
	}
}

// addTree registers root and every directory below it.
func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
