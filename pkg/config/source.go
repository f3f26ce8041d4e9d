package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/fsnotify/fsnotify"
)

// Source supplies the current parameter snapshot. The renderer polls it
// once per frame and never mutates what it returns.
type Source interface {
	Current() Params
}

// StaticSource always returns the same parameters
type StaticSource Params

// Current implements Source
func (s StaticSource) Current() Params {
	return Params(s)
}

// MutableSource is a thread-safe Source that hosts update from input
// handlers running on other goroutines.
type MutableSource struct {
	mu     sync.RWMutex
	params Params
}

// NewMutableSource creates a source holding the clamped initial parameters
func NewMutableSource(initial Params) *MutableSource {
	return &MutableSource{params: initial.Clamp()}
}

// Current implements Source
func (s *MutableSource) Current() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Set replaces the parameters
func (s *MutableSource) Set(p Params) {
	p = p.Clamp()
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
}

// Update applies fn to a copy of the current parameters and stores the
// clamped result
func (s *MutableSource) Update(fn func(*Params)) Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.params
	fn(&p)
	s.params = p.Clamp()
	return s.params
}

// FileSource serves parameters from a file and reloads them when the file
// changes on disk. A file that fails to parse leaves the last good
// parameters in place.
type FileSource struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu      sync.RWMutex
	params  Params
	lastErr error
}

// NewFileSource loads path and starts watching it
func NewFileSource(path string) (*FileSource, error) {
	params, err := Load(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fs := &FileSource{
		path:    filepath.Clean(path),
		watcher: watcher,
		done:    make(chan struct{}),
		params:  params,
	}
	go fs.run()
	return fs, nil
}

// Current implements Source
func (fs *FileSource) Current() Params {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.params
}

// Err returns the error of the most recent reload, if it failed
func (fs *FileSource) Err() error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.lastErr
}

// Close stops watching the file
func (fs *FileSource) Close() error {
	err := fs.watcher.Close()
	<-fs.done
	return err
}

func (fs *FileSource) run() {
	defer close(fs.done)
	logger := core.Logger()

	for {
		select {
		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fs.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			fs.reload()

		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("parameter file watcher error", "path", fs.path, "error", err)
		}
	}
}

func (fs *FileSource) reload() {
	params, err := Load(fs.path)

	fs.mu.Lock()
	fs.lastErr = err
	if err == nil {
		fs.params = params
	}
	fs.mu.Unlock()

	if err != nil {
		core.Logger().Warn("keeping previous parameters", "path", fs.path, "error", err)
		return
	}
	core.Logger().Info("parameters reloaded", "path", fs.path)
}
