package config

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/easelhq/easel/internal/timing"
)

// ErrNilCallback is returned when Watch is given no onChange callback.
var ErrNilCallback = errors.New("onChange callback cannot be nil")

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	path     string
	onChange func(*Config)
	onError  func(error)
	debounce *timing.Debouncer
	closeCh  chan struct{}
	wg       sync.WaitGroup
	closed   bool
}

// Watch starts watching path and calls onChange with each successfully
// reloaded configuration. Reload failures go to onError when set and
// are otherwise dropped. Events are debounced: editors typically write
// a file several times per save.
func Watch(path string, debounce time.Duration, onChange func(*Config), onError func(error)) (*Watcher, error) {
	if onChange == nil {
		return nil, ErrNilCallback
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: editors replace files via
	// rename, which silently drops a watch on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		path:     filepath.Clean(path),
		onChange: onChange,
		onError:  onError,
		debounce: timing.NewDebouncer(debounce),
		closeCh:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			w.debounce.Do(w.reload)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.reportError(err)
		return
	}
	w.onChange(cfg)
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

// Close stops the watcher. Pending debounced reloads are dropped.
// Close is idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debounce.Stop()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
