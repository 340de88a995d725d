package pickup

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"areastate.ai/internal/areastate"
)

// Reloadable serves Match from the latest successfully loaded rule set.
type Reloadable struct {
	path string
	cur  atomic.Pointer[Filter]
}

func NewReloadable(path string) (*Reloadable, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	r := &Reloadable{path: path}
	r.cur.Store(f)
	return r, nil
}

func (r *Reloadable) Match(item areastate.Object) (string, bool) {
	return r.cur.Load().Match(item)
}

func (r *Reloadable) Len() int { return r.cur.Load().Len() }

// Reload re-reads the rule file. A broken file keeps the previous rules.
func (r *Reloadable) Reload() error {
	f, err := Load(r.path)
	if err != nil {
		return err
	}
	r.cur.Store(f)
	return nil
}

// Watch reloads the rules whenever the file changes and calls onChange after
// each successful reload. It blocks until ctx is done.
func (r *Reloadable) Watch(ctx context.Context, logger *log.Logger, onChange func()) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		return err
	}
	target := filepath.Clean(r.path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debounce = time.After(100 * time.Millisecond)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Printf("[pickup] watch error: %v", err)
		case <-debounce:
			debounce = nil
			if err := r.Reload(); err != nil {
				logger.Printf("[pickup] reload %s: %v", r.path, err)
				continue
			}
			logger.Printf("[pickup] reloaded %s (%d rules)", r.path, r.cur.Load().Len())
			if onChange != nil {
				onChange()
			}
		}
	}
}
