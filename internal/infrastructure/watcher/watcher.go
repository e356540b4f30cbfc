// Package watcher observes the project tree for entity file changes and
// turns raw filesystem notifications into debounced, hash-guarded entity
// events. Events for one path collapse within the debounce window; a
// write that leaves the content hash unchanged is dropped.
package watcher

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/importer/schema"
)

// Action classifies an entity file event
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionError   Action = "error"
)

// Event is one debounced entity file change. Error events carry Err and
// never tear the watcher down.
type Event struct {
	Action Action
	Object string
	Slug   string
	Path   string
	Err    error
}

// Watcher turns filesystem notifications into entity events
type Watcher struct {
	fs     *fsnotify.Watcher
	root   string
	log    *zap.Logger
	events chan Event

	mutex      sync.Mutex
	debouncer  map[string]*time.Timer
	hashes     map[string][sha256.Size]byte
	identities map[string]identity
	closed     bool

	debounceDelay time.Duration
}

// identity is the last successfully parsed document at a path, kept so a
// delete can name the entity it removes even though the file is gone.
type identity struct {
	object string
	slug   string
}

var watchedExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// New creates a watcher over the project tree rooted at root
func New(root string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:            fs,
		root:          root,
		log:           log,
		events:        make(chan Event, 256),
		debouncer:     make(map[string]*time.Timer),
		hashes:        make(map[string][sha256.Size]byte),
		identities:    make(map[string]identity),
		debounceDelay: debounce,
	}
	if err := w.addTree(root); err != nil {
		fs.Close()
		return nil, err
	}
	return w, nil
}

// Events returns the event stream. Events are delivered in filesystem
// order per path; the consumer is the single writer into the store.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start pumps filesystem notifications until the context is cancelled
func (w *Watcher) Start(ctx context.Context) {
	defer func() {
		// stop pending debounce timers before closing the stream
		w.mutex.Lock()
		w.closed = true
		for path, timer := range w.debouncer {
			timer.Stop()
			delete(w.debouncer, path)
		}
		close(w.events)
		w.mutex.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
			w.emit(Event{Action: ActionError, Err: err})
		}
	}
}

// Close stops the underlying filesystem watcher
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// addTree walks the root, watching every directory and seeding content
// hashes so pre-existing files classify as updates rather than creates.
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.fs.Add(path)
		}
		if watchedExtensions[filepath.Ext(path)] {
			if raw, err := os.ReadFile(path); err == nil {
				w.hashes[path] = sha256.Sum256(raw)
				if doc, err := schema.Parse(path, raw); err == nil {
					w.identities[path] = identity{object: doc.Object, slug: doc.Slug}
				}
			}
		}
		return nil
	})
}

func (w *Watcher) handle(event fsnotify.Event) {
	// new directories join the watch set immediately
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fs.Add(event.Name); err != nil {
				w.log.Warn("cannot watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}
	if !watchedExtensions[filepath.Ext(event.Name)] {
		return
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	if timer, exists := w.debouncer[event.Name]; exists {
		timer.Stop()
	}
	w.debouncer[event.Name] = time.AfterFunc(w.debounceDelay, func() {
		w.mutex.Lock()
		delete(w.debouncer, event.Name)
		w.mutex.Unlock()
		w.settle(event.Name)
	})
}

// settle runs after the debounce window and classifies what actually
// happened to the path, guarding against no-op writes via content hash.
func (w *Watcher) settle(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			w.settleDelete(path)
			return
		}
		w.log.Warn("cannot read changed file", zap.String("path", path), zap.Error(err))
		w.emit(Event{Action: ActionError, Path: path, Err: err})
		return
	}

	sum := sha256.Sum256(raw)
	w.mutex.Lock()
	previous, known := w.hashes[path]
	w.hashes[path] = sum
	w.mutex.Unlock()
	if known && previous == sum {
		w.log.Debug("content unchanged, dropping event", zap.String("path", path))
		return
	}

	action := ActionUpdated
	if !known {
		action = ActionCreated
	}
	event := Event{Action: action, Path: path}
	if doc, err := schema.Parse(path, raw); err == nil {
		event.Object = doc.Object
		event.Slug = doc.Slug
		w.mutex.Lock()
		w.identities[path] = identity{object: doc.Object, slug: doc.Slug}
		w.mutex.Unlock()
	}
	w.emit(event)
}

func (w *Watcher) settleDelete(path string) {
	w.mutex.Lock()
	_, known := w.hashes[path]
	delete(w.hashes, path)
	id := w.identities[path]
	delete(w.identities, path)
	w.mutex.Unlock()
	if !known {
		return
	}
	w.emit(Event{Action: ActionDeleted, Object: id.object, Slug: id.slug, Path: path})
}

// emit sends under the mutex so a send can never race the close in Start
func (w *Watcher) emit(event Event) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- event:
	default:
		// queue full: drop the oldest to keep making progress
		select {
		case <-w.events:
		default:
		}
		w.events <- event
		w.log.Warn("event queue full, dropped oldest event")
	}
}
