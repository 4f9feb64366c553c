package watch

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"repotree/internal/logging"
)

// Op is the kind of change observed in a watched directory.
type Op int

const (
	OpCreate Op = iota
	OpRemove
	OpWrite
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpWrite:
		return "write"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is one observed change. For OpRename, Path is the new path and
// OldPath the previous one; for every other op OldPath is empty.
type Event struct {
	Op      Op
	Path    string
	OldPath string
}

// renamePairWindow is how long a rename's old path is held waiting for the
// matching create of the new path before it degrades to a plain remove.
const renamePairWindow = 50 * time.Millisecond

// DirWatcher watches exactly one directory (non-recursively) and delivers
// filtered, typed events to its handler on the watcher goroutine. The
// handler must not block; long work belongs behind a debouncer.
//
// Renames arrive from the file system as two half-events: a rename op for
// the old path, then a create for the new one. The watcher pairs the two
// into a single OpRename event carrying both paths. A rename whose new
// path never shows up (the entry moved to another directory) degrades to
// OpRemove after a short wait.
type DirWatcher struct {
	dir     string
	fw      *fsnotify.Watcher
	handler func(Event)
	filter  func(name string) bool

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a DirWatcher.
type Option func(*DirWatcher)

// WithFilter replaces the default temp-file filter. The filter receives a
// base name and returns true when events for that name should be dropped.
func WithFilter(filter func(name string) bool) Option {
	return func(w *DirWatcher) {
		w.filter = filter
	}
}

// NewDirWatcher starts watching dir. The directory must exist; callers
// that need to wait for a directory to appear watch its parent instead.
func NewDirWatcher(dir string, handler func(Event), opts ...Option) (*DirWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &DirWatcher{
		dir:     dir,
		fw:      fw,
		handler: handler,
		filter:  IsTempName,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.loop()
	return w, nil
}

// Dir returns the watched directory.
func (w *DirWatcher) Dir() string {
	return w.dir
}

// Close stops the watcher. Idempotent and safe from any goroutine. No
// events are delivered after Close returns, other than one possibly
// already in flight on the watcher goroutine.
func (w *DirWatcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.fw.Close()
	})
}

func (w *DirWatcher) loop() {
	var (
		pendingOld   string
		renameExpiry *time.Timer
	)
	expired := make(chan struct{}, 1)

	flushPending := func() {
		if pendingOld == "" {
			return
		}
		old := pendingOld
		pendingOld = ""
		w.emit(Event{Op: OpRemove, Path: old})
	}

	for {
		select {
		case <-w.done:
			return

		case <-expired:
			flushPending()

		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Chmod != 0 {
				continue
			}
			if w.filter(filepath.Base(event.Name)) {
				continue
			}

			switch {
			case event.Op&fsnotify.Rename != 0:
				flushPending()
				pendingOld = event.Name
				if renameExpiry != nil {
					renameExpiry.Stop()
				}
				renameExpiry = time.AfterFunc(renamePairWindow, func() {
					select {
					case expired <- struct{}{}:
					default:
					}
				})

			case event.Op&fsnotify.Create != 0:
				if pendingOld != "" {
					old := pendingOld
					pendingOld = ""
					if renameExpiry != nil {
						renameExpiry.Stop()
					}
					w.emit(Event{Op: OpRename, Path: event.Name, OldPath: old})
					continue
				}
				w.emit(Event{Op: OpCreate, Path: event.Name})

			case event.Op&fsnotify.Remove != 0:
				w.emit(Event{Op: OpRemove, Path: event.Name})

			case event.Op&fsnotify.Write != 0:
				w.emit(Event{Op: OpWrite, Path: event.Name})
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// Watcher errors degrade to missing live updates, never to a
			// failure surfaced to the owner.
			logging.Debug("Watcher error", "dir", w.dir, "error", err)
		}
	}
}

// emit invokes the handler, never letting a panic escape the watcher
// goroutine.
func (w *DirWatcher) emit(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Watch handler panicked", "dir", w.dir, "event", ev.Op.String(), "panic", r)
		}
	}()
	w.handler(ev)
}

// IsTempName reports whether name looks like a transient editor artifact:
// names beginning with "~" or ".", ending in "~", or carrying a temp-save
// suffix. Events for such names are dropped so in-progress saves do not
// flicker the tree.
func IsTempName(name string) bool {
	if name == "" {
		return true
	}
	if strings.HasPrefix(name, "~") || strings.HasPrefix(name, ".") {
		return true
	}
	if strings.HasSuffix(name, "~") {
		return true
	}
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".tmp") || strings.HasSuffix(lower, ".swp")
}
