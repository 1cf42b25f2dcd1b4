package filesystem

import (
	"errors"
	"log"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"resultlens/internal/domain"
	"resultlens/internal/ports"
)

// DefaultDebounce coalesces editor save bursts into one update
const DefaultDebounce = 200 * time.Millisecond

// Watcher implements ports.ContentWatcher. It watches the directories of the
// files holding results and emits FileContentUpdated when a file's content
// hash changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	emit     ports.Emit
	debounce time.Duration

	mu     sync.Mutex
	hashes map[string]uint64 // fileID -> content hash
	dirs   map[string]int    // watched directory -> file count
	timers map[string]*pendingCheck
	seq    int
	closed bool

	wg sync.WaitGroup
}

type pendingCheck struct {
	timer *time.Timer
	seq   int
}

// Ensure Watcher implements ContentWatcher
var _ ports.ContentWatcher = (*Watcher)(nil)

// NewWatcher creates a watcher delivering updates through emit. emit is
// called from the watcher's own goroutines.
func NewWatcher(emit ports.Emit, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		fsw:      fsw,
		emit:     emit,
		debounce: debounce,
		hashes:   make(map[string]uint64),
		dirs:     make(map[string]int),
		timers:   make(map[string]*pendingCheck),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Watch replaces the watched file set
func (w *Watcher) Watch(fileIDs []string) error {
	next := domain.NewSet()
	for _, id := range fileIDs {
		next.Add(domain.NormalizeID(id))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("watcher closed")
	}

	var errs []error
	for id := range w.hashes {
		if next.Has(id) {
			continue
		}
		delete(w.hashes, id)
		if pc, ok := w.timers[id]; ok {
			if pc.timer.Stop() {
				w.wg.Done()
			}
			delete(w.timers, id)
		}
		dir := path.Dir(id)
		if w.dirs[dir]--; w.dirs[dir] <= 0 {
			delete(w.dirs, dir)
			_ = w.fsw.Remove(filepath.FromSlash(dir))
		}
	}
	for id := range next {
		if _, ok := w.hashes[id]; ok {
			continue
		}
		dir := path.Dir(id)
		if w.dirs[dir] == 0 {
			if err := w.fsw.Add(filepath.FromSlash(dir)); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		w.dirs[dir]++
		w.hashes[id] = hashFile(id)
	}
	return errors.Join(errs...)
}

// Close stops the watcher and waits for its goroutines
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for id, pc := range w.timers {
		if pc.timer.Stop() {
			w.wg.Done()
		}
		delete(w.timers, id)
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule(domain.NormalizeID(filepath.ToSlash(ev.Name)))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)
		}
	}
}

// schedule restarts the debounce timer of id
func (w *Watcher) schedule(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if _, ok := w.hashes[id]; !ok {
		return
	}
	if pc, ok := w.timers[id]; ok && pc.timer.Stop() {
		w.wg.Done()
	}
	w.seq++
	seq := w.seq
	w.wg.Add(1)
	t := time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.check(id, seq)
	})
	w.timers[id] = &pendingCheck{timer: t, seq: seq}
}

// check emits the new content of id when its hash changed
func (w *Watcher) check(id string, seq int) {
	data, err := os.ReadFile(filepath.FromSlash(id))

	w.mu.Lock()
	if pc, ok := w.timers[id]; ok && pc.seq == seq {
		delete(w.timers, id)
	}
	prev, ok := w.hashes[id]
	if w.closed || !ok || err != nil {
		w.mu.Unlock()
		return
	}
	h := xxhash.Sum64(data)
	if h == prev {
		w.mu.Unlock()
		return
	}
	w.hashes[id] = h
	w.mu.Unlock()

	w.emit(domain.FileContentUpdated{FileID: id, Content: string(data)})
}

func hashFile(id string) uint64 {
	data, err := os.ReadFile(filepath.FromSlash(id))
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}
