// Package hook watches the vault for newly created notes and adds the
// namespace line to each one shortly after it appears.
package hook

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/namespacer/internal/checksum"
	"github.com/starford/namespacer/internal/injector"
	"github.com/starford/namespacer/internal/models"
	"github.com/starford/namespacer/internal/settings"
	"github.com/starford/namespacer/internal/storage"
)

// DefaultDelay lets the writer finish populating a new note before it is
// read.
const DefaultDelay = 100 * time.Millisecond

// moveWindow is how long a dropped note is remembered. Its content
// reappearing under a new path is a move; its path reappearing is a rewrite
// (editors that save by renaming the original away). Neither is a creation.
const moveWindow = time.Second

// EventCallback is called for hook events. kind is "created" or "injected".
type EventCallback func(kind string, path string)

// Injector injects a single note.
type Injector interface {
	Inject(ctx context.Context, path string) (injector.Outcome, error)
}

// Hook reacts to note creation in a vault.
type Hook struct {
	store    storage.Provider
	settings *settings.Store
	inj      Injector
	logger   *slog.Logger
	delay    time.Duration
	cb       EventCallback

	mu      sync.Mutex
	known   map[string]string // path -> checksum
	moved   map[string]time.Time
	dropped map[string]time.Time // path -> when it was removed or renamed away
	pending map[string]*time.Timer
	tasks   sync.WaitGroup
}

// Option configures a Hook.
type Option func(*Hook)

// WithDelay sets the pause between creation and injection.
func WithDelay(d time.Duration) Option {
	return func(h *Hook) { h.delay = d }
}

// WithCallback registers cb for hook events.
func WithCallback(cb EventCallback) Option {
	return func(h *Hook) { h.cb = cb }
}

// New creates a Hook.
func New(store storage.Provider, st *settings.Store, inj Injector, logger *slog.Logger, opts ...Option) *Hook {
	h := &Hook{
		store:    store,
		settings: st,
		inj:      inj,
		logger:   logger,
		delay:    DefaultDelay,
		known:    make(map[string]string),
		moved:    make(map[string]time.Time),
		dropped:  make(map[string]time.Time),
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Watch starts an fsnotify watcher on the vault root and processes events
// until ctx is cancelled. Notes present at start are known and never
// treated as created. New directories are added to the watch list as they
// appear.
func (h *Hook) Watch(ctx context.Context, vaultRoot string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := h.seed(); err != nil {
		return err
	}
	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}
	// Notes created between seeding and the watches going up have no event.
	if err := h.catchUp(ctx); err != nil {
		return err
	}

	h.logger.Info("hook: watching", slog.String("root", vaultRoot), slog.Duration("delay", h.delay))

	for {
		select {
		case <-ctx.Done():
			h.stop()
			h.logger.Info("hook: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				h.stop()
				return nil
			}
			h.handle(ctx, w, vaultRoot, ev)

		case watchErr, ok := <-w.Errors:
			if !ok {
				h.stop()
				return nil
			}
			h.logger.Error("hook: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func (h *Hook) seed() error {
	metas, err := h.store.List("")
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range metas {
		h.known[m.Path] = m.Checksum
	}
	return nil
}

// catchUp lists the vault again and observes every note seed did not see.
// A queued Create for the same note later finds it known.
func (h *Hook) catchUp(ctx context.Context) error {
	metas, err := h.store.List("")
	if err != nil {
		return err
	}
	for _, m := range metas {
		h.mu.Lock()
		_, ok := h.known[m.Path]
		h.mu.Unlock()
		if !ok {
			h.observe(ctx, m.Path)
		}
	}
	return nil
}

func (h *Hook) handle(ctx context.Context, w *fsnotify.Watcher, vaultRoot string, ev fsnotify.Event) {
	absPath := ev.Name
	rel, err := filepath.Rel(vaultRoot, absPath)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		h.forget(rel, ev.Op&fsnotify.Rename != 0)
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			if hidden(info.Name()) {
				return
			}
			if addErr := addDirsRecursive(w, absPath); addErr != nil {
				h.logger.Warn("hook: add new dir failed",
					slog.String("path", absPath),
					slog.String("error", addErr.Error()))
			} else {
				h.logger.Debug("hook: watching new dir", slog.String("path", absPath))
			}
			h.scanNewDir(ctx, vaultRoot, absPath)
			return
		}
	}

	if !(models.Note{Path: rel}).IsMarkdown() || inHiddenDir(rel) {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		h.observe(ctx, rel)
	}
}

// observe records that rel exists. Paths seen for the first time are new
// notes unless their content matches a note renamed moments ago.
func (h *Hook) observe(ctx context.Context, rel string) {
	data, err := h.store.Read(rel)
	if err != nil {
		// Gone again, or unreadable; a later event will retry.
		h.logger.Debug("hook: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	cs := checksum.Sum(data)

	h.mu.Lock()
	if _, ok := h.known[rel]; ok {
		h.known[rel] = cs
		h.mu.Unlock()
		return
	}
	h.known[rel] = cs
	if at, ok := h.dropped[rel]; ok && time.Since(at) < moveWindow {
		delete(h.dropped, rel)
		h.mu.Unlock()
		h.logger.Debug("hook: note rewritten", slog.String("path", rel))
		return
	}
	if at, ok := h.moved[cs]; ok && time.Since(at) < moveWindow {
		delete(h.moved, cs)
		h.mu.Unlock()
		h.logger.Debug("hook: note moved", slog.String("path", rel))
		return
	}
	h.mu.Unlock()

	h.created(ctx, rel)
}

// forget drops rel, and anything below it when rel is a directory.
func (h *Hook) forget(rel string, renamed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for cs, at := range h.moved {
		if now.Sub(at) >= moveWindow {
			delete(h.moved, cs)
		}
	}
	for p, at := range h.dropped {
		if now.Sub(at) >= moveWindow {
			delete(h.dropped, p)
		}
	}

	prefix := rel + "/"
	for p, cs := range h.known {
		if p != rel && !strings.HasPrefix(p, prefix) {
			continue
		}
		delete(h.known, p)
		h.dropped[p] = now
		if renamed {
			h.moved[cs] = now
		}
		if t, ok := h.pending[p]; ok && t.Stop() {
			delete(h.pending, p)
			h.tasks.Done()
		}
	}
}

func (h *Hook) created(ctx context.Context, rel string) {
	h.logger.Debug("hook: note created", slog.String("path", rel))
	if h.cb != nil {
		h.cb("created", rel)
	}
	if !h.settings.AutoProcessNewFiles() {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pending[rel]; ok {
		return
	}
	h.tasks.Add(1)
	h.pending[rel] = time.AfterFunc(h.delay, func() {
		defer h.tasks.Done()
		h.mu.Lock()
		delete(h.pending, rel)
		h.mu.Unlock()
		h.process(ctx, rel)
	})
}

func (h *Hook) process(ctx context.Context, rel string) {
	out, err := h.inj.Inject(ctx, rel)
	if err != nil {
		h.logger.Warn("hook: inject failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	h.logger.Debug("hook: processed", slog.String("path", rel), slog.String("outcome", string(out)))
	if out == injector.OutcomeInjected && h.cb != nil {
		h.cb("injected", rel)
	}
}

// stop cancels scheduled tasks and waits for running ones.
func (h *Hook) stop() {
	h.mu.Lock()
	for p, t := range h.pending {
		if t.Stop() {
			h.tasks.Done()
		}
		delete(h.pending, p)
	}
	h.mu.Unlock()
	h.tasks.Wait()
}

// scanNewDir treats notes already inside a newly created directory as
// created.
func (h *Hook) scanNewDir(ctx context.Context, vaultRoot, dirPath string) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dirPath && hidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if (models.Note{Path: rel}).IsMarkdown() {
			h.observe(ctx, rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func inHiddenDir(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if hidden(part) {
			return true
		}
	}
	return false
}
