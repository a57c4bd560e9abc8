package testutil

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/starford/namespacer/internal/apperr"
	"github.com/starford/namespacer/internal/checksum"
	"github.com/starford/namespacer/internal/models"
	"github.com/starford/namespacer/internal/storage"
)

// MemStore is an in-memory storage.Provider with failure injection.
type MemStore struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes []string

	// NotReady makes Ready fail.
	NotReady bool
	// ReadHook, when set, runs before every read; a non-nil error fails it.
	ReadHook func(path string) error
	// WriteHook, when set, runs before every write; n is the 1-based count
	// of write attempts so far. A non-nil error fails the write.
	WriteHook func(path string, n int) error
	attempts  int
}

var _ storage.Provider = (*MemStore)(nil)

// NewMemStore returns a store holding files.
func NewMemStore(files map[string]string) *MemStore {
	m := &MemStore{files: make(map[string][]byte, len(files))}
	for p, c := range files {
		m.files[p] = []byte(c)
	}
	return m
}

// SetNil makes path read back as a nil buffer with no error.
func (m *MemStore) SetNil(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = nil
}

// Content returns the current content of path.
func (m *MemStore) Content(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.files[path])
}

// Writes returns the paths written successfully, in order.
func (m *MemStore) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

func (m *MemStore) Ready() error {
	if m.NotReady {
		return fmt.Errorf("memstore: %w", apperr.ErrNotReady)
	}
	return nil
}

func (m *MemStore) List(dir string) ([]models.NoteMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.NoteMetadata
	for p, c := range m.files {
		if !(models.Note{Path: p}).IsMarkdown() {
			continue
		}
		if dir != "" && !strings.HasPrefix(p, strings.TrimSuffix(dir, "/")+"/") {
			continue
		}
		out = append(out, models.NoteMetadata{Path: p, Checksum: checksum.Sum(c)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *MemStore) Read(path string) ([]byte, error) {
	if m.ReadHook != nil {
		if err := m.ReadHook(path); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("memstore: read %s: %w", path, os.ErrNotExist)
	}
	if c == nil {
		return nil, nil
	}
	return append([]byte{}, c...), nil
}

func (m *MemStore) Write(path string, content []byte) error {
	m.mu.Lock()
	m.attempts++
	n := m.attempts
	m.mu.Unlock()

	if m.WriteHook != nil {
		if err := m.WriteHook(path, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("memstore: write %s: %w", path, os.ErrNotExist)
	}
	m.files[path] = append([]byte{}, content...)
	m.writes = append(m.writes, path)
	return nil
}

// ErrInjected is returned by failure hooks in tests.
var ErrInjected = errors.New("injected failure")
