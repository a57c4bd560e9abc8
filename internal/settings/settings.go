// Package settings holds the user-configurable injection settings and
// persists every change as it happens.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/starford/namespacer/internal/rules"
)

// Batch size bounds offered by the settings controls. The store itself does
// not enforce them.
const (
	MinBatchSize = 1
	MaxBatchSize = 500
)

// Settings is the persisted settings record.
type Settings struct {
	NamespaceFormat     string   `yaml:"namespace_format" json:"namespace_format"`
	ExcludePatterns     []string `yaml:"exclude_patterns" json:"exclude_patterns"`
	AutoProcessNewFiles bool     `yaml:"auto_process_new_files" json:"auto_process_new_files"`
	BatchSize           int      `yaml:"batch_size" json:"batch_size"`
	ShowProgressBar     bool     `yaml:"show_progress_bar" json:"show_progress_bar"`
}

// Defaults returns the settings used before anything is persisted.
func Defaults() Settings {
	return Settings{
		NamespaceFormat:     rules.DefaultFormat,
		ExcludePatterns:     []string{"templates/"},
		AutoProcessNewFiles: true,
		BatchSize:           50,
		ShowProgressBar:     true,
	}
}

func (s Settings) clone() Settings {
	s.ExcludePatterns = slices.Clone(s.ExcludePatterns)
	return s
}

// Persister saves a settings record.
type Persister interface {
	Save(Settings) error
}

// File persists settings as YAML.
type File struct {
	Path string
}

// Save writes s to the file atomically.
func (f File) Save(s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := atomic.WriteFile(f.Path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("settings: save %s: %w", f.Path, err)
	}
	return nil
}

// Load reads the file and merges it over the defaults. A missing file
// yields the defaults.
func (f File) Load() (Settings, error) {
	s := Defaults()
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("settings: read %s: %w", f.Path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("settings: parse %s: %w", f.Path, err)
	}
	if strings.TrimSpace(s.NamespaceFormat) == "" {
		s.NamespaceFormat = rules.DefaultFormat
	}
	return s, nil
}

// Store is the process-wide settings state.
type Store struct {
	mu        sync.RWMutex
	cur       Settings
	persister Persister
}

// NewStore returns a store seeded with initial. A nil persister keeps
// changes in memory only.
func NewStore(initial Settings, p Persister) *Store {
	return &Store{cur: initial.clone(), persister: p}
}

// Open loads the settings file at path, merged over defaults, and returns a
// store that persists back to it.
func Open(path string) (*Store, error) {
	f := File{Path: path}
	s, err := f.Load()
	if err != nil {
		return nil, err
	}
	return NewStore(s, f), nil
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

// update applies fn under the write lock and persists the result. The
// in-memory change stands even when persisting fails.
func (s *Store) update(fn func(*Settings)) error {
	s.mu.Lock()
	fn(&s.cur)
	snap := s.cur.clone()
	s.mu.Unlock()

	if s.persister == nil {
		return nil
	}
	return s.persister.Save(snap)
}

func (s *Store) NamespaceFormat() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.NamespaceFormat
}

// SetNamespaceFormat sets the template. Blank input falls back to the default.
func (s *Store) SetNamespaceFormat(format string) error {
	if strings.TrimSpace(format) == "" {
		format = rules.DefaultFormat
	}
	return s.update(func(c *Settings) { c.NamespaceFormat = format })
}

func (s *Store) ExcludePatterns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cur.ExcludePatterns)
}

func (s *Store) SetExcludePatterns(patterns []string) error {
	patterns = slices.Clone(patterns)
	return s.update(func(c *Settings) { c.ExcludePatterns = patterns })
}

func (s *Store) AutoProcessNewFiles() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.AutoProcessNewFiles
}

func (s *Store) SetAutoProcessNewFiles(v bool) error {
	return s.update(func(c *Settings) { c.AutoProcessNewFiles = v })
}

func (s *Store) BatchSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.BatchSize
}

func (s *Store) SetBatchSize(n int) error {
	return s.update(func(c *Settings) { c.BatchSize = n })
}

func (s *Store) ShowProgressBar() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.ShowProgressBar
}

func (s *Store) SetShowProgressBar(v bool) error {
	return s.update(func(c *Settings) { c.ShowProgressBar = v })
}
