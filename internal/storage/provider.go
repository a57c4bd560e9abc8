// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/namespacer/internal/models"

// Provider is the interface for vault file operations. Paths are
// slash-separated and relative to the vault root.
type Provider interface {
	// Ready reports whether the vault can be read and written.
	Ready() error
	// List returns metadata for every .md file under dir, sorted by path.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the content of the file at path.
	Write(path string, content []byte) error
}
