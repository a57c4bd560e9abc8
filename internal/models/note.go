// Package models defines the domain types for namespacer.
package models

import (
	"path"
	"strings"
	"time"
)

// Note identifies a Markdown file in the vault by its slash-separated path
// relative to the vault root.
type Note struct {
	Path string `json:"path"`
}

// Folder returns the parent-folder path, or "" for notes at the vault root.
func (n Note) Folder() string {
	dir := path.Dir(n.Path)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// Name returns the file name without its extension.
func (n Note) Name() string {
	base := path.Base(n.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// IsMarkdown reports whether the note has a .md extension.
func (n Note) IsMarkdown() bool {
	return strings.EqualFold(path.Ext(n.Path), ".md")
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlannedChange is a computed but not yet applied injection for one note.
type PlannedChange struct {
	Note        Note   `json:"note"`
	Namespace   string `json:"namespace"`
	NewContent  string `json:"-"`
	NeedsUpdate bool   `json:"needs_update"`
}

// Backup is the pre-batch content of a note, kept only for rollback.
type Backup struct {
	Note    Note
	Content []byte
	TakenAt time.Time
}
