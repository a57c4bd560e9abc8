package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/namespacer/internal/apperr"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func seed(t *testing.T, s *FS, rel, content string) {
	t.Helper()
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	seed(t, s, "note.md", "old")
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteNestedExisting(t *testing.T) {
	s := tempVault(t)
	seed(t, s, "a/b/c.md", "deep")
	if err := s.Write("a/b/c.md", []byte("deeper")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deeper" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteDoesNotCreateDirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("missing/dir/note.md", []byte("x")); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	if _, err := os.Stat(filepath.Join(s.root, "missing")); !os.IsNotExist(err) {
		t.Errorf("directory should not have been created: %v", err)
	}
}

func TestReadEmptyFileIsNotNil(t *testing.T) {
	s := tempVault(t)
	seed(t, s, "empty.md", "")
	got, err := s.Read("empty.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got == nil {
		t.Error("empty file should read as an empty, non-nil buffer")
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	seed(t, s, "z.md", "z")
	seed(t, s, "sub/b.md", "b")
	seed(t, s, "a.md", "a")
	seed(t, s, "readme.txt", "not md")
	seed(t, s, ".obsidian/workspace.md", "hidden")

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a.md", "sub/b.md", "z.md"}
	if len(items) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(items), len(want), items)
	}
	for i, p := range want {
		if items[i].Path != p {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Path, p)
		}
		if items[i].Checksum == "" {
			t.Errorf("items[%d] has empty checksum", i)
		}
	}
}

func TestListUppercaseExtension(t *testing.T) {
	s := tempVault(t)
	seed(t, s, "Foo/Bar.MD", "upper")
	seed(t, s, "Foo/baz.Md", "mixed")
	seed(t, s, "Foo/notes.mdx", "not md")

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0].Path != "Foo/Bar.MD" || items[1].Path != "Foo/baz.Md" {
		t.Fatalf("items = %v", items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempVault(t)
	seed(t, s, "atomic.md", "original content")

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover files after write: %v", entries)
	}
}

func TestReady(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vault")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	s, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Ready(); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := s.Ready(); !errors.Is(err, apperr.ErrNotReady) {
		t.Errorf("Ready after removal = %v, want ErrNotReady", err)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/namespacer-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "namespacer-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
