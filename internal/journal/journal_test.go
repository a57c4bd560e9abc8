package journal

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/namespacer/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "namespacer-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("runs table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM run_notes`).Scan(&count); err != nil {
		t.Fatalf("run_notes table missing: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := testDB(t)
	id, err := db.BeginRun(Run{StartedAt: time.Now(), State: "BACKING_UP", Format: "{path}", Planned: 2})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	r, err := db.Run(id)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.FinishedAt != nil {
		t.Error("unfinished run should have no finished_at")
	}
	if r.Format != "{path}" || r.Planned != 2 {
		t.Errorf("run = %+v", r)
	}

	if err := db.FinishRun(Run{ID: id, State: "DONE", Planned: 2, Applied: 2}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	r, _ = db.Run(id)
	if r.State != "DONE" || r.Applied != 2 || r.FinishedAt == nil {
		t.Errorf("finished run = %+v", r)
	}
}

func TestRecordNoteUpdatesStatus(t *testing.T) {
	db := testDB(t)
	id, _ := db.BeginRun(Run{StartedAt: time.Now(), State: "BACKING_UP"})

	_ = db.RecordNote(id, NoteEntry{Path: "b/x.md", Namespace: "b", OriginalChecksum: "o1", NewChecksum: "n1", Status: StatusPlanned})
	_ = db.RecordNote(id, NoteEntry{Path: "a/y.md", Namespace: "a", OriginalChecksum: "o2", NewChecksum: "n2", Status: StatusPlanned})
	if err := db.RecordNote(id, NoteEntry{Path: "b/x.md", Status: StatusApplied}); err != nil {
		t.Fatalf("RecordNote: %v", err)
	}

	notes, err := db.RunNotes(id)
	if err != nil {
		t.Fatalf("RunNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	if notes[0].Path != "a/y.md" || notes[1].Path != "b/x.md" {
		t.Errorf("order = %v", notes)
	}
	x := notes[1]
	if x.Status != StatusApplied || x.OriginalChecksum != "o1" || x.NewChecksum != "n1" || x.Namespace != "b" {
		t.Errorf("updated entry lost fields: %+v", x)
	}
}

func TestRunsNewestFirst(t *testing.T) {
	db := testDB(t)
	first, _ := db.BeginRun(Run{StartedAt: time.Now(), State: "DONE"})
	second, _ := db.BeginRun(Run{StartedAt: time.Now(), State: "ROLLED_BACK"})

	runs, err := db.Runs(10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second || runs[1].ID != first {
		t.Errorf("runs = %+v", runs)
	}

	runs, _ = db.Runs(1)
	if len(runs) != 1 {
		t.Errorf("limit not applied: %d", len(runs))
	}
}

func TestRun_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.Run(42)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
