// Package batch scans existing notes and adds namespace lines to all of them
// in one confirmed run, backing every note up first and restoring the
// backups if any write fails.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/namespacer/internal/apperr"
	"github.com/starford/namespacer/internal/checksum"
	"github.com/starford/namespacer/internal/journal"
	"github.com/starford/namespacer/internal/models"
	"github.com/starford/namespacer/internal/notify"
	"github.com/starford/namespacer/internal/rules"
	"github.com/starford/namespacer/internal/settings"
	"github.com/starford/namespacer/internal/storage"
)

// YieldPause is the pause taken after every BatchSize writes.
const YieldPause = 10 * time.Millisecond

// Journal records run history. *journal.DB satisfies it.
type Journal interface {
	BeginRun(r journal.Run) (int64, error)
	RecordNote(runID int64, n journal.NoteEntry) error
	FinishRun(r journal.Run) error
}

var _ Journal = (*journal.DB)(nil)

// Processor runs batches. Only one batch runs at a time.
type Processor struct {
	store    storage.Provider
	settings *settings.Store
	logger   *slog.Logger
	notifier notify.Notifier
	journal  Journal
	onState  func(State)
	sleep    func(time.Duration)
	now      func() time.Time

	running sync.Mutex
}

// Option configures a Processor.
type Option func(*Processor)

// WithNotifier sets where user notices go. Defaults to notify.Discard.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

// WithJournal records every run.
func WithJournal(j Journal) Option {
	return func(p *Processor) { p.journal = j }
}

// WithStateObserver calls fn on every state transition, in order.
func WithStateObserver(fn func(State)) Option {
	return func(p *Processor) { p.onState = fn }
}

// WithSleep replaces time.Sleep for the cooperative pause.
func WithSleep(fn func(time.Duration)) Option {
	return func(p *Processor) { p.sleep = fn }
}

// New creates a Processor.
func New(store storage.Provider, st *settings.Store, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		store:    store,
		settings: st,
		logger:   logger,
		notifier: notify.Discard,
		sleep:    time.Sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) transition(res *Result, s State) {
	res.State = s
	p.logger.Debug("batch: state", slog.String("state", string(s)))
	if p.onState != nil {
		p.onState(s)
	}
}

// Scan lists every note that would get a namespace line under snap, in
// listing order. Any read failure aborts the whole scan.
func (p *Processor) Scan(ctx context.Context, snap settings.Settings) ([]models.PlannedChange, error) {
	metas, err := p.store.List("")
	if err != nil {
		return nil, fmt.Errorf("batch: scan: %w", err)
	}

	var changes []models.PlannedChange
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		note := models.Note{Path: m.Path}
		if note.Folder() == "" || rules.IsExcluded(note.Path, snap.ExcludePatterns) {
			continue
		}
		data, err := p.store.Read(note.Path)
		if err != nil {
			return nil, fmt.Errorf("batch: scan %s: %w", note.Path, err)
		}
		if data == nil {
			p.logger.Warn("batch: note has no content, skipping", slog.String("path", note.Path))
			continue
		}
		original := string(data)
		change, ok := rules.Plan(note, original, snap.NamespaceFormat, snap.ExcludePatterns)
		if !ok {
			continue
		}
		if !rules.Intact(original, change.NewContent) {
			p.logger.Error("batch: planned content shorter than original, skipping", slog.String("path", note.Path))
			continue
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// Plan scans with the current settings. Nothing is written.
func (p *Processor) Plan(ctx context.Context) ([]models.PlannedChange, error) {
	if err := p.store.Ready(); err != nil {
		return nil, err
	}
	return p.Scan(ctx, p.settings.Snapshot())
}

// Preview describes what Plan would change.
func (p *Processor) Preview(ctx context.Context) (string, error) {
	changes, err := p.Plan(ctx)
	if err != nil {
		return "", err
	}
	return FormatPreview(changes), nil
}

// Run executes one full batch. Settings are captured once at scan start.
// A cancelled confirmation returns StateIdle with Cancelled set and no error.
func (p *Processor) Run(ctx context.Context, confirmer Confirmer) (*Result, error) {
	if !p.running.TryLock() {
		return nil, apperr.ErrBusy
	}
	defer p.running.Unlock()

	res := &Result{State: StateIdle}

	if err := p.store.Ready(); err != nil {
		p.notifier.Notify(notify.Error("Vault storage is not available; nothing was changed."))
		p.logger.Error("batch: storage not ready", slog.String("error", err.Error()))
		res.Error = err.Error()
		return res, err
	}

	snap := p.settings.Snapshot()

	p.transition(res, StateScanning)
	changes, err := p.Scan(ctx, snap)
	if err != nil {
		p.transition(res, StateAborted)
		p.logger.Error("batch: scan failed", slog.String("error", err.Error()))
		p.notifier.Notify(notify.Error(fmt.Sprintf("Scanning notes failed, nothing was changed: %v", err)))
		res.Error = err.Error()
		return res, err
	}
	res.Planned = len(changes)

	if len(changes) == 0 {
		p.transition(res, StateNoChanges)
		p.notifier.Notify(notify.Info("All notes already have namespaces."))
		return res, nil
	}

	p.transition(res, StateAwaitingConfirmation)
	ok, err := confirmer.Confirm(ctx, NewPrompt(len(changes)))
	if err != nil || !ok {
		p.transition(res, StateIdle)
		res.Cancelled = true
		if err != nil && !errors.Is(err, apperr.ErrCancelled) {
			p.logger.Warn("batch: confirmation failed", slog.String("error", err.Error()))
		}
		p.notifier.Notify(notify.Info("Namespace update cancelled."))
		return res, nil
	}
	p.transition(res, StateConfirmed)

	run := journal.Run{StartedAt: p.now(), State: string(StateConfirmed), Format: snap.NamespaceFormat, Planned: len(changes)}
	run.ID = p.beginRun(run)
	res.RunID = run.ID
	defer func() {
		run.State = string(res.State)
		run.Applied = res.Applied
		run.Restored = res.Restored
		run.RestoreFailures = len(res.RestoreFailures)
		run.Error = res.Error
		p.finishRun(run)
	}()

	p.transition(res, StateBackingUp)
	backups, err := p.backup(changes)
	if err != nil {
		p.transition(res, StateAborted)
		p.logger.Error("batch: backup failed", slog.String("error", err.Error()))
		p.notifier.Notify(notify.Error(fmt.Sprintf("Backing up notes failed, nothing was changed: %v", err)))
		res.Error = err.Error()
		return res, err
	}
	p.recordPlanned(run.ID, changes, backups)

	// No cancellation from here on: the batch completes or rolls back.
	p.transition(res, StateApplying)
	applied, err := p.apply(run.ID, changes, snap)
	res.Applied = applied
	if err == nil {
		p.transition(res, StateDone)
		p.logger.Info("batch: done", slog.Int("updated", applied))
		p.notifier.Notify(notify.Info(fmt.Sprintf("Updated %d %s with namespaces.", applied, plural(applied, "note", "notes"))))
		return res, nil
	}
	res.Error = err.Error()

	p.transition(res, StateRollingBack)
	res.Restored, res.RestoreFailures = p.rollback(run.ID, backups)
	p.transition(res, StateRolledBack)

	msg := fmt.Sprintf("Namespace update failed: %v. Restored %d %s to their original content.",
		err, res.Restored, plural(res.Restored, "note", "notes"))
	if n := len(res.RestoreFailures); n > 0 {
		msg += fmt.Sprintf(" Restoration is best-effort: %d %s could not be restored, see the log.", n, plural(n, "note", "notes"))
	}
	p.notifier.Notify(notify.Error(msg))
	return res, err
}

// backup re-reads every planned note. Any failure fails the whole set.
func (p *Processor) backup(changes []models.PlannedChange) ([]models.Backup, error) {
	backups := make([]models.Backup, 0, len(changes))
	for _, c := range changes {
		data, err := p.store.Read(c.Note.Path)
		if err != nil {
			return nil, fmt.Errorf("batch: backup %s: %w", c.Note.Path, err)
		}
		if data == nil {
			return nil, fmt.Errorf("batch: backup %s: note has no content", c.Note.Path)
		}
		backups = append(backups, models.Backup{Note: c.Note, Content: data, TakenAt: p.now()})
	}
	return backups, nil
}

// apply writes changes in order and returns how many succeeded before the
// first failure.
func (p *Processor) apply(runID int64, changes []models.PlannedChange, snap settings.Settings) (int, error) {
	size := snap.BatchSize
	if size < 1 {
		size = 1
	}
	total := len(changes)
	for i, c := range changes {
		if err := p.store.Write(c.Note.Path, []byte(c.NewContent)); err != nil {
			p.logger.Error("batch: write failed",
				slog.String("path", c.Note.Path),
				slog.Int("written", i),
				slog.String("error", err.Error()))
			return i, fmt.Errorf("write %s: %w", c.Note.Path, err)
		}
		p.recordNote(runID, journal.NoteEntry{Path: c.Note.Path, Status: journal.StatusApplied})

		done := i + 1
		if snap.ShowProgressBar {
			p.notifier.Progress(notify.Progress{Done: done, Total: total})
		}
		if done%size == 0 && done < total {
			p.sleep(YieldPause)
		}
	}
	return total, nil
}

// rollback restores every backup. Failures are logged and skipped.
func (p *Processor) rollback(runID int64, backups []models.Backup) (int, []string) {
	restored := 0
	var failed []string
	for _, b := range backups {
		if err := p.store.Write(b.Note.Path, b.Content); err != nil {
			p.logger.Error("batch: restore failed",
				slog.String("path", b.Note.Path),
				slog.Time("backup_taken_at", b.TakenAt),
				slog.String("error", err.Error()))
			failed = append(failed, b.Note.Path)
			p.recordNote(runID, journal.NoteEntry{Path: b.Note.Path, Status: journal.StatusRestoreFailed})
			continue
		}
		restored++
		p.recordNote(runID, journal.NoteEntry{Path: b.Note.Path, Status: journal.StatusRestored})
	}
	return restored, failed
}

func (p *Processor) beginRun(r journal.Run) int64 {
	if p.journal == nil {
		return 0
	}
	id, err := p.journal.BeginRun(r)
	if err != nil {
		p.logger.Warn("batch: journal begin failed", slog.String("error", err.Error()))
		return 0
	}
	return id
}

func (p *Processor) finishRun(r journal.Run) {
	if p.journal == nil || r.ID == 0 {
		return
	}
	if err := p.journal.FinishRun(r); err != nil {
		p.logger.Warn("batch: journal finish failed", slog.Int64("run_id", r.ID), slog.String("error", err.Error()))
	}
}

func (p *Processor) recordPlanned(runID int64, changes []models.PlannedChange, backups []models.Backup) {
	for i, c := range changes {
		p.recordNote(runID, journal.NoteEntry{
			Path:             c.Note.Path,
			Namespace:        c.Namespace,
			OriginalChecksum: checksum.Sum(backups[i].Content),
			NewChecksum:      checksum.SumString(c.NewContent),
			Status:           journal.StatusPlanned,
		})
	}
}

func (p *Processor) recordNote(runID int64, n journal.NoteEntry) {
	if p.journal == nil || runID == 0 {
		return
	}
	if err := p.journal.RecordNote(runID, n); err != nil {
		p.logger.Warn("batch: journal record failed", slog.String("path", n.Path), slog.String("error", err.Error()))
	}
}
