// Package injector adds the namespace line to a single note, as done for
// freshly created notes. There is no backup and no confirmation.
package injector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/namespacer/internal/apperr"
	"github.com/starford/namespacer/internal/models"
	"github.com/starford/namespacer/internal/rules"
	"github.com/starford/namespacer/internal/settings"
	"github.com/starford/namespacer/internal/storage"
)

// Outcome describes what Inject did with a note.
type Outcome string

const (
	OutcomeInjected  Outcome = "injected"
	OutcomeNoFolder  Outcome = "no_folder"
	OutcomeExcluded  Outcome = "excluded"
	OutcomeHasMarker Outcome = "has_marker"
	OutcomeNoContent Outcome = "no_content"
	OutcomeCorrupt   Outcome = "corrupt"
	OutcomeFailed    Outcome = "failed"
)

// Injector applies single-note injection against a vault.
type Injector struct {
	store    storage.Provider
	settings *settings.Store
	logger   *slog.Logger
}

// New creates an Injector.
func New(store storage.Provider, st *settings.Store, logger *slog.Logger) *Injector {
	return &Injector{store: store, settings: st, logger: logger}
}

// Inject prepends the namespace line to the note at path when it needs one.
// Read and write failures are reported as OutcomeFailed with the error; the
// note is left untouched.
func (i *Injector) Inject(_ context.Context, path string) (Outcome, error) {
	if err := i.store.Ready(); err != nil {
		return OutcomeFailed, err
	}

	note := models.Note{Path: path}
	value := rules.ComputeNamespaceValue(note, i.settings.NamespaceFormat())
	if value == "" {
		return OutcomeNoFolder, nil
	}
	if rules.IsExcluded(path, i.settings.ExcludePatterns()) {
		return OutcomeExcluded, nil
	}

	data, err := i.store.Read(path)
	if err != nil {
		i.logger.Warn("inject: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return OutcomeFailed, err
	}
	original := string(data)
	if rules.HasNamespaceMarker(original) {
		return OutcomeHasMarker, nil
	}
	if data == nil {
		i.logger.Warn("inject: note has no content", slog.String("path", path))
		return OutcomeNoContent, nil
	}

	injected := rules.BuildInjectedContent(original, value)
	if !rules.Intact(original, injected) {
		i.logger.Error("inject: result shorter than original, skipping",
			slog.String("path", path),
			slog.Int("original_len", len(original)),
			slog.Int("injected_len", len(injected)))
		return OutcomeCorrupt, fmt.Errorf("inject %s: %w", path, apperr.ErrCorrupt)
	}

	if err := i.store.Write(path, []byte(injected)); err != nil {
		i.logger.Warn("inject: write failed", slog.String("path", path), slog.String("error", err.Error()))
		return OutcomeFailed, err
	}
	i.logger.Debug("inject: namespace added", slog.String("path", path), slog.String("namespace", value))
	return OutcomeInjected, nil
}
