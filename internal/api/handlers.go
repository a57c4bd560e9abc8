package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/starford/namespacer/internal/apperr"
	"github.com/starford/namespacer/internal/batch"
	"github.com/starford/namespacer/internal/journal"
	"github.com/starford/namespacer/internal/models"
	"github.com/starford/namespacer/internal/settings"
)

// BatchRunner plans and runs batches. *batch.Processor satisfies it.
type BatchRunner interface {
	Plan(ctx context.Context) ([]models.PlannedChange, error)
	Run(ctx context.Context, confirmer batch.Confirmer) (*batch.Result, error)
}

// RunHistory reads the run journal. *journal.DB satisfies it.
type RunHistory interface {
	Runs(limit int) ([]journal.Run, error)
	Run(id int64) (*journal.Run, error)
	RunNotes(runID int64) ([]journal.NoteEntry, error)
}

// Deps wires the handlers to the rest of the application.
type Deps struct {
	Settings      *settings.Store
	Batch         BatchRunner
	History       RunHistory
	Confirmations *Confirmations
	// BaseContext bounds batches started over HTTP. They outlive the
	// request that started them.
	BaseContext context.Context
	Logger      *slog.Logger
}

// Handler holds API route handlers.
type Handler struct {
	deps Deps

	mu      sync.Mutex
	running bool
	last    *batch.Result
	wg      sync.WaitGroup
}

// NewHandler creates a new Handler.
func NewHandler(deps Deps) *Handler {
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{deps: deps}
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Settings.Snapshot())
}

// UpdateSettings handles PUT /api/settings. Only the fields present in the
// body change.
//
//	@Summary	Update settings
//	@Tags		settings
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	settings.Settings
//	@Failure	400	{object}	errResponse
//	@Router		/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var u settings.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if err := h.deps.Settings.Apply(u); err != nil {
		writeError(w, err, "update settings")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Settings.Snapshot())
}

// Preview handles GET /api/preview. Nothing is written.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	changes, err := h.deps.Batch.Plan(r.Context())
	if err != nil {
		writeError(w, err, "preview")
		return
	}
	items := make([]ChangeItem, 0, len(changes))
	for _, c := range changes {
		items = append(items, ChangeItem{Path: c.Note.Path, Namespace: c.Namespace})
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		Count:   len(changes),
		Preview: batch.FormatPreview(changes),
		Changes: items,
	})
}

// StartBatch handles POST /api/batch. The batch runs in the background and
// asks for confirmation through the confirmations endpoints.
//
//	@Summary	Process existing notes
//	@Tags		batch
//	@Produce	json
//	@Success	202	{object}	BatchStatusResponse
//	@Failure	409	{object}	errResponse
//	@Router		/batch [post]
func (h *Handler) StartBatch(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		writeError(w, apperr.ErrBusy, "start batch")
		return
	}
	h.running = true
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		res, err := h.deps.Batch.Run(h.deps.BaseContext, h.deps.Confirmations)
		if err != nil {
			h.deps.Logger.Warn("api: batch ended with error", slog.String("error", err.Error()))
		}
		if res == nil {
			res = &batch.Result{State: batch.StateIdle}
			if err != nil {
				res.Error = err.Error()
			}
		}
		h.mu.Lock()
		h.running = false
		h.last = res
		h.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, BatchStatusResponse{Running: true})
}

// BatchStatus handles GET /api/batch.
func (h *Handler) BatchStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	resp := BatchStatusResponse{Running: h.running, Last: h.last}
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// Wait blocks until batches started over HTTP have finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// ListConfirmations handles GET /api/confirmations.
func (h *Handler) ListConfirmations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"confirmations": h.deps.Confirmations.List(),
	})
}

// ResolveConfirmation handles POST /api/confirmations/{id}.
func (h *Handler) ResolveConfirmation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Confirm == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("confirm is required"))
		return
	}
	if err := h.deps.Confirmations.Resolve(id, *req.Confirm); err != nil {
		writeError(w, err, "resolve confirmation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRuns handles GET /api/runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.deps.History.Runs(limit)
	if err != nil {
		writeError(w, err, "list runs")
		return
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

// GetRun handles GET /api/runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	run, err := h.deps.History.Run(id)
	if err != nil {
		writeError(w, err, "get run")
		return
	}
	notes, err := h.deps.History.RunNotes(id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		writeError(w, err, "get run notes")
		return
	}
	if notes == nil {
		notes = []journal.NoteEntry{}
	}
	writeJSON(w, http.StatusOK, RunDetailResponse{Run: run, Notes: notes})
}
