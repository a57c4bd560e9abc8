package api

import (
	"time"

	"github.com/starford/namespacer/internal/batch"
	"github.com/starford/namespacer/internal/journal"
)

// ChangeItem is one planned namespace change.
type ChangeItem struct {
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
}

// PreviewResponse describes what a batch would change.
type PreviewResponse struct {
	Count   int          `json:"count"`
	Preview string       `json:"preview"`
	Changes []ChangeItem `json:"changes"`
}

// BatchStatusResponse reports whether a batch is running and how the last
// one ended.
type BatchStatusResponse struct {
	Running bool          `json:"running"`
	Last    *batch.Result `json:"last,omitempty"`
}

// ConfirmRequest answers a pending confirmation.
type ConfirmRequest struct {
	Confirm *bool `json:"confirm"`
}

// PendingConfirmation is a prompt waiting for an answer.
type PendingConfirmation struct {
	ID        int64        `json:"id"`
	Prompt    batch.Prompt `json:"prompt"`
	CreatedAt time.Time    `json:"created_at"`
}

// RunListResponse wraps journal runs.
type RunListResponse struct {
	Runs []journal.Run `json:"runs"`
}

// RunDetailResponse is a run with its per-note entries.
type RunDetailResponse struct {
	*journal.Run
	Notes []journal.NoteEntry `json:"notes"`
}
