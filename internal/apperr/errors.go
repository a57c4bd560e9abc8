// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrNotReady  = errors.New("vault storage not ready")
	ErrCorrupt   = errors.New("content integrity violation")
	ErrBusy      = errors.New("a batch is already running")
	ErrCancelled = errors.New("cancelled by user")
)
