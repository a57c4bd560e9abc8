// Package notify delivers transient user-facing notices: to the log, to a
// terminal, and to browser clients over Server-Sent Events.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice is a human-readable status message. Sticky notices stay until the
// user dismisses them.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Sticky  bool   `json:"sticky,omitempty"`
}

// Progress reports how far a batch apply has come.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Notifier receives notices and progress updates.
type Notifier interface {
	Notify(Notice)
	Progress(Progress)
}

// Info, Warn and Error build notices.
func Info(msg string) Notice  { return Notice{Level: LevelInfo, Message: msg} }
func Warn(msg string) Notice  { return Notice{Level: LevelWarn, Message: msg} }
func Error(msg string) Notice { return Notice{Level: LevelError, Message: msg, Sticky: true} }

// Discard drops everything.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notice)     {}
func (discard) Progress(Progress) {}

// LogNotifier writes notices to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(no Notice) {
	attrs := []any{slog.String("message", no.Message)}
	switch no.Level {
	case LevelError:
		n.Logger.Error("notice", attrs...)
	case LevelWarn:
		n.Logger.Warn("notice", attrs...)
	default:
		n.Logger.Info("notice", attrs...)
	}
}

func (n LogNotifier) Progress(p Progress) {
	n.Logger.Debug("progress", slog.Int("done", p.Done), slog.Int("total", p.Total))
}

// Writer prints notices as plain lines, for the CLI.
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

// NewWriter returns a Writer printing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{W: w}
}

func (w *Writer) Notify(n Notice) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n.Level == LevelInfo {
		fmt.Fprintln(w.W, n.Message)
		return
	}
	fmt.Fprintf(w.W, "%s: %s\n", n.Level, n.Message)
}

func (w *Writer) Progress(p Progress) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.W, "\rupdated %d/%d", p.Done, p.Total)
	if p.Done == p.Total {
		fmt.Fprintln(w.W)
	}
}

// Multi fans out to every non-nil notifier.
func Multi(ns ...Notifier) Notifier {
	out := make(multi, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

type multi []Notifier

func (m multi) Notify(n Notice) {
	for _, x := range m {
		x.Notify(n)
	}
}

func (m multi) Progress(p Progress) {
	for _, x := range m {
		x.Progress(p)
	}
}
