package internal

import (
	"io"

	"github.com/starford/namespacer/internal/batch"
	"github.com/starford/namespacer/internal/notify"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	notifiers []notify.Notifier
	onState   func(batch.State)

	createVault bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput sends the JSON log somewhere other than stdout. Commands
// that print results or speak a protocol on stdout log to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithNotifier adds a destination for batch notices and progress.
func WithNotifier(n notify.Notifier) Option {
	return func(a *application) {
		a.notifiers = append(a.notifiers, n)
	}
}

// WithStateObserver is called on every batch state transition.
func WithStateObserver(fn func(batch.State)) Option {
	return func(a *application) {
		a.onState = fn
	}
}
