package batch

import (
	"context"
	"fmt"
)

// LargeBatchThreshold is the note count above which the confirmation
// carries an extra warning.
const LargeBatchThreshold = 100

// Prompt is what the user is asked before a batch writes anything.
type Prompt struct {
	Count   int    `json:"count"`
	Large   bool   `json:"large"`
	Message string `json:"message"`
}

// NewPrompt builds the confirmation prompt for count affected notes.
func NewPrompt(count int) Prompt {
	p := Prompt{
		Count: count,
		Large: count > LargeBatchThreshold,
	}
	p.Message = fmt.Sprintf("This will add a namespace line to %d %s.", count, plural(count, "note", "notes"))
	if p.Large {
		p.Message += fmt.Sprintf(" This is a large operation (more than %d notes); consider backing up your vault first.", LargeBatchThreshold)
	}
	return p
}

// Confirmer asks the user to confirm or cancel a batch.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return f(ctx, p)
}

// AutoConfirm accepts every prompt. Callers use it once the user has
// already agreed out of band, e.g. with --yes.
var AutoConfirm Confirmer = ConfirmFunc(func(context.Context, Prompt) (bool, error) {
	return true, nil
})

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
