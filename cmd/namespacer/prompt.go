package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/starford/namespacer/internal/apperr"
	"github.com/starford/namespacer/internal/batch"
)

// newTerminalConfirmer asks on out and reads the answer from in. Only "y"
// and "yes" confirm.
func newTerminalConfirmer(in io.Reader, out io.Writer) batch.Confirmer {
	r := bufio.NewReader(in)
	return batch.ConfirmFunc(func(ctx context.Context, p batch.Prompt) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "%s Continue? [y/N] ", p.Message)
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("read answer: %w", err)
		}
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return false, apperr.ErrCancelled
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}
