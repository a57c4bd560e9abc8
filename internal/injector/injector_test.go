package injector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/namespacer/internal/apperr"
	"github.com/starford/namespacer/internal/settings"
	"github.com/starford/namespacer/internal/testutil"
)

func newInjector(store *testutil.MemStore, format string) *Injector {
	st := settings.NewStore(settings.Defaults(), nil)
	_ = st.SetNamespaceFormat(format)
	return New(store, st, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestInject_AddsLine(t *testing.T) {
	store := testutil.NewMemStore(map[string]string{"Projects/MyProject/notes.md": "Hello"})
	inj := newInjector(store, "{path}")

	out, err := inj.Inject(context.Background(), "Projects/MyProject/notes.md")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInjected, out)
	assert.Equal(t, "namespace:: Projects/MyProject\n\nHello", store.Content("Projects/MyProject/notes.md"))
}

func TestInject_CustomFormat(t *testing.T) {
	store := testutil.NewMemStore(map[string]string{"Projects/MyProject/notes.md": ""})
	inj := newInjector(store, "notes/{path}")

	out, err := inj.Inject(context.Background(), "Projects/MyProject/notes.md")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInjected, out)
	assert.Equal(t, "namespace:: notes/Projects/MyProject\n\n", store.Content("Projects/MyProject/notes.md"))
}

func TestInject_NoOps(t *testing.T) {
	files := map[string]string{
		"root.md":            "Hello",
		"templates/daily.md": "Hello",
		"a/marked.md":        "x\n namespace:: elsewhere\n",
	}
	cases := map[string]Outcome{
		"root.md":            OutcomeNoFolder,
		"templates/daily.md": OutcomeExcluded,
		"a/marked.md":        OutcomeHasMarker,
	}
	store := testutil.NewMemStore(files)
	inj := newInjector(store, "{path}")

	for path, want := range cases {
		out, err := inj.Inject(context.Background(), path)
		require.NoError(t, err, path)
		assert.Equal(t, want, out, path)
		assert.Equal(t, files[path], store.Content(path), "content of %s must be unchanged", path)
	}
	assert.Empty(t, store.Writes())
}

func TestInject_NilContentSkipped(t *testing.T) {
	store := testutil.NewMemStore(map[string]string{"a/b.md": ""})
	store.SetNil("a/b.md")
	inj := newInjector(store, "{path}")

	out, err := inj.Inject(context.Background(), "a/b.md")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoContent, out)
	assert.Empty(t, store.Writes())
}

func TestInject_ReadFailureIsASkip(t *testing.T) {
	store := testutil.NewMemStore(map[string]string{"a/b.md": "x"})
	store.ReadHook = func(string) error { return testutil.ErrInjected }
	inj := newInjector(store, "{path}")

	out, err := inj.Inject(context.Background(), "a/b.md")
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, OutcomeFailed, out)
	assert.Equal(t, "x", store.Content("a/b.md"))
}

func TestInject_WriteFailure(t *testing.T) {
	store := testutil.NewMemStore(map[string]string{"a/b.md": "x"})
	store.WriteHook = func(string, int) error { return testutil.ErrInjected }
	inj := newInjector(store, "{path}")

	out, err := inj.Inject(context.Background(), "a/b.md")
	assert.True(t, errors.Is(err, testutil.ErrInjected))
	assert.Equal(t, OutcomeFailed, out)
	assert.Equal(t, "x", store.Content("a/b.md"))
}

func TestInject_NotReady(t *testing.T) {
	store := testutil.NewMemStore(map[string]string{"a/b.md": "x"})
	store.NotReady = true
	inj := newInjector(store, "{path}")

	_, err := inj.Inject(context.Background(), "a/b.md")
	assert.ErrorIs(t, err, apperr.ErrNotReady)
	assert.Empty(t, store.Writes())
}

func TestInject_Idempotent(t *testing.T) {
	store := testutil.NewMemStore(map[string]string{"a/b.md": "body"})
	inj := newInjector(store, "{path}")

	_, err := inj.Inject(context.Background(), "a/b.md")
	require.NoError(t, err)
	out, err := inj.Inject(context.Background(), "a/b.md")
	require.NoError(t, err)
	assert.Equal(t, OutcomeHasMarker, out)
	assert.Equal(t, "namespace:: a\n\nbody", store.Content("a/b.md"))
}
