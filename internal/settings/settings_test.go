package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPersister struct{ calls int }

func (f *failingPersister) Save(Settings) error {
	f.calls++
	return errors.New("disk full")
}

func TestOpen_MissingFileUsesDefaults(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), store.Snapshot())
}

func TestOpen_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace_format: notes/{path}\nbatch_size: 10\n"), 0o644))

	store, err := Open(path)
	require.NoError(t, err)

	got := store.Snapshot()
	assert.Equal(t, "notes/{path}", got.NamespaceFormat)
	assert.Equal(t, 10, got.BatchSize)
	assert.Equal(t, []string{"templates/"}, got.ExcludePatterns)
	assert.True(t, got.AutoProcessNewFiles)
	assert.True(t, got.ShowProgressBar)
}

func TestOpen_BlankFormatFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace_format: \"\"\n"), 0o644))

	store, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "{path}", store.NamespaceFormat())
}

func TestOpen_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: [oops"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestSettersPersistImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.SetNamespaceFormat("kb/{path}"))
	require.NoError(t, store.SetExcludePatterns([]string{"archive/", "templates/"}))
	require.NoError(t, store.SetAutoProcessNewFiles(false))
	require.NoError(t, store.SetBatchSize(25))
	require.NoError(t, store.SetShowProgressBar(false))

	reloaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, Settings{
		NamespaceFormat:     "kb/{path}",
		ExcludePatterns:     []string{"archive/", "templates/"},
		AutoProcessNewFiles: false,
		BatchSize:           25,
		ShowProgressBar:     false,
	}, reloaded.Snapshot())
}

func TestSetNamespaceFormat_BlankFallsBack(t *testing.T) {
	store := NewStore(Defaults(), nil)
	require.NoError(t, store.SetNamespaceFormat("x/{path}"))
	require.NoError(t, store.SetNamespaceFormat("  "))
	assert.Equal(t, "{path}", store.NamespaceFormat())
}

func TestStoreDoesNotEnforceBatchRange(t *testing.T) {
	store := NewStore(Defaults(), nil)
	require.NoError(t, store.SetBatchSize(10000))
	assert.Equal(t, 10000, store.BatchSize())
}

func TestPersistFailureKeepsInMemoryChange(t *testing.T) {
	p := &failingPersister{}
	store := NewStore(Defaults(), p)

	err := store.SetBatchSize(7)
	assert.Error(t, err)
	assert.Equal(t, 7, store.BatchSize())
	assert.Equal(t, 1, p.calls)
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewStore(Defaults(), nil)
	snap := store.Snapshot()
	snap.ExcludePatterns[0] = "mutated"
	assert.Equal(t, []string{"templates/"}, store.ExcludePatterns())
}

func TestApply(t *testing.T) {
	store := NewStore(Defaults(), nil)
	size := 100
	format := "area/{path}"
	require.NoError(t, store.Apply(Update{BatchSize: &size, NamespaceFormat: &format}))
	assert.Equal(t, 100, store.BatchSize())
	assert.Equal(t, "area/{path}", store.NamespaceFormat())
}

func TestApply_RejectsOutOfRange(t *testing.T) {
	store := NewStore(Defaults(), nil)
	for _, n := range []int{0, -1, MaxBatchSize + 1} {
		size := n
		assert.Error(t, store.Apply(Update{BatchSize: &size}), "batch size %d", n)
	}
	assert.Equal(t, 50, store.BatchSize())
}

func TestApply_RejectsBlankPattern(t *testing.T) {
	store := NewStore(Defaults(), nil)
	patterns := []string{"ok/", " "}
	assert.Error(t, store.Apply(Update{ExcludePatterns: &patterns}))
	assert.Equal(t, []string{"templates/"}, store.ExcludePatterns())
}

func TestUpdateEmpty(t *testing.T) {
	assert.True(t, (&Update{}).Empty())
	v := true
	assert.False(t, (&Update{ShowProgressBar: &v}).Empty())
}
