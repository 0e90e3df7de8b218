package kv_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bumaview/bumaview-go/kv"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	s := kv.NewMemory()

	_, ok := s.Get("missing")
	require.False(t, ok)

	require.NoError(t, s.Set("token", "abc"))
	v, ok := s.Get("token")
	require.True(t, ok)
	require.Equal(t, "abc", v)

	require.NoError(t, s.Remove("token"))
	_, ok = s.Get("token")
	require.False(t, ok)
}

func TestMemoryRemoveMissingKey(t *testing.T) {
	s := kv.NewMemory()
	require.NoError(t, s.Remove("never-set"))
}

func TestFilePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	first := kv.NewFile(path)
	require.NoError(t, first.Set("expiry", "1700000000000"))

	second := kv.NewFile(path)
	v, ok := second.Get("expiry")
	require.True(t, ok)
	require.Equal(t, "1700000000000", v)
}

func TestFileRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := kv.NewFile(path)

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Remove("a"))

	reopened := kv.NewFile(path)
	_, ok := reopened.Get("a")
	require.False(t, ok)
	v, ok := reopened.Get("b")
	require.True(t, ok)
	require.Equal(t, "2", v)
}

// A leftover temp file from an interrupted write neither breaks the next
// flush nor survives it; the state file is only ever replaced whole.
func TestFileFlushReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path+".tmp", []byte("partial gar"), 0o600))

	s := kv.NewFile(path)
	require.NoError(t, s.Set("expiry", "1700000000000"))

	_, err := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))

	reopened := kv.NewFile(path)
	v, ok := reopened.Get("expiry")
	require.True(t, ok)
	require.Equal(t, "1700000000000", v)
}

func TestFileCorruptStateStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	s := kv.NewFile(path)
	_, ok := s.Get("anything")
	require.False(t, ok)

	require.NoError(t, s.Set("fresh", "value"))
	v, ok := s.Get("fresh")
	require.True(t, ok)
	require.Equal(t, "value", v)
}
