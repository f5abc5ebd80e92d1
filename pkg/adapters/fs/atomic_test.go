package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "entity", "ownership")
	target := filepath.Join(dir, "0.json")

	require.NoError(t, writeFileAtomic(target, []byte(`{"v":1}`), 0644))
	require.NoError(t, writeFileAtomic(target, []byte(`{"v":2}`), 0644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasPrefix(entries[0].Name(), TempFilePrefix))
}

func TestWriteFileAtomic_FailedRenameLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	// Renaming a file over a non-empty directory fails.
	target := filepath.Join(dir, "0.json")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0755))

	err := writeFileAtomic(target, []byte(`{}`), 0644)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), TempFilePrefix), "leftover %s", e.Name())
	}
}
