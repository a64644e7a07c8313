package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.2da")
	require.NoError(t, os.WriteFile(path, []byte("Name\n"), 0o644))

	t.Run("FirstObservationNotModified", func(t *testing.T) {
		tr := NewTracker()
		modified, err := tr.IsModified(path)
		require.NoError(t, err)
		assert.False(t, modified)
	})

	t.Run("ReportsChangeExactlyOnce", func(t *testing.T) {
		tr := NewTracker()
		info, err := os.Stat(path)
		require.NoError(t, err)
		tr.Observe(path, info.ModTime())

		// No change yet.
		modified, err := tr.IsModified(path)
		require.NoError(t, err)
		assert.False(t, modified)

		// Push the mtime well past the tolerance.
		future := info.ModTime().Add(2 * time.Second)
		require.NoError(t, os.Chtimes(path, future, future))

		modified, err = tr.IsModified(path)
		require.NoError(t, err)
		assert.True(t, modified)

		// Idempotent until the file changes again.
		modified, err = tr.IsModified(path)
		require.NoError(t, err)
		assert.False(t, modified)
	})

	t.Run("SubToleranceChangeIgnored", func(t *testing.T) {
		tr := NewTracker()
		info, err := os.Stat(path)
		require.NoError(t, err)
		tr.Observe(path, info.ModTime().Add(-500*time.Microsecond))

		modified, err := tr.IsModified(path)
		require.NoError(t, err)
		assert.False(t, modified)
	})

	t.Run("MissingFileErrors", func(t *testing.T) {
		tr := NewTracker()
		_, err := tr.IsModified(filepath.Join(dir, "gone.2da"))
		assert.Error(t, err)
	})

	t.Run("PathsAndForget", func(t *testing.T) {
		tr := NewTracker()
		tr.Observe(path, time.Now())
		assert.Equal(t, []string{path}, tr.Paths())
		tr.Forget(path)
		assert.Empty(t, tr.Paths())
	})
}
