package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "/videos/a b.mp4", CleanPath(`  "/videos/a b.mp4" `))
	assert.Equal(t, "/videos/a.mp4", CleanPath(`'/videos/a.mp4'`))
	assert.Equal(t, "plain.mp4", CleanPath("plain.mp4\n"))
}

func TestFormatFireTime(t *testing.T) {
	assert.Equal(t, "2025-01-15 09:05 PM", FormatFireTime(time.Date(2025, 1, 15, 21, 5, 0, 0, time.UTC)))
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	assert.False(t, FileExists(path))
	assert.Equal(t, "", FileSize(path))

	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0644))
	assert.True(t, FileExists(path))
	assert.Equal(t, "2.0 kB", FileSize(path))

	a, b := filepath.Join(dir, "a"), filepath.Join(dir, "b", "c")
	require.NoError(t, EnsureDirs(a, b))
	assert.DirExists(t, a)
	assert.DirExists(t, b)
}
