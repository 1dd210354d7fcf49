package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touchFile(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(p, mtime, mtime))
}

func TestPruneRespectsCountAndAgeIndependently(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		touchFile(t, dir, filepathName(i), time.Duration(i)*time.Hour)
	}
	// one very old file; as the oldest of the six it falls outside the
	// count limit of 3 and is removed by that rule
	touchFile(t, dir, "old_snapshot.jpg", 40*24*time.Hour)

	Prune(dir, 3, 7, nil)

	files, err := List(dir)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(files), 3)
	for _, f := range files {
		assert.LessOrEqual(t, time.Since(f.MTime), 7*24*time.Hour)
	}
}

func filepathName(i int) string {
	return time.Now().Add(-time.Duration(i) * time.Minute).Format("2006-01-02_15-04-05") + "_snapshot.jpg"
}

func TestListIgnoresNonJPEG(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, dir, "a.jpg", 0)
	touchFile(t, dir, "notes.txt", 0)

	files, err := List(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.jpg", files[0].Filename)
}
