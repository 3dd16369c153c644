package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ocean-news/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates missing directory", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "archive", "nested")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		require.DirExists(t, dir)
	})

	t.Run("missing base dir", func(t *testing.T) {
		t.Parallel()
		_, err := local.New(local.Config{})
		require.Error(t, err)
	})

	t.Run("base dir is a file", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		require.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	path := "snapshots/2025-03-14/1741944600.json"
	uri, err := a.PutObject(ctx, path, "application/json", strings.NewReader(`{"articles":[]}`))
	require.NoError(t, err)

	full := filepath.Join(dir, filepath.FromSlash(path))
	require.Equal(t, "file://"+full, uri)
	// #nosec G304 -- test reads from its own temp directory.
	got, err := os.ReadFile(full)
	require.NoError(t, err)
	require.JSONEq(t, `{"articles":[]}`, string(got))

	entries, err := os.ReadDir(filepath.Dir(full))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")

	_, err = a.PutObject(ctx, "", "application/json", strings.NewReader("{}"))
	require.Error(t, err)

	_, err = a.PutObject(ctx, "../escape.json", "application/json", strings.NewReader("{}"))
	require.Error(t, err)
}
