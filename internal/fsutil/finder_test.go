package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.json"))
	touch(t, filepath.Join(dir, "nested", "a.HCL"))
	touch(t, filepath.Join(dir, "notes.txt"))

	files, err := FindFiles(dir, ".json", ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "b.json"),
		filepath.Join(dir, "nested", "a.HCL"),
	}, files)
}

func TestFindFiles_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.json")
	touch(t, path)

	files, err := FindFiles(path, ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)

	_, err = FindFiles(path, ".hcl")
	assert.Error(t, err)
}

func TestFindFiles_Missing(t *testing.T) {
	_, err := FindFiles(filepath.Join(t.TempDir(), "nope"), ".json")
	assert.ErrorContains(t, err, "path not found")
}

func TestFindFiles_PanicsWithoutExtension(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFiles(".") })
}
