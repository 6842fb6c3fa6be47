package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/recipegrid/internal/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)


func write(t *testing.T, dir, file, name string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	doc := `{"name": "` + name + `", "modules": [{"wants": [], "name": "EnvCollector", "args": {}}], "args": []}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoad_BundledRecipes(t *testing.T) {
	c, err := Load(context.Background(), "../../recipes")
	require.NoError(t, err)

	assert.Equal(t, []string{"live_share", "local_grep", "upload_evidence"}, c.Names())

	r, err := c.Get("local_grep")
	require.NoError(t, err)
	assert.Len(t, r.Modules, 3)

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, "live_share", all[0].Name)
}

func TestLoad_Duplicate(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.json", "same")
	write(t, dir, "b.json", "same")

	_, err := Load(context.Background(), dir)
	require.ErrorIs(t, err, ErrDuplicateRecipe)
	assert.ErrorContains(t, err, "a.json")
}

func TestLoad_InvalidRecipe(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"modules": []}`), 0o644))

	_, err := Load(context.Background(), dir)
	assert.ErrorIs(t, err, recipe.ErrInvalidRecipe)
}

func TestLoad_EmptyDirAndMissingPath(t *testing.T) {
	c, err := Load(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, c.Len())

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	c, err := New(&recipe.Recipe{Name: "one"})
	require.NoError(t, err)

	_, err = c.Get("two")
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}

func TestNew_Duplicate(t *testing.T) {
	_, err := New(&recipe.Recipe{Name: "x"}, &recipe.Recipe{Name: "x"})
	assert.ErrorIs(t, err, ErrDuplicateRecipe)
	assert.ErrorContains(t, err, "<memory>")
}
