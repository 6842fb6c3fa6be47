package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestCollector(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	for _, f := range []string{"a.txt", filepath.Join("logs", "b.log")} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644))
	}
	missing := filepath.Join(dir, "missing")

	c := &Collector{}
	require.NoError(t, c.SetUp(context.Background(), module.Args{
		"paths": cty.StringVal(dir + "," + missing),
	}))

	out, err := c.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "logs", "b.log"),
	}, out["files"])
}

func TestCollector_SetUpRequiresPaths(t *testing.T) {
	c := &Collector{}
	assert.Error(t, c.SetUp(context.Background(), module.Args{}))
	assert.Error(t, c.SetUp(context.Background(), module.Args{"paths": cty.StringVal(" , ")}))
}

func TestCollector_NothingFound(t *testing.T) {
	c := &Collector{}
	require.NoError(t, c.SetUp(context.Background(), module.Args{
		"paths": cty.TupleVal([]cty.Value{cty.StringVal(filepath.Join(t.TempDir(), "nope"))}),
	}))

	_, err := c.Process(context.Background(), nil)
	f, ok := module.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, module.KindError, f.Kind)
}
