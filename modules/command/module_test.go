package command

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("relies on POSIX tools")
	}
}

func TestProcessor(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("alpha\n"), 0o644))

	p := &Processor{}
	require.NoError(t, p.SetUp(context.Background(), module.Args{
		"command": cty.StringVal("cat"),
		"args":    cty.TupleVal([]cty.Value{cty.StringVal("-u")}),
	}))

	out, err := p.Process(context.Background(), module.Inputs{"Collector": {"files": []string{a}}})
	require.NoError(t, err)
	assert.Equal(t, "alpha\n", out["stdout"])
	assert.Equal(t, 0, out["exit_code"])
}

func TestProcessor_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	p := &Processor{}
	require.NoError(t, p.SetUp(context.Background(), module.Args{"command": cty.StringVal("cat")}))

	_, err := p.Process(context.Background(), module.Inputs{"Collector": {"files": "/definitely/not/here"}})
	f, ok := module.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, module.KindError, f.Kind)
	assert.Contains(t, f.Message, "exited with status 1")
}

func TestProcessor_SetUpErrors(t *testing.T) {
	assert.Error(t, (&Processor{}).SetUp(context.Background(), module.Args{}))
	assert.Error(t, (&Processor{}).SetUp(context.Background(), module.Args{
		"command": cty.StringVal("recipegrid-no-such-tool"),
	}))
}

func TestProcessor_Cancelled(t *testing.T) {
	skipOnWindows(t)
	p := &Processor{}
	require.NoError(t, p.SetUp(context.Background(), module.Args{
		"command": cty.StringVal("sleep"),
		"args":    cty.TupleVal([]cty.Value{cty.StringVal("5")}),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Process(ctx, module.Inputs{})
	require.Error(t, err)
	_, isFailure := module.AsFailure(err)
	assert.False(t, isFailure, "cancellation is classified by the runner, not the module")
}
