package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestExporter(t *testing.T) {
	var buf bytes.Buffer
	reg := registry.New(&Module{Out: &buf})
	mod, err := reg.New(Name)
	require.NoError(t, err)

	require.NoError(t, mod.SetUp(context.Background(), module.Args{}))
	out, err := mod.Process(context.Background(), module.Inputs{
		"Grep":  {"matches": []string{"a:1: secret"}, "count": 1},
		"Empty": {},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out["printed"])
	assert.Equal(t, "── Empty\n      (null)\n── Grep\n      count = 1\n      matches:\n        a:1: secret\n", buf.String())
}

func TestExporter_Keys(t *testing.T) {
	var buf bytes.Buffer
	e := &Exporter{out: &buf}
	require.NoError(t, e.SetUp(context.Background(), module.Args{"keys": cty.StringVal("stdout")}))

	_, err := e.Process(context.Background(), module.Inputs{
		"Cmd": {"stdout": "done", "exit_code": 0},
	})
	require.NoError(t, err)
	assert.Equal(t, "── Cmd\n      stdout = done\n", buf.String())
}
