package module

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestArgs(t *testing.T) {
	args := Args{
		"name":    cty.StringVal("evidence"),
		"verify":  cty.True,
		"port":    cty.NumberIntVal(8443),
		"paths":   cty.StringVal("/a, /b,,/c"),
		"targets": cty.TupleVal([]cty.Value{cty.StringVal("x"), cty.StringVal("y")}),
		"nothing": cty.NullVal(cty.String),
	}

	assert.True(t, args.Has("name"))
	assert.False(t, args.Has("nothing"))
	assert.False(t, args.Has("missing"))
	assert.Equal(t, []string{"name", "nothing", "paths", "port", "targets", "verify"}, args.Keys())

	s, err := args.String("name", "def")
	require.NoError(t, err)
	assert.Equal(t, "evidence", s)

	s, err = args.String("missing", "def")
	require.NoError(t, err)
	assert.Equal(t, "def", s)

	b, err := args.Bool("verify", false)
	require.NoError(t, err)
	assert.True(t, b)

	var port int
	require.NoError(t, args.Decode("port", &port))
	assert.Equal(t, 8443, port)

	paths, err := args.StringList("paths")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b", "/c"}, paths)

	targets, err := args.StringList("targets")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, targets)

	_, err = args.Bool("name", false)
	assert.Error(t, err)
}

func TestArgs_Native(t *testing.T) {
	args := Args{
		"data": cty.ObjectVal(map[string]cty.Value{
			"case":  cty.StringVal("42"),
			"count": cty.NumberIntVal(3),
			"tags":  cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.True}),
		}),
	}

	got, err := args.Native("data")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"case":  "42",
		"count": float64(3),
		"tags":  []any{"a", true},
	}, got)

	got, err = args.Native("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInputs_Collect(t *testing.T) {
	in := Inputs{
		"B": {"files": []string{"/b1", "/b2"}},
		"A": {"files": "/a"},
		"C": {"other": true},
		"D": {"files": []any{"/d", 7}},
	}

	assert.Equal(t, []string{"A", "B", "C", "D"}, in.Names())
	assert.Equal(t, []any{"/a", "/b1", "/b2", "/d", 7}, in.Collect("files"))
	assert.Equal(t, []string{"/a", "/b1", "/b2", "/d"}, in.CollectStrings("files"))
	assert.Empty(t, in.Collect("absent"))
}

func TestArtifacts_Clone(t *testing.T) {
	orig := Artifacts{"k": "v"}
	c := orig.Clone()
	c["k"] = "changed"
	assert.Equal(t, "v", orig["k"])
	assert.NotNil(t, Artifacts(nil).Clone())
}

func TestFailure(t *testing.T) {
	f := Failf(KindTimeout, "waited %ds", 5)
	assert.Equal(t, "Timeout: waited 5s", f.Error())
	f.Module = "Collector"
	assert.Equal(t, "module Collector: Timeout: waited 5s", f.Error())

	cause := errors.New("disk gone")
	wrapped := fmt.Errorf("processing: %w", &Failure{Kind: KindError, Message: "io", Err: cause})

	got, ok := AsFailure(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindError, got.Kind)
	assert.ErrorIs(t, wrapped, cause)

	_, ok = AsFailure(cause)
	assert.False(t, ok)
}

func TestReportOf(t *testing.T) {
	r := Report{Title: "t", Text: "body"}

	got, ok := ReportOf(Artifacts{ReportKey: r})
	require.True(t, ok)
	assert.Equal(t, r, got)

	got, ok = ReportOf(Artifacts{ReportKey: &r})
	require.True(t, ok)
	assert.Equal(t, r, got)

	_, ok = ReportOf(Artifacts{ReportKey: "not a report"})
	assert.False(t, ok)
}
