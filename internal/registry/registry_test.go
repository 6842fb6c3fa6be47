package registry

import (
	"context"
	"testing"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopModule struct{}

func (noopModule) SetUp(context.Context, module.Args) error { return nil }
func (noopModule) Process(context.Context, module.Inputs) (module.Artifacts, error) {
	return module.Artifacts{}, nil
}

func TestRegistry(t *testing.T) {
	r := New(RegistrantFunc(func(r *Registry) {
		r.Register("NoopCollector", func() module.Module { return noopModule{} })
		r.Register("NoopExporter", func() module.Module { return noopModule{} })
	}))

	assert.Equal(t, []string{"NoopCollector", "NoopExporter"}, r.Names())
	assert.True(t, r.Has("NoopCollector"))

	m, err := r.New("NoopExporter")
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = r.New("Missing")
	assert.ErrorIs(t, err, ErrUnknownModule)
	assert.ErrorContains(t, err, "Missing")
}

func TestRegister_Panics(t *testing.T) {
	r := New()
	r.Register("A", func() module.Module { return noopModule{} })

	assert.PanicsWithValue(t, "module with name 'A' already registered", func() {
		r.Register("A", func() module.Module { return noopModule{} })
	})
	assert.Panics(t, func() { r.Register("", func() module.Module { return noopModule{} }) })
	assert.Panics(t, func() { r.Register("B", nil) })
}
