package inmemorystore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/node"
	"github.com/specialistvlad/recipegrid/internal/nodestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Status of a module that was never touched is Pending.
	status, err := s.GetStatus(ctx, "Collector")
	require.NoError(t, err)
	assert.Equal(t, node.Pending, status)

	require.NoError(t, s.SetStatus(ctx, "Collector", node.Running))

	status, err = s.GetStatus(ctx, "Collector")
	require.NoError(t, err)
	assert.Equal(t, node.Running, status)
}

func TestPutAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Get(ctx, "Collector")
	require.ErrorIs(t, err, nodestore.ErrArtifactNotReady)
	assert.True(t, nodestore.IsInvariant(err))

	want := module.Artifacts{"files": []string{"/tmp/a"}}
	require.NoError(t, s.Put(ctx, "Collector", want))

	got, err := s.Get(ctx, "Collector")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Callers get copies; the stored set cannot be mutated through them.
	got["extra"] = true
	again, err := s.Get(ctx, "Collector")
	require.NoError(t, err)
	assert.NotContains(t, again, "extra")

	err = s.Put(ctx, "Collector", module.Artifacts{})
	require.ErrorIs(t, err, nodestore.ErrDuplicateArtifact)
	var ie *nodestore.InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Collector", ie.Module)

	snap := s.Snapshot(ctx)
	assert.Equal(t, map[string]module.Artifacts{"Collector": want}, snap)
}

func TestConcurrentPutIsWriteOnce(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Put(ctx, "shared", module.Artifacts{"writer": i})
			if err == nil {
				ok.Add(1)
			} else if nodestore.IsInvariant(err) {
				dup.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(49), dup.Load())
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("module-%d", i)
			assert.NoError(t, s.SetStatus(ctx, id, node.Running))
			assert.NoError(t, s.Put(ctx, id, module.Artifacts{"i": i}))
			assert.NoError(t, s.SetStatus(ctx, id, node.Succeeded))
			got, err := s.Get(ctx, id)
			assert.NoError(t, err)
			assert.Equal(t, i, got["i"])
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Snapshot(ctx), 100)
}
