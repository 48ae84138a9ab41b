package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/store"
	"github.com/dgallion1/insurtree/internal/testfixture"
)

func TestStore_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := New(testfixture.Insurances()...)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 9)
	snap[0].Value = -1
	*snap[1].ParentID = 99

	again, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, testfixture.Insurances(), again)
}

func TestStore_UpsertKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := New(engine.Record{ID: 1, Value: 1}, engine.Record{ID: 2, Value: 2})

	require.NoError(t, s.Upsert(ctx, []engine.Record{{ID: 3, Value: 3}, {ID: 1, Value: 10}}))
	snap, _ := s.Snapshot(ctx)
	assert.Equal(t, []engine.Record{{ID: 1, Value: 10}, {ID: 2, Value: 2}, {ID: 3, Value: 3}}, snap)
}

func TestStore_Replace(t *testing.T) {
	ctx := context.Background()
	s := New(testfixture.Insurances()...)
	require.NoError(t, s.Replace(ctx, []engine.Record{{ID: 42, Value: 7}}))

	snap, _ := s.Snapshot(ctx)
	assert.Equal(t, []engine.Record{{ID: 42, Value: 7}}, snap)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := New(testfixture.Insurances()...)

	require.NoError(t, s.Delete(ctx, 4))
	assert.ErrorIs(t, s.Delete(ctx, 4), store.ErrNotFound)

	// Index must follow the shifted slice.
	require.NoError(t, s.Upsert(ctx, []engine.Record{{ID: 9, Value: 1}}))
	snap, _ := s.Snapshot(ctx)
	require.Len(t, snap, 8)
	assert.Equal(t, int64(9), snap[7].ID)
	assert.Equal(t, int64(1), snap[7].Value)
}
