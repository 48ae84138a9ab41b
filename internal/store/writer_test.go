package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/store"
	"github.com/dgallion1/insurtree/internal/store/memory"
	"github.com/dgallion1/insurtree/internal/testfixture"
)

func TestWriter_MergeValidatesWholeTable(t *testing.T) {
	ctx := context.Background()
	s := memory.New(testfixture.Insurances()...)
	w := store.NewWriter(s, engine.New())

	// 1 -> 3 closes the loop 1 -> 3 -> 2 -> 1.
	err := w.Apply(ctx, []engine.Record{{ID: 1, ParentID: testfixture.Parent(3), Value: 1}}, store.ModeMerge)
	require.ErrorIs(t, err, engine.ErrCycle)

	snap, _ := s.Snapshot(ctx)
	assert.Equal(t, testfixture.Insurances(), snap, "rejected batch must not be written")

	require.NoError(t, w.Apply(ctx, []engine.Record{{ID: 10, ParentID: testfixture.Parent(4), Value: 5}}, store.ModeMerge))
	snap, _ = s.Snapshot(ctx)
	assert.Len(t, snap, 10)
}

func TestWriter_DuplicateInBatch(t *testing.T) {
	ctx := context.Background()
	w := store.NewWriter(memory.New(), engine.New())
	err := w.Apply(ctx, []engine.Record{{ID: 1}, {ID: 1}}, store.ModeMerge)
	assert.ErrorIs(t, err, engine.ErrDuplicateID)
}

func TestWriter_Replace(t *testing.T) {
	ctx := context.Background()
	s := memory.New(testfixture.Insurances()...)
	w := store.NewWriter(s, engine.New(engine.WithDanglingPolicy(engine.DanglingReject)))

	err := w.Apply(ctx, testfixture.Insurances(), store.ModeReplace)
	require.ErrorIs(t, err, engine.ErrDanglingParent)

	require.NoError(t, w.Apply(ctx, testfixture.Chain(3, 5), store.ModeReplace))
	snap, _ := s.Snapshot(ctx)
	assert.Equal(t, testfixture.Chain(3, 5), snap)
}

func TestWriter_Delete(t *testing.T) {
	ctx := context.Background()
	w := store.NewWriter(memory.New(testfixture.Insurances()...), engine.New())
	require.NoError(t, w.Delete(ctx, 1))
	assert.ErrorIs(t, w.Delete(ctx, 1), store.ErrNotFound)
}

func TestWriter_DeleteKeepsForestValid(t *testing.T) {
	ctx := context.Background()
	eng := engine.New(engine.WithDanglingPolicy(engine.DanglingReject))
	s := memory.New(testfixture.Chain(2, 1)...)
	w := store.NewWriter(s, eng)

	// Removing the root would leave record 2 pointing at nothing.
	require.ErrorIs(t, w.Delete(ctx, 1), engine.ErrDanglingParent)

	snap, _ := s.Snapshot(ctx)
	assert.Equal(t, testfixture.Chain(2, 1), snap, "rejected delete must not be written")
	_, err := eng.Query(snap, 1, 1)
	require.NoError(t, err)

	require.NoError(t, w.Delete(ctx, 2))
	require.NoError(t, w.Delete(ctx, 1))
}

func TestWriter_ConcurrentMerges(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	w := store.NewWriter(s, engine.New())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Apply(ctx, []engine.Record{{ID: int64(i + 1), Value: 1}}, store.ModeMerge)
		}()
	}
	wg.Wait()

	snap, _ := s.Snapshot(ctx)
	assert.Len(t, snap, 50)
}

func TestParseMode(t *testing.T) {
	m, err := store.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, store.ModeMerge, m)

	m, err = store.ParseMode("replace")
	require.NoError(t, err)
	assert.Equal(t, store.ModeReplace, m)

	_, err = store.ParseMode("append")
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	base := errors.New("connection reset")
	assert.True(t, store.IsRetryable(&store.RetryableError{Op: "snapshot", Err: base}))
	assert.False(t, store.IsRetryable(base))
}

func TestWriter_CheckDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	s := memory.New(testfixture.Insurances()...)
	w := store.NewWriter(s, engine.New())

	assert.NoError(t, w.Check(ctx, []engine.Record{{ID: 10, Value: 1}}, store.ModeMerge))
	assert.ErrorIs(t, w.Check(ctx, []engine.Record{{ID: 2, ParentID: testfixture.Parent(3), Value: 1}}, store.ModeMerge), engine.ErrCycle)
	assert.NoError(t, w.Check(ctx, testfixture.Chain(2, 1), store.ModeReplace))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, testfixture.Insurances(), snap)
}
