package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/stats"
	"github.com/dgallion1/insurtree/internal/store"
	"github.com/dgallion1/insurtree/internal/store/memory"
	"github.com/dgallion1/insurtree/internal/testfixture"
)

func newService(s store.Store) *Service {
	return NewService(s, engine.New(), stats.NewQueryStats(10, time.Hour), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type brokenStore struct{ store.Store }

func (brokenStore) Snapshot(context.Context) ([]engine.Record, error) {
	return nil, errors.New("disk on fire")
}

func TestService_Top(t *testing.T) {
	svc := newService(memory.New(testfixture.Insurances()...))

	got, err := svc.Top(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []engine.Result{{ID: 4, Value: 140000}, {ID: 7, Value: 110000}, {ID: 8, Value: 100100}}, got)
	assert.Equal(t, 1, svc.Stats().Count)
}

func TestService_InvalidArgumentsSkipStore(t *testing.T) {
	svc := newService(brokenStore{})

	_, err := svc.Top(context.Background(), 0, 2)
	var verr *engine.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, svc.Stats().Count, "rejected arguments are not timed")
}

func TestService_StoreAndConstructionErrors(t *testing.T) {
	svc := newService(brokenStore{})
	_, err := svc.Top(context.Background(), 1, 1)
	require.Error(t, err)
	var verr *engine.ValidationError
	assert.False(t, errors.As(err, &verr))
	assert.Equal(t, 1, svc.Stats().Errors)

	cyclic := []engine.Record{{ID: 1, ParentID: testfixture.Parent(2)}, {ID: 2, ParentID: testfixture.Parent(1)}}
	svc = newService(memory.New(cyclic...))
	_, err = svc.Top(context.Background(), 1, 1)
	var cerr *engine.ConstructionError
	assert.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, engine.ErrCycle)
}

func TestService_Records(t *testing.T) {
	svc := newService(memory.New(testfixture.Insurances()...))
	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 9)
}
