package history

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := Open("", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func saveAt(t *testing.T, s *Store, kind Kind, at time.Time) *Run {
	t.Helper()
	run := &Run{Kind: kind, CreatedAt: at, Summary: map[string]float64{"k": 2}}
	require.NoError(t, s.Save(context.Background(), run))
	return run
}

func TestSaveGet(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	res := &types.ClusterRunResult{K: 2, Iterations: 3, Inertia: 1.0, State: types.StateConverged}
	run, err := NewRun(KindKMeans, map[string]int{"k": 2}, map[string]float64{"inertia": 1.0}, res)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, run))

	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, KindKMeans, got.Kind)
	assert.Equal(t, 1.0, got.Summary["inertia"])
	assert.JSONEq(t, `{"k":2}`, string(got.Params))

	var decoded types.ClusterRunResult
	require.NoError(t, json.Unmarshal(got.Result, &decoded))
	assert.Equal(t, 3, decoded.Iterations)
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t, 0)

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSave_RequiresKind(t *testing.T) {
	s := newTestStore(t, 0)

	err := s.Save(context.Background(), &Run{})
	assert.True(t, errors.IsInvalidParameter(err))
}

func TestList_NewestFirst(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := saveAt(t, s, KindKMeans, base)
	second := saveAt(t, s, KindApriori, base.Add(time.Minute))
	third := saveAt(t, s, KindKMeans, base.Add(2*time.Minute))

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	kmeans, err := s.List(ctx, KindKMeans, 0)
	require.NoError(t, err)
	require.Len(t, kmeans, 2)
	assert.Equal(t, third.ID, kmeans[0].ID)
	assert.Equal(t, first.ID, kmeans[1].ID)

	limited, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, third.ID, limited[0].ID)
}

func TestList_OmitsResult(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	run, err := NewRun(KindPCA, nil, nil, []int{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, run))

	runs, err := s.List(ctx, KindPCA, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Result)
}

func TestList_Empty(t *testing.T) {
	s := newTestStore(t, 0)

	runs, err := s.List(context.Background(), KindSweep, 5)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	run := saveAt(t, s, KindSweep, time.Now())
	require.NoError(t, s.Delete(ctx, run.ID))

	_, err := s.Get(ctx, run.ID)
	assert.True(t, errors.IsNotFound(err))

	runs, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	// Deleting twice is fine.
	require.NoError(t, s.Delete(ctx, run.ID))
}

func TestCount(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	saveAt(t, s, KindKMeans, time.Now())
	saveAt(t, s, KindApriori, time.Now())

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTTL(t *testing.T) {
	s := newTestStore(t, time.Second)
	ctx := context.Background()

	run := saveAt(t, s, KindKMeans, time.Now())
	_, err := s.Get(ctx, run.ID)
	require.NoError(t, err)

	// Badger TTLs have one second granularity.
	time.Sleep(2100 * time.Millisecond)

	_, err = s.Get(ctx, run.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestCancelledContext(t *testing.T) {
	s := newTestStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, &Run{Kind: KindKMeans}), context.Canceled)
	_, err := s.List(ctx, "", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewStore_SharedDB(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewStore(db, 0)
	saveAt(t, s, KindApriori, time.Now())

	// Close leaves a shared database open.
	require.NoError(t, s.Close())
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("KMeans")
	require.NoError(t, err)
	assert.Equal(t, KindKMeans, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Kind(""), k)

	_, err = ParseKind("dbscan")
	assert.Equal(t, "kind", errors.ParamOf(err))
}
