package cleaning

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"insightcli/internal/dataset"
	"insightcli/internal/impute"
)

func TestStore_CreateGetDelete(t *testing.T) {
	store := NewStore(impute.Capabilities{}, nil, nil)
	ctx := context.Background()

	s := store.Create(ctx, "survey", surveyDataset(t))
	require.NotNil(t, s)
	assert.Equal(t, 1, store.Len())

	got, ok := store.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = store.Get("nope")
	assert.False(t, ok)

	assert.True(t, store.Delete(ctx, s.ID()))
	assert.False(t, store.Delete(ctx, s.ID()), "double delete reports absence")
	assert.Equal(t, 0, store.Len())
}

func TestStore_ListOrderedByCreation(t *testing.T) {
	store := NewStore(impute.Capabilities{}, nil, nil)
	ctx := context.Background()

	first := store.Create(ctx, "first", surveyDataset(t))
	second := store.Create(ctx, "second", surveyDataset(t))

	summaries := store.List()
	require.Len(t, summaries, 2)
	assert.Equal(t, first.ID(), summaries[0].ID)
	assert.Equal(t, second.ID(), summaries[1].ID)
	assert.Equal(t, "first", summaries[0].Name)
	assert.Equal(t, 4, summaries[0].Rows)
}

func TestStore_Stats(t *testing.T) {
	store := NewStore(impute.Capabilities{}, nil, nil)
	ctx := context.Background()

	s := store.Create(ctx, "survey", surveyDataset(t))
	store.Create(ctx, "other", surveyDataset(t))

	_, err := s.Apply(ctx, Operation{Type: OpImputeNumeric, Strategy: "mean", Columns: []string{"age"}})
	require.NoError(t, err)

	stats := store.Stats()
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, 1, stats.TotalOperations)
	assert.Equal(t, 8, stats.TotalRows)
}

func TestStore_ConcurrentSessionsAreIndependent(t *testing.T) {
	store := NewStore(impute.Capabilities{}, nil, nil)
	ctx := context.Background()

	const sessions = 16
	ids := make([]string, sessions)
	for i := range ids {
		ids[i] = store.Create(ctx, fmt.Sprintf("ds-%d", i), surveyDataset(t)).ID()
	}

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			s, ok := store.Get(id)
			if !ok {
				return fmt.Errorf("session %s vanished", id)
			}
			if _, err := s.Apply(ctx, Operation{
				Type: OpImputeNumeric, Strategy: "mean", Columns: []string{"age"},
			}); err != nil {
				return err
			}
			s.Profile()
			return nil
		})
		g.Go(func() error {
			if s, ok := store.Get(id); ok {
				s.Summarize()
				store.Stats()
				_ = s.Log()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		s, ok := store.Get(id)
		require.True(t, ok)
		age, _ := s.Current().Column("age")
		assert.Equal(t, 0, age.MissingCount())
	}
}

func TestSession_ConcurrentAppliesSerialize(t *testing.T) {
	ds, err := dataset.New(
		dataset.NewNumericColumn("v", []float64{1, math.NaN(), 3, math.NaN(), 5}, nil),
	)
	require.NoError(t, err)
	s := NewSession("one", ds, impute.Capabilities{}, nil)
	ctx := context.Background()

	const workers = 8
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := s.Apply(ctx, Operation{
				Type: OpImputeNumeric, Strategy: "mean", Columns: []string{"v"},
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	// exactly one apply fills; the rest observe a gap-free column and no-op
	v, _ := s.Current().Column("v")
	assert.Equal(t, 0, v.MissingCount())
	assert.Len(t, s.Log(), workers, "every apply lands one log entry")

	filled := 0
	for _, h := range s.History() {
		filled += h.Outcome.CellsFilled()
	}
	assert.Equal(t, 2, filled, "the gaps are filled exactly once")
}
