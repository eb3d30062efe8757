package runstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dealflow/internal/apperr"
	"dealflow/internal/config"
	"dealflow/internal/models"
	"dealflow/internal/pipeline"
)

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, s.Set(ctx, "forever", []byte("v"), 0))

	b, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v", string(b))

	now = now.Add(2 * time.Minute)
	_, found, _ = s.Get(ctx, "k")
	require.False(t, found)
	_, found, _ = s.Get(ctx, "forever")
	require.True(t, found)
}

func TestRuns_Lifecycle(t *testing.T) {
	ctx := context.Background()
	runs, err := New(config.RunStoreConfig{}, "")
	require.NoError(t, err)

	run, err := runs.Start(ctx, "deal-1")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	got, err := runs.Get(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, RunRunning, got.State)

	result := &pipeline.PipelineResult{
		DealID:      "deal-1",
		Status:      models.DealStatusIngested,
		FailedStage: pipeline.StageEnrich,
		ErrorKind:   apperr.KindUpstream,
	}
	require.NoError(t, runs.Finish(ctx, run, result, errors.New("enrich failed")))

	got, err = runs.Get(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, RunFailed, got.State)
	require.NotNil(t, got.FinishedAt)
	require.Equal(t, pipeline.StageEnrich, got.Result.FailedStage)
	require.Equal(t, apperr.KindUpstream, got.Result.ErrorKind)

	missing, err := runs.Get(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestNew_Backends(t *testing.T) {
	_, err := New(config.RunStoreConfig{Backend: "redis"}, "")
	require.Error(t, err)
	_, err = New(config.RunStoreConfig{Backend: "etcd"}, "")
	require.Error(t, err)

	runs, err := New(config.RunStoreConfig{Backend: "redis", RedisAddr: "127.0.0.1:6379"}, "")
	require.NoError(t, err)
	_, ok := runs.Store.(*RedisStore)
	require.True(t, ok)
	require.NoError(t, runs.Close())
}
