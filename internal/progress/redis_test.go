package progress

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

func setupRedisSink(t *testing.T) (*RedisSink, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	sink := NewRedisSink(client, "")
	t.Cleanup(func() {
		sink.Close()
		mr.Close()
	})
	return sink, mr
}

func TestRedisSinkTracksRun(t *testing.T) {
	sink, mr := setupRedisSink(t)
	ctx := context.Background()
	key := DefaultKeyPrefix + "run-1"

	require.NoError(t, sink.Start(ctx, "run-1", 4))
	assert.Equal(t, "dispatching", mr.HGet(key, "status"))
	assert.Equal(t, "0", mr.HGet(key, "processed"))
	assert.Equal(t, "4", mr.HGet(key, "total"))
	assert.Equal(t, "0.0000", mr.HGet(key, "ratio"))

	require.NoError(t, sink.Report(ctx, Event{Snapshot: Advance(1, 4)}))
	require.NoError(t, sink.Report(ctx, Event{Snapshot: Advance(2, 4), Failed: true}))
	assert.Equal(t, "2", mr.HGet(key, "processed"))
	assert.Equal(t, "0.5000", mr.HGet(key, "ratio"))
	assert.Equal(t, "1", mr.HGet(key, "failed"))

	require.NoError(t, sink.Finish(ctx, &domain.RunSummary{
		RunID:     "run-1",
		State:     domain.RunDone,
		Total:     4,
		Processed: 4,
		Delivered: 3,
		Failures:  []domain.DeliveryFailure{{Line: 3}},
		Duration:  1500 * time.Millisecond,
	}))
	assert.Equal(t, "done", mr.HGet(key, "status"))
	assert.Equal(t, "3", mr.HGet(key, "delivered"))
	assert.Equal(t, "1500", mr.HGet(key, "duration_ms"))
	assert.Equal(t, ProgressTTL, mr.TTL(key))
}

func TestRedisSinkFinishWithoutStart(t *testing.T) {
	sink, mr := setupRedisSink(t)

	require.NoError(t, sink.Finish(context.Background(), &domain.RunSummary{RunID: "run-2", State: domain.RunFailed}))
	assert.Equal(t, "failed", mr.HGet(DefaultKeyPrefix+"run-2", "status"))
}

func TestNewRedisSinkFromURL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	sink, err := NewRedisSinkFromURL(context.Background(), "redis://"+mr.Addr(), "custom:")
	require.NoError(t, err)
	defer sink.Close()
	assert.Equal(t, "custom:abc", sink.Key("abc"))
	assert.NoError(t, sink.Client().Ping(context.Background()).Err())

	_, err = NewRedisSinkFromURL(context.Background(), "not a url", "")
	assert.Error(t, err)
}
