package circuit_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/voyago/backend-voyago/internal/circuit"
)

func newRedisStore(t *testing.T) (circuit.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return circuit.RedisStore{Client: client}, mr
}

func TestRedisSnapshotUnknownName(t *testing.T) {
	store, _ := newRedisStore(t)

	rec, err := store.Snapshot(context.Background(), "brand-new")
	require.NoError(t, err)
	require.Equal(t, circuit.StateClosed, rec.State)
	require.True(t, rec.OpenedAt.IsZero())
	require.Zero(t, rec.Failures)
	require.Zero(t, rec.Successes)
	require.Empty(t, rec.Window)
}

func TestRedisRecordSampleKeepsOutcome(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.RecordSample(ctx, "svc", circuit.Sample{At: now, Failure: true}, 10))
	require.NoError(t, store.RecordSample(ctx, "svc", circuit.Sample{At: now, Failure: false}, 10))

	rec, err := store.Snapshot(ctx, "svc")
	require.NoError(t, err)
	require.Len(t, rec.Window, 2)

	failures := 0
	for _, s := range rec.Window {
		if s.Failure {
			failures++
		}
	}
	require.Equal(t, 1, failures)
}

func TestRedisRecordSampleTrimsToKeep(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		sample := circuit.Sample{At: time.Now(), Failure: i%2 == 0}
		require.NoError(t, store.RecordSample(ctx, "svc", sample, 5))
	}

	rec, err := store.Snapshot(ctx, "svc")
	require.NoError(t, err)
	require.Len(t, rec.Window, 5, "oldest samples drop once the window is full")
}

func TestRedisRecordSamplePrunesHorizon(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	stale := circuit.Sample{At: now.Add(-2 * circuit.WindowHorizon), Failure: true}
	require.NoError(t, store.RecordSample(ctx, "svc", stale, 10))
	require.NoError(t, store.RecordSample(ctx, "svc", circuit.Sample{At: now}, 10))

	rec, err := store.Snapshot(ctx, "svc")
	require.NoError(t, err)
	require.Len(t, rec.Window, 1)
	require.False(t, rec.Window[0].Failure)
}

func TestRedisOpenHalfOpenClosedRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	openedAt := time.Now().Truncate(time.Millisecond)

	require.NoError(t, store.SetOpen(ctx, "svc", openedAt))
	rec, err := store.Snapshot(ctx, "svc")
	require.NoError(t, err)
	require.Equal(t, circuit.StateOpen, rec.State)
	require.Equal(t, openedAt.UnixMilli(), rec.OpenedAt.UnixMilli())

	_, err = store.IncrSuccesses(ctx, "svc")
	require.NoError(t, err)

	require.NoError(t, store.SetHalfOpen(ctx, "svc"))
	rec, err = store.Snapshot(ctx, "svc")
	require.NoError(t, err)
	require.Equal(t, circuit.StateHalfOpen, rec.State)
	require.Zero(t, rec.Successes, "trial counters reset on the transition")
	require.Equal(t, openedAt.UnixMilli(), rec.OpenedAt.UnixMilli(), "openedAt survives until close")

	require.NoError(t, store.SetClosed(ctx, "svc"))
	rec, err = store.Snapshot(ctx, "svc")
	require.NoError(t, err)
	require.Equal(t, circuit.StateClosed, rec.State)
	require.True(t, rec.OpenedAt.IsZero())
}

func TestRedisTryClaimProbeIsExclusive(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	claimed, err := store.TryClaimProbe(ctx, "svc", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = store.TryClaimProbe(ctx, "svc", time.Minute)
	require.NoError(t, err)
	require.False(t, claimed)

	mr.FastForward(2 * time.Minute)

	claimed, err = store.TryClaimProbe(ctx, "svc", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed, "expired claims can be reacquired")
}

func TestRedisSetOpenReleasesProbeClaim(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	claimed, err := store.TryClaimProbe(ctx, "svc", time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	// Reopening after a failed trial starts a fresh cycle; the old claim
	// must not block the next prober.
	require.NoError(t, store.SetOpen(ctx, "svc", time.Now()))

	claimed, err = store.TryClaimProbe(ctx, "svc", time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestRedisResetDeletesAllKeys(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetOpen(ctx, "svc", time.Now()))
	require.NoError(t, store.RecordSample(ctx, "svc", circuit.Sample{At: time.Now(), Failure: true}, 10))
	_, err := store.TryClaimProbe(ctx, "svc", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, mr.Keys())

	require.NoError(t, store.Reset(ctx, "svc"))
	require.Empty(t, mr.Keys())
}

func TestRedisCustomPrefix(t *testing.T) {
	store, mr := newRedisStore(t)
	store.Prefix = "voyago:cb:"
	ctx := context.Background()

	require.NoError(t, store.SetOpen(ctx, "svc", time.Now()))
	require.True(t, mr.Exists("voyago:cb:svc:state"))
}
