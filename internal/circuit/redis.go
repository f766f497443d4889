package circuit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists breaker state in Redis so every process sharing a
// breaker name sees the same circuit. Keys are namespaced per breaker:
// circuit:<name>:state, circuit:<name>:opened_at, circuit:<name>:failures,
// circuit:<name>:successes and the sorted set circuit:<name>:window.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

const defaultPrefix = "circuit:"

func (s RedisStore) key(name, field string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return prefix + name + ":" + field
}

// Snapshot reads every scalar plus the in-horizon window slice in a single
// pipeline so callers evaluate one consistent record.
func (s RedisStore) Snapshot(ctx context.Context, name string) (Record, error) {
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-WindowHorizon).UnixMilli(), 10)

	pipe := s.Client.Pipeline()
	stateCmd := pipe.Get(ctx, s.key(name, "state"))
	openedCmd := pipe.Get(ctx, s.key(name, "opened_at"))
	failuresCmd := pipe.Get(ctx, s.key(name, "failures"))
	successesCmd := pipe.Get(ctx, s.key(name, "successes"))
	windowCmd := pipe.ZRangeByScoreWithScores(ctx, s.key(name, "window"), &redis.ZRangeBy{
		Min: cutoff,
		Max: "+inf",
	})
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Record{}, err
	}

	record := Record{State: ParseState(stateCmd.Val())}
	if ms, err := strconv.ParseInt(openedCmd.Val(), 10, 64); err == nil && ms > 0 {
		record.OpenedAt = time.UnixMilli(ms)
	}
	record.Failures, _ = strconv.ParseInt(failuresCmd.Val(), 10, 64)
	record.Successes, _ = strconv.ParseInt(successesCmd.Val(), 10, 64)
	for _, z := range windowCmd.Val() {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		record.Window = append(record.Window, Sample{
			At:      time.UnixMilli(int64(z.Score)),
			Failure: strings.HasSuffix(member, "|f"),
		})
	}
	return record, nil
}

// RecordSample appends the outcome, prunes entries beyond the time horizon
// and trims the set down to keep entries, all in one transaction.
func (s RedisStore) RecordSample(ctx context.Context, name string, sample Sample, keep int) error {
	outcome := "|s"
	if sample.Failure {
		outcome = "|f"
	}
	member := uuid.NewString() + outcome
	score := float64(sample.At.UnixMilli())
	cutoff := strconv.FormatInt(sample.At.Add(-WindowHorizon).UnixMilli(), 10)

	key := s.key(name, "window")
	pipe := s.Client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+cutoff)
	if keep > 0 {
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-(keep + 1)))
	}
	pipe.Expire(ctx, key, 2*WindowHorizon)
	_, err := pipe.Exec(ctx)
	return err
}

func (s RedisStore) IncrFailures(ctx context.Context, name string) (int64, error) {
	return s.Client.Incr(ctx, s.key(name, "failures")).Result()
}

func (s RedisStore) IncrSuccesses(ctx context.Context, name string) (int64, error) {
	return s.Client.Incr(ctx, s.key(name, "successes")).Result()
}

func (s RedisStore) SetOpen(ctx context.Context, name string, openedAt time.Time) error {
	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, s.key(name, "state"), StateOpen.String(), 0)
	pipe.Set(ctx, s.key(name, "opened_at"), strconv.FormatInt(openedAt.UnixMilli(), 10), 0)
	// Dropping the probe claim here keeps each open cycle self-contained: a
	// claim left over from a failed trial cannot delay the next cycle's probe.
	pipe.Del(ctx, s.key(name, "failures"), s.key(name, "successes"), s.key(name, "probe"))
	_, err := pipe.Exec(ctx)
	return err
}

func (s RedisStore) SetHalfOpen(ctx context.Context, name string) error {
	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, s.key(name, "state"), StateHalfOpen.String(), 0)
	pipe.Del(ctx, s.key(name, "failures"), s.key(name, "successes"))
	_, err := pipe.Exec(ctx)
	return err
}

func (s RedisStore) SetClosed(ctx context.Context, name string) error {
	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, s.key(name, "state"), StateClosed.String(), 0)
	pipe.Del(ctx,
		s.key(name, "opened_at"),
		s.key(name, "failures"),
		s.key(name, "successes"),
		s.key(name, "probe"),
	)
	_, err := pipe.Exec(ctx)
	return err
}

// TryClaimProbe acquires the half-open probe claim via SETNX. The claim
// expires on its own so a crashed prober cannot wedge the breaker open.
func (s RedisStore) TryClaimProbe(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultOpenTimeout
	}
	return s.Client.SetNX(ctx, s.key(name, "probe"), uuid.NewString(), ttl).Result()
}

func (s RedisStore) Reset(ctx context.Context, name string) error {
	return s.Client.Del(ctx,
		s.key(name, "state"),
		s.key(name, "opened_at"),
		s.key(name, "failures"),
		s.key(name, "successes"),
		s.key(name, "window"),
		s.key(name, "probe"),
	).Err()
}
