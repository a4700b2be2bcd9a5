package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/transitlab/route-miner/pkg/logging"
)

// redisGateKeyFormat is the per-credential next-allowed timestamp key. The
// placeholder is a credential fingerprint, never the key material itself.
const redisGateKeyFormat = "miner:rate_gate:%s:next_allowed_ns"

// redisGateTTL bounds how long a stale gate entry can outlive its run.
const redisGateTTL = 10 * time.Minute

// RedisGate is a rate gate whose next-allowed timestamp lives in Redis,
// letting several miner processes share one credential's per-second budget.
// Within a single process the in-memory gate is sufficient; this gate exists
// for deployments that fan batches out across hosts.
type RedisGate struct {
	redis    *redis.Client
	clock    Clock
	interval time.Duration
	key      string
	logger   zerolog.Logger
}

// NewRedisGate creates a Redis-backed gate for the credential identified by
// fingerprint.
func NewRedisGate(client *redis.Client, fingerprint string, queriesPerSecond float64, clock Clock) *RedisGate {
	if queriesPerSecond <= 0 {
		queriesPerSecond = 10
	}
	return &RedisGate{
		redis:    client,
		clock:    clock,
		interval: time.Duration(float64(time.Second) / queriesPerSecond),
		key:      fmt.Sprintf(redisGateKeyFormat, fingerprint),
		logger:   logging.NewLogger("redis-rate-gate"),
	}
}

// Wait blocks until the shared next-allowed time has passed, then reserves
// the next slot. Reservation uses a small Lua script so two processes cannot
// claim the same slot.
func (g *RedisGate) Wait(ctx context.Context) error {
	for {
		now := g.clock.Now()
		claimed, nextAllowed, err := g.tryClaim(ctx, now)
		if err != nil {
			return fmt.Errorf("rate gate claim: %w", err)
		}
		if claimed {
			return nil
		}

		wait := nextAllowed.Sub(now)
		if wait <= 0 {
			// Lost a race; try again immediately.
			continue
		}
		rateGateWaitSeconds.Observe(wait.Seconds())
		g.logger.Debug().Dur("wait", wait).Msg("Rate gate busy, waiting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.clock.After(wait):
		}
	}
}

// claimScript atomically checks and advances the next-allowed timestamp.
// KEYS[1] = gate key, ARGV[1] = now (ns), ARGV[2] = interval (ns),
// ARGV[3] = ttl (ms). Returns {1} on claim or {0, next_allowed_ns}.
var claimScript = redis.NewScript(`
local next = tonumber(redis.call('GET', KEYS[1]) or '0')
local now = tonumber(ARGV[1])
if now >= next then
  redis.call('SET', KEYS[1], now + tonumber(ARGV[2]), 'PX', tonumber(ARGV[3]))
  return {1}
end
return {0, next}
`)

func (g *RedisGate) tryClaim(ctx context.Context, now time.Time) (bool, time.Time, error) {
	result, err := claimScript.Run(ctx, g.redis, []string{g.key},
		now.UnixNano(), g.interval.Nanoseconds(), redisGateTTL.Milliseconds()).Slice()
	if err != nil {
		return false, time.Time{}, err
	}
	if len(result) == 0 {
		return false, time.Time{}, fmt.Errorf("empty claim script result")
	}
	claimed, ok := result[0].(int64)
	if !ok {
		return false, time.Time{}, fmt.Errorf("unexpected claim script result %v", result)
	}
	if claimed == 1 {
		return true, time.Time{}, nil
	}
	if len(result) < 2 {
		return false, time.Time{}, fmt.Errorf("claim script result missing next-allowed time")
	}
	nextNs, ok := result[1].(int64)
	if !ok {
		return false, time.Time{}, fmt.Errorf("unexpected next-allowed value %v", result[1])
	}
	return false, time.Unix(0, nextNs), nil
}
