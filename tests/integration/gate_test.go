package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/transitlab/route-miner/internal/testutil"
	"github.com/transitlab/route-miner/pkg/batch"
	"github.com/transitlab/route-miner/pkg/schedule"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// TestRedisGateSpacing tests that consecutive claims on one credential are
// spaced by the configured interval.
func TestRedisGateSpacing(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	// 20 qps = 50ms between slots.
	gate := schedule.NewRedisGate(redisClient, "cred-spacing", 20, schedule.RealClock())

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := gate.Wait(ctx); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// First claim is immediate, the next three each wait ~50ms.
	if elapsed < 120*time.Millisecond {
		t.Errorf("4 claims took %v, want >= 120ms of enforced spacing", elapsed)
	}
}

// TestRedisGateSharedBudget tests that two gates for the same credential
// fingerprint share one budget, as two miner processes would.
func TestRedisGateSharedBudget(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	a := schedule.NewRedisGate(redisClient, "cred-shared", 20, schedule.RealClock())
	b := schedule.NewRedisGate(redisClient, "cred-shared", 20, schedule.RealClock())

	ctx := context.Background()
	start := time.Now()
	gates := []*schedule.RedisGate{a, b, a, b}
	for i, g := range gates {
		if err := g.Wait(ctx); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 120*time.Millisecond {
		t.Errorf("4 interleaved claims took %v, want >= 120ms (shared budget)", elapsed)
	}
}

// TestRedisGateIndependentCredentials tests that different credentials never
// block each other.
func TestRedisGateIndependentCredentials(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	// 1 qps each: a second claim on the same credential would wait ~1s.
	a := schedule.NewRedisGate(redisClient, "cred-one", 1, schedule.RealClock())
	b := schedule.NewRedisGate(redisClient, "cred-two", 1, schedule.RealClock())

	ctx := context.Background()
	start := time.Now()
	if err := a.Wait(ctx); err != nil {
		t.Fatalf("Wait on first credential failed: %v", err)
	}
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("Wait on second credential failed: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 500*time.Millisecond {
		t.Errorf("claims on distinct credentials took %v, want no cross-credential blocking", elapsed)
	}
}

// TestRedisGateContextCancelled tests that a cancelled context interrupts a
// blocked claim.
func TestRedisGateContextCancelled(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	// 0.5 qps = 2s between slots.
	gate := schedule.NewRedisGate(redisClient, "cred-cancel", 0.5, schedule.RealClock())

	if err := gate.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := gate.Wait(ctx)
	if err == nil {
		t.Fatal("Wait() error = nil, want context deadline error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("cancelled Wait returned after %v, want prompt return", time.Since(start))
	}
}

// TestBatchRunWithRedisGate runs the full batch pipeline with the shared
// rate gate enabled.
func TestBatchRunWithRedisGate(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockMaps()
	defer mock.Close()
	mock.SetDirectionsResponse(testutil.NewOKResponse(testutil.DirectionsBody))

	dir := t.TempDir()
	input := filepath.Join(dir, "queries.csv")
	if err := os.WriteFile(input, []byte("origin,destination,mode\nA,B,driving\nC,D,walking\n"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	opts := batch.Options{
		QueriesPerSecond: 20,
		WriteCSV:         true,
		WriteDump:        true,
		BaseURL:          mock.URL(),
		Redis:            redisClient,
	}
	b := batch.NewBatch(input, batch.OutputBase("", input, 0, 1), batch.Credential{Key: "test-key", Source: "test"}, opts)

	outcome := b.Run(context.Background())
	if outcome.Err != nil {
		t.Fatalf("Run() outcome error = %v", outcome.Err)
	}
	if outcome.Records != 2 {
		t.Errorf("records = %d, want 2", outcome.Records)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("API requests = %d, want 2", mock.GetRequestCount())
	}

	// The gate key must carry a credential fingerprint, never key material.
	keys, err := redisClient.Keys(context.Background(), "miner:rate_gate:*").Result()
	if err != nil {
		t.Fatalf("redis keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("gate keys = %v, want exactly one", keys)
	}
	for _, k := range keys {
		if strings.Contains(k, "test-key") {
			t.Errorf("gate key %q leaks credential material", k)
		}
	}
}
