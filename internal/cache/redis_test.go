package cache

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// redisURL is set by TestMain when a redis container is running.
var redisURL string

func mustStartRedisContainer() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	// Create context with timeout to prevent hanging
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, err
	}

	uri, err := container.ConnectionString(context.Background())
	if err != nil {
		return container.Terminate, err
	}
	redisURL = uri

	return container.Terminate, nil
}

func TestMain(m *testing.M) {
	var teardown func(context.Context, ...testcontainers.TerminateOption) error

	if os.Getenv("SKIP_INTEGRATION") == "" && isDockerAvailable() {
		var err error
		teardown, err = mustStartRedisContainer()
		if err != nil {
			log.Printf("[CACHE] redis container unavailable: %v", err)
			redisURL = ""
		}
	}

	code := m.Run()

	if teardown != nil {
		teardown(context.Background())
	}

	os.Exit(code)
}

func isDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.DaemonHost(ctx)
	return err == nil
}

func requireRedis(t *testing.T) Service {
	t.Helper()
	if redisURL == "" {
		t.Skip("redis container not running")
	}
	srv := New(redisURL, "", 0)
	if srv == nil {
		t.Fatal("New() returned nil")
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestNew_NoRedis(t *testing.T) {
	if srv := New("127.0.0.1:1", "", 0); srv != nil {
		srv.Close()
		t.Error("New() returned a service for an unreachable address")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if srv := New("redis://:bad:port/x", "", 0); srv != nil {
		srv.Close()
		t.Error("New() accepted an invalid redis URL")
	}
}

func TestService_Interface(t *testing.T) {
	var _ Service = (*service)(nil)
}

func TestHealth(t *testing.T) {
	srv := requireRedis(t)

	stats := srv.Health()

	if stats["status"] != "up" {
		t.Fatalf("expected status to be up, got %s", stats["status"])
	}
	if _, ok := stats["error"]; ok {
		t.Fatalf("expected error not to be present")
	}
}

func TestHistoryStore_PushLoad(t *testing.T) {
	srv := requireRedis(t)
	ctx := context.Background()
	key := "test:history:" + t.Name()
	store := NewHistoryStore(srv.GetClient(), key, 6)
	t.Cleanup(func() { srv.GetClient().Del(context.Background(), key) })

	for _, entry := range []string{"1.00", "2.00", "3.00", "4.00", "5.00", "6.00", "7.00", "8.00"} {
		if err := store.Push(ctx, entry); err != nil {
			t.Fatalf("Push(%s) error = %v", entry, err)
		}
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"8.00", "7.00", "6.00", "5.00", "4.00", "3.00"}
	if len(got) != len(want) {
		t.Fatalf("Load() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Load()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if n := srv.GetClient().LLen(ctx, key).Val(); n != 6 {
		t.Errorf("list length = %d, want 6", n)
	}
}

func TestHistoryStore_LoadEmpty(t *testing.T) {
	srv := requireRedis(t)
	store := NewHistoryStore(srv.GetClient(), "test:history:empty", 6)

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() = %v, want empty", got)
	}
}
