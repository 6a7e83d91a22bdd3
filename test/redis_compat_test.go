//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/novelAuth/internal/rate"
	"github.com/MrEthical07/novelAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode describes which Redis backend the compatibility suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the set of Redis backends to test.
// miniredis is always available.
// Real Redis standalone is used when REDIS_ADDR is set (e.g. "127.0.0.1:6379").
// Sentinel is used when REDIS_SENTINEL_ADDRS is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				return liveClient(t, redis.NewClient(&redis.Options{Addr: addr}))
			},
		})
	}

	if addrs := os.Getenv("REDIS_SENTINEL_ADDRS"); addrs != "" {
		master := os.Getenv("REDIS_SENTINEL_MASTER")
		if master == "" {
			master = "mymaster"
		}
		modes = append(modes, redisMode{
			name: "sentinel",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				return liveClient(t, redis.NewFailoverClient(&redis.FailoverOptions{
					MasterName:    master,
					SentinelAddrs: splitAddrs(addrs),
				}))
			},
		})
	}

	return modes
}

func liveClient(t *testing.T, rdb redis.UniversalClient) (redis.UniversalClient, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("cannot connect to Redis: %v", err)
	}
	// Flush the test DB to avoid state leaking between runs.
	rdb.FlushDB(context.Background())
	return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

func compatSession(id string) *session.Session {
	sess := session.New(id, time.Now())
	sess.UserID = "7"
	sess.Username = "alice"
	sess.Role = "user"
	sess.CSRFToken = "csrf-" + id
	sess.Flash = session.Flash{Kind: session.FlashSuccess, Message: "Password changed."}
	return sess
}

func TestRedisCompat_SessionRoundTrip(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			store := session.NewStore(rdb, "nas")
			ctx := context.Background()

			want := compatSession("sid-a")
			if err := store.Save(ctx, want, time.Hour); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := store.Get(ctx, "sid-a")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.UserID != want.UserID || got.CSRFToken != want.CSRFToken || got.Flash != want.Flash {
				t.Fatalf("round trip mismatch: %+v vs %+v", got, want)
			}

			if err := store.Delete(ctx, "sid-a"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.Get(ctx, "sid-a"); !errors.Is(err, session.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

// Rotation must retire the previous id in the same transaction that stores
// the new one.
func TestRedisCompat_SessionRotate(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			store := session.NewStore(rdb, "nas")
			ctx := context.Background()

			if err := store.Save(ctx, compatSession("sid-old"), time.Hour); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := store.Rotate(ctx, "sid-old", compatSession("sid-new"), time.Hour); err != nil {
				t.Fatalf("rotate: %v", err)
			}
			if _, err := store.Get(ctx, "sid-old"); !errors.Is(err, session.ErrNotFound) {
				t.Fatalf("old id still readable: %v", err)
			}
			if _, err := store.Get(ctx, "sid-new"); err != nil {
				t.Fatalf("new id unreadable: %v", err)
			}
		})
	}
}

func TestRedisCompat_SessionCorruptPayload(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			store := session.NewStore(rdb, "nas")
			ctx := context.Background()

			if err := rdb.Set(ctx, "nas:sid-bad", "not a session", time.Hour).Err(); err != nil {
				t.Fatalf("seed: %v", err)
			}
			if _, err := store.Get(ctx, "sid-bad"); !errors.Is(err, session.ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestRedisCompat_IPThrottleWindow(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			limiter := rate.New(rdb, rate.Config{Enabled: true, MaxFailures: 3, Window: time.Minute})
			ctx := context.Background()
			const ip = "198.51.100.9"

			for i := 0; i < 3; i++ {
				if _, err := limiter.Check(ctx, ip); err != nil {
					t.Fatalf("check %d: %v", i, err)
				}
				if err := limiter.RecordFailure(ctx, ip); err != nil {
					t.Fatalf("record %d: %v", i, err)
				}
			}

			wait, err := limiter.Check(ctx, ip)
			if !errors.Is(err, rate.ErrRateLimited) {
				t.Fatalf("expected ErrRateLimited, got %v", err)
			}
			if wait <= 0 || wait > time.Minute {
				t.Fatalf("unexpected retry-after %v", wait)
			}

			if err := limiter.Reset(ctx, ip); err != nil {
				t.Fatalf("reset: %v", err)
			}
			if _, err := limiter.Check(ctx, ip); err != nil {
				t.Fatalf("check after reset: %v", err)
			}
		})
	}
}
