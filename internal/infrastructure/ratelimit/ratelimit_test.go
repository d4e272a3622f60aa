package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bookstore/backoffice/internal/core/ports"
)

var (
	_ ports.RateLimiter = (*Memory)(nil)
	_ ports.RateLimiter = (*Redis)(nil)
)

func admitN(t *testing.T, l ports.RateLimiter, key string, n int) (allowed, denied int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ok, err := l.Admit(context.Background(), key)
		if err != nil {
			t.Fatalf("admit: %v", err)
		}
		if ok {
			allowed++
		} else {
			denied++
		}
	}
	return allowed, denied
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

func newClockedMemory(max int, window time.Duration) (*Memory, *time.Time) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	m := NewMemory(max, window)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemory_ThreeAllowedThenDenied(t *testing.T) {
	m, now := newClockedMemory(3, 15*time.Minute)

	allowed, denied := admitN(t, m, "10.0.0.1", 4)
	if allowed != 3 || denied != 1 {
		t.Fatalf("got %d allowed / %d denied, want 3 / 1", allowed, denied)
	}

	*now = now.Add(15 * time.Minute)
	if ok, _ := m.Admit(context.Background(), "10.0.0.1"); !ok {
		t.Fatalf("request after the window elapsed must be allowed")
	}
}

func TestMemory_DenialDoesNotExtendWindow(t *testing.T) {
	m, now := newClockedMemory(1, time.Minute)
	ctx := context.Background()

	_, _ = m.Admit(ctx, "ip")
	*now = now.Add(50 * time.Second)
	if ok, _ := m.Admit(ctx, "ip"); ok {
		t.Fatalf("expected deny inside window")
	}
	*now = now.Add(10 * time.Second)
	if ok, _ := m.Admit(ctx, "ip"); !ok {
		t.Fatalf("window measured from first request must have elapsed")
	}
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	m, _ := newClockedMemory(1, time.Minute)
	ctx := context.Background()

	if ok, _ := m.Admit(ctx, "a"); !ok {
		t.Fatalf("a: expected allow")
	}
	if ok, _ := m.Admit(ctx, "b"); !ok {
		t.Fatalf("b: expected allow")
	}
	if ok, _ := m.Admit(ctx, "a"); ok {
		t.Fatalf("a: expected deny")
	}
}

func TestMemory_ConcurrentAdmitsAreCounted(t *testing.T) {
	m := NewMemory(50, time.Hour)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.Admit(context.Background(), "ip"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	if allowed.Load() != 50 {
		t.Fatalf("expected exactly 50 admitted, got %d", allowed.Load())
	}
}

func TestMemory_SweepEvictsElapsedWindows(t *testing.T) {
	m, now := newClockedMemory(3, time.Minute)
	ctx := context.Background()
	_, _ = m.Admit(ctx, "old")
	*now = now.Add(30 * time.Second)
	_, _ = m.Admit(ctx, "fresh")

	*now = now.Add(30 * time.Second)
	if n := m.sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 tracked key, got %d", m.Len())
	}
}

func TestMemory_RunStopsOnCancel(t *testing.T) {
	m := NewMemory(1, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

func newRedisLimiter(t *testing.T, max int, window time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedis(rdb, max, window), mr
}

func TestRedis_ThreeAllowedThenDenied(t *testing.T) {
	l, mr := newRedisLimiter(t, 3, 15*time.Minute)

	allowed, denied := admitN(t, l, "10.0.0.1", 4)
	if allowed != 3 || denied != 1 {
		t.Fatalf("got %d allowed / %d denied, want 3 / 1", allowed, denied)
	}
	if got, _ := mr.Get("rl:login:10.0.0.1"); got != "3" {
		t.Errorf("denied request must not increment, counter = %q", got)
	}

	mr.FastForward(15 * time.Minute)
	if ok, err := l.Admit(context.Background(), "10.0.0.1"); err != nil || !ok {
		t.Fatalf("expected allow after window, ok=%v err=%v", ok, err)
	}
}

func TestRedis_WindowTTLSetOnFirstRequest(t *testing.T) {
	l, mr := newRedisLimiter(t, 5, time.Minute)
	_, _ = admitN(t, l, "ip", 2)

	ttl := mr.TTL("rl:login:ip")
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestRedis_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer rdb.Close()

	l := NewRedis(rdb, 1, time.Minute)
	if _, err := l.Admit(context.Background(), "ip"); err == nil {
		t.Fatal("expected error when redis is down")
	}
}
