package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bookstore/backoffice/internal/core/domain"
)

func newSecretRepoTest(t *testing.T) (*SecretRepository, *miniredis.Miniredis) {
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
	return NewSecretRepository(rdb, PrefixClientRefresh), mr
}

func testRecord(secret string, now time.Time, ttl time.Duration) domain.SecretRecord {
	return domain.SecretRecord{
		Secret:     secret,
		OwnerID:    "c1",
		OwnerEmail: "a@x.com",
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
}

func TestSecretRepository_ReplaceAndFind(t *testing.T) {
	repo, mr := newSecretRepoTest(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	if err := repo.Replace(ctx, testRecord("s1", now, time.Hour)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := repo.Replace(ctx, testRecord("s2", now, time.Hour)); err != nil {
		t.Fatalf("replace: %v", err)
	}

	rec, err := repo.FindByOwner(ctx, "c1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.Secret != "s2" || rec.OwnerEmail != "a@x.com" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !rec.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("expires_at = %v, want %v", rec.ExpiresAt, now.Add(time.Hour))
	}
	if got := mr.HGet("rt:client:c1", "secret"); got != "s2" {
		t.Errorf("stored secret = %q", got)
	}
}

func TestSecretRepository_FindMissing(t *testing.T) {
	repo, _ := newSecretRepoTest(t)
	if _, err := repo.FindByOwner(context.Background(), "nobody"); !errors.Is(err, domain.ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestSecretRepository_KeyExpiresWithRecord(t *testing.T) {
	repo, mr := newSecretRepoTest(t)
	ctx := context.Background()
	if err := repo.Replace(ctx, testRecord("s1", time.Now(), time.Minute)); err != nil {
		t.Fatalf("replace: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := repo.FindByOwner(ctx, "c1"); !errors.Is(err, domain.ErrSecretNotFound) {
		t.Fatalf("expected expired key to be gone, got %v", err)
	}
}

func TestSecretRepository_Swap(t *testing.T) {
	repo, _ := newSecretRepoTest(t)
	ctx := context.Background()
	now := time.Now()
	_ = repo.Replace(ctx, testRecord("s1", now, time.Hour))

	ok, err := repo.Swap(ctx, "c1", "s1", testRecord("s2", now, time.Hour), now)
	if err != nil || !ok {
		t.Fatalf("swap: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Swap(ctx, "c1", "s1", testRecord("s3", now, time.Hour), now)
	if err != nil || ok {
		t.Fatalf("replayed swap must not apply: ok=%v err=%v", ok, err)
	}

	rec, _ := repo.FindByOwner(ctx, "c1")
	if rec == nil || rec.Secret != "s2" {
		t.Fatalf("expected s2 to be current, got %+v", rec)
	}
}

func TestSecretRepository_Swap_Expired(t *testing.T) {
	repo, _ := newSecretRepoTest(t)
	ctx := context.Background()
	now := time.Now()
	_ = repo.Replace(ctx, testRecord("s1", now, time.Hour))

	later := now.Add(time.Hour)
	ok, err := repo.Swap(ctx, "c1", "s1", testRecord("s2", later, time.Hour), later)
	if err != nil || ok {
		t.Fatalf("swap at expiry must not apply: ok=%v err=%v", ok, err)
	}
}

func TestSecretRepository_Swap_Concurrent(t *testing.T) {
	repo, _ := newSecretRepoTest(t)
	ctx := context.Background()
	now := time.Now()
	_ = repo.Replace(ctx, testRecord("s1", now, time.Hour))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Swap(ctx, "c1", "s1", testRecord("next", now, time.Hour), now)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected a single swap, got %d", wins.Load())
	}
}

func TestSecretRepository_DeleteIfMatch(t *testing.T) {
	repo, _ := newSecretRepoTest(t)
	ctx := context.Background()
	now := time.Now()
	_ = repo.Replace(ctx, testRecord("code", now, time.Hour))

	if ok, _ := repo.DeleteIfMatch(ctx, "c1", "wrong", now); ok {
		t.Fatalf("mismatched secret must not delete")
	}
	if ok, err := repo.DeleteIfMatch(ctx, "c1", "code", now); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.DeleteIfMatch(ctx, "c1", "code", now); ok {
		t.Fatalf("second delete must report false")
	}
}

func TestSecretRepository_DeleteByOwner_Idempotent(t *testing.T) {
	repo, _ := newSecretRepoTest(t)
	ctx := context.Background()
	_ = repo.Replace(ctx, testRecord("s1", time.Now(), time.Hour))

	for i := 0; i < 2; i++ {
		if err := repo.DeleteByOwner(ctx, "c1"); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if _, err := repo.FindByOwner(ctx, "c1"); !errors.Is(err, domain.ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestSecretRepositories_PrefixesAreDisjoint(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	repos := NewSecretRepositories(rdb)
	ctx := context.Background()
	_ = repos.ClientRefresh.Replace(ctx, testRecord("refresh", time.Now(), time.Hour))

	if _, err := repos.ClientReset.FindByOwner(ctx, "c1"); !errors.Is(err, domain.ErrSecretNotFound) {
		t.Fatalf("reset store must not see refresh secrets, got %v", err)
	}
	if _, err := repos.EmployeeRefresh.FindByOwner(ctx, "c1"); !errors.Is(err, domain.ErrSecretNotFound) {
		t.Fatalf("employee store must not see client secrets, got %v", err)
	}
}
