package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedisStore struct {
	values map[string]string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: map[string]string{}}
}

func (f *fakeRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedisStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockAcquireAndRelease(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "df:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected to acquire free lock")
	}

	other, err := NewRedisLock(store, "df:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	ok, err = other.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if ok {
		t.Fatal("second instance must not acquire a held lock")
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	ok, err = other.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected to acquire lock after release")
	}
}

func TestRedisLockReleaseOnlyByOwner(t *testing.T) {
	store := newFakeRedisStore()
	holder, _ := NewRedisLock(store, "df:lock:cron", time.Minute)
	intruder, _ := NewRedisLock(store, "df:lock:cron", time.Minute)

	if ok, _ := holder.Acquire(context.Background()); !ok {
		t.Fatal("expected holder to acquire")
	}
	// intruder never acquired, its release must be a no-op
	if err := intruder.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok := store.values["df:lock:cron"]; !ok {
		t.Fatal("lock must survive a release by a non-owner")
	}
}
