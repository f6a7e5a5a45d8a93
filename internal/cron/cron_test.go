package cron

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type memStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func TestRedisLock_AcquireIsExclusive(t *testing.T) {
	store := newMemStore()
	first, err := NewRedisLock(store, "cs:lock:test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, err := NewRedisLock(store, "cs:lock:test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ok, err := first.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = second.Acquire(context.Background())
	if err != nil || ok {
		t.Fatalf("second acquire should be rejected: ok=%v err=%v", ok, err)
	}

	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestRedisLock_ReleaseOnlyOwnLock(t *testing.T) {
	store := newMemStore()
	stale, err := NewRedisLock(store, "cs:lock:test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if ok, _ := stale.Acquire(context.Background()); !ok {
		t.Fatalf("acquire failed")
	}

	// Simulate TTL expiry followed by another worker taking the lock.
	require := func(err error) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require(store.Del(context.Background(), "cs:lock:test"))
	other, err := NewRedisLock(store, "cs:lock:test", time.Minute)
	require(err)
	if ok, _ := other.Acquire(context.Background()); !ok {
		t.Fatalf("other acquire failed")
	}

	require(stale.Release(context.Background()))
	if _, err := store.Get(context.Background(), "cs:lock:test"); err != nil {
		t.Fatalf("stale release must not steal the new owner's lock: %v", err)
	}
}

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

type stubLock struct {
	locked   bool
	acquired int
	released int
}

func (l *stubLock) Acquire(ctx context.Context) (bool, error) {
	l.acquired++
	return !l.locked, nil
}

func (l *stubLock) Release(ctx context.Context) error {
	l.released++
	return nil
}

func TestRunner_RunsJobsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "draft-purge"}
	failing := &countingJob{name: "other", err: errors.New("boom")}
	lock := &stubLock{}
	runner, err := NewRunner(RunnerParams{
		Logger: testLogger(),
		Lock:   lock,
		Jobs:   []Job{job, failing},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	if err := runner.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected each job to run once, got %d/%d", job.runs, failing.runs)
	}
	if lock.released != 1 {
		t.Fatalf("lock must be released after the cycle")
	}
}

func TestRunner_SkipsCycleWithoutLock(t *testing.T) {
	job := &countingJob{name: "draft-purge"}
	runner, err := NewRunner(RunnerParams{
		Logger: testLogger(),
		Lock:   &stubLock{locked: true},
		Jobs:   []Job{job},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	if err := runner.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock, ran %d times", job.runs)
	}
}

type fakePurger struct {
	purged int64
	err    error
	gotNow time.Time
}

func (f *fakePurger) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	f.gotNow = now
	return f.purged, f.err
}

func TestDraftPurgeJob(t *testing.T) {
	purger := &fakePurger{purged: 3}
	job, err := NewDraftPurgeJob(testLogger(), purger)
	if err != nil {
		t.Fatalf("NewDraftPurgeJob: %v", err)
	}
	if job.Name() != "draft-purge" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if purger.gotNow.IsZero() {
		t.Fatalf("expected purge cutoff to be passed")
	}

	purger.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error to propagate")
	}
}
