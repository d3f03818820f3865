package strikes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

// Locker serializes work on a key. The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// KeyedMutex is an in-process Locker.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry := k.locks[key]
	if entry == nil {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			k.release(key, entry)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, entry *keyedEntry) {
	k.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// RedisLocker serializes across bot instances with redsync. A held lock is
// extended every half expiry until released, so a slow holder never loses it.
type RedisLocker struct {
	rs     *redsync.Redsync
	prefix string
	expiry time.Duration
	retry  time.Duration
	// maxWait bounds Lock when the caller's context has no deadline.
	maxWait time.Duration
}

func NewRedisLocker(client goredislib.UniversalClient, prefix string, expiry time.Duration) *RedisLocker {
	if expiry <= 0 {
		expiry = 30 * time.Second
	}
	return &RedisLocker{
		rs:      redsync.New(goredis.NewPool(client)),
		prefix:  prefix,
		expiry:  expiry,
		retry:   50 * time.Millisecond,
		maxWait: 2 * time.Minute,
	}
}

// Lock retries until the lock is acquired or ctx is done.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if _, ok := ctx.Deadline(); !ok && r.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.maxWait)
		defer cancel()
	}

	mutex := r.rs.NewMutex(r.prefix+key,
		redsync.WithExpiry(r.expiry),
		redsync.WithTries(1),
	)
	for {
		err := mutex.TryLockContext(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w (last attempt: %v)", key, ctx.Err(), err)
		case <-time.After(r.retry):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(mutex, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// an expired lock has already been released
			_, _ = mutex.UnlockContext(context.Background())
		})
	}, nil
}

func (r *RedisLocker) keepAlive(mutex *redsync.Mutex, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.expiry / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if ok, err := mutex.ExtendContext(context.Background()); !ok || err != nil {
				return
			}
		}
	}
}
