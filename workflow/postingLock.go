package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/sirupsen/logrus"
)

const (
	postingLockTTL     = 30 * time.Second
	postingLockRetries = 60
)

var ErrPostingLockBusy = errors.New("document is being posted by another request")

// PostingLocker serializes post/unpost of one document across requests.
// The returned release func must always be called.
type PostingLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

func postingLockKey(docType models.DocumentType, id int) string {
	return fmt.Sprintf("posting:%s:%d", docType, id)
}

// RedisPostingLocker holds the lock in Redis so every instance sees it.
// The lease is refreshed every TTL/2 until released, so a long post keeps it.
type RedisPostingLocker struct {
	Client *redislock.Client
	TTL    time.Duration
	Logger *logrus.Logger
}

// lockLease is the part of *redislock.Lock the keep-alive needs.
type lockLease interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

func (l *RedisPostingLocker) Lock(ctx context.Context, key string) (func(), error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = postingLockTTL
	}
	lock, err := l.Client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(500*time.Millisecond), postingLockRetries),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("%s: %w", key, ErrPostingLockBusy)
		}
		return nil, err
	}
	return keepAlive(lock, key, ttl, l.Logger), nil
}

// keepAlive refreshes the lease until the returned release func runs. A failed
// refresh stops the loop; the lease then expires on its own.
func keepAlive(lease lockLease, key string, ttl time.Duration, logger *logrus.Logger) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := lease.Refresh(context.Background(), ttl, nil); err != nil {
					config.LogWarning(logger, "postingLock.go", "keepAlive", "posting lock refresh failed", map[string]interface{}{"key": key, "error": err.Error()})
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// the lock expires on its own if release fails
			_ = lease.Release(context.Background())
		})
	}
}

// LocalPostingLocker is a keyed mutex for a single process (tests, CLI runs without Redis).
type LocalPostingLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalPostingLocker() *LocalPostingLocker {
	return &LocalPostingLocker{locks: make(map[string]*localLock)}
}

func (l *LocalPostingLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, entry)
		return nil, ctx.Err()
	}
	return func() {
		<-entry.ch
		l.drop(key, entry)
	}, nil
}

func (l *LocalPostingLocker) drop(key string, entry *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

// DefaultPostingLocker uses Redis when it is connected.
func DefaultPostingLocker() PostingLocker {
	if client := config.GetRedisLock(); client != nil {
		return &RedisPostingLocker{Client: client, TTL: postingLockTTL}
	}
	return NewLocalPostingLocker()
}
