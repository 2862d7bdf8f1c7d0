package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestPostingLockKey(t *testing.T) {
	assert.Equal(t, "posting:invoice:42", postingLockKey("invoice", 42))
}

type countingLease struct {
	mu        sync.Mutex
	refreshes int
	released  int
	failAfter int
}

func (l *countingLease) Refresh(_ context.Context, _ time.Duration, _ *redislock.Options) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshes++
	if l.failAfter > 0 && l.refreshes >= l.failAfter {
		return redislock.ErrNotObtained
	}
	return nil
}

func (l *countingLease) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released++
	return nil
}

func (l *countingLease) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshes, l.released
}

func TestPostingLockLeaseIsRefreshed(t *testing.T) {
	lease := &countingLease{}
	release := keepAlive(lease, "posting:invoice:1", 20*time.Millisecond, nil)

	assert.Eventually(t, func() bool {
		refreshes, _ := lease.counts()
		return refreshes >= 3
	}, time.Second, 5*time.Millisecond)

	release()
	release()
	refreshes, released := lease.counts()
	assert.Equal(t, 1, released)

	time.Sleep(40 * time.Millisecond)
	after, _ := lease.counts()
	assert.Equal(t, refreshes, after, "no refresh after release")
}

func TestPostingLockRefreshStopsOnLoss(t *testing.T) {
	lease := &countingLease{failAfter: 2}
	release := keepAlive(lease, "posting:payment:3", 10*time.Millisecond, logrus.New())

	assert.Eventually(t, func() bool {
		refreshes, _ := lease.counts()
		return refreshes >= 2
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	refreshes, _ := lease.counts()
	assert.Equal(t, 2, refreshes)

	release()
	_, released := lease.counts()
	assert.Equal(t, 1, released)
}
