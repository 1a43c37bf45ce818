package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewManager(cfg, nil)
	t.Cleanup(m.Stop)
	return m
}

// blocker returns a job that signals when it starts and waits for release.
func blocker() (fn func(context.Context) error, started chan struct{}, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	fn = func(context.Context) error {
		close(started)
		<-release
		return nil
	}
	return fn, started, release
}

func pendingFor(m *Manager, userID int64) int {
	d := m.dispatcher
	d.mu.Lock()
	defer d.mu.Unlock()
	if q := d.queues[userID]; q != nil {
		return len(q.jobs)
	}
	return 0
}

func inFlight(m *Manager, userID int64) bool {
	d := m.dispatcher
	d.mu.Lock()
	defer d.mu.Unlock()
	q := d.queues[userID]
	return q != nil && q.inFlight
}

func TestManagerDoReturnsJobResult(t *testing.T) {
	m := newTestManager(t, Config{MinWorkers: 1, MaxWorkers: 2, QueueSize: 4})
	wantErr := errors.New("boom")

	require.NoError(t, m.Do(context.Background(), 1, func(context.Context) error { return nil }))
	assert.ErrorIs(t, m.Do(context.Background(), 1, func(context.Context) error { return wantErr }), wantErr)

	err := m.Do(context.Background(), 1, func(context.Context) error { panic("bad job") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad job")

	// the pool survives a panicking job
	require.NoError(t, m.Do(context.Background(), 1, func(context.Context) error { return nil }))
}

func TestManagerSerializesPerUser(t *testing.T) {
	m := newTestManager(t, Config{MinWorkers: 4, MaxWorkers: 4, QueueSize: 64})

	var running, maxSeen int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Do(context.Background(), 7, func(context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					cur := atomic.LoadInt32(&maxSeen)
					if n <= cur || atomic.CompareAndSwapInt32(&maxSeen, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
}

func TestManagerKeepsSubmissionOrder(t *testing.T) {
	m := newTestManager(t, Config{MinWorkers: 2, MaxWorkers: 2, QueueSize: 16})

	first, started, release := blocker()
	go func() { _ = m.Do(context.Background(), 3, first) }()
	<-started

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 1; i <= 4; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do(context.Background(), 3, func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		require.Eventually(t, func() bool { return pendingFor(m, 3) == i }, time.Second, time.Millisecond)
	}
	close(release)
	wg.Wait()
	assert.Equal(t, []int{1, 2, 3, 4}, order)
}

func TestManagerOtherUsersNotBlocked(t *testing.T) {
	m := newTestManager(t, Config{MinWorkers: 2, MaxWorkers: 2, QueueSize: 8})

	fn, started, release := blocker()
	defer close(release)
	go func() { _ = m.Do(context.Background(), 1, fn) }()
	<-started

	done := make(chan error, 1)
	go func() { done <- m.Do(context.Background(), 2, func(context.Context) error { return nil }) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("user 2 was blocked by user 1")
	}
}

func TestManagerBusyWhenQueueFull(t *testing.T) {
	m := newTestManager(t, Config{MinWorkers: 1, MaxWorkers: 1, QueueSize: 1})

	fn, started, release := blocker()
	go func() { _ = m.Do(context.Background(), 1, fn) }()
	<-started

	// the dispatcher takes this one and then waits for a free worker
	go func() { _ = m.Do(context.Background(), 2, func(context.Context) error { return nil }) }()
	require.Eventually(t, func() bool { return inFlight(m, 2) }, time.Second, time.Millisecond)

	// this one stays in the channel
	go func() { _ = m.Do(context.Background(), 3, func(context.Context) error { return nil }) }()
	require.Eventually(t, func() bool { return len(m.dispatcher.JobQueue) == 1 }, time.Second, time.Millisecond)

	err := m.Do(context.Background(), 4, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrDispatcherBusy)
	close(release)
}

func TestManagerResetUserCancelsPending(t *testing.T) {
	m := newTestManager(t, Config{MinWorkers: 2, MaxWorkers: 2, QueueSize: 8})

	fn, started, release := blocker()
	go func() { _ = m.Do(context.Background(), 5, fn) }()
	<-started

	var ran int32
	result := make(chan error, 1)
	go func() {
		result <- m.Do(context.Background(), 5, func(context.Context) error {
			atomic.StoreInt32(&ran, 1)
			return nil
		})
	}()
	require.Eventually(t, func() bool { return pendingFor(m, 5) == 1 }, time.Second, time.Millisecond)

	m.ResetUser(5)
	assert.ErrorIs(t, <-result, ErrJobCanceled)
	close(release)

	require.NoError(t, m.Do(context.Background(), 5, func(context.Context) error { return nil }))
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestManagerSkipsJobWhenCallerGaveUp(t *testing.T) {
	m := newTestManager(t, Config{MinWorkers: 2, MaxWorkers: 2, QueueSize: 8})

	fn, started, release := blocker()
	go func() { _ = m.Do(context.Background(), 6, fn) }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran int32
	result := make(chan error, 1)
	go func() {
		result <- m.Do(ctx, 6, func(context.Context) error {
			atomic.StoreInt32(&ran, 1)
			return nil
		})
	}()
	require.Eventually(t, func() bool { return pendingFor(m, 6) == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-result, context.Canceled)
	close(release)

	// a later job for the same user runs after the skipped one
	require.NoError(t, m.Do(context.Background(), 6, func(context.Context) error { return nil }))
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestManagerStop(t *testing.T) {
	m := NewManager(Config{MinWorkers: 1, MaxWorkers: 1, QueueSize: 2}, nil)
	require.NoError(t, m.Do(context.Background(), 1, func(context.Context) error { return nil }))
	m.Stop()
	m.Stop()
	assert.ErrorIs(t, m.Do(context.Background(), 1, func(context.Context) error { return nil }), ErrStopped)
}

func TestPoolRetiresIdleWorkersAboveMin(t *testing.T) {
	p := newWorkerPool(1, 3, time.Hour, nil)
	defer p.close()

	var slots []*slot
	for i := 0; i < 3; i++ {
		slots = append(slots, p.acquire())
	}
	running, _ := p.size()
	require.Equal(t, 3, running)

	for _, s := range slots {
		require.True(t, p.Release(s.ch))
	}
	p.mu.Lock()
	for _, s := range p.idle {
		s.lastUsed = time.Now().Add(-2 * time.Hour)
	}
	p.mu.Unlock()

	p.retireExpired()
	require.Eventually(t, func() bool {
		running, idle := p.size()
		return running == 1 && idle == 1
	}, time.Second, time.Millisecond)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{MinWorkers: 3, MaxWorkers: 1}.withDefaults()
	assert.Equal(t, 3, cfg.MaxWorkers)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, defaultIdleTimeout, cfg.IdleTimeout)
}
