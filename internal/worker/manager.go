package worker

import (
	"context"
	"sync"
	"time"

	"wellnessconnect/internal/config"
	"wellnessconnect/internal/logger"
)

// Config sizes the worker pool.
type Config struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinWorkers <= 0 {
		c.MinWorkers = 2
	}
	if c.MaxWorkers < c.MinWorkers {
		c.MaxWorkers = c.MinWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	return c
}

// ConfigFrom reads pool sizing from the basic config section.
func ConfigFrom(b config.BasicConfig) Config {
	return Config{
		MinWorkers:  b.MinWorkers,
		MaxWorkers:  b.MaxWorkers,
		QueueSize:   b.QueueSize,
		IdleTimeout: time.Duration(b.WorkerIdleTimeout) * time.Minute,
	}
}

// Manager is the entry point handlers use to run per-user serialized work.
type Manager struct {
	dispatcher *Dispatcher

	mu      sync.RWMutex
	stopped bool
}

func NewManager(cfg Config, log *logger.Logger) *Manager {
	return &Manager{dispatcher: NewDispatcher(cfg, log)}
}

// Do runs fn on a worker after every earlier job of userID has finished and
// waits for its result. A full queue yields ErrDispatcherBusy. If ctx ends
// before fn starts, fn is skipped.
func (m *Manager) Do(ctx context.Context, userID int64, fn func(context.Context) error) error {
	result := make(chan error, 1)
	job := Job{UserID: userID, ctx: ctx, fn: fn, result: result}

	m.mu.RLock()
	if m.stopped {
		m.mu.RUnlock()
		return ErrStopped
	}
	select {
	case m.dispatcher.JobQueue <- job:
	default:
		m.mu.RUnlock()
		return ErrDispatcherBusy
	}
	m.mu.RUnlock()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResetUser drops jobs the user has queued but not started.
func (m *Manager) ResetUser(userID int64) {
	m.dispatcher.CancelUser(userID)
}

// Stop shuts the pool down. Later calls to Do return ErrStopped.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()
	m.dispatcher.Stop()
}
