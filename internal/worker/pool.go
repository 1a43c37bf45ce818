package worker

import (
	"sync"
	"time"
)

type slot struct {
	id        int
	ch        chan Job
	lastUsed  time.Time
	enqueued  bool // in the idle queue
	discarded bool // marked for removal
}

// workerPool keeps between min and max workers alive. Idle workers above
// min are retired after expiry.
type workerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	idle    []*slot
	slots   map[chan Job]*slot
	min     int
	max     int
	running int
	nextID  int
	expiry  time.Duration
	closed  bool
	quit    chan struct{}
	onDone  func(userID int64)
}

const defaultIdleTimeout = 30 * time.Second

func newWorkerPool(minWorkers, maxWorkers int, idle time.Duration, onDone func(int64)) *workerPool {
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	if minWorkers < 1 {
		minWorkers = 1
	}
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	p := &workerPool{
		slots:  make(map[chan Job]*slot),
		min:    minWorkers,
		max:    maxWorkers,
		expiry: idle,
		quit:   make(chan struct{}),
		onDone: onDone,
	}
	p.cond = sync.NewCond(&p.mu)
	go p.reapIdle()
	return p
}

// spawnLocked registers a new worker; the caller starts it after unlocking.
func (p *workerPool) spawnLocked() *Worker {
	p.nextID++
	w := newWorker(p.nextID, p)
	p.slots[w.jobChannel] = &slot{id: w.id, ch: w.jobChannel}
	p.running++
	return w
}

// warm starts a worker that goes straight to the idle list.
func (p *workerPool) warm() {
	p.mu.Lock()
	if p.running >= p.max || p.closed {
		p.mu.Unlock()
		return
	}
	w := p.spawnLocked()
	p.mu.Unlock()
	w.Start()
	p.Release(w.jobChannel)
}

// acquire returns an idle worker, spawning one when under max and blocking
// otherwise. It returns nil once the pool is closed.
func (p *workerPool) acquire() *slot {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.closed {
			return nil
		}
		if s := p.takeIdleLocked(); s != nil {
			return s
		}
		if p.running < p.max {
			w := p.spawnLocked()
			w.Start()
			return p.slots[w.jobChannel]
		}
		p.cond.Wait()
	}
}

// Release puts a worker back on the idle list. It reports false when the
// worker should exit instead.
func (p *workerPool) Release(ch chan Job) bool {
	p.mu.Lock()
	s, ok := p.slots[ch]
	if !ok || s.discarded {
		p.mu.Unlock()
		return false
	}
	if p.closed {
		p.removeLocked(ch, s)
		p.mu.Unlock()
		p.cond.Broadcast()
		return false
	}
	if !s.enqueued {
		s.enqueued = true
		s.lastUsed = time.Now()
		p.idle = append(p.idle, s)
	}
	p.mu.Unlock()
	p.cond.Signal()
	return true
}

func (p *workerPool) retire(ch chan Job) {
	p.mu.Lock()
	if s, ok := p.slots[ch]; ok {
		p.removeLocked(ch, s)
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *workerPool) removeLocked(ch chan Job, s *slot) {
	delete(p.slots, ch)
	s.discarded = true
	if p.running > 0 {
		p.running--
	}
}

func (p *workerPool) takeIdleLocked() *slot {
	for len(p.idle) > 0 {
		s := p.idle[0]
		p.idle = p.idle[1:]
		if s.discarded {
			continue
		}
		s.enqueued = false
		return s
	}
	return nil
}

func (p *workerPool) reapIdle() {
	ticker := time.NewTicker(p.expiry)
	defer ticker.Stop()
	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
			p.retireExpired()
		}
	}
}

// retireExpired retires idle workers unused for longer than expiry while
// keeping at least min alive.
func (p *workerPool) retireExpired() {
	var stale []*slot
	now := time.Now()

	p.mu.Lock()
	if len(p.idle) == 0 || p.running <= p.min {
		p.mu.Unlock()
		return
	}
	remaining := p.idle[:0]
	for _, s := range p.idle {
		if s.discarded {
			continue
		}
		if now.Sub(s.lastUsed) >= p.expiry && p.running-len(stale) > p.min {
			s.enqueued = false
			stale = append(stale, s)
			continue
		}
		remaining = append(remaining, s)
	}
	p.idle = remaining
	p.mu.Unlock()

	for _, s := range stale {
		s.ch <- Job{stop: true}
	}
}

// close stops idle workers; busy ones exit when they next release.
func (p *workerPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	p.cond.Broadcast()

	for _, s := range idle {
		if !s.discarded {
			s.ch <- Job{stop: true}
		}
	}
}

func (p *workerPool) size() (running, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running, len(p.idle)
}
