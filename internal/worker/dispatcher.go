package worker

import (
	"container/list"
	"sync"

	"wellnessconnect/internal/logger"
)

type userQueue struct {
	jobs     []Job
	enqueued bool // present in the ready list
	inFlight bool // a job of this user is running
}

// Dispatcher feeds jobs to the pool, serving users round-robin and never
// running two jobs of one user at the same time.
type Dispatcher struct {
	pool     *workerPool
	JobQueue chan Job
	log      *logger.Logger

	mu        sync.Mutex
	queues    map[int64]*userQueue
	ready     *list.List // users with a dispatchable job, oldest first
	positions map[int64]*list.Element

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func NewDispatcher(cfg Config, log *logger.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		JobQueue:  make(chan Job, cfg.QueueSize),
		log:       logger.OrNop(log),
		queues:    make(map[int64]*userQueue),
		ready:     list.New(),
		positions: make(map[int64]*list.Element),
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	d.pool = newWorkerPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.IdleTimeout, d.complete)
	for i := 0; i < cfg.MinWorkers; i++ {
		d.pool.warm()
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		if d.dispatchOne() {
			select {
			case job := <-d.JobQueue:
				d.enqueueJob(job)
			default:
			}
			continue
		}
		select {
		case job := <-d.JobQueue:
			d.enqueueJob(job)
		case <-d.wake:
		case <-d.quit:
			return
		}
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.UserID]
	if q == nil {
		q = &userQueue{}
		d.queues[job.UserID] = q
	}
	q.jobs = append(q.jobs, job)
	if !q.inFlight && !q.enqueued {
		d.pushReadyLocked(job.UserID, q)
	}
}

func (d *Dispatcher) pushReadyLocked(userID int64, q *userQueue) {
	q.enqueued = true
	d.positions[userID] = d.ready.PushBack(userID)
}

// dispatchOne hands the next job of the front user to a worker.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	elem := d.ready.Front()
	if elem == nil {
		d.mu.Unlock()
		return false
	}
	userID := elem.Value.(int64)
	q := d.queues[userID]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.inFlight = true
	q.enqueued = false
	d.ready.Remove(elem)
	delete(d.positions, userID)
	d.mu.Unlock()

	s := d.pool.acquire()
	if s == nil {
		job.finish(ErrStopped)
		d.complete(userID)
		return false
	}
	d.debugLog("assign job", "kind", job.kind(), "user_id", userID, "worker", s.id)
	s.ch <- job
	return true
}

// complete is called by a worker after a job of userID finished.
func (d *Dispatcher) complete(userID int64) {
	d.mu.Lock()
	if q := d.queues[userID]; q != nil {
		q.inFlight = false
		if len(q.jobs) > 0 {
			if !q.enqueued {
				d.pushReadyLocked(userID, q)
			}
		} else {
			delete(d.queues, userID)
		}
	}
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// CancelUser drops the user's pending jobs. A job already running finishes.
func (d *Dispatcher) CancelUser(userID int64) int {
	d.mu.Lock()
	q := d.queues[userID]
	if q == nil {
		d.mu.Unlock()
		return 0
	}
	dropped := q.jobs
	q.jobs = nil
	if elem, ok := d.positions[userID]; ok {
		d.ready.Remove(elem)
		delete(d.positions, userID)
	}
	q.enqueued = false
	if !q.inFlight {
		delete(d.queues, userID)
	}
	d.mu.Unlock()

	for _, job := range dropped {
		job.finish(ErrJobCanceled)
	}
	if len(dropped) > 0 {
		d.debugLog("canceled pending jobs", "user_id", userID, "count", len(dropped))
	}
	return len(dropped)
}

// Stop halts dispatching and fails every job that has not started.
func (d *Dispatcher) Stop() {
	close(d.quit)
	d.pool.close()
	<-d.done

	d.mu.Lock()
	var pending []Job
	for _, q := range d.queues {
		pending = append(pending, q.jobs...)
		q.jobs = nil
	}
	d.ready.Init()
	d.positions = make(map[int64]*list.Element)
	d.mu.Unlock()

	for {
		select {
		case job := <-d.JobQueue:
			pending = append(pending, job)
			continue
		default:
		}
		break
	}
	for _, job := range pending {
		job.finish(ErrStopped)
	}
}
