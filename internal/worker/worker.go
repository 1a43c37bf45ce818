package worker

// Worker runs jobs handed to it over its own channel.
type Worker struct {
	id         int
	pool       *workerPool
	jobChannel chan Job
}

func newWorker(id int, pool *workerPool) *Worker {
	return &Worker{
		id:         id,
		pool:       pool,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for job := range w.jobChannel {
			if job.stop {
				w.pool.retire(w.jobChannel)
				return
			}
			job.finish(job.run())
			alive := w.pool.Release(w.jobChannel)
			if w.pool.onDone != nil {
				w.pool.onDone(job.UserID)
			}
			if !alive {
				return
			}
		}
	}()
}
