package worker

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDispatcherBusy = errors.New("dispatcher busy")
	ErrJobCanceled    = errors.New("job canceled")
	ErrStopped        = errors.New("worker manager stopped")
)

// Job is one unit of work bound to a user. Jobs of the same user run one at a
// time in submission order.
type Job struct {
	UserID int64

	ctx    context.Context
	fn     func(context.Context) error
	result chan error
	stop   bool
}

func (j Job) kind() string {
	if j.stop {
		return "stop"
	}
	return "run"
}

// run executes the job unless its caller already gave up.
func (j Job) run() (err error) {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return j.fn(j.ctx)
}

func (j Job) finish(err error) {
	if j.result != nil {
		j.result <- err
	}
}
