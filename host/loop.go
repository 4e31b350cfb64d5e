package host

import (
	"context"
	"sync"
)

// loop is the host's single logical thread. Tasks posted from any goroutine
// run one at a time, in post order, on the loop goroutine.
type loop struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool
	after   func()
}

func newLoop(after func()) *loop {
	return &loop{
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
		after: after,
	}
}

// post queues a task. Returns false once the loop has been stopped.
func (l *loop) post(task func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// call runs task on the loop and waits for its result. If ctx ends first the
// task still runs, but its result is discarded.
func (l *loop) call(ctx context.Context, task func() error) error {
	result := make(chan error, 1)
	if !l.post(func() {
		result <- task()
	}) {
		return errLoopStopped
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			if l.stopped {
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			<-l.wake
			continue
		}
		task := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		task()
		if l.after != nil {
			l.after()
		}
	}
}

// stop rejects further posts, lets queued tasks drain and waits for the
// loop goroutine to exit.
func (l *loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}
