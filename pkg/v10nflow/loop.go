package v10nflow

import (
	"sync"
	"time"
)

// loop runs tasks and timer ticks one at a time on a single goroutine.
type loop struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

func newLoop() *loop {
	return &loop{
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
}

// run blocks until stop is called. tickC is evaluated on every
// iteration so the caller may swap timers from within tasks.
func (l *loop) run(tickC func() <-chan time.Time, onTick func()) {
	for {
		select {
		case <-l.done:
			return
		case task := <-l.tasks:
			task()
		case <-tickC():
			onTick()
		}
	}
}

// call runs fn on the loop and waits for it to finish. It returns false
// without running fn if the loop has been stopped.
func (l *loop) call(fn func()) bool {
	finished := make(chan struct{})
	select {
	case l.tasks <- func() {
		defer close(finished)
		fn()
	}:
	case <-l.done:
		return false
	}
	// Once handed over, the task always runs to completion.
	<-finished
	return true
}

func (l *loop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}
