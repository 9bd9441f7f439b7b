package redundancy

import (
	"context"
	"time"
)

// loop is a single-goroutine cooperative executor. Every piece of engine
// state is only ever touched by closures running on it, so the fleet and
// policy need no locks; mutual exclusion between logical operations is the
// status flag alone.
type loop struct {
	tasks chan func()
}

func newLoop() *loop {
	return &loop{tasks: make(chan func(), 256)}
}

// run drains tasks until the context is cancelled. It is the only place
// engine closures execute.
func (l *loop) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-l.tasks:
			task()
		}
	}
}

// post schedules fn on the loop goroutine.
func (l *loop) post(fn func()) {
	l.tasks <- fn
}

// call posts fn and waits for it to finish. Used by the HTTP surface to
// read or mutate engine state from other goroutines.
func (l *loop) call(fn func()) {
	done := make(chan struct{})
	l.post(func() {
		fn()
		close(done)
	})
	<-done
}

// timerSlot is a rearm-or-replace one-shot timer owned by the loop. Arming
// while a wait is pending supersedes it: the old continuation still runs
// exactly once, with aborted=true, before the new wait is registered. This
// mirrors the cancellation discipline the engine relies on (a superseded
// settle continuation must still reset status without writing).
type timerSlot struct {
	loop    *loop
	gen     uint64
	timer   *time.Timer
	pending func(aborted bool)
}

func newTimerSlot(l *loop) *timerSlot {
	return &timerSlot{loop: l}
}

// arm must be called from the loop goroutine.
func (t *timerSlot) arm(d time.Duration, fn func(aborted bool)) {
	t.cancel()
	gen := t.gen
	t.pending = fn
	t.timer = time.AfterFunc(d, func() {
		t.loop.post(func() {
			if gen != t.gen || t.pending == nil {
				// superseded while the fire was in flight
				return
			}
			fire := t.pending
			t.pending = nil
			fire(false)
		})
	})
}

// cancel must be called from the loop goroutine. A pending continuation is
// delivered synchronously with aborted=true.
func (t *timerSlot) cancel() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.pending != nil {
		aborted := t.pending
		t.pending = nil
		aborted(true)
	}
}

// armed reports whether a wait is outstanding.
func (t *timerSlot) armed() bool {
	return t.pending != nil
}
