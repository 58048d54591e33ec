package telemetry

import (
	"sync"
	"time"
)

// faultState holds the optional active fault. It is the only generator state
// mutated from outside the tick loop (fault injection arrives from the API
// handler goroutine), so it carries its own lock.
type faultState struct {
	mu      sync.Mutex
	kind    FaultKind
	expires time.Time
	timer   *time.Timer

	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
	onClear   func(FaultKind)
}

func newFaultState(clock func() time.Time, afterFunc func(time.Duration, func()) *time.Timer, onClear func(FaultKind)) *faultState {
	if afterFunc == nil {
		afterFunc = time.AfterFunc
	}
	return &faultState{now: clock, afterFunc: afterFunc, onClear: onClear}
}

// inject activates a fault and schedules its automatic removal. An already
// active fault is replaced and its pending removal cancelled.
func (f *faultState) inject(kind FaultKind, duration time.Duration) {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.kind = kind
	f.expires = f.now().Add(duration)
	f.timer = f.afterFunc(duration, func() { f.clear(true) })
	f.mu.Unlock()
}

// active returns the current fault, clearing it synchronously if the expiry
// time has already passed. The tick loop never waits on the removal timer.
func (f *faultState) active() (FaultKind, bool) {
	f.mu.Lock()
	if f.kind == "" {
		f.mu.Unlock()
		return "", false
	}
	if !f.now().Before(f.expires) {
		f.mu.Unlock()
		f.clear(true)
		return "", false
	}
	kind := f.kind
	f.mu.Unlock()
	return kind, true
}

// clear removes the active fault. It is idempotent: the scheduled timer and a
// synchronous expiry check may race to clear the same fault.
func (f *faultState) clear(notify bool) {
	f.mu.Lock()
	if f.kind == "" {
		f.mu.Unlock()
		return
	}
	kind := f.kind
	f.kind = ""
	f.expires = time.Time{}
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()
	if notify && f.onClear != nil {
		f.onClear(kind)
	}
}

// stop cancels any pending removal timer without firing it.
func (f *faultState) stop() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()
}
