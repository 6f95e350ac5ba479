// Package scheduler provides the frame and timer source that drives graph
// views. Browser hosts back it with requestAnimationFrame; Go hosts use a
// Ticker, and tests single-step a Manual scheduler.
package scheduler

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Handle identifies a scheduled callback.
type Handle uint64

// Scheduler schedules animation frames and one-shot timers.
type Scheduler interface {
	// ScheduleFrame runs fn on the next frame.
	ScheduleFrame(fn func()) Handle
	// After runs fn once d has elapsed.
	After(d time.Duration, fn func()) Handle
	// Cancel drops a pending callback. Unknown or already-run handles are ignored.
	Cancel(h Handle)
}

// PanicHandler receives a recovered callback panic together with its stack.
type PanicHandler func(h Handle, err interface{}, stack []byte)

func logPanic(h Handle, err interface{}, stack []byte) {
	slog.Error("scheduled callback panicked", "handle", uint64(h), "err", fmt.Sprint(err), "stack", string(stack))
}

func run(h Handle, fn func(), onPanic PanicHandler) {
	defer func() {
		if r := recover(); r != nil {
			if onPanic == nil {
				onPanic = logPanic
			}
			onPanic(h, r, debug.Stack())
		}
	}()
	fn()
}

type entry struct {
	handle Handle
	fn     func()
	due    time.Duration
}

// Manual is a deterministic scheduler. Frames run only when Step is called
// and timers fire only when Advance moves the virtual clock past them.
type Manual struct {
	mu      sync.Mutex
	nextID  Handle
	now     time.Duration
	frames  []entry
	timers  []entry
	OnPanic PanicHandler
}

// NewManual creates a manual scheduler with its clock at zero.
func NewManual() *Manual {
	return &Manual{nextID: 1}
}

func (m *Manual) id() Handle {
	h := m.nextID
	m.nextID++
	return h
}

// ScheduleFrame implements Scheduler.
func (m *Manual) ScheduleFrame(fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.id()
	m.frames = append(m.frames, entry{handle: h, fn: fn})
	return h
}

// After implements Scheduler.
func (m *Manual) After(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.id()
	m.timers = append(m.timers, entry{handle: h, fn: fn, due: m.now + d})
	return h
}

// Cancel implements Scheduler.
func (m *Manual) Cancel(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = remove(m.frames, h)
	m.timers = remove(m.timers, h)
}

func remove(list []entry, h Handle) []entry {
	for i, e := range list {
		if e.handle == h {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// Step runs the frames queued before the call and reports how many ran.
// Frames scheduled from inside a frame wait for the next Step.
func (m *Manual) Step() int {
	m.mu.Lock()
	batch := m.frames
	m.frames = nil
	m.mu.Unlock()

	for _, e := range batch {
		run(e.handle, e.fn, m.OnPanic)
	}
	return len(batch)
}

// StepN calls Step n times and reports the total number of frames run.
func (m *Manual) StepN(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += m.Step()
	}
	return total
}

// Advance moves the clock forward by d and fires every timer now due, in
// due order.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	m.now += d
	var due, rest []entry
	for _, e := range m.timers {
		if e.due <= m.now {
			due = append(due, e)
		} else {
			rest = append(rest, e)
		}
	}
	m.timers = rest
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].due < due[j].due })
	for _, e := range due {
		run(e.handle, e.fn, m.OnPanic)
	}
	return len(due)
}

// PendingFrames returns the number of queued frames.
func (m *Manual) PendingFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// PendingTimers returns the number of timers not yet fired.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Ticker runs frames from a time.Ticker on its own goroutine and timers via
// time.AfterFunc. Callbacks run on background goroutines; callers that share
// state with them must synchronize.
type Ticker struct {
	mu       sync.Mutex
	interval time.Duration
	nextID   Handle
	frames   []entry
	timers   map[Handle]*time.Timer
	running  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	OnPanic  PanicHandler
}

// DefaultFrameInterval is roughly 60 frames per second.
const DefaultFrameInterval = 16 * time.Millisecond

// NewTicker creates a stopped ticker scheduler. A non-positive interval
// means DefaultFrameInterval.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Ticker{
		interval: interval,
		nextID:   1,
		timers:   make(map[Handle]*time.Timer),
	}
}

// Start begins delivering frames. Calling Start on a running ticker does nothing.
func (t *Ticker) Start() {
	if !t.running.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	stop, done := t.stop, t.done
	t.mu.Unlock()
	go t.loop(stop, done)
}

// Stop halts frame delivery, cancels pending timers and waits for the loop
// to exit.
func (t *Ticker) Stop() {
	if !t.running.CompareAndSwap(true, false) {
		return
	}
	t.mu.Lock()
	close(t.stop)
	done := t.done
	for h, timer := range t.timers {
		timer.Stop()
		delete(t.timers, h)
	}
	t.frames = nil
	t.mu.Unlock()
	<-done
}

// IsRunning reports whether the frame loop is active.
func (t *Ticker) IsRunning() bool {
	return t.running.Load()
}

func (t *Ticker) loop(stop, done chan struct{}) {
	defer close(done)
	tick := time.NewTicker(t.interval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			t.mu.Lock()
			batch := t.frames
			t.frames = nil
			t.mu.Unlock()
			for _, e := range batch {
				run(e.handle, e.fn, t.OnPanic)
			}
		}
	}
}

// ScheduleFrame implements Scheduler.
func (t *Ticker) ScheduleFrame(fn func()) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.nextID
	t.nextID++
	t.frames = append(t.frames, entry{handle: h, fn: fn})
	return h
}

// After implements Scheduler.
func (t *Ticker) After(d time.Duration, fn func()) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.nextID
	t.nextID++
	t.timers[h] = time.AfterFunc(d, func() {
		t.mu.Lock()
		_, live := t.timers[h]
		delete(t.timers, h)
		t.mu.Unlock()
		if live {
			run(h, fn, t.OnPanic)
		}
	})
	return h
}

// Cancel implements Scheduler.
func (t *Ticker) Cancel(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[h]; ok {
		timer.Stop()
		delete(t.timers, h)
		return
	}
	t.frames = remove(t.frames, h)
}
