package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_StepRunsQueuedFrames(t *testing.T) {
	m := NewManual()

	var order []int
	m.ScheduleFrame(func() { order = append(order, 1) })
	m.ScheduleFrame(func() { order = append(order, 2) })

	assert.Equal(t, 2, m.PendingFrames())
	assert.Equal(t, 2, m.Step())
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, 0, m.Step())
}

func TestManual_FrameScheduledInsideFrameWaits(t *testing.T) {
	m := NewManual()

	count := 0
	var frame func()
	frame = func() {
		count++
		m.ScheduleFrame(frame)
	}
	m.ScheduleFrame(frame)

	m.Step()
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, m.PendingFrames())

	m.StepN(4)
	assert.Equal(t, 5, count)
}

func TestManual_Cancel(t *testing.T) {
	m := NewManual()

	ran := false
	h := m.ScheduleFrame(func() { ran = true })
	m.Cancel(h)
	m.Step()
	assert.False(t, ran)

	th := m.After(time.Second, func() { ran = true })
	m.Cancel(th)
	m.Advance(2 * time.Second)
	assert.False(t, ran)

	// unknown handles are ignored
	m.Cancel(Handle(9999))
}

func TestManual_AdvanceFiresDueTimersInOrder(t *testing.T) {
	m := NewManual()

	var fired []string
	m.After(300*time.Millisecond, func() { fired = append(fired, "late") })
	m.After(200*time.Millisecond, func() { fired = append(fired, "close") })

	assert.Equal(t, 0, m.Advance(199*time.Millisecond))
	assert.Empty(t, fired)

	assert.Equal(t, 1, m.Advance(time.Millisecond))
	assert.Equal(t, []string{"close"}, fired)

	m.Advance(time.Second)
	assert.Equal(t, []string{"close", "late"}, fired)
	assert.Equal(t, 0, m.PendingTimers())
}

func TestManual_PanicIsRecovered(t *testing.T) {
	m := NewManual()

	var got interface{}
	m.OnPanic = func(h Handle, err interface{}, stack []byte) {
		got = err
		assert.NotEmpty(t, stack)
	}

	after := false
	m.ScheduleFrame(func() { panic("boom") })
	m.ScheduleFrame(func() { after = true })

	require.NotPanics(t, func() { m.Step() })
	assert.Equal(t, "boom", got)
	assert.True(t, after)
}

func TestTicker_DeliversFrames(t *testing.T) {
	tk := NewTicker(time.Millisecond)
	tk.Start()
	defer tk.Stop()

	assert.True(t, tk.IsRunning())

	done := make(chan struct{})
	tk.ScheduleFrame(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("frame never ran")
	}
}

func TestTicker_AfterAndCancel(t *testing.T) {
	tk := NewTicker(time.Millisecond)
	tk.Start()
	defer tk.Stop()

	var cancelled atomic.Bool
	h := tk.After(20*time.Millisecond, func() { cancelled.Store(true) })
	tk.Cancel(h)

	done := make(chan struct{})
	tk.After(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	time.Sleep(40 * time.Millisecond)
	assert.False(t, cancelled.Load())
}

func TestTicker_StopIsIdempotent(t *testing.T) {
	tk := NewTicker(0)
	tk.Start()
	tk.Start()
	tk.Stop()
	tk.Stop()
	assert.False(t, tk.IsRunning())

	var ran atomic.Bool
	tk.ScheduleFrame(func() { ran.Store(true) })
	time.Sleep(30 * time.Millisecond)
	assert.False(t, ran.Load())
}
