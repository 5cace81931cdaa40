package mdreveal

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// manualClock records armed timers and fires them only when the test asks.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) pending() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// advance fires the oldest pending timer and reports whether one was pending.
func (c *manualClock) advance() bool {
	pending := c.pending()
	if len(pending) == 0 {
		return false
	}
	t := pending[0]
	t.fired = true
	t.f()
	return true
}

func (c *manualClock) delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.timers))
	for i, t := range c.timers {
		out[i] = t.delay
	}
	return out
}

type recordingSink struct {
	mu        sync.Mutex
	frames    []Frame
	completes int
	stopped   []string
	err       error
}

func (s *recordingSink) WriteFrame(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return s.err
}

func (s *recordingSink) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completes++
	return nil
}

func (s *recordingSink) Stopped(truncated string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = append(s.stopped, truncated)
	return nil
}

func (s *recordingSink) indexes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Index
	}
	return out
}

func newTestScheduler(doc *Document) (*Scheduler, *manualClock, *recordingSink) {
	clock := &manualClock{}
	sink := &recordingSink{}
	return NewScheduler(doc, WithClock(clock), WithSink(sink)), clock, sink
}

func drain(t *testing.T, clock *manualClock) {
	t.Helper()
	for i := 0; clock.advance(); i++ {
		require.LessOrEqual(t, len(clock.pending()), 1, "more than one pending timer")
		require.Less(t, i, 10000, "scheduler did not settle")
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestSchedulerRevealsInOrder(t *testing.T) {
	sched, clock, sink := newTestScheduler(NewDocument("Hello **world**\n"))
	require.Equal(t, StateIdle, sched.State())

	sched.Start()
	require.Equal(t, StateRevealing, sched.State())
	require.Len(t, clock.pending(), 1)

	drain(t, clock)
	require.Equal(t, []int{0, 1, 2, 3}, sink.indexes())
	require.Equal(t, []time.Duration{0, DefaultTextDelay, 0, DefaultTextDelay, 0}, clock.delays())
	require.Equal(t, 1, sink.completes)
	require.Equal(t, StateComplete, sched.State())
	require.True(t, isClosed(sched.Done()))
	require.Equal(t, map[int]string{0: "Hello ", 1: "world", 2: "\n\n"}, sched.RevealedView())
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	sched, clock, _ := newTestScheduler(NewDocument("a b"))
	sched.Start()
	sched.Start()
	require.Len(t, clock.pending(), 1)
	require.Len(t, clock.timers, 1)
}

func TestSchedulerEmptyDocumentCompletes(t *testing.T) {
	sched, clock, sink := newTestScheduler(nil)
	sched.Start()
	drain(t, clock)
	require.Empty(t, sink.frames)
	require.Equal(t, 1, sink.completes)
	require.True(t, isClosed(sched.Done()))
}

func TestSchedulerPauseResume(t *testing.T) {
	sched, clock, sink := newTestScheduler(NewDocument("one two three"))
	sched.Start()
	require.True(t, clock.advance())
	require.Len(t, sink.frames, 1)

	sched.Pause()
	require.True(t, sched.Paused())
	require.Empty(t, clock.pending())
	sched.Tick()
	require.Len(t, sink.frames, 1)

	sched.Resume()
	require.False(t, sched.Paused())
	drain(t, clock)
	require.Equal(t, sched.Document().Len(), len(sink.frames))
	require.Equal(t, 1, sink.completes)
}

func TestSchedulerIgnoresStaleTimer(t *testing.T) {
	sched, clock, sink := newTestScheduler(NewDocument("one two"))
	sched.Start()
	stale := clock.pending()[0]

	sched.Pause()
	sched.Resume()
	// A timer that was already running when it was invalidated must not reveal.
	stale.f()
	require.Empty(t, sink.frames)

	require.True(t, clock.advance())
	require.Equal(t, []int{0}, sink.indexes())
}

func TestSchedulerFastForward(t *testing.T) {
	sched, clock, sink := newTestScheduler(NewDocument("one two three"))
	sched.Start()
	require.True(t, clock.advance())

	sched.FastForward()
	require.Empty(t, clock.pending())
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, sink.indexes())
	require.Equal(t, 1, sink.completes)
	require.Equal(t, StateComplete, sched.State())

	sched.Tick()
	require.Equal(t, 1, sink.completes)
	require.Len(t, sink.frames, 6)
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	sched, clock, sink := newTestScheduler(NewDocument("Hello world"))
	sched.Start()
	require.True(t, clock.advance())
	require.True(t, clock.advance())

	require.Equal(t, "Hello", sched.Stop())
	require.Equal(t, "Hello", sched.Stop())
	require.Equal(t, []string{"Hello"}, sink.stopped)
	require.Equal(t, StateStopped, sched.State())
	require.Empty(t, clock.pending())
	require.True(t, isClosed(sched.Done()))

	sched.Tick()
	sched.FastForward()
	sched.Load(sched.Document().Extend("Hello world again"))
	require.Len(t, sink.frames, 2)
	require.Zero(t, sink.completes)
}

func TestSchedulerStopBeforeStart(t *testing.T) {
	sched, clock, sink := newTestScheduler(NewDocument("```py\nprint(1)\n```"))
	require.Equal(t, "", sched.Stop())
	require.Equal(t, []string{""}, sink.stopped)
	sched.Start()
	require.Empty(t, clock.pending())
}

func TestSchedulerStopAfterComplete(t *testing.T) {
	sched, clock, _ := newTestScheduler(NewDocument("```py\nprint(1)\n```"))
	sched.Start()
	drain(t, clock)
	require.Equal(t, "```py\nprint(1)\n```", sched.Stop())
}

func TestSchedulerLoadSameStreamContinues(t *testing.T) {
	doc := NewDocument("Hello")
	sched, clock, sink := newTestScheduler(doc)
	sched.Start()
	drain(t, clock)
	require.Equal(t, 1, sink.completes)
	require.Equal(t, 2, sched.Revealed())

	sched.Load(doc.Extend("Hello world"))
	require.Equal(t, StateRevealing, sched.State())
	drain(t, clock)
	require.Equal(t, []int{0, 1, 2, 3}, sink.indexes())
	require.Equal(t, 1, sink.completes, "completion fires once per stream")
	require.Equal(t, StateComplete, sched.State())
}

func TestSchedulerLoadNewStreamResets(t *testing.T) {
	sched, clock, sink := newTestScheduler(NewDocument("first"))
	sched.Start()
	drain(t, clock)

	sched.Load(NewDocument("second stream"))
	require.Zero(t, sched.Revealed())
	drain(t, clock)
	require.Equal(t, 2, sink.completes)
	require.Equal(t, "second stream", sched.Stop())
}

func TestSchedulerLoadWhilePausedWaits(t *testing.T) {
	doc := NewDocument("Hello")
	sched, clock, sink := newTestScheduler(doc)
	sched.Start()
	drain(t, clock)

	sched.Pause()
	sched.Load(doc.Extend("Hello world"))
	require.Empty(t, clock.pending())
	sched.Resume()
	drain(t, clock)
	require.Len(t, sink.frames, 4)
}

func TestSchedulerRecordsSinkError(t *testing.T) {
	sched, clock, sink := newTestScheduler(NewDocument("a b"))
	sink.err = errors.New("boom")
	sched.Start()
	drain(t, clock)
	require.EqualError(t, sched.Err(), "boom")
	require.Len(t, sink.frames, 4)
	require.Equal(t, StateComplete, sched.State())
}

func TestSchedulerRealClock(t *testing.T) {
	doc := NewDocument("one two three", WithTokenTiming(Timing{}))
	sink := &recordingSink{}
	sched := NewScheduler(doc, WithSink(sink))
	sched.Start()
	select {
	case <-sched.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reveal did not complete")
	}
	require.Equal(t, StateComplete, sched.State())
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, sink.indexes())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "revealing", StateRevealing.String())
	require.Equal(t, "complete", StateComplete.String())
	require.Equal(t, "stopped", StateStopped.String())
	require.Equal(t, "unknown", State(9).String())
}
