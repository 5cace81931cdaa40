package mdreveal

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a Scheduler.
type State uint8

const (
	StateIdle State = iota
	StateRevealing
	StateComplete
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRevealing:
		return "revealing"
	case StateComplete:
		return "complete"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Timer is a pending scheduler wake-up.
type Timer interface {
	Stop() bool
}

// Clock arms timers. The default clock uses time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSink sets the receiver of reveal events.
func WithSink(sink Sink) SchedulerOption {
	return func(s *Scheduler) {
		s.sink = sink
	}
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scheduler reveals the tokens of a Document one at a time, waiting each token's delay
// before revealing the next. At most one timer is pending; every armed timer carries a
// generation and fires for a stale generation are ignored.
type Scheduler struct {
	// tickMu serializes reveal steps so frames reach the sink in order.
	tickMu sync.Mutex
	mu     sync.Mutex

	doc    atomic.Pointer[Document]
	clock  Clock
	sink   Sink
	logger *slog.Logger

	revealed    int
	paused      bool
	state       State
	gen         uint64
	timer       Timer
	completedID string
	err         error

	stopOnce  sync.Once
	truncated string
	done      chan struct{}
	doneOnce  sync.Once
}

// NewScheduler returns an idle scheduler for doc.
func NewScheduler(doc *Document, opts ...SchedulerOption) *Scheduler {
	if doc == nil {
		doc = NewDocument("")
	}
	s := &Scheduler{
		clock:  realClock{},
		logger: slog.New(slog.DiscardHandler),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.doc.Store(doc)
	return s
}

// Start arms the first tick. It has no effect unless the scheduler is idle.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return
	}
	s.state = StateRevealing
	s.logger.Debug("reveal started", "stream", s.doc.Load().ID, "tokens", s.doc.Load().Len())
	if !s.paused {
		s.armLocked(0)
	}
}

// Tick reveals the next token and arms the following tick after the token's delay.
// Once every token is revealed the completion notification fires once per stream.
// Tick is a no-op while paused or stopped.
func (s *Scheduler) Tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.step()
}

func (s *Scheduler) fire(gen uint64) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()
	s.step()
}

func (s *Scheduler) step() {
	s.mu.Lock()
	if s.state == StateStopped || s.paused {
		s.mu.Unlock()
		return
	}
	doc := s.doc.Load()
	if s.revealed >= doc.Len() {
		notify := s.completeLocked(doc)
		s.mu.Unlock()
		if notify {
			s.notifyComplete(doc)
		}
		return
	}
	idx := s.revealed
	tok := doc.Tokens[idx]
	s.revealed++
	s.state = StateRevealing
	frame := Frame{Document: doc, Index: idx, Token: tok, Revealed: s.revealed}
	s.mu.Unlock()

	s.writeFrame(frame)

	s.mu.Lock()
	if s.state == StateRevealing && !s.paused {
		s.armLocked(tok.Delay)
	}
	s.mu.Unlock()
}

// armLocked replaces the pending timer.
func (s *Scheduler) armLocked(d time.Duration) {
	s.disarmLocked()
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
}

// disarmLocked invalidates the pending timer, if any.
func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) completeLocked(doc *Document) bool {
	if s.state == StateStopped {
		return false
	}
	s.state = StateComplete
	if s.completedID == doc.ID {
		return false
	}
	s.completedID = doc.ID
	return true
}

func (s *Scheduler) notifyComplete(doc *Document) {
	s.logger.Debug("reveal complete", "stream", doc.ID, "tokens", doc.Len())
	if s.sink != nil {
		if err := s.sink.Complete(); err != nil {
			s.recordErr(err)
		}
	}
	s.closeDone()
}

// Pause suspends revealing. The pending timer is invalidated.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	s.paused = true
	s.disarmLocked()
}

// Resume continues a paused reveal.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return
	}
	s.paused = false
	if s.state == StateRevealing {
		s.armLocked(0)
	}
}

// FastForward reveals every remaining token immediately.
func (s *Scheduler) FastForward() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.disarmLocked()
	doc := s.doc.Load()
	start := s.revealed
	s.revealed = doc.Len()
	notify := s.completeLocked(doc)
	s.mu.Unlock()

	for i := start; i < doc.Len(); i++ {
		s.writeFrame(Frame{Document: doc, Index: i, Token: doc.Tokens[i], Revealed: i + 1})
	}
	if notify {
		s.notifyComplete(doc)
	}
}

// Load swaps in a new snapshot of the document. A document from a different stream
// resets the reveal position; a completed scheduler resumes when new tokens appear.
func (s *Scheduler) Load(doc *Document) {
	if doc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	prev := s.doc.Swap(doc)
	if prev == nil || prev.ID != doc.ID {
		s.revealed = 0
		s.logger.Debug("reveal stream replaced", "stream", doc.ID, "tokens", doc.Len())
	} else if s.revealed > doc.Len() {
		s.revealed = doc.Len()
	}
	if s.state == StateComplete && s.revealed < doc.Len() {
		s.state = StateRevealing
		if !s.paused {
			s.armLocked(0)
		}
	}
}

// Stop cancels the reveal and returns the truncated markdown for the revealed prefix.
// Only the first call does any work; later calls return the same string. Stop waits
// for an in-flight step and must not be called from a Sink callback.
func (s *Scheduler) Stop() string {
	s.stopOnce.Do(func() {
		s.tickMu.Lock()
		defer s.tickMu.Unlock()
		s.mu.Lock()
		s.disarmLocked()
		prev := s.state
		s.state = StateStopped
		doc := s.doc.Load()
		revealed := s.revealed
		s.truncated = Truncate(doc.Tokens, revealed, doc.Segments)
		truncated := s.truncated
		s.mu.Unlock()

		s.logger.Debug("reveal stopped", "stream", doc.ID, "from", prev.String(), "revealed", revealed, "tokens", doc.Len())
		if s.sink != nil {
			if err := s.sink.Stopped(truncated); err != nil {
				s.recordErr(err)
			}
		}
		s.closeDone()
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.truncated
}

// Done is closed after the sink has been notified that the first stream completed or
// that the scheduler stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// RevealedView returns the revealed text grouped by segment index.
func (s *Scheduler) RevealedView() map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GroupRevealed(s.doc.Load().Tokens, s.revealed)
}

// Revealed returns the number of revealed tokens.
func (s *Scheduler) Revealed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealed
}

// State returns the lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Paused reports whether revealing is suspended.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Document returns the current document snapshot.
func (s *Scheduler) Document() *Document {
	return s.doc.Load()
}

// Err returns the first sink error, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Scheduler) writeFrame(f Frame) {
	if s.sink == nil {
		return
	}
	if err := s.sink.WriteFrame(f); err != nil {
		s.recordErr(err)
	}
}

func (s *Scheduler) recordErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.logger.Warn("reveal sink failed", "err", err)
}
