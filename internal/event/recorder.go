package event

import (
	"errors"
	"sync"

	"github.com/payhatch/payhatch/internal/chrono"
)

// Sink receives committed notifications in sequence order.
//
// Implemented by MemorySink (tests, golden traces) and the SQLite audit log
// in internal/store.
type Sink interface {
	Record(Event) error
}

// Recorder stages the notifications of one operation and delivers them to
// sinks only when the operation commits.
//
// Usage, driven by the facade around every external call:
//
//	token := rec.Begin()
//	... components Emit() zero or more notifications ...
//	rec.Commit() // or rec.Abort() on failure
//
// Emit buffers; Commit stamps seq, call token, and time, then fans out to
// every sink. Abort discards the buffer. Operations are serialized by the
// facade, so at most one call is staged at a time.
type Recorder struct {
	clock chrono.Clock
	seq   *Sequencer
	gen   TokenGenerator
	sinks []Sink

	staged []Event
	token  string
}

// NewRecorder creates a Recorder delivering to the given sinks.
func NewRecorder(clock chrono.Clock, seq *Sequencer, gen TokenGenerator, sinks ...Sink) *Recorder {
	return &Recorder{
		clock: clock,
		seq:   seq,
		gen:   gen,
		sinks: sinks,
	}
}

// Begin starts staging a new call and returns its call token.
// Any previously staged, uncommitted notifications are discarded.
func (r *Recorder) Begin() string {
	r.staged = r.staged[:0]
	r.token = r.gen.Generate()
	return r.token
}

// Emit stages a notification for the current call.
func (r *Recorder) Emit(e Event) {
	r.staged = append(r.staged, e)
}

// Commit stamps and delivers the staged notifications in emission order.
// Returns the joined error of any failing sinks; sequence numbers are
// consumed regardless so the stream never reuses a seq.
func (r *Recorder) Commit() error {
	now := r.clock.Now()
	var errs []error
	for _, e := range r.staged {
		e.Seq = r.seq.Next()
		e.CallToken = r.token
		e.At = now
		for _, s := range r.sinks {
			if err := s.Record(e); err != nil {
				errs = append(errs, err)
			}
		}
	}
	r.staged = r.staged[:0]
	return errors.Join(errs...)
}

// Abort discards the staged notifications of a failed call.
func (r *Recorder) Abort() {
	r.staged = r.staged[:0]
}

// MemorySink collects committed notifications in memory.
//
// Thread-safety: all methods lock; tests read while the system records.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends a committed notification.
func (m *MemorySink) Record(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of the committed notifications in order.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByKind returns the committed notifications of one kind, in order.
func (m *MemorySink) ByKind(k Kind) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards all collected notifications.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
