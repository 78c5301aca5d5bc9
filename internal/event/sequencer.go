package event

import "sync/atomic"

// Sequencer is the monotonic counter behind notification sequence numbers.
//
// Every committed notification is stamped with a strictly increasing seq,
// which makes the stream replayable in exactly its commit order.
//
// Thread-safety: atomic operations make the Sequencer safe for concurrent
// use, though the facade's serialized-call design means a single goroutine
// typically calls Next.
type Sequencer struct {
	seq atomic.Int64
}

// NewSequencer creates a sequencer starting at 0; the first Next returns 1.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// NewSequencerAt creates a sequencer resuming from a known position.
// Used when reopening an audit log to continue its numbering.
func NewSequencerAt(start int64) *Sequencer {
	s := &Sequencer{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number and advances the counter.
func (s *Sequencer) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last assigned sequence number.
func (s *Sequencer) Current() int64 {
	return s.seq.Load()
}
