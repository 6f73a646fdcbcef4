package editor

import (
	"sync"
	"sync/atomic"
)

// Sequencer hands out increasing tickets so that, of several overlapping
// requests, only the latest one's result is applied.
type Sequencer struct {
	latest atomic.Uint64
}

// Ticket identifies one request issued by a Sequencer.
type Ticket struct {
	seq uint64
	s   *Sequencer
}

// Next issues a ticket newer than every ticket issued before it.
func (s *Sequencer) Next() Ticket {
	return Ticket{seq: s.latest.Add(1), s: s}
}

// Current reports whether no newer ticket has been issued.
func (t Ticket) Current() bool {
	return t.s.latest.Load() == t.seq
}

// Check returns ErrStaleRequest when a newer ticket has been issued.
func (t Ticket) Check() error {
	if !t.Current() {
		return ErrStaleRequest
	}
	return nil
}

// sequencers keeps one Sequencer per channel name.
type sequencers struct {
	m sync.Map
}

func (s *sequencers) next(channel string) Ticket {
	v, _ := s.m.LoadOrStore(channel, &Sequencer{})
	return v.(*Sequencer).Next()
}
