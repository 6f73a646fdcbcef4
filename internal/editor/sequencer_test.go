package editor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencer_LatestTicketWins(t *testing.T) {
	var s Sequencer

	first := s.Next()
	assert.True(t, first.Current())
	assert.NoError(t, first.Check())

	second := s.Next()
	assert.False(t, first.Current())
	assert.ErrorIs(t, first.Check(), ErrStaleRequest)
	assert.True(t, second.Current())
}

func TestSequencer_ConcurrentTicketsAreUnique(t *testing.T) {
	var s Sequencer
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[uint64]bool)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk := s.Next()
			mu.Lock()
			seen[tk.seq] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
	current := 0
	for seq := range seen {
		if (Ticket{seq: seq, s: &s}).Current() {
			current++
		}
	}
	assert.Equal(t, 1, current)
}

func TestSequencers_ChannelsAreIndependent(t *testing.T) {
	var s sequencers

	a := s.next("deck-a")
	b := s.next("deck-b")
	assert.True(t, a.Current())
	assert.True(t, b.Current())

	s.next("deck-a")
	assert.False(t, a.Current())
	assert.True(t, b.Current())
}
