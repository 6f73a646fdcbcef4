package editor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Session is an exclusive editing session on one deck, held through a lock
// file so separate processes (the API server and the CLI) never edit the
// same deck at once.
type Session struct {
	DeckID string
	lock   *flock.Flock
}

// OpenSession takes the lock for deckID in dir. It returns ErrSessionLocked
// without waiting when another session holds it.
func OpenSession(dir, deckID string) (*Session, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName(deckID)))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock deck %s: %w", deckID, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrSessionLocked, deckID)
	}
	return &Session{DeckID: deckID, lock: lock}, nil
}

// Close releases the session.
func (s *Session) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock deck %s: %w", s.DeckID, err)
	}
	return nil
}

// lockFileName keeps a readable prefix of deckID and appends a hash of the
// full ID, so IDs differing only in unsafe characters get distinct files.
func lockFileName(deckID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, deckID)
	if len(safe) > 32 {
		safe = safe[:32]
	}
	sum := sha256.Sum256([]byte(deckID))
	return "deck-" + safe + "-" + hex.EncodeToString(sum[:8]) + ".lock"
}
