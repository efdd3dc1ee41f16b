package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/stirosario/tecnos/internal/models"
	"github.com/stirosario/tecnos/internal/store"
)

// Saver batches session writes. Handlers mark sessions dirty during a turn
// and the API layer flushes once at the end of the request, so a turn that
// touches the session several times costs one store write.
type Saver struct {
	mu      sync.Mutex
	store   store.Store
	pending map[string]*models.Session
	closed  bool
}

// ErrSaverClosed is returned when marking a session on a closed saver.
var ErrSaverClosed = errors.New("session saver is closed")

// NewSaver creates a saver over the given store.
func NewSaver(st store.Store) *Saver {
	return &Saver{store: st, pending: make(map[string]*models.Session)}
}

// MarkDirty queues a session for the next flush. Later marks of the same
// session replace earlier ones.
func (sv *Saver) MarkDirty(s *models.Session) error {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.closed {
		return ErrSaverClosed
	}
	sv.pending[s.ID] = s.Clone()
	return nil
}

// Pending returns the number of queued sessions.
func (sv *Saver) Pending() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return len(sv.pending)
}

// Flush writes every queued session. A failed write keeps that session
// queued for the next flush; the first error is returned after all writes
// were attempted.
func (sv *Saver) Flush() error {
	sv.mu.Lock()
	batch := sv.pending
	sv.pending = make(map[string]*models.Session)
	sv.mu.Unlock()

	var firstErr error
	for id, s := range batch {
		if err := sv.store.SaveSession(s); err != nil {
			slog.Error("Saver.Flush: failed to save session", "error", err, "sessionID", id)
			if firstErr == nil {
				firstErr = err
			}
			sv.mu.Lock()
			if _, requeued := sv.pending[id]; !requeued {
				sv.pending[id] = s
			}
			sv.mu.Unlock()
		}
	}
	if n := len(batch); n > 0 && firstErr == nil {
		slog.Debug("Saver.Flush: sessions persisted", "count", n)
	}
	return firstErr
}

// Close flushes remaining sessions and rejects further marks.
func (sv *Saver) Close() error {
	sv.mu.Lock()
	sv.closed = true
	sv.mu.Unlock()
	return sv.Flush()
}
