// Package session manages conversation session lifecycle: creation,
// lookup, batched persistence and expiry of idle sessions.
package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/stirosario/tecnos/internal/models"
	"github.com/stirosario/tecnos/internal/store"
)

// Defaults for session lifecycle management.
const (
	// DefaultTTL is how long an idle session survives before the sweep
	// removes it.
	DefaultTTL = 24 * time.Hour
	// DefaultCleanupSpec runs the expiry sweep at the top of every hour.
	DefaultCleanupSpec = "0 * * * *"
)

// Opts holds configuration for the session manager.
type Opts struct {
	TTL         time.Duration
	CleanupSpec string
}

// Option configures the session manager.
type Option func(*Opts)

// WithTTL overrides the idle-session TTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) {
		o.TTL = ttl
	}
}

// WithCleanupSpec overrides the cron spec of the expiry sweep.
func WithCleanupSpec(spec string) Option {
	return func(o *Opts) {
		o.CleanupSpec = spec
	}
}

// Manager creates and looks up sessions and owns the expiry sweep.
type Manager struct {
	store store.Store
	ttl   time.Duration
	spec  string
	cron  *cron.Cron
}

// NewManager creates a session manager over the given store.
func NewManager(st store.Store, opts ...Option) *Manager {
	cfg := Opts{TTL: DefaultTTL, CleanupSpec: DefaultCleanupSpec}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{store: st, ttl: cfg.TTL, spec: cfg.CleanupSpec}
}

// Create makes a new session, persists it and returns it.
func (m *Manager) Create() (*models.Session, error) {
	s := models.NewSession("sess_" + uuid.NewString())
	if err := m.store.SaveSession(s); err != nil {
		slog.Error("Manager.Create: failed to persist new session", "error", err, "sessionID", s.ID)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	slog.Debug("Manager.Create: session created", "sessionID", s.ID)
	return s, nil
}

// Get retrieves a session by ID.
func (m *Manager) Get(id string) (*models.Session, error) {
	if id == "" {
		return nil, models.ErrEmptySessionID
	}
	s, err := m.store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if s == nil {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

// Touch refreshes the activity timestamps on a session.
func (m *Manager) Touch(s *models.Session) {
	now := time.Now()
	s.UpdatedAt = now
	s.LastActivity = now
}

// StartCleanup schedules the periodic expiry sweep. Returns an error when
// the cron spec does not parse.
func (m *Manager) StartCleanup() error {
	c := cron.New()
	if _, err := c.AddFunc(m.spec, m.CleanupOnce); err != nil {
		return fmt.Errorf("failed to schedule session cleanup: %w", err)
	}
	c.Start()
	m.cron = c
	slog.Info("Manager.StartCleanup: session expiry sweep scheduled", "spec", m.spec, "ttl", m.ttl)
	return nil
}

// StopCleanup stops the expiry sweep, waiting for a running sweep.
func (m *Manager) StopCleanup() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.cron = nil
}

// CleanupOnce deletes every session idle for longer than the TTL.
func (m *Manager) CleanupOnce() {
	cutoff := time.Now().Add(-m.ttl)
	ids, err := m.store.ListInactiveSessions(cutoff)
	if err != nil {
		slog.Error("Manager.CleanupOnce: failed to list inactive sessions", "error", err)
		return
	}
	removed := 0
	for _, id := range ids {
		if err := m.store.DeleteSession(id); err != nil {
			slog.Error("Manager.CleanupOnce: failed to delete session", "error", err, "sessionID", id)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("Manager.CleanupOnce: expired sessions removed", "count", removed)
	}
}
