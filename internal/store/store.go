// Package store provides storage backends for Tecnos sessions and tickets.
//
// It includes an in-memory store for development and tests, and SQLite and
// PostgreSQL backends for persistent deployments. The backend is selected
// from the DSN.
package store

import (
	"strings"
	"time"

	"github.com/stirosario/tecnos/internal/models"
)

// Store is the persistence interface the session manager and the ticket
// endpoints run against. GetSession and GetTicket return (nil, nil) when
// the record does not exist.
type Store interface {
	SaveSession(s *models.Session) error
	GetSession(id string) (*models.Session, error)
	DeleteSession(id string) error
	// ListInactiveSessions returns the IDs of sessions idle since before
	// the cutoff.
	ListInactiveSessions(cutoff time.Time) ([]string, error)

	SaveTicket(t *models.Ticket) error
	GetTicket(id string) (*models.Ticket, error)
	ListTickets() ([]models.Ticket, error)
	UpdateTicketStatus(id string, status models.TicketStatus) error

	Close() error
}

// Opts holds configuration for store constructors.
type Opts struct {
	// DSN is the database connection string: a PostgreSQL URL or an SQLite
	// file path.
	DSN string
}

// Option configures store constructors.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DSN type constants returned by DetectDSNType.
const (
	DSNTypePostgres = "postgres"
	DSNTypeSQLite   = "sqlite"
	DSNTypeMemory   = "memory"
)

// DetectDSNType classifies a DSN string. Empty DSNs select the in-memory
// backend.
func DetectDSNType(dsn string) string {
	switch {
	case dsn == "" || dsn == ":memory:":
		return DSNTypeMemory
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host="):
		return DSNTypePostgres
	default:
		return DSNTypeSQLite
	}
}

// NewStore builds the backend matching the DSN type.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch DetectDSNType(cfg.DSN) {
	case DSNTypePostgres:
		return NewPostgresStore(opts...)
	case DSNTypeSQLite:
		return NewSQLiteStore(opts...)
	default:
		return NewInMemoryStore(), nil
	}
}
