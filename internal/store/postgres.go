// Package store: PostgreSQL backend.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/stirosario/tecnos/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions and tickets in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveSession(sess *models.Session) error {
	if sess.ID == "" {
		return models.ErrEmptySessionID
	}
	data, err := json.Marshal(sess)
	if err != nil {
		slog.Error("PostgresStore SaveSession marshal failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (id, stage, data, updated_at, last_activity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			stage = EXCLUDED.stage,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at,
			last_activity = EXCLUDED.last_activity`,
		sess.ID, string(sess.Stage), data, sess.UpdatedAt, sess.LastActivity)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "sessionID", sess.ID, "stage", sess.Stage)
	return nil
}

func (s *PostgresStore) GetSession(id string) (*models.Session, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE id = $1`, id).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSession not found", "sessionID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		slog.Error("PostgresStore GetSession unmarshal failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *PostgresStore) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) ListInactiveSessions(cutoff time.Time) ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM sessions WHERE last_activity < $1`, cutoff)
	if err != nil {
		slog.Error("PostgresStore ListInactiveSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query inactive sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) SaveTicket(t *models.Ticket) error {
	_, err := s.db.Exec(`
		INSERT INTO tickets
			(id, session_id, name, locale, device, device_type, problem, tests_result, email, phone, whatsapp_link, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id)
		DO UPDATE SET
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			whatsapp_link = EXCLUDED.whatsapp_link,
			status = EXCLUDED.status`,
		t.ID, t.SessionID, nilIfEmpty(t.Name), string(t.Locale), nilIfEmpty(t.Device), nilIfEmpty(string(t.DeviceType)),
		t.Problem, nilIfEmpty(t.TestsResult), t.Email, t.Phone, nilIfEmpty(t.WhatsAppLink), string(t.Status), t.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveTicket failed", "error", err, "ticketID", t.ID)
		return fmt.Errorf("failed to save ticket %s: %w", t.ID, err)
	}
	slog.Debug("PostgresStore SaveTicket succeeded", "ticketID", t.ID, "sessionID", t.SessionID)
	return nil
}

func (s *PostgresStore) GetTicket(id string) (*models.Ticket, error) {
	row := s.db.QueryRow(`
		SELECT id, session_id, name, locale, device, device_type, problem, tests_result, email, phone, whatsapp_link, status, created_at
		FROM tickets WHERE id = $1`, id)
	t, err := scanTicketRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetTicket not found", "ticketID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetTicket failed", "error", err, "ticketID", id)
		return nil, fmt.Errorf("failed to query ticket %s: %w", id, err)
	}
	return t, nil
}

func (s *PostgresStore) ListTickets() ([]models.Ticket, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, name, locale, device, device_type, problem, tests_result, email, phone, whatsapp_link, status, created_at
		FROM tickets ORDER BY created_at DESC`)
	if err != nil {
		slog.Error("PostgresStore ListTickets query failed", "error", err)
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket rows: %w", err)
	}
	slog.Debug("PostgresStore ListTickets succeeded", "count", len(tickets))
	return tickets, nil
}

func (s *PostgresStore) UpdateTicketStatus(id string, status models.TicketStatus) error {
	res, err := s.db.Exec(`UPDATE tickets SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		slog.Error("PostgresStore UpdateTicketStatus failed", "error", err, "ticketID", id)
		return fmt.Errorf("failed to update ticket %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrTicketNotFound
	}
	return nil
}

// Close closes the Postgres connection pool.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres connection pool")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres connection", "error", err)
	}
	return err
}
