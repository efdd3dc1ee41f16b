// Package store: SQLite backend.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stirosario/tecnos/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions and tickets in an SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN. The DSN is
// a file path; its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveSession(sess *models.Session) error {
	if sess.ID == "" {
		return models.ErrEmptySessionID
	}
	data, err := json.Marshal(sess)
	if err != nil {
		slog.Error("SQLiteStore SaveSession marshal failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sessions (id, stage, data, updated_at, last_activity)
		VALUES (?, ?, ?, ?, ?)`,
		sess.ID, string(sess.Stage), string(data), sess.UpdatedAt, sess.LastActivity)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "sessionID", sess.ID, "stage", sess.Stage)
	return nil
}

func (s *SQLiteStore) GetSession(id string) (*models.Session, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "sessionID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		slog.Error("SQLiteStore GetSession unmarshal failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) ListInactiveSessions(cutoff time.Time) ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM sessions WHERE last_activity < ?`, cutoff)
	if err != nil {
		slog.Error("SQLiteStore ListInactiveSessions query failed", "error", err)
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

func (s *SQLiteStore) SaveTicket(t *models.Ticket) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO tickets
			(id, session_id, name, locale, device, device_type, problem, tests_result, email, phone, whatsapp_link, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, nilIfEmpty(t.Name), string(t.Locale), nilIfEmpty(t.Device), nilIfEmpty(string(t.DeviceType)),
		t.Problem, nilIfEmpty(t.TestsResult), t.Email, t.Phone, nilIfEmpty(t.WhatsAppLink), string(t.Status), t.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveTicket failed", "error", err, "ticketID", t.ID)
		return fmt.Errorf("failed to save ticket %s: %w", t.ID, err)
	}
	slog.Debug("SQLiteStore SaveTicket succeeded", "ticketID", t.ID, "sessionID", t.SessionID)
	return nil
}

func (s *SQLiteStore) GetTicket(id string) (*models.Ticket, error) {
	row := s.db.QueryRow(`
		SELECT id, session_id, name, locale, device, device_type, problem, tests_result, email, phone, whatsapp_link, status, created_at
		FROM tickets WHERE id = ?`, id)
	t, err := scanTicketRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetTicket not found", "ticketID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetTicket failed", "error", err, "ticketID", id)
		return nil, fmt.Errorf("failed to query ticket %s: %w", id, err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTickets() ([]models.Ticket, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, name, locale, device, device_type, problem, tests_result, email, phone, whatsapp_link, status, created_at
		FROM tickets ORDER BY created_at DESC`)
	if err != nil {
		slog.Error("SQLiteStore ListTickets query failed", "error", err)
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
	slog.Debug("SQLiteStore ListTickets succeeded", "count", len(tickets))
	return tickets, nil
}

func (s *SQLiteStore) UpdateTicketStatus(id string, status models.TicketStatus) error {
	res, err := s.db.Exec(`UPDATE tickets SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		slog.Error("SQLiteStore UpdateTicketStatus failed", "error", err, "ticketID", id)
		return fmt.Errorf("failed to update ticket %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrTicketNotFound
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
