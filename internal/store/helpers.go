package store

import (
	"database/sql"
	"fmt"

	"github.com/stirosario/tecnos/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanTicket scans a Ticket from sql.Rows.
func scanTicket(rows *sql.Rows) (models.Ticket, error) {
	var t models.Ticket
	var name, device, deviceType, testsResult, waLink sql.NullString
	var locale, status string
	err := rows.Scan(
		&t.ID, &t.SessionID, &name, &locale, &device, &deviceType,
		&t.Problem, &testsResult, &t.Email, &t.Phone, &waLink, &status, &t.CreatedAt,
	)
	if err != nil {
		return t, fmt.Errorf("scan ticket failed: %w", err)
	}
	t.Name = name.String
	t.Device = device.String
	t.DeviceType = models.DeviceType(deviceType.String)
	t.TestsResult = testsResult.String
	t.WhatsAppLink = waLink.String
	t.Locale = models.Locale(locale)
	t.Status = models.TicketStatus(status)
	return t, nil
}

// scanTicketRow scans a Ticket from a single sql.Row.
func scanTicketRow(row *sql.Row) (*models.Ticket, error) {
	var t models.Ticket
	var name, device, deviceType, testsResult, waLink sql.NullString
	var locale, status string
	err := row.Scan(
		&t.ID, &t.SessionID, &name, &locale, &device, &deviceType,
		&t.Problem, &testsResult, &t.Email, &t.Phone, &waLink, &status, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Name = name.String
	t.Device = device.String
	t.DeviceType = models.DeviceType(deviceType.String)
	t.TestsResult = testsResult.String
	t.WhatsAppLink = waLink.String
	t.Locale = models.Locale(locale)
	t.Status = models.TicketStatus(status)
	return &t, nil
}
