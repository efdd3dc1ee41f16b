// Package models defines the session record and its per-turn audit trail.
package models

import "time"

// TranscriptEntry is one exchange in the session transcript.
type TranscriptEntry struct {
	Role      string    `json:"role"` // "user" or "bot"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UserEvent describes what the user did on a turn.
type UserEvent struct {
	Kind  string      `json:"kind"` // "text", "button" or "image"
	Text  string      `json:"text,omitempty"`
	Token ButtonToken `json:"token,omitempty"`
}

// TurnLog is a per-turn audit entry kept on the session for replay.
type TurnLog struct {
	TurnID       string        `json:"turnId"`
	TS           time.Time     `json:"ts"`
	StageBefore  Stage         `json:"stageBefore"`
	StageAfter   Stage         `json:"stageAfter"`
	UserEvent    UserEvent     `json:"userEvent"`
	Action       Action        `json:"action"`
	BotReply     string        `json:"botReply"`
	ButtonsShown []ButtonToken `json:"buttonsShown,omitempty"`
	Violations   []string      `json:"violations,omitempty"`
}

// Session is the versioned conversation record. Fields are explicit and
// validated at the boundary; handlers request changes through
// FlowResult.Mutate rather than attaching ad hoc fields.
type Session struct {
	ID           string     `json:"id"`
	Version      int        `json:"version"`
	Stage        Stage      `json:"stage"`
	UserName     string     `json:"userName,omitempty"`
	UserLocale   Locale     `json:"userLocale"`
	Mode         Mode       `json:"mode,omitempty"`
	Device       string     `json:"device,omitempty"`
	DeviceType   DeviceType `json:"deviceType,omitempty"`
	Problem      string     `json:"problem,omitempty"`
	GDPRConsent  bool       `json:"gdprConsent"`
	ContactEmail string     `json:"contactEmail,omitempty"`
	ContactPhone string     `json:"contactPhone,omitempty"`
	TicketID     string     `json:"ticketId,omitempty"`
	TestsResult  string     `json:"testsResult,omitempty"` // "done", "fail" or empty
	ImageURLs    []string   `json:"imageUrls,omitempty"`

	Transcript []TranscriptEntry `json:"transcript,omitempty"`
	TurnLogs   []TurnLog         `json:"turnLogs,omitempty"`

	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// NewSession returns a fresh session positioned at the first stage.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Version:      SessionVersion,
		Stage:        StageAskGDPR,
		UserLocale:   DefaultLocale,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
	}
}

// Clone returns a deep copy of the session. The orchestrator mutates the
// copy and only the copy is persisted, so a failed turn never corrupts the
// stored record.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Transcript = append([]TranscriptEntry(nil), s.Transcript...)
	cp.TurnLogs = append([]TurnLog(nil), s.TurnLogs...)
	cp.ImageURLs = append([]string(nil), s.ImageURLs...)
	return &cp
}

// AppendTurnLog appends a turn audit entry, dropping the oldest entries
// beyond MaxTurnLogs.
func (s *Session) AppendTurnLog(tl TurnLog) {
	s.TurnLogs = append(s.TurnLogs, tl)
	if len(s.TurnLogs) > MaxTurnLogs {
		s.TurnLogs = s.TurnLogs[len(s.TurnLogs)-MaxTurnLogs:]
	}
}

// AppendTranscript records one transcript line.
func (s *Session) AppendTranscript(role, content string) {
	s.Transcript = append(s.Transcript, TranscriptEntry{Role: role, Content: content, Timestamp: time.Now()})
}

// DisplayName returns the user name or a locale-appropriate fallback.
func (s *Session) DisplayName() string {
	if s.UserName != "" {
		return s.UserName
	}
	if s.UserLocale == LocaleEn {
		return "friend"
	}
	return "amigo/a"
}

// TicketStatus tracks a ticket through the workshop.
type TicketStatus string

const (
	// TicketStatusOpen is a freshly created ticket awaiting a technician.
	TicketStatusOpen TicketStatus = "open"
	// TicketStatusNotified means the supervisor was pinged on WhatsApp.
	TicketStatusNotified TicketStatus = "notified"
	// TicketStatusClosed is a resolved ticket.
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is a technician escalation created at the end of the flow.
type Ticket struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"sessionId"`
	Name         string       `json:"name,omitempty"`
	Locale       Locale       `json:"locale"`
	Device       string       `json:"device,omitempty"`
	DeviceType   DeviceType   `json:"deviceType,omitempty"`
	Problem      string       `json:"problem"`
	TestsResult  string       `json:"testsResult,omitempty"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	WhatsAppLink string       `json:"whatsappLink,omitempty"`
	Status       TicketStatus `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
}
