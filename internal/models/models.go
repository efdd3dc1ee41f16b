// Package models defines the core data structures for Tecnos.
//
// It includes the session record, per-turn audit entries, flow results and
// the fixed-shape API response types shared across modules.
package models

import (
	"errors"
	"regexp"
	"strings"
)

// Locale identifies one of the reply catalogs.
type Locale string

const (
	// LocaleEsAR is Rioplatense Spanish, the default for the Rosario shop.
	LocaleEsAR Locale = "es-AR"
	// LocaleEsES is peninsular Spanish.
	LocaleEsES Locale = "es-ES"
	// LocaleEn is English.
	LocaleEn Locale = "en"
)

// DefaultLocale is used before the user picks a language.
const DefaultLocale = LocaleEsAR

// IsValidLocale checks if the given locale has a reply catalog.
func IsValidLocale(l Locale) bool {
	switch l {
	case LocaleEsAR, LocaleEsES, LocaleEn:
		return true
	default:
		return false
	}
}

// Validation constants for input validation
const (
	// MaxTextLength defines the maximum accepted length for a user text message
	MaxTextLength = 2000
	// MaxNameLength defines the maximum accepted length for a user name
	MaxNameLength = 80
	// MaxTurnLogs caps the per-session turn audit trail
	MaxTurnLogs = 1000
	// MaxImagesPerTurn caps the number of images accepted in a single turn
	MaxImagesPerTurn = 4
	// SessionVersion is the current session record schema version
	SessionVersion = 2
)

// Error variables for better error handling and testability
var (
	ErrEmptySessionID   = errors.New("sessionId cannot be empty")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidStage     = errors.New("invalid stage")
	ErrNoInput          = errors.New("turn carries neither text nor button token")
	ErrTextTooLong      = errors.New("text exceeds maximum length")
	ErrTooManyImages    = errors.New("too many images in a single turn")
	ErrConversationOver = errors.New("conversation has ended")
	ErrTicketNotFound   = errors.New("ticket not found")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValidEmail reports whether s looks like a usable contact email.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

var phonePattern = regexp.MustCompile(`^\+?[\d\s().-]{6,20}$`)

// IsValidPhone reports whether s looks like a usable contact phone number.
func IsValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 6 && phonePattern.MatchString(s)
}

// ChatRequest is the payload accepted by POST /api/chat.
type ChatRequest struct {
	SessionID   string   `json:"sessionId"`
	Text        string   `json:"text,omitempty"`
	ButtonToken string   `json:"buttonId,omitempty"`
	Images      []string `json:"images,omitempty"` // base64 payloads or previously uploaded URLs
}

// Validate performs basic validation on a ChatRequest.
func (r *ChatRequest) Validate() error {
	if r.SessionID == "" {
		return ErrEmptySessionID
	}
	if len(r.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	if len(r.Images) > MaxImagesPerTurn {
		return ErrTooManyImages
	}
	return nil
}

// ButtonView is a quick-reply option as rendered by the web widget.
type ButtonView struct {
	ID    ButtonToken `json:"id"`
	Label string      `json:"label"`
}

// UIState carries presentation hints for the widget.
type UIState struct {
	Progress int `json:"progress"` // percent through the flow, 0..100
}

// ChatResponse is the fixed-shape JSON returned for every chat turn.
type ChatResponse struct {
	OK              bool         `json:"ok"`
	Reply           string       `json:"reply"`
	Stage           Stage        `json:"stage"`
	Options         []ButtonView `json:"options"`
	UI              UIState      `json:"ui"`
	AllowWhatsApp   bool         `json:"allowWhatsapp"`
	EndConversation bool         `json:"endConversation"`
	Help            string       `json:"help,omitempty"`
	Steps           []string     `json:"steps,omitempty"`
	SessionID       string       `json:"sessionId,omitempty"`
	WhatsAppLink    string       `json:"whatsappLink,omitempty"`
	UpdatedSession  *Session     `json:"updatedSession,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API envelope for admin endpoints.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().WithStatus(APIStatusOK).WithResult(result).Build()
}

// SuccessWithMessage creates a successful API response with a message and result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().WithStatus(APIStatusOK).WithMessage(message).WithResult(result).Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().WithStatus(APIStatusError).WithMessage(message).Build()
}
