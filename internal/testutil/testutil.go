// Package testutil provides common test utilities and helpers for Tecnos tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stirosario/tecnos/internal/api"
	"github.com/stirosario/tecnos/internal/models"
	"github.com/stirosario/tecnos/internal/orchestrator"
	"github.com/stirosario/tecnos/internal/session"
	"github.com/stirosario/tecnos/internal/store"
)

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer(opts ...orchestrator.Option) (*api.Server, store.Store) {
	st := store.NewInMemoryStore()
	sessions := session.NewManager(st)
	saver := session.NewSaver(st)
	orch := orchestrator.New(st, opts...)
	return api.NewServer(sessions, saver, orch, st), st
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes an admin-envelope response and validates the
// status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// DecodeChatResponse decodes the fixed-shape chat body.
func DecodeChatResponse(t *testing.T, rr *httptest.ResponseRecorder) models.ChatResponse {
	t.Helper()
	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode chat response: %v", err)
	}
	return resp
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// SeedTicket adds a sample ticket to the store for testing.
func SeedTicket(t *testing.T, st store.Store, id string) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{
		ID:        id,
		SessionID: "sess_seed",
		Locale:    models.LocaleEsAR,
		Problem:   "no enciende",
		Email:     "cliente@example.com",
		Phone:     "+5493415551234",
		Status:    models.TicketStatusOpen,
	}
	if err := st.SaveTicket(ticket); err != nil {
		t.Fatalf("failed to seed ticket: %v", err)
	}
	return ticket
}
