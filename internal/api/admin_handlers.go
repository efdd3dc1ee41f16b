// Package api: read-only admin endpoints for tickets and session audits.
package api

import (
	"log/slog"
	"net/http"

	"github.com/stirosario/tecnos/internal/models"
)

// listTicketsHandler handles GET /api/tickets
func (s *Server) listTicketsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("listTicketsHandler invoked", "path", r.URL.Path)

	tickets, err := s.st.ListTickets()
	if err != nil {
		slog.Error("listTicketsHandler failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list tickets"))
		return
	}
	slog.Debug("listTicketsHandler succeeded", "count", len(tickets))
	writeJSONResponse(w, http.StatusOK, models.Success(tickets))
}

// getTicketHandler handles GET /api/tickets/{id}
func (s *Server) getTicketHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("getTicketHandler invoked", "ticketID", id)

	ticket, err := s.st.GetTicket(id)
	if err != nil {
		slog.Error("getTicketHandler failed", "error", err, "ticketID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load ticket"))
		return
	}
	if ticket == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Ticket not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(ticket))
}

// sessionTurnsHandler handles GET /api/sessions/{id}/turns
func (s *Server) sessionTurnsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("sessionTurnsHandler invoked", "sessionID", id)

	sess, err := s.st.GetSession(id)
	if err != nil {
		slog.Error("sessionTurnsHandler failed", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	if sess == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	turns := sess.TurnLogs
	if turns == nil {
		turns = []models.TurnLog{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(turns))
}

// healthHandler handles GET /health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
