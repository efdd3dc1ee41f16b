// Package api: public chat endpoints used by the web widget.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stirosario/tecnos/internal/flow"
	"github.com/stirosario/tecnos/internal/governance"
	"github.com/stirosario/tecnos/internal/models"
	"github.com/stirosario/tecnos/internal/orchestrator"
)

// greetingHandler handles GET /api/greeting: it creates a session and
// returns the opening message with the consent buttons.
func (s *Server) greetingHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("greetingHandler invoked", "path", r.URL.Path)

	sess, err := s.sessions.Create()
	if err != nil {
		slog.Error("greetingHandler session creation failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, chatError(models.DefaultLocale, "failed to create session"))
		return
	}

	locale := models.DefaultLocale
	buttons := governance.SanitizeButtonsForStage(sess.Stage, governance.DefaultButtons(sess.Stage))
	options := make([]models.ButtonView, 0, len(buttons))
	for _, b := range buttons {
		options = append(options, models.ButtonView{ID: b, Label: flow.ButtonLabel(b, locale)})
	}

	resp := models.ChatResponse{
		OK:        true,
		Reply:     flow.Reply(flow.ReplyGreeting, locale),
		Stage:     sess.Stage,
		Options:   options,
		SessionID: sess.ID,
	}
	slog.Info("greetingHandler session created", "sessionID", sess.ID)
	writeJSONResponse(w, http.StatusOK, resp)
}

// chatHandler handles POST /api/chat: one conversation turn.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("chatHandler invoked", "path", r.URL.Path)

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("chatHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, chatError(models.DefaultLocale, "invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("chatHandler validation failed", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusBadRequest, chatError(models.DefaultLocale, err.Error()))
		return
	}

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) || errors.Is(err, models.ErrEmptySessionID) {
			slog.Warn("chatHandler unknown session", "sessionID", req.SessionID)
			writeJSONResponse(w, http.StatusNotFound, chatError(models.DefaultLocale, err.Error()))
			return
		}
		slog.Error("chatHandler session load failed", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, chatError(models.DefaultLocale, "failed to load session"))
		return
	}

	resp, updated := s.orch.Turn(r.Context(), orchestrator.TurnInput{
		Session: sess,
		Text:    req.Text,
		Token:   models.ButtonToken(req.ButtonToken),
		Images:  req.Images,
	})

	if updated != nil {
		s.sessions.Touch(updated)
		if err := s.saver.MarkDirty(updated); err != nil {
			slog.Error("chatHandler mark dirty failed", "error", err, "sessionID", updated.ID)
		}
		if err := s.saver.Flush(); err != nil {
			slog.Error("chatHandler session flush failed", "error", err, "sessionID", updated.ID)
		}
	}

	status := http.StatusOK
	if !resp.OK {
		status = statusForChatError(resp.Error)
	}
	writeJSONResponse(w, status, resp)
}

// statusForChatError maps turn failures onto HTTP status codes. The body
// already carries the localized message; the code is for the widget's
// retry logic.
func statusForChatError(errMsg string) int {
	switch errMsg {
	case models.ErrNoInput.Error(), models.ErrTextTooLong.Error(), models.ErrTooManyImages.Error():
		return http.StatusBadRequest
	case models.ErrConversationOver.Error():
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// chatError builds the fixed-shape failure body for transport-level
// problems, mirroring what the orchestrator returns for turn failures.
func chatError(locale models.Locale, msg string) models.ChatResponse {
	return models.ChatResponse{
		OK:    false,
		Reply: flow.Reply(flow.ReplyGenericError, locale),
		Error: msg,
	}
}
