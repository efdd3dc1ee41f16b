package flow

import (
	"strings"

	"github.com/stirosario/tecnos/internal/models"
)

func init() {
	register(models.StageCreateTicket, StageHandlers{
		OnText: emailOnText,
	})
	register(models.StageAskPhone, StageHandlers{
		OnText: phoneOnText,
	})
	register(models.StageTicketCreated, StageHandlers{
		OnText:   ticketCreatedOnText,
		OnButton: ticketCreatedOnButton,
	})
}

func emailOnText(in HandlerInput) *models.FlowResult {
	email := strings.TrimSpace(strings.ToLower(in.Text))
	if !models.IsValidEmail(email) {
		return &models.FlowResult{
			Action:    models.ActionNotUnderstood,
			ReplyKey:  ReplyBadEmail,
			NextStage: models.StageCreateTicket,
		}
	}
	return &models.FlowResult{
		Action:    models.ActionSetEmail,
		ReplyKey:  ReplyAskPhone,
		NextStage: models.StageAskPhone,
		Mutate:    func(s *models.Session) { s.ContactEmail = email },
	}
}

func phoneOnText(in HandlerInput) *models.FlowResult {
	phone := strings.TrimSpace(in.Text)
	if !models.IsValidPhone(phone) {
		return &models.FlowResult{
			Action:    models.ActionNotUnderstood,
			ReplyKey:  ReplyBadPhone,
			NextStage: models.StageAskPhone,
		}
	}
	// The orchestrator owns ticket creation and fills the ticket ID into
	// the reply args once the ticket exists.
	return &models.FlowResult{
		Action:        models.ActionTicketCreated,
		ReplyKey:      ReplyTicketCreated,
		Buttons:       []models.ButtonToken{models.BtnWhatsApp, models.BtnRestart},
		NextStage:     models.StageTicketCreated,
		AllowWhatsApp: true,
		Mutate:        func(s *models.Session) { s.ContactPhone = phone },
	}
}

func restart() *models.FlowResult {
	return &models.FlowResult{
		Action:    models.ActionRestart,
		ReplyKey:  ReplyAskMode,
		Buttons:   []models.ButtonToken{models.BtnHelp, models.BtnTask},
		NextStage: models.StageAskMode,
		Mutate: func(s *models.Session) {
			s.Mode = ""
			s.Device = ""
			s.DeviceType = ""
			s.Problem = ""
			s.TestsResult = ""
			s.TicketID = ""
			s.ImageURLs = nil
		},
	}
}

func ticketCreatedOnButton(in HandlerInput) *models.FlowResult {
	switch in.Token {
	case models.BtnWhatsApp:
		return &models.FlowResult{
			Action:          models.ActionEndConversation,
			ReplyKey:        ReplyGoodbye,
			NextStage:       models.StageEnded,
			EndConversation: true,
			AllowWhatsApp:   true,
		}
	case models.BtnRestart:
		r := restart()
		r.ReplyArgs = []interface{}{in.Session.DisplayName()}
		return r
	}
	return nil
}

func ticketCreatedOnText(in HandlerInput) *models.FlowResult {
	norm := normalizeText(in.Text)
	if strings.Contains(norm, "de nuevo") || strings.Contains(norm, "otra consulta") ||
		strings.Contains(norm, "empezar") || strings.Contains(norm, "start over") {
		r := restart()
		r.ReplyArgs = []interface{}{in.Session.DisplayName()}
		return r
	}
	return nil
}
