package flow

import "github.com/stirosario/tecnos/internal/models"

func init() {
	register(models.StageBasicTests, StageHandlers{
		OnText:   testsOnText,
		OnButton: testsOnButton,
	})
	register(models.StageProposeTicket, StageHandlers{
		OnText:   proposeOnText,
		OnButton: proposeOnButton,
	})
}

func solved() *models.FlowResult {
	return &models.FlowResult{
		Action:          models.ActionSolved,
		ReplyKey:        ReplySolved,
		NextStage:       models.StageEnded,
		EndConversation: true,
	}
}

func proposeTicket(action models.Action, result string) *models.FlowResult {
	return &models.FlowResult{
		Action:    action,
		ReplyKey:  ReplyProposeTicket,
		Buttons:   []models.ButtonToken{models.BtnYes, models.BtnNo},
		NextStage: models.StageProposeTicket,
		Mutate:    func(s *models.Session) { s.TestsResult = result },
	}
}

func testsOnButton(in HandlerInput) *models.FlowResult {
	switch in.Token {
	case models.BtnSolved:
		return solved()
	case models.BtnTestsDone:
		return proposeTicket(models.ActionTestsDone, "done")
	case models.BtnTestsFail:
		return proposeTicket(models.ActionTestsFail, "fail")
	}
	return nil
}

func testsOnText(in HandlerInput) *models.FlowResult {
	if WantsTechnician(in.Text) {
		return escalate()
	}
	if SaysSolved(in.Text) {
		return solved()
	}
	return nil
}

func proposeOnButton(in HandlerInput) *models.FlowResult {
	switch in.Token {
	case models.BtnYes:
		return escalate()
	case models.BtnNo:
		return &models.FlowResult{
			Action:          models.ActionEndConversation,
			ReplyKey:        ReplyTicketDeclined,
			NextStage:       models.StageEnded,
			EndConversation: true,
		}
	}
	return nil
}

func proposeOnText(in HandlerInput) *models.FlowResult {
	if WantsTechnician(in.Text) {
		return escalate()
	}
	accepted, matched := MatchConsent(in.Text)
	if !matched {
		return nil
	}
	if accepted {
		return proposeOnButton(HandlerInput{Token: models.BtnYes, Session: in.Session})
	}
	return proposeOnButton(HandlerInput{Token: models.BtnNo, Session: in.Session})
}
