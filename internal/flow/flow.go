// Package flow defines the declarative stage table that drives the Tecnos
// conversation. Each stage exposes up to three pure handlers; the
// orchestrator looks them up here and applies the returned FlowResult.
package flow

import (
	"log/slog"

	"github.com/stirosario/tecnos/internal/ai"
	"github.com/stirosario/tecnos/internal/models"
)

// HandlerKind selects which handler of a stage to invoke.
type HandlerKind string

const (
	// OnText handles a free-text message.
	OnText HandlerKind = "onText"
	// OnButton handles a quick-reply button press.
	OnButton HandlerKind = "onButton"
	// OnImage handles a turn that carried uploaded images.
	OnImage HandlerKind = "onImage"
)

// HandlerInput is everything a stage handler may look at. Handlers treat
// the session as read-only and request changes via FlowResult.Mutate.
type HandlerInput struct {
	Text          string
	Token         models.ButtonToken
	Session       *models.Session
	Smart         *ai.ProblemAnalysis
	ImageAnalysis string
}

// Handler is a pure stage handler. A nil result means the input was not
// recognized and the caller should fall back to NOT_UNDERSTOOD.
type Handler func(in HandlerInput) *models.FlowResult

// StageHandlers groups the handlers of one stage.
type StageHandlers struct {
	OnText   Handler
	OnButton Handler
	OnImage  Handler
}

var registry = map[models.Stage]StageHandlers{}

// register associates a stage with its handlers. Called from init only.
func register(stage models.Stage, h StageHandlers) {
	registry[stage] = h
}

// GetStageHandler retrieves the handler of the given kind for a stage.
// Returns nil when the stage has no handler of that kind or the stage is
// unknown.
func GetStageHandler(stage models.Stage, kind HandlerKind) Handler {
	h, ok := registry[stage]
	if !ok {
		slog.Debug("flow.GetStageHandler: unknown stage", "stage", stage)
		return nil
	}
	switch kind {
	case OnText:
		return h.OnText
	case OnButton:
		return h.OnButton
	case OnImage:
		return h.OnImage
	default:
		return nil
	}
}

// NotUnderstood builds the fallback result for unmatched text: same stage,
// localized "didn't get that" reply.
func NotUnderstood(stage models.Stage) *models.FlowResult {
	return &models.FlowResult{
		Action:    models.ActionNotUnderstood,
		ReplyKey:  ReplyNotUnderstood,
		NextStage: stage,
	}
}

// UnknownButton builds the fallback result for a token no handler claimed:
// same stage, localized "use the options" reply.
func UnknownButton(stage models.Stage, token models.ButtonToken) *models.FlowResult {
	slog.Debug("flow.UnknownButton", "stage", stage, "token", token)
	return &models.FlowResult{
		Action:    models.ActionUnknownButton,
		ReplyKey:  ReplyUnknownButton,
		NextStage: stage,
	}
}
