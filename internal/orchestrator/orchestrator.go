// Package orchestrator drives one conversation turn: it validates the
// incoming event against the stage contract, routes it to the stage
// handler, applies the resulting session mutation to a working copy,
// creates tickets, and assembles the fixed-shape chat response.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stirosario/tecnos/internal/ai"
	"github.com/stirosario/tecnos/internal/audit"
	"github.com/stirosario/tecnos/internal/flow"
	"github.com/stirosario/tecnos/internal/governance"
	"github.com/stirosario/tecnos/internal/models"
	"github.com/stirosario/tecnos/internal/notify"
	"github.com/stirosario/tecnos/internal/store"
	"github.com/stirosario/tecnos/internal/util"
)

// Analyzer is the slice of the AI client the orchestrator needs.
type Analyzer interface {
	ClassifyProblem(ctx context.Context, description string) (*ai.ProblemAnalysis, error)
	AnalyzeImages(ctx context.Context, userHint string, imageURLs []string) (string, error)
}

// ImageStore saves uploaded image payloads and returns their URLs.
type ImageStore interface {
	ProcessImages(payloads []string) ([]string, error)
}

// Opts holds orchestrator dependencies beyond the store.
type Opts struct {
	Analyzer   Analyzer
	Images     ImageStore
	Notifier   notify.Notifier
	Audit      *audit.Logger
	ShopNumber string
}

// Option configures the orchestrator.
type Option func(*Opts)

// WithAnalyzer wires the AI triage and vision client.
func WithAnalyzer(a Analyzer) Option {
	return func(o *Opts) { o.Analyzer = a }
}

// WithImageStore wires the upload store.
func WithImageStore(s ImageStore) Option {
	return func(o *Opts) { o.Images = s }
}

// WithNotifier wires the supervisor notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Opts) { o.Notifier = n }
}

// WithAudit wires the CSV flow audit logger.
func WithAudit(l *audit.Logger) Option {
	return func(o *Opts) { o.Audit = l }
}

// WithShopNumber sets the WhatsApp number used in handoff deep links.
func WithShopNumber(number string) Option {
	return func(o *Opts) { o.ShopNumber = number }
}

// Orchestrator executes conversation turns.
type Orchestrator struct {
	store      store.Store
	analyzer   Analyzer
	images     ImageStore
	notifier   notify.Notifier
	audit      *audit.Logger
	shopNumber string
}

// New creates an orchestrator over the given store.
func New(st store.Store, opts ...Option) *Orchestrator {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NoopNotifier{}
	}
	return &Orchestrator{
		store:      st,
		analyzer:   cfg.Analyzer,
		images:     cfg.Images,
		notifier:   cfg.Notifier,
		audit:      cfg.Audit,
		shopNumber: cfg.ShopNumber,
	}
}

// TurnInput is one user event against a loaded session.
type TurnInput struct {
	Session *models.Session
	Text    string
	Token   models.ButtonToken
	Images  []string
}

// Turn executes one conversation turn. It never mutates in.Session: it
// returns the updated copy for the caller to persist, or nil when the
// turn failed and nothing should be saved. Failures surface as a
// localized {ok:false} response rather than an error.
func (o *Orchestrator) Turn(ctx context.Context, in TurnInput) (resp *models.ChatResponse, updated *models.Session) {
	locale := models.DefaultLocale
	if in.Session != nil {
		locale = in.Session.UserLocale
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Orchestrator.Turn: recovered from panic", "panic", r)
			resp, updated = errorResponse(locale, fmt.Errorf("internal error")), nil
		}
	}()

	if in.Session == nil {
		return errorResponse(locale, models.ErrSessionNotFound), nil
	}
	if !models.IsValidStage(in.Session.Stage) {
		slog.Error("Orchestrator.Turn: session carries invalid stage", "sessionID", in.Session.ID, "stage", in.Session.Stage)
		return errorResponse(locale, models.ErrInvalidStage), nil
	}
	if in.Text == "" && in.Token == "" && len(in.Images) == 0 {
		return errorResponse(locale, models.ErrNoInput), nil
	}
	if in.Session.Stage == models.StageEnded {
		r := errorResponse(locale, models.ErrConversationOver)
		r.Reply = flow.Reply(flow.ReplyEnded, locale)
		r.Stage = models.StageEnded
		r.EndConversation = true
		return r, nil
	}

	work := in.Session.Clone()
	event := classifyEvent(in)

	// Every turn runs through the stage contract.
	allowed, violations := governance.EnforceStage(work.Stage, event)

	var result *models.FlowResult
	switch {
	case !allowed && event.Kind == "button":
		result = flow.UnknownButton(work.Stage, in.Token)
	case !allowed:
		result = flow.NotUnderstood(work.Stage)
	default:
		var err error
		result, err = o.route(ctx, work, in, event)
		if err != nil {
			return errorResponse(locale, err), nil
		}
	}

	if result.Mutate != nil {
		result.Mutate(work)
	}
	locale = work.UserLocale

	// Ticket creation happens here, not in the handler, so the handler
	// stays pure and the reply can carry the real ticket ID.
	var ticket *models.Ticket
	if result.Action == models.ActionTicketCreated {
		var err error
		ticket, err = o.createTicket(ctx, work)
		if err != nil {
			return errorResponse(locale, err), nil
		}
		result.ReplyArgs = []interface{}{ticket.ID}
	}

	work.Stage = result.NextStage
	resp = o.buildResponse(work, result, ticket)

	tl := models.TurnLog{
		TurnID:       util.GenerateTurnID(),
		TS:           time.Now(),
		StageBefore:  in.Session.Stage,
		StageAfter:   work.Stage,
		UserEvent:    event,
		Action:       result.Action,
		BotReply:     resp.Reply,
		ButtonsShown: tokensOf(resp.Options),
		Violations:   violationStrings(violations),
	}
	work.AppendTurnLog(tl)
	work.AppendTranscript("user", transcriptLine(event))
	work.AppendTranscript("bot", resp.Reply)

	if o.audit != nil {
		if err := o.audit.Record(work.ID, tl); err != nil {
			slog.Error("Orchestrator.Turn: audit record failed", "error", err, "sessionID", work.ID)
		}
	}

	return resp, work
}

// route dispatches the event to the stage handler table.
func (o *Orchestrator) route(ctx context.Context, work *models.Session, in TurnInput, event models.UserEvent) (*models.FlowResult, error) {
	handlerIn := flow.HandlerInput{
		Text:    in.Text,
		Token:   in.Token,
		Session: work,
	}

	if event.Kind == "image" {
		analysis, err := o.ingestImages(ctx, work, in)
		if err != nil {
			return nil, err
		}
		handlerIn.ImageAnalysis = analysis
		if h := flow.GetStageHandler(work.Stage, flow.OnImage); h != nil {
			if r := h(handlerIn); r != nil {
				return r, nil
			}
		}
		return flow.NotUnderstood(work.Stage), nil
	}

	if event.Kind == "button" {
		h := flow.GetStageHandler(work.Stage, flow.OnButton)
		if h == nil {
			return flow.UnknownButton(work.Stage, in.Token), nil
		}
		if r := h(handlerIn); r != nil {
			return r, nil
		}
		return flow.UnknownButton(work.Stage, in.Token), nil
	}

	// Free text. At the problem stage the classifier runs first so the
	// handler can skip the device question.
	if work.Stage == models.StageAskProblem && o.analyzer != nil {
		analysis, err := o.analyzer.ClassifyProblem(ctx, in.Text)
		if err != nil {
			slog.Warn("Orchestrator.route: problem classification failed, continuing without it", "error", err)
		} else {
			handlerIn.Smart = analysis
		}
	}

	h := flow.GetStageHandler(work.Stage, flow.OnText)
	if h == nil {
		return flow.NotUnderstood(work.Stage), nil
	}
	if r := h(handlerIn); r != nil {
		return r, nil
	}
	return flow.NotUnderstood(work.Stage), nil
}

// ingestImages saves the uploads onto the session and runs vision over
// them when an analyzer is wired.
func (o *Orchestrator) ingestImages(ctx context.Context, work *models.Session, in TurnInput) (string, error) {
	if o.images == nil {
		return "", fmt.Errorf("image uploads are not configured")
	}
	urls, err := o.images.ProcessImages(in.Images)
	if err != nil {
		// Per-file failures are not fatal as long as something saved.
		if len(urls) == 0 {
			return "", err
		}
		slog.Warn("Orchestrator.ingestImages: some uploads were skipped", "error", err, "saved", len(urls))
	}
	work.ImageURLs = append(work.ImageURLs, urls...)
	if o.analyzer == nil {
		return "", nil
	}
	analysis, err := o.analyzer.AnalyzeImages(ctx, in.Text, urls)
	if err != nil {
		slog.Warn("Orchestrator.ingestImages: vision analysis failed, continuing without it", "error", err)
		return "", nil
	}
	return analysis, nil
}

// createTicket assembles and persists the escalation ticket, then pings
// the supervisor. A failed ping does not fail the turn.
func (o *Orchestrator) createTicket(ctx context.Context, work *models.Session) (*models.Ticket, error) {
	t := &models.Ticket{
		ID:          fmt.Sprintf("TCK-%s-%s", time.Now().Format("20060102"), util.GenerateRandomHex(4)),
		SessionID:   work.ID,
		Name:        work.UserName,
		Locale:      work.UserLocale,
		Device:      work.Device,
		DeviceType:  work.DeviceType,
		Problem:     work.Problem,
		TestsResult: work.TestsResult,
		Email:       work.ContactEmail,
		Phone:       work.ContactPhone,
		Status:      models.TicketStatusOpen,
		CreatedAt:   time.Now().UTC(),
	}
	if o.shopNumber != "" {
		t.WhatsAppLink = notify.WhatsAppLink(o.shopNumber, t)
	}
	if err := o.store.SaveTicket(t); err != nil {
		return nil, fmt.Errorf("failed to save ticket: %w", err)
	}
	work.TicketID = t.ID
	slog.Info("Orchestrator.createTicket: ticket created", "ticketID", t.ID, "sessionID", work.ID)

	if err := o.notifier.NotifyTicket(ctx, t); err == nil {
		t.Status = models.TicketStatusNotified
		if uerr := o.store.UpdateTicketStatus(t.ID, models.TicketStatusNotified); uerr != nil {
			slog.Error("Orchestrator.createTicket: failed to mark ticket notified", "error", uerr, "ticketID", t.ID)
		}
	}
	return t, nil
}

// buildResponse renders the FlowResult into the fixed response shape.
func (o *Orchestrator) buildResponse(work *models.Session, result *models.FlowResult, ticket *models.Ticket) *models.ChatResponse {
	locale := work.UserLocale

	buttons := result.Buttons
	if buttons == nil {
		buttons = governance.DefaultButtons(work.Stage)
	}
	buttons = governance.SanitizeButtonsForStage(work.Stage, buttons)

	options := make([]models.ButtonView, 0, len(buttons))
	for _, b := range buttons {
		options = append(options, models.ButtonView{ID: b, Label: flow.ButtonLabel(b, locale)})
	}

	resp := &models.ChatResponse{
		OK:              true,
		Reply:           flow.Reply(result.ReplyKey, locale, result.ReplyArgs...),
		Stage:           work.Stage,
		Options:         options,
		UI:              models.UIState{Progress: stageProgress(work.Stage)},
		AllowWhatsApp:   result.AllowWhatsApp,
		EndConversation: result.EndConversation,
		Help:            flow.HelpHint(work.Stage, locale),
		SessionID:       work.ID,
		UpdatedSession:  work,
	}
	if work.Stage == models.StageBasicTests {
		resp.Steps = flow.BasicTestSteps(work.DeviceType, locale)
	}
	if ticket != nil {
		resp.WhatsAppLink = ticket.WhatsAppLink
	}
	return resp
}

// stageProgress maps the stage position to a 0..100 percent for the
// widget progress bar.
func stageProgress(stage models.Stage) int {
	for i, s := range models.Stages {
		if s == stage {
			return i * 100 / (len(models.Stages) - 1)
		}
	}
	return 0
}

func classifyEvent(in TurnInput) models.UserEvent {
	switch {
	case len(in.Images) > 0:
		return models.UserEvent{Kind: "image", Text: in.Text}
	case in.Token != "":
		return models.UserEvent{Kind: "button", Token: in.Token}
	default:
		return models.UserEvent{Kind: "text", Text: in.Text}
	}
}

func transcriptLine(event models.UserEvent) string {
	switch event.Kind {
	case "button":
		return "[" + string(event.Token) + "]"
	case "image":
		if event.Text != "" {
			return event.Text + " [image]"
		}
		return "[image]"
	default:
		return event.Text
	}
}

func tokensOf(options []models.ButtonView) []models.ButtonToken {
	if len(options) == 0 {
		return nil
	}
	out := make([]models.ButtonToken, 0, len(options))
	for _, o := range options {
		out = append(out, o.ID)
	}
	return out
}

func violationStrings(vs []governance.Violation) []string {
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.String())
	}
	return out
}

// errorResponse is the generic localized failure shape.
func errorResponse(locale models.Locale, err error) *models.ChatResponse {
	return &models.ChatResponse{
		OK:    false,
		Reply: flow.Reply(flow.ReplyGenericError, locale),
		Error: err.Error(),
	}
}
