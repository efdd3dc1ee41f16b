package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stirosario/tecnos/internal/ai"
	"github.com/stirosario/tecnos/internal/models"
	"github.com/stirosario/tecnos/internal/store"
)

type mockAnalyzer struct {
	analysis    *ai.ProblemAnalysis
	vision      string
	classifyErr error
	visionErr   error
}

func (m *mockAnalyzer) ClassifyProblem(ctx context.Context, description string) (*ai.ProblemAnalysis, error) {
	if m.classifyErr != nil {
		return nil, m.classifyErr
	}
	return m.analysis, nil
}

func (m *mockAnalyzer) AnalyzeImages(ctx context.Context, userHint string, imageURLs []string) (string, error) {
	if m.visionErr != nil {
		return "", m.visionErr
	}
	return m.vision, nil
}

type mockImageStore struct {
	urls []string
	err  error
}

func (m *mockImageStore) ProcessImages(payloads []string) ([]string, error) {
	return m.urls, m.err
}

type recordingNotifier struct {
	tickets []*models.Ticket
	err     error
}

func (r *recordingNotifier) NotifyTicket(ctx context.Context, t *models.Ticket) error {
	if r.err != nil {
		return r.err
	}
	r.tickets = append(r.tickets, t)
	return nil
}

func newOrch(t *testing.T, opts ...Option) (*Orchestrator, store.Store) {
	t.Helper()
	st := store.NewInMemoryStore()
	return New(st, opts...), st
}

// advance runs one turn and fails the test if it did not succeed.
func advance(t *testing.T, o *Orchestrator, s *models.Session, in TurnInput) (*models.ChatResponse, *models.Session) {
	t.Helper()
	in.Session = s
	resp, updated := o.Turn(context.Background(), in)
	if !resp.OK {
		t.Fatalf("turn failed at stage %s: %s", s.Stage, resp.Error)
	}
	if updated == nil {
		t.Fatalf("turn at stage %s returned no updated session", s.Stage)
	}
	return resp, updated
}

func TestTurn_GDPRAcceptShowsLanguageOptions(t *testing.T) {
	o, _ := newOrch(t)
	s := models.NewSession("sess_1")

	resp, updated := advance(t, o, s, TurnInput{Token: models.BtnGDPRAccept})

	if updated.Stage != models.StageAskLanguage {
		t.Errorf("stage = %s, want %s", updated.Stage, models.StageAskLanguage)
	}
	if !updated.GDPRConsent {
		t.Error("consent not recorded")
	}
	if len(resp.Options) != 2 {
		t.Fatalf("got %d options, want 2", len(resp.Options))
	}
	if resp.Options[0].ID != models.BtnLangES || resp.Options[1].ID != models.BtnLangEN {
		t.Errorf("options = %v", resp.Options)
	}
	// The original session object is untouched.
	if s.Stage != models.StageAskGDPR || s.GDPRConsent {
		t.Error("input session was mutated")
	}
}

func TestTurn_GDPRRejectEnds(t *testing.T) {
	o, _ := newOrch(t)
	s := models.NewSession("sess_1")

	resp, updated := advance(t, o, s, TurnInput{Token: models.BtnGDPRReject})

	if !resp.EndConversation {
		t.Error("expected endConversation")
	}
	if updated.Stage != models.StageEnded {
		t.Errorf("stage = %s, want %s", updated.Stage, models.StageEnded)
	}

	// The typed refusal must end the conversation too.
	s2 := models.NewSession("sess_2")
	resp, updated = advance(t, o, s2, TurnInput{Text: "no acepto"})
	if !resp.EndConversation || updated.Stage != models.StageEnded {
		t.Errorf("typed refusal: stage = %s end = %v, want %s/true",
			updated.Stage, resp.EndConversation, models.StageEnded)
	}
	if updated.GDPRConsent {
		t.Error("typed refusal must not record consent")
	}
}

func TestTurn_UnknownButtonStaysOnStage(t *testing.T) {
	o, _ := newOrch(t)
	s := models.NewSession("sess_1")

	in := TurnInput{Session: s, Token: "BTN_BOGUS"}
	resp, updated := o.Turn(context.Background(), in)

	if !resp.OK {
		t.Fatalf("unknown button should not fail the turn: %s", resp.Error)
	}
	if updated.Stage != models.StageAskGDPR {
		t.Errorf("stage = %s, want unchanged", updated.Stage)
	}
	last := updated.TurnLogs[len(updated.TurnLogs)-1]
	if last.Action != models.ActionUnknownButton {
		t.Errorf("action = %s, want %s", last.Action, models.ActionUnknownButton)
	}
	if len(last.Violations) == 0 {
		t.Error("expected a recorded contract violation")
	}
}

func TestTurn_NoInput(t *testing.T) {
	o, _ := newOrch(t)
	s := models.NewSession("sess_1")
	resp, updated := o.Turn(context.Background(), TurnInput{Session: s})
	if resp.OK || updated != nil {
		t.Errorf("expected failure, got ok=%v updated=%v", resp.OK, updated)
	}
	if resp.Error != models.ErrNoInput.Error() {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestTurn_EndedSessionRefusesInput(t *testing.T) {
	o, _ := newOrch(t)
	s := models.NewSession("sess_1")
	s.Stage = models.StageEnded
	resp, updated := o.Turn(context.Background(), TurnInput{Session: s, Text: "hola"})
	if resp.OK || updated != nil {
		t.Error("ended session must not accept turns")
	}
	if resp.Error != models.ErrConversationOver.Error() {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestTurn_InvalidStage(t *testing.T) {
	o, _ := newOrch(t)
	s := models.NewSession("sess_1")
	s.Stage = "BOGUS"
	resp, _ := o.Turn(context.Background(), TurnInput{Session: s, Text: "hola"})
	if resp.OK || resp.Error != models.ErrInvalidStage.Error() {
		t.Errorf("resp = %+v", resp)
	}
}

// walkToBasicTests drives a session from scratch to BASIC_TESTS.
func walkToBasicTests(t *testing.T, o *Orchestrator) *models.Session {
	t.Helper()
	s := models.NewSession("sess_walk")
	_, s = advance(t, o, s, TurnInput{Token: models.BtnGDPRAccept})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnLangES})
	_, s = advance(t, o, s, TurnInput{Text: "me llamo Carla"})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnHelp})
	_, s = advance(t, o, s, TurnInput{Text: "la notebook no enciende, pantalla negra"})
	if s.Stage == models.StageAskDevice {
		_, s = advance(t, o, s, TurnInput{Token: models.BtnDeviceNotebook})
	}
	if s.Stage != models.StageBasicTests {
		t.Fatalf("walk ended at %s, want %s", s.Stage, models.StageBasicTests)
	}
	return s
}

func TestTurn_FullFlowToTicket(t *testing.T) {
	notifier := &recordingNotifier{}
	o, st := newOrch(t, WithNotifier(notifier), WithShopNumber("+5493415550000"))

	s := walkToBasicTests(t, o)
	if s.UserName != "Carla" || s.DeviceType != models.DeviceNotebook {
		t.Fatalf("session after walk: %+v", s)
	}

	resp, s := advance(t, o, s, TurnInput{Token: models.BtnTestsDone})
	if s.Stage != models.StageProposeTicket {
		t.Fatalf("stage = %s", s.Stage)
	}
	_, s = advance(t, o, s, TurnInput{Token: models.BtnYes})
	if s.Stage != models.StageCreateTicket {
		t.Fatalf("stage = %s", s.Stage)
	}
	_, s = advance(t, o, s, TurnInput{Text: "carla@example.com"})
	if s.Stage != models.StageAskPhone {
		t.Fatalf("stage = %s", s.Stage)
	}
	resp, s = advance(t, o, s, TurnInput{Text: "+54 9 341 5551234"})

	if s.Stage != models.StageTicketCreated {
		t.Fatalf("stage = %s, want %s", s.Stage, models.StageTicketCreated)
	}
	if s.TicketID == "" || !strings.HasPrefix(s.TicketID, "TCK-") {
		t.Errorf("ticket id = %q", s.TicketID)
	}
	if !strings.Contains(resp.Reply, s.TicketID) {
		t.Errorf("reply %q does not carry the ticket id", resp.Reply)
	}
	if !resp.AllowWhatsApp {
		t.Error("expected allowWhatsapp after ticket creation")
	}
	if !strings.HasPrefix(resp.WhatsAppLink, "https://wa.me/5493415550000") {
		t.Errorf("whatsapp link = %q", resp.WhatsAppLink)
	}

	stored, err := st.GetTicket(s.TicketID)
	if err != nil || stored == nil {
		t.Fatalf("ticket not persisted: %v", err)
	}
	if stored.Email != "carla@example.com" || stored.Problem == "" {
		t.Errorf("stored ticket = %+v", stored)
	}
	if stored.Status != models.TicketStatusNotified {
		t.Errorf("status = %s, want notified", stored.Status)
	}
	if len(notifier.tickets) != 1 {
		t.Errorf("supervisor pinged %d times, want 1", len(notifier.tickets))
	}
}

func TestTurn_NotifierFailureKeepsTicketOpen(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("twilio down")}
	o, st := newOrch(t, WithNotifier(notifier))

	s := walkToBasicTests(t, o)
	_, s = advance(t, o, s, TurnInput{Token: models.BtnTestsFail})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnYes})
	_, s = advance(t, o, s, TurnInput{Text: "a@b.co"})
	_, s = advance(t, o, s, TurnInput{Text: "+5493415551234"})

	stored, _ := st.GetTicket(s.TicketID)
	if stored == nil || stored.Status != models.TicketStatusOpen {
		t.Errorf("ticket = %+v, want open", stored)
	}
}

func TestTurn_TechnicianShortcut(t *testing.T) {
	o, _ := newOrch(t)
	s := walkToBasicTests(t, o)

	_, s = advance(t, o, s, TurnInput{Text: "Quiero hablar con un técnico"})
	if s.Stage != models.StageCreateTicket {
		t.Errorf("stage = %s, want %s", s.Stage, models.StageCreateTicket)
	}
}

func TestTurn_ClassifierSkipsDeviceQuestion(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: &ai.ProblemAnalysis{DeviceType: models.DeviceRouter, Category: "network", Summary: "router dropping wifi"}}
	o, _ := newOrch(t, WithAnalyzer(analyzer))

	s := models.NewSession("sess_smart")
	_, s = advance(t, o, s, TurnInput{Token: models.BtnGDPRAccept})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnLangEN})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnNoName})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnHelp})
	resp, s := advance(t, o, s, TurnInput{Text: "internet keeps dropping"})

	if s.Stage != models.StageBasicTests {
		t.Fatalf("stage = %s, want %s", s.Stage, models.StageBasicTests)
	}
	if s.DeviceType != models.DeviceRouter {
		t.Errorf("device type = %s", s.DeviceType)
	}
	if len(resp.Steps) == 0 {
		t.Error("expected basic test steps in the response")
	}
}

func TestTurn_ClassifierFailureFallsBack(t *testing.T) {
	analyzer := &mockAnalyzer{classifyErr: errors.New("rate_limit_exceeded")}
	o, _ := newOrch(t, WithAnalyzer(analyzer))

	s := models.NewSession("sess_fallback")
	_, s = advance(t, o, s, TurnInput{Token: models.BtnGDPRAccept})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnLangES})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnNoName})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnHelp})
	_, s = advance(t, o, s, TurnInput{Text: "algo anda mal"})

	if s.Stage != models.StageAskDevice {
		t.Errorf("stage = %s, want fallback to %s", s.Stage, models.StageAskDevice)
	}
}

func TestTurn_ImageAtProblemStage(t *testing.T) {
	analyzer := &mockAnalyzer{vision: "blue screen with error 0x7B"}
	imgs := &mockImageStore{urls: []string{"/uploads/img_1.png"}}
	o, _ := newOrch(t, WithAnalyzer(analyzer), WithImageStore(imgs))

	s := models.NewSession("sess_img")
	_, s = advance(t, o, s, TurnInput{Token: models.BtnGDPRAccept})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnLangES})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnNoName})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnHelp})

	payload := base64.StdEncoding.EncodeToString([]byte("fake"))
	resp, s := advance(t, o, s, TurnInput{Images: []string{payload}})

	if s.Stage != models.StageAskDevice {
		t.Errorf("stage = %s, want %s", s.Stage, models.StageAskDevice)
	}
	if len(s.ImageURLs) != 1 {
		t.Errorf("image urls = %v", s.ImageURLs)
	}
	if !strings.Contains(resp.Reply, "blue screen") {
		t.Errorf("reply = %q, want vision summary", resp.Reply)
	}
	if s.Problem != "blue screen with error 0x7B" {
		t.Errorf("problem = %q", s.Problem)
	}
}

func TestTurn_ImagePartialSaveContinues(t *testing.T) {
	imgs := &mockImageStore{
		urls: []string{"/uploads/img_1.png"},
		err:  errors.New("image 1: invalid image payload"),
	}
	o, _ := newOrch(t, WithImageStore(imgs))

	s := models.NewSession("sess_img3")
	_, s = advance(t, o, s, TurnInput{Token: models.BtnGDPRAccept})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnLangES})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnNoName})
	_, s = advance(t, o, s, TurnInput{Token: models.BtnHelp})

	payload := base64.StdEncoding.EncodeToString([]byte("fake"))
	resp, s := advance(t, o, s, TurnInput{Images: []string{payload, "@@@"}})

	if !resp.OK {
		t.Fatalf("turn should succeed when at least one upload saved, got error %q", resp.Error)
	}
	if len(s.ImageURLs) != 1 {
		t.Errorf("image urls = %v, want the saved upload only", s.ImageURLs)
	}
}

func TestTurn_ImageAtDisallowedStage(t *testing.T) {
	imgs := &mockImageStore{urls: []string{"/uploads/img_1.png"}}
	o, _ := newOrch(t, WithImageStore(imgs))

	s := models.NewSession("sess_img2")
	payload := base64.StdEncoding.EncodeToString([]byte("fake"))
	resp, updated := o.Turn(context.Background(), TurnInput{Session: s, Images: []string{payload}})

	// GDPR is deterministic and does not accept images: blocked, stage kept.
	if !resp.OK {
		t.Fatalf("blocked image should still produce an ok response: %s", resp.Error)
	}
	if updated.Stage != models.StageAskGDPR {
		t.Errorf("stage = %s, want unchanged", updated.Stage)
	}
	if len(updated.ImageURLs) != 0 {
		t.Error("image must not be stored when the stage rejects it")
	}
}

func TestTurn_TurnLogAndTranscript(t *testing.T) {
	o, _ := newOrch(t)
	s := models.NewSession("sess_log")
	resp, updated := advance(t, o, s, TurnInput{Token: models.BtnGDPRAccept})

	if len(updated.TurnLogs) != 1 {
		t.Fatalf("turn logs = %d, want 1", len(updated.TurnLogs))
	}
	tl := updated.TurnLogs[0]
	if tl.StageBefore != models.StageAskGDPR || tl.StageAfter != models.StageAskLanguage {
		t.Errorf("turn log stages = %s -> %s", tl.StageBefore, tl.StageAfter)
	}
	if tl.BotReply != resp.Reply {
		t.Error("turn log reply differs from response")
	}
	if len(updated.Transcript) != 2 {
		t.Errorf("transcript entries = %d, want 2", len(updated.Transcript))
	}
	if updated.Transcript[0].Role != "user" || updated.Transcript[1].Role != "bot" {
		t.Errorf("transcript roles = %v", updated.Transcript)
	}
}

func TestStageProgress(t *testing.T) {
	if got := stageProgress(models.StageAskGDPR); got != 0 {
		t.Errorf("first stage progress = %d", got)
	}
	if got := stageProgress(models.StageEnded); got != 100 {
		t.Errorf("last stage progress = %d", got)
	}
	mid := stageProgress(models.StageBasicTests)
	if mid <= 0 || mid >= 100 {
		t.Errorf("mid-flow progress = %d", mid)
	}
}

func TestTurn_LocaleSwitchesReplies(t *testing.T) {
	o, _ := newOrch(t)
	s := models.NewSession("sess_en")
	_, s = advance(t, o, s, TurnInput{Token: models.BtnGDPRAccept})
	resp, s := advance(t, o, s, TurnInput{Token: models.BtnLangEN})

	if s.UserLocale != models.LocaleEn {
		t.Fatalf("locale = %s", s.UserLocale)
	}
	if !strings.Contains(resp.Reply, "name") {
		t.Errorf("reply = %q, want English ask-name", resp.Reply)
	}
}
