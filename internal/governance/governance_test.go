package governance

import (
	"testing"

	"github.com/stirosario/tecnos/internal/models"
)

func TestEveryStageHasContract(t *testing.T) {
	for _, stage := range models.Stages {
		if _, ok := ContractFor(stage); !ok {
			t.Errorf("stage %s has no contract", stage)
		}
	}
}

func TestParseContracts_RejectsUnknownStage(t *testing.T) {
	_, err := parseContracts([]byte("BOGUS_STAGE:\n  type: open\n"))
	if err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestParseContracts_RejectsMissingStage(t *testing.T) {
	_, err := parseContracts([]byte("ASK_GDPR:\n  type: deterministic\n"))
	if err == nil {
		t.Fatal("expected error for incomplete table")
	}
}

func TestIsTokenAllowed(t *testing.T) {
	tests := []struct {
		stage models.Stage
		token models.ButtonToken
		want  bool
	}{
		{models.StageAskGDPR, models.BtnGDPRAccept, true},
		{models.StageAskGDPR, models.BtnSolved, false},
		{models.StageAskLanguage, models.BtnLangES, true},
		{models.StageAskLanguage, models.BtnLangEN, true},
		// Legacy region-qualified tokens ride in on the prefix rule.
		{models.StageAskLanguage, "BTN_LANG_ES_AR", true},
		{models.StageAskLanguage, "BTN_LANG_ES_ES", true},
		{models.StageAskLanguage, models.BtnHelp, false},
		{models.StageAskDevice, models.BtnDeviceRouter, true},
		{models.StageAskDevice, "BTN_DEVICE_TOASTER", true},
		{models.StageAskDevice, models.BtnYes, false},
		{models.StageEnded, models.BtnRestart, false},
	}
	for _, tt := range tests {
		if got := IsTokenAllowed(tt.stage, tt.token); got != tt.want {
			t.Errorf("IsTokenAllowed(%s, %s) = %v, want %v", tt.stage, tt.token, got, tt.want)
		}
	}
}

func TestSanitizeButtonsForStage(t *testing.T) {
	got := SanitizeButtonsForStage(models.StageBasicTests, []models.ButtonToken{
		models.BtnSolved,
		models.BtnHelp, // not in the allow-list
		models.BtnTestsDone,
		models.BtnTestsFail,
	})
	want := []models.ButtonToken{models.BtnSolved, models.BtnTestsDone, models.BtnTestsFail}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("button %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSanitizeButtonsForStage_TruncatesToMax(t *testing.T) {
	c, _ := ContractFor(models.StageAskGDPR)
	in := []models.ButtonToken{models.BtnGDPRAccept, models.BtnGDPRReject, models.BtnGDPRAccept}
	got := SanitizeButtonsForStage(models.StageAskGDPR, in)
	if len(got) > c.MaxButtons {
		t.Errorf("got %d buttons, max is %d", len(got), c.MaxButtons)
	}
}

func TestSanitizeButtonsForStage_OpenStageHasNoButtons(t *testing.T) {
	if got := SanitizeButtonsForStage(models.StageAskProblem, []models.ButtonToken{models.BtnYes}); got != nil {
		t.Errorf("open stage returned buttons: %v", got)
	}
}

func TestEnforceStage_BlocksOnlyDeterministic(t *testing.T) {
	// Bad token on a deterministic stage blocks.
	allowed, violations := EnforceStage(models.StageAskGDPR, models.UserEvent{Kind: "button", Token: models.BtnSolved})
	if allowed {
		t.Error("deterministic stage should block a disallowed token")
	}
	if len(violations) != 1 || violations[0].Code != "TOKEN_NOT_ALLOWED" {
		t.Errorf("violations = %v", violations)
	}

	// Bad token on a guided stage records but passes.
	allowed, violations = EnforceStage(models.StageBasicTests, models.UserEvent{Kind: "button", Token: models.BtnHelp})
	if !allowed {
		t.Error("guided stage should not block")
	}
	if len(violations) != 1 {
		t.Errorf("expected one recorded violation, got %v", violations)
	}

	// Clean event has no violations.
	allowed, violations = EnforceStage(models.StageAskGDPR, models.UserEvent{Kind: "button", Token: models.BtnGDPRAccept})
	if !allowed || violations != nil {
		t.Errorf("clean event: allowed=%v violations=%v", allowed, violations)
	}
}

func TestEnforceStage_EndedAcceptsNothing(t *testing.T) {
	allowed, _ := EnforceStage(models.StageEnded, models.UserEvent{Kind: "text", Text: "hola"})
	if allowed {
		t.Error("ENDED must block text")
	}
	allowed, _ = EnforceStage(models.StageEnded, models.UserEvent{Kind: "button", Token: models.BtnRestart})
	if allowed {
		t.Error("ENDED must block buttons")
	}
}

func TestEnforceStage_Images(t *testing.T) {
	allowed, violations := EnforceStage(models.StageAskProblem, models.UserEvent{Kind: "image"})
	if !allowed || violations != nil {
		t.Errorf("ASK_PROBLEM should accept images, got allowed=%v %v", allowed, violations)
	}
	_, violations = EnforceStage(models.StageAskGDPR, models.UserEvent{Kind: "image"})
	if len(violations) != 1 || violations[0].Code != "IMAGES_NOT_ALLOWED" {
		t.Errorf("violations = %v", violations)
	}
}
