package flow

import (
	"strings"

	"github.com/stirosario/tecnos/internal/models"
)

func init() {
	register(models.StageAskGDPR, StageHandlers{
		OnText:   gdprOnText,
		OnButton: gdprOnButton,
	})
	register(models.StageAskLanguage, StageHandlers{
		OnText:   languageOnText,
		OnButton: languageOnButton,
	})
	register(models.StageAskName, StageHandlers{
		OnText:   nameOnText,
		OnButton: nameOnButton,
	})
}

func consentAccepted() *models.FlowResult {
	return &models.FlowResult{
		Action:    models.ActionConsentAccepted,
		ReplyKey:  ReplyAskLanguage,
		Buttons:   []models.ButtonToken{models.BtnLangES, models.BtnLangEN},
		NextStage: models.StageAskLanguage,
		Mutate:    func(s *models.Session) { s.GDPRConsent = true },
	}
}

func consentRejected() *models.FlowResult {
	return &models.FlowResult{
		Action:          models.ActionConsentRejected,
		ReplyKey:        ReplyConsentReject,
		NextStage:       models.StageEnded,
		EndConversation: true,
	}
}

func gdprOnButton(in HandlerInput) *models.FlowResult {
	switch in.Token {
	case models.BtnGDPRAccept:
		return consentAccepted()
	case models.BtnGDPRReject:
		return consentRejected()
	}
	return nil
}

func gdprOnText(in HandlerInput) *models.FlowResult {
	accepted, matched := MatchConsent(in.Text)
	if !matched {
		return nil
	}
	if accepted {
		return consentAccepted()
	}
	return consentRejected()
}

func languageChosen(locale models.Locale) *models.FlowResult {
	return &models.FlowResult{
		Action:    models.ActionSetLanguage,
		ReplyKey:  ReplyAskName,
		Buttons:   []models.ButtonToken{models.BtnNoName},
		NextStage: models.StageAskName,
		Mutate:    func(s *models.Session) { s.UserLocale = locale },
	}
}

func languageOnButton(in HandlerInput) *models.FlowResult {
	// Older clients still send the region-qualified variants, so match on
	// the token family rather than exact values.
	switch {
	case in.Token == models.BtnLangEN:
		return languageChosen(models.LocaleEn)
	case in.Token == "BTN_LANG_ES_ES":
		return languageChosen(models.LocaleEsES)
	case strings.HasPrefix(string(in.Token), "BTN_LANG_ES"):
		return languageChosen(models.LocaleEsAR)
	}
	return nil
}

func languageOnText(in HandlerInput) *models.FlowResult {
	locale, ok := MatchLanguage(in.Text)
	if !ok {
		return nil
	}
	return languageChosen(locale)
}

func askMode(name string) *models.FlowResult {
	return &models.FlowResult{
		Action:    models.ActionSetName,
		ReplyKey:  ReplyAskMode,
		ReplyArgs: []interface{}{name},
		Buttons:   []models.ButtonToken{models.BtnHelp, models.BtnTask},
		NextStage: models.StageAskMode,
	}
}

// namePrefixes are conversational lead-ins users type before their name.
var namePrefixes = []string{"me llamo", "mi nombre es", "soy", "my name is", "i am", "i'm"}

func cleanName(text string) string {
	name := strings.TrimSpace(text)
	lower := strings.ToLower(name)
	for _, p := range namePrefixes {
		if strings.HasPrefix(lower, p+" ") {
			name = strings.TrimSpace(name[len(p):])
			break
		}
	}
	name = strings.Trim(name, ".,!¡")
	if len(name) > models.MaxNameLength {
		// Trim on a rune boundary so accented names are not cut mid-rune.
		runes := []rune(name)
		if len(runes) > models.MaxNameLength {
			runes = runes[:models.MaxNameLength]
		}
		name = string(runes)
	}
	return name
}

func nameOnText(in HandlerInput) *models.FlowResult {
	name := cleanName(in.Text)
	if name == "" {
		return nil
	}
	r := askMode(name)
	r.Mutate = func(s *models.Session) { s.UserName = name }
	return r
}

func nameOnButton(in HandlerInput) *models.FlowResult {
	if in.Token != models.BtnNoName {
		return nil
	}
	r := askMode(in.Session.DisplayName())
	return r
}
