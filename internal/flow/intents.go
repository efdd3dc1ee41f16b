package flow

import (
	"regexp"
	"strings"

	"github.com/stirosario/tecnos/internal/models"
)

// Intent matches free text to a flow action. Matching walks the relevant
// list in order and stops at the first hit, so more specific intents must
// come before broader ones.
type Intent struct {
	Name    string
	Pattern *regexp.Regexp
}

// Match reports whether the intent fires on the given text.
func (i Intent) Match(text string) bool {
	return i.Pattern.MatchString(normalizeText(text))
}

// normalizeText lowercases and strips the accents the original audience
// types inconsistently, so one pattern covers both spellings.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
	)
	return replacer.Replace(s)
}

var (
	// intentConsentRefuse lists explicit refusals. It is checked before the
	// affirmatives so "no acepto" never matches on its "acepto" suffix.
	intentConsentRefuse = Intent{Name: "consent_refuse", Pattern: regexp.MustCompile(`\bno (acepto|quiero|doy|estoy de acuerdo)\b|\b(rechazo|nunca|jamas|disagree|refuse)\b|\bi (don'?t|do not) (agree|accept|consent)\b`)}
	intentConsentYes    = Intent{Name: "consent_yes", Pattern: regexp.MustCompile(`\b(si|sí|acepto|dale|ok|okay|de acuerdo|yes|agree|sure)\b`)}
	intentConsentNo     = Intent{Name: "consent_no", Pattern: regexp.MustCompile(`\b(no|nope)\b`)}

	intentTechnician = Intent{Name: "technician", Pattern: regexp.MustCompile(`\b(tecnico|humano|persona|asesor|technician|human|agent)\b|hablar con (un|el) tecnico|talk to a (technician|human)`)}
	intentSolved     = Intent{Name: "solved", Pattern: regexp.MustCompile(`se soluciono|ya (funciona|anda|prende)|lo resolvi|it'?s? (fixed|working)|solved|funciona de nuevo`)}

	intentLangEN = Intent{Name: "lang_en", Pattern: regexp.MustCompile(`\b(english|ingles|inglés)\b`)}
	intentLangES = Intent{Name: "lang_es", Pattern: regexp.MustCompile(`\b(espanol|español|castellano|spanish)\b`)}
)

// deviceIntents map free-text device mentions to a device type. Order
// matters: "pc" alone would also match "pc gamer", so notebook terms go
// first.
var deviceIntents = []struct {
	Intent Intent
	Device models.DeviceType
}{
	{Intent{"device_notebook", regexp.MustCompile(`\b(notebook|laptop|portatil|netbook|macbook)\b`)}, models.DeviceNotebook},
	{Intent{"device_desktop", regexp.MustCompile(`\b(desktop|escritorio|torre|gabinete|pc|computadora|ordenador)\b`)}, models.DeviceDesktop},
	{Intent{"device_phone", regexp.MustCompile(`\b(celular|telefono|movil|iphone|android|smartphone|phone)\b`)}, models.DevicePhone},
	{Intent{"device_router", regexp.MustCompile(`\b(router|modem|wifi|wi-fi|red|internet)\b`)}, models.DeviceRouter},
	{Intent{"device_console", regexp.MustCompile(`\b(consola|play|playstation|ps[345]|xbox|nintendo|switch)\b`)}, models.DeviceConsole},
	{Intent{"device_printer", regexp.MustCompile(`\b(impresora|printer|multifuncion)\b`)}, models.DevicePrinter},
}

// MatchDevice returns the device type a free-text mention maps to, or
// DeviceOther when nothing matches.
func MatchDevice(text string) (models.DeviceType, bool) {
	norm := normalizeText(text)
	for _, di := range deviceIntents {
		if di.Intent.Pattern.MatchString(norm) {
			return di.Device, true
		}
	}
	return models.DeviceOther, false
}

// MatchConsent interprets free text at the consent stage. Explicit
// refusals win over the affirmatives ("no acepto" contains "acepto"),
// and the affirmatives win over a bare "no" ("si, no hay problema"
// contains both).
func MatchConsent(text string) (accepted bool, matched bool) {
	if intentConsentRefuse.Match(text) {
		return false, true
	}
	if intentConsentYes.Match(text) {
		return true, true
	}
	if intentConsentNo.Match(text) {
		return false, true
	}
	return false, false
}

// MatchLanguage interprets a typed language choice.
func MatchLanguage(text string) (models.Locale, bool) {
	if intentLangEN.Match(text) {
		return models.LocaleEn, true
	}
	if intentLangES.Match(text) {
		return models.LocaleEsAR, true
	}
	return "", false
}

// WantsTechnician reports whether the text is an escalation request.
func WantsTechnician(text string) bool {
	return intentTechnician.Match(text)
}

// SaysSolved reports whether the text declares the problem fixed.
func SaysSolved(text string) bool {
	return intentSolved.Match(text)
}
