package flow

import (
	"strings"

	"github.com/stirosario/tecnos/internal/models"
)

func init() {
	register(models.StageAskMode, StageHandlers{
		OnText:   modeOnText,
		OnButton: modeOnButton,
	})
	register(models.StageAskProblem, StageHandlers{
		OnText:  problemOnText,
		OnImage: problemOnImage,
	})
	register(models.StageAskDevice, StageHandlers{
		OnText:   deviceOnText,
		OnButton: deviceOnButton,
	})
}

var deviceButtons = []models.ButtonToken{
	models.BtnDeviceNotebook,
	models.BtnDeviceDesktop,
	models.BtnDevicePhone,
	models.BtnDeviceRouter,
	models.BtnDeviceOther,
}

func modeChosen(mode models.Mode) *models.FlowResult {
	reply := ReplyAskProblem
	if mode == models.ModeTask {
		reply = ReplyAskTask
	}
	return &models.FlowResult{
		Action:    models.ActionSetMode,
		ReplyKey:  reply,
		NextStage: models.StageAskProblem,
		Mutate:    func(s *models.Session) { s.Mode = mode },
	}
}

func modeOnButton(in HandlerInput) *models.FlowResult {
	switch in.Token {
	case models.BtnHelp:
		return modeChosen(models.ModeHelp)
	case models.BtnTask:
		return modeChosen(models.ModeTask)
	}
	return nil
}

func modeOnText(in HandlerInput) *models.FlowResult {
	norm := normalizeText(in.Text)
	switch {
	case strings.Contains(norm, "arreglar") || strings.Contains(norm, "no funciona") ||
		strings.Contains(norm, "roto") || strings.Contains(norm, "fix") || strings.Contains(norm, "broken"):
		return modeChosen(models.ModeHelp)
	case strings.Contains(norm, "hacer") || strings.Contains(norm, "ayuda para") ||
		strings.Contains(norm, "instalar") || strings.Contains(norm, "configurar") ||
		strings.Contains(norm, "set up") || strings.Contains(norm, "install"):
		return modeChosen(models.ModeTask)
	}
	return nil
}

// deviceLabel is the noun used in replies for a device type.
func deviceLabel(device models.DeviceType, locale models.Locale) string {
	switch device {
	case models.DeviceNotebook:
		return ButtonLabel(models.BtnDeviceNotebook, locale)
	case models.DeviceDesktop:
		return ButtonLabel(models.BtnDeviceDesktop, locale)
	case models.DevicePhone:
		return ButtonLabel(models.BtnDevicePhone, locale)
	case models.DeviceRouter:
		return ButtonLabel(models.BtnDeviceRouter, locale)
	default:
		if locale == models.LocaleEn {
			return "device"
		}
		return "equipo"
	}
}

func basicTests(device models.DeviceType, locale models.Locale) *models.FlowResult {
	return &models.FlowResult{
		ReplyKey:  ReplyBasicTests,
		ReplyArgs: []interface{}{deviceLabel(device, locale)},
		Buttons:   []models.ButtonToken{models.BtnSolved, models.BtnTestsDone, models.BtnTestsFail},
		NextStage: models.StageBasicTests,
	}
}

func escalate() *models.FlowResult {
	return &models.FlowResult{
		Action:    models.ActionCreateTicket,
		ReplyKey:  ReplyAskEmail,
		NextStage: models.StageCreateTicket,
	}
}

func problemOnText(in HandlerInput) *models.FlowResult {
	if WantsTechnician(in.Text) {
		r := escalate()
		text := in.Text
		r.Mutate = func(s *models.Session) { s.Problem = text }
		return r
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil
	}

	// When the classifier already pinned the device type, skip the device
	// question.
	if in.Smart != nil && in.Smart.DeviceType != models.DeviceOther {
		r := basicTests(in.Smart.DeviceType, in.Session.UserLocale)
		r.Action = models.ActionSetProblem
		device := in.Smart.DeviceType
		r.Mutate = func(s *models.Session) {
			s.Problem = text
			s.DeviceType = device
		}
		return r
	}

	return &models.FlowResult{
		Action:    models.ActionSetProblem,
		ReplyKey:  ReplyAskDevice,
		Buttons:   deviceButtons,
		NextStage: models.StageAskDevice,
		Mutate:    func(s *models.Session) { s.Problem = text },
	}
}

func problemOnImage(in HandlerInput) *models.FlowResult {
	analysis := strings.TrimSpace(in.ImageAnalysis)
	if analysis == "" {
		return nil
	}
	return &models.FlowResult{
		Action:    models.ActionSetProblem,
		ReplyKey:  ReplyImageReceived,
		ReplyArgs: []interface{}{analysis},
		Buttons:   deviceButtons,
		NextStage: models.StageAskDevice,
		Mutate: func(s *models.Session) {
			if s.Problem == "" {
				s.Problem = analysis
			}
		},
	}
}

func deviceChosen(device models.DeviceType, raw string, locale models.Locale) *models.FlowResult {
	r := basicTests(device, locale)
	r.Action = models.ActionSetDevice
	r.Mutate = func(s *models.Session) {
		s.DeviceType = device
		if raw != "" {
			s.Device = raw
		}
	}
	return r
}

func deviceOnButton(in HandlerInput) *models.FlowResult {
	locale := in.Session.UserLocale
	switch in.Token {
	case models.BtnDeviceNotebook:
		return deviceChosen(models.DeviceNotebook, "", locale)
	case models.BtnDeviceDesktop:
		return deviceChosen(models.DeviceDesktop, "", locale)
	case models.BtnDevicePhone:
		return deviceChosen(models.DevicePhone, "", locale)
	case models.BtnDeviceRouter:
		return deviceChosen(models.DeviceRouter, "", locale)
	case models.BtnDeviceOther:
		return deviceChosen(models.DeviceOther, "", locale)
	}
	return nil
}

func deviceOnText(in HandlerInput) *models.FlowResult {
	if WantsTechnician(in.Text) {
		return escalate()
	}
	device, _ := MatchDevice(in.Text)
	return deviceChosen(device, strings.TrimSpace(in.Text), in.Session.UserLocale)
}
