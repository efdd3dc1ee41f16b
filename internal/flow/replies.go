package flow

import (
	"fmt"
	"log/slog"

	"github.com/stirosario/tecnos/internal/models"
)

// Reply keys for the localized catalog.
const (
	ReplyGreeting       models.ReplyKey = "greeting"
	ReplyConsentReject  models.ReplyKey = "consent_rejected"
	ReplyAskLanguage    models.ReplyKey = "ask_language"
	ReplyAskName        models.ReplyKey = "ask_name"
	ReplyAskMode        models.ReplyKey = "ask_mode"
	ReplyAskProblem     models.ReplyKey = "ask_problem"
	ReplyAskTask        models.ReplyKey = "ask_task"
	ReplyAskDevice      models.ReplyKey = "ask_device"
	ReplyBasicTests     models.ReplyKey = "basic_tests"
	ReplySolved         models.ReplyKey = "solved"
	ReplyProposeTicket  models.ReplyKey = "propose_ticket"
	ReplyTicketDeclined models.ReplyKey = "ticket_declined"
	ReplyAskEmail       models.ReplyKey = "ask_email"
	ReplyBadEmail       models.ReplyKey = "bad_email"
	ReplyAskPhone       models.ReplyKey = "ask_phone"
	ReplyBadPhone       models.ReplyKey = "bad_phone"
	ReplyTicketCreated  models.ReplyKey = "ticket_created"
	ReplyImageReceived  models.ReplyKey = "image_received"
	ReplyGoodbye        models.ReplyKey = "goodbye"
	ReplyEnded          models.ReplyKey = "ended"
	ReplyNotUnderstood  models.ReplyKey = "not_understood"
	ReplyUnknownButton  models.ReplyKey = "unknown_button"
	ReplyGenericError   models.ReplyKey = "generic_error"
)

// replyCatalog holds every bot reply per locale. Templates use fmt verbs;
// args come from FlowResult.ReplyArgs.
var replyCatalog = map[models.ReplyKey]map[models.Locale]string{
	ReplyGreeting: {
		models.LocaleEsAR: "¡Hola! Soy Tecnos, el asistente de STI Rosario 🤖. Antes de empezar necesito tu consentimiento para tratar los datos de esta conversación según nuestra política de privacidad. ¿Estás de acuerdo?",
		models.LocaleEsES: "¡Hola! Soy Tecnos, el asistente de STI Rosario 🤖. Antes de empezar necesito tu consentimiento para tratar los datos de esta conversación según nuestra política de privacidad. ¿Estás de acuerdo?",
		models.LocaleEn:   "Hi! I'm Tecnos, the STI Rosario assistant 🤖. Before we start I need your consent to process this conversation's data under our privacy policy. Do you agree?",
	},
	ReplyConsentReject: {
		models.LocaleEsAR: "Entiendo, sin tu consentimiento no puedo continuar. Si cambiás de opinión, acá estoy. ¡Que andes bien!",
		models.LocaleEsES: "Entiendo, sin tu consentimiento no puedo continuar. Si cambias de opinión, aquí estoy. ¡Hasta pronto!",
		models.LocaleEn:   "Understood — without your consent I can't continue. If you change your mind, I'll be here. Take care!",
	},
	ReplyAskLanguage: {
		models.LocaleEsAR: "¡Genial! ¿En qué idioma preferís que hablemos?",
		models.LocaleEsES: "¡Genial! ¿En qué idioma prefieres que hablemos?",
		models.LocaleEn:   "Great! Which language would you like to use?",
	},
	ReplyAskName: {
		models.LocaleEsAR: "¿Cómo te llamás? Si preferís no decirlo, tocá el botón.",
		models.LocaleEsES: "¿Cómo te llamas? Si prefieres no decirlo, pulsa el botón.",
		models.LocaleEn:   "What's your name? If you'd rather not say, just tap the button.",
	},
	ReplyAskMode: {
		models.LocaleEsAR: "¡Un gusto, %s! ¿Qué necesitás hoy: arreglar algo que no funciona, o ayuda para hacer algo?",
		models.LocaleEsES: "¡Encantado, %s! ¿Qué necesitas hoy: arreglar algo que no funciona, o ayuda para hacer algo?",
		models.LocaleEn:   "Nice to meet you, %s! What do you need today: fixing something that's broken, or help getting something done?",
	},
	ReplyAskProblem: {
		models.LocaleEsAR: "Contame qué está pasando. Podés escribir o mandarme una foto del equipo.",
		models.LocaleEsES: "Cuéntame qué está pasando. Puedes escribir o enviarme una foto del equipo.",
		models.LocaleEn:   "Tell me what's going on. You can type it out or send me a photo of the device.",
	},
	ReplyAskTask: {
		models.LocaleEsAR: "Contame qué querés hacer y con qué equipo, y vemos juntos los pasos.",
		models.LocaleEsES: "Cuéntame qué quieres hacer y con qué equipo, y vemos juntos los pasos.",
		models.LocaleEn:   "Tell me what you want to do and on which device, and we'll walk through it together.",
	},
	ReplyAskDevice: {
		models.LocaleEsAR: "Anotado. ¿Qué equipo es? (marca y modelo si lo sabés)",
		models.LocaleEsES: "Anotado. ¿Qué equipo es? (marca y modelo si lo sabes)",
		models.LocaleEn:   "Got it. What device is it? (brand and model if you know them)",
	},
	ReplyBasicTests: {
		models.LocaleEsAR: "Perfecto. Probemos algunas cosas básicas con tu %s. Avisame cómo te fue:",
		models.LocaleEsES: "Perfecto. Probemos algunas cosas básicas con tu %s. Avísame cómo te ha ido:",
		models.LocaleEn:   "Perfect. Let's try a few basic checks on your %s. Let me know how it goes:",
	},
	ReplySolved: {
		models.LocaleEsAR: "¡Qué bueno que se solucionó! 🎉 Cualquier cosa, ya sabés dónde encontrarme.",
		models.LocaleEsES: "¡Me alegro de que se haya solucionado! 🎉 Ya sabes dónde encontrarme.",
		models.LocaleEn:   "Glad that fixed it! 🎉 You know where to find me if anything else comes up.",
	},
	ReplyProposeTicket: {
		models.LocaleEsAR: "Parece que esto necesita manos de técnico. ¿Querés que genere un ticket para que el taller te contacte?",
		models.LocaleEsES: "Parece que esto necesita manos de técnico. ¿Quieres que genere un ticket para que el taller te contacte?",
		models.LocaleEn:   "This looks like it needs a technician's hands. Want me to create a ticket so the workshop contacts you?",
	},
	ReplyTicketDeclined: {
		models.LocaleEsAR: "Dale, sin problema. Si más adelante querés el ticket, volvé a escribirme.",
		models.LocaleEsES: "Vale, sin problema. Si más adelante quieres el ticket, vuelve a escribirme.",
		models.LocaleEn:   "No problem. If you want the ticket later, just message me again.",
	},
	ReplyAskEmail: {
		models.LocaleEsAR: "Voy a generar el ticket. ¿A qué email te contactamos?",
		models.LocaleEsES: "Voy a generar el ticket. ¿A qué email te contactamos?",
		models.LocaleEn:   "I'll create the ticket. What email should we use to contact you?",
	},
	ReplyBadEmail: {
		models.LocaleEsAR: "Mmm, ese email no parece válido. ¿Me lo repetís? (ej: nombre@dominio.com)",
		models.LocaleEsES: "Mmm, ese email no parece válido. ¿Me lo repites? (ej: nombre@dominio.com)",
		models.LocaleEn:   "Hmm, that email doesn't look valid. Could you retype it? (e.g. name@domain.com)",
	},
	ReplyAskPhone: {
		models.LocaleEsAR: "¡Gracias! ¿Y un teléfono con WhatsApp?",
		models.LocaleEsES: "¡Gracias! ¿Y un teléfono con WhatsApp?",
		models.LocaleEn:   "Thanks! And a phone number with WhatsApp?",
	},
	ReplyBadPhone: {
		models.LocaleEsAR: "Ese número no parece válido. Probá con el formato +54 9 341 ...",
		models.LocaleEsES: "Ese número no parece válido. Prueba con el formato +34 ...",
		models.LocaleEn:   "That number doesn't look valid. Try the format +1 555 ...",
	},
	ReplyTicketCreated: {
		models.LocaleEsAR: "¡Listo! Generé el ticket %s. El taller te va a contactar a la brevedad. Si querés, seguí la conversación por WhatsApp con el botón de abajo.",
		models.LocaleEsES: "¡Hecho! He generado el ticket %s. El taller te contactará en breve. Si quieres, sigue la conversación por WhatsApp con el botón de abajo.",
		models.LocaleEn:   "Done! I created ticket %s. The workshop will contact you shortly. If you like, continue on WhatsApp with the button below.",
	},
	ReplyImageReceived: {
		models.LocaleEsAR: "Recibí la foto. Esto es lo que veo: %s",
		models.LocaleEsES: "He recibido la foto. Esto es lo que veo: %s",
		models.LocaleEn:   "Got the photo. Here's what I can see: %s",
	},
	ReplyGoodbye: {
		models.LocaleEsAR: "¡Perfecto! Seguimos por WhatsApp entonces. ¡Gracias por escribir a STI Rosario! 👋",
		models.LocaleEsES: "¡Perfecto! Seguimos por WhatsApp entonces. ¡Gracias por escribir a STI Rosario! 👋",
		models.LocaleEn:   "Perfect, let's continue on WhatsApp then. Thanks for contacting STI Rosario! 👋",
	},
	ReplyEnded: {
		models.LocaleEsAR: "Esta conversación ya terminó. Recargá la página para empezar una nueva.",
		models.LocaleEsES: "Esta conversación ya ha terminado. Recarga la página para empezar una nueva.",
		models.LocaleEn:   "This conversation is over. Reload the page to start a new one.",
	},
	ReplyNotUnderstood: {
		models.LocaleEsAR: "Perdón, no te entendí. ¿Me lo decís con otras palabras o usás los botones?",
		models.LocaleEsES: "Perdona, no te he entendido. ¿Me lo dices con otras palabras o usas los botones?",
		models.LocaleEn:   "Sorry, I didn't catch that. Could you rephrase, or use the buttons?",
	},
	ReplyUnknownButton: {
		models.LocaleEsAR: "Esa opción no está disponible en este paso. Usá los botones de abajo.",
		models.LocaleEsES: "Esa opción no está disponible en este paso. Usa los botones de abajo.",
		models.LocaleEn:   "That option isn't available at this step. Please use the buttons below.",
	},
	ReplyGenericError: {
		models.LocaleEsAR: "Uy, algo salió mal de mi lado. Probá de nuevo en un momento.",
		models.LocaleEsES: "Vaya, algo ha ido mal por mi parte. Inténtalo de nuevo en un momento.",
		models.LocaleEn:   "Oops, something went wrong on my side. Please try again in a moment.",
	},
}

// Reply resolves a reply key for a locale, applying template args. Falls
// back to the default locale, then to the key itself so a missing entry is
// visible instead of silent.
func Reply(key models.ReplyKey, locale models.Locale, args ...interface{}) string {
	byLocale, ok := replyCatalog[key]
	if !ok {
		slog.Warn("flow.Reply: unknown reply key", "key", key)
		return string(key)
	}
	tmpl, ok := byLocale[locale]
	if !ok {
		tmpl = byLocale[models.DefaultLocale]
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// buttonLabels holds widget labels for every token per locale.
var buttonLabels = map[models.ButtonToken]map[models.Locale]string{
	models.BtnGDPRAccept:     {models.LocaleEsAR: "Acepto ✅", models.LocaleEsES: "Acepto ✅", models.LocaleEn: "I agree ✅"},
	models.BtnGDPRReject:     {models.LocaleEsAR: "No acepto", models.LocaleEsES: "No acepto", models.LocaleEn: "I don't agree"},
	models.BtnLangES:         {models.LocaleEsAR: "Español", models.LocaleEsES: "Español", models.LocaleEn: "Español"},
	models.BtnLangEN:         {models.LocaleEsAR: "English", models.LocaleEsES: "English", models.LocaleEn: "English"},
	models.BtnNoName:         {models.LocaleEsAR: "Prefiero no decirlo", models.LocaleEsES: "Prefiero no decirlo", models.LocaleEn: "Rather not say"},
	models.BtnHelp:           {models.LocaleEsAR: "Arreglar algo 🔧", models.LocaleEsES: "Arreglar algo 🔧", models.LocaleEn: "Fix something 🔧"},
	models.BtnTask:           {models.LocaleEsAR: "Hacer algo 📋", models.LocaleEsES: "Hacer algo 📋", models.LocaleEn: "Get something done 📋"},
	models.BtnDeviceNotebook: {models.LocaleEsAR: "Notebook", models.LocaleEsES: "Portátil", models.LocaleEn: "Laptop"},
	models.BtnDeviceDesktop:  {models.LocaleEsAR: "PC de escritorio", models.LocaleEsES: "PC de sobremesa", models.LocaleEn: "Desktop PC"},
	models.BtnDevicePhone:    {models.LocaleEsAR: "Celular", models.LocaleEsES: "Móvil", models.LocaleEn: "Phone"},
	models.BtnDeviceRouter:   {models.LocaleEsAR: "Router / red", models.LocaleEsES: "Router / red", models.LocaleEn: "Router / network"},
	models.BtnDeviceOther:    {models.LocaleEsAR: "Otro equipo", models.LocaleEsES: "Otro equipo", models.LocaleEn: "Something else"},
	models.BtnTestsDone:      {models.LocaleEsAR: "Las hice, sigue igual", models.LocaleEsES: "Las hice, sigue igual", models.LocaleEn: "Did them, still broken"},
	models.BtnTestsFail:      {models.LocaleEsAR: "No pude hacerlas", models.LocaleEsES: "No pude hacerlas", models.LocaleEn: "Couldn't do them"},
	models.BtnSolved:         {models.LocaleEsAR: "¡Se solucionó! 🎉", models.LocaleEsES: "¡Solucionado! 🎉", models.LocaleEn: "It's fixed! 🎉"},
	models.BtnYes:            {models.LocaleEsAR: "Sí, dale", models.LocaleEsES: "Sí, adelante", models.LocaleEn: "Yes, please"},
	models.BtnNo:             {models.LocaleEsAR: "No por ahora", models.LocaleEsES: "No por ahora", models.LocaleEn: "Not now"},
	models.BtnWhatsApp:       {models.LocaleEsAR: "Seguir por WhatsApp 💬", models.LocaleEsES: "Seguir por WhatsApp 💬", models.LocaleEn: "Continue on WhatsApp 💬"},
	models.BtnRestart:        {models.LocaleEsAR: "Empezar de nuevo", models.LocaleEsES: "Empezar de nuevo", models.LocaleEn: "Start over"},
}

// ButtonLabel resolves the widget label for a token. Unknown tokens fall
// back to the raw token string.
func ButtonLabel(token models.ButtonToken, locale models.Locale) string {
	byLocale, ok := buttonLabels[token]
	if !ok {
		return string(token)
	}
	if label, ok := byLocale[locale]; ok {
		return label
	}
	return byLocale[models.DefaultLocale]
}

// helpHints gives the contextual hint shown under the input box per stage.
var helpHints = map[models.Stage]map[models.Locale]string{
	models.StageAskProblem: {
		models.LocaleEsAR: "Tip: una foto del error ayuda un montón.",
		models.LocaleEsES: "Consejo: una foto del error ayuda mucho.",
		models.LocaleEn:   "Tip: a photo of the error helps a lot.",
	},
	models.StageBasicTests: {
		models.LocaleEsAR: "Si querés hablar directo con un técnico, pedímelo.",
		models.LocaleEsES: "Si quieres hablar directamente con un técnico, pídemelo.",
		models.LocaleEn:   "If you'd rather talk to a technician, just ask.",
	},
}

// HelpHint returns the contextual hint for a stage, or empty.
func HelpHint(stage models.Stage, locale models.Locale) string {
	byLocale, ok := helpHints[stage]
	if !ok {
		return ""
	}
	if hint, ok := byLocale[locale]; ok {
		return hint
	}
	return byLocale[models.DefaultLocale]
}
