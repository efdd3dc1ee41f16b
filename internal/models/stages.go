// Package models defines the conversation stage and button vocabulary.
package models

// Stage is a named node in the conversation flow.
type Stage string

// Conversation stages, in flow order.
const (
	StageAskGDPR       Stage = "ASK_GDPR"
	StageAskLanguage   Stage = "ASK_LANGUAGE"
	StageAskName       Stage = "ASK_NAME"
	StageAskMode       Stage = "ASK_MODE"
	StageAskProblem    Stage = "ASK_PROBLEM"
	StageAskDevice     Stage = "ASK_DEVICE"
	StageBasicTests    Stage = "BASIC_TESTS"
	StageProposeTicket Stage = "PROPOSE_TICKET"
	StageCreateTicket  Stage = "CREATE_TICKET"
	StageAskPhone      Stage = "ASK_PHONE"
	StageTicketCreated Stage = "TICKET_CREATED"
	StageEnded         Stage = "ENDED"
)

// Stages lists every stage in flow order. Handlers, contracts and progress
// computation all key off this list.
var Stages = []Stage{
	StageAskGDPR,
	StageAskLanguage,
	StageAskName,
	StageAskMode,
	StageAskProblem,
	StageAskDevice,
	StageBasicTests,
	StageProposeTicket,
	StageCreateTicket,
	StageAskPhone,
	StageTicketCreated,
	StageEnded,
}

// IsValidStage checks if the given stage is part of the flow.
func IsValidStage(s Stage) bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// ButtonToken is a string identifier for a clickable quick-reply option.
type ButtonToken string

// Button tokens understood by the flow.
const (
	BtnGDPRAccept     ButtonToken = "BTN_GDPR_ACCEPT"
	BtnGDPRReject     ButtonToken = "BTN_GDPR_REJECT"
	BtnLangES         ButtonToken = "BTN_LANG_ES"
	BtnLangEN         ButtonToken = "BTN_LANG_EN"
	BtnNoName         ButtonToken = "BTN_NO_NAME"
	BtnHelp           ButtonToken = "BTN_HELP"
	BtnTask           ButtonToken = "BTN_TASK"
	BtnDeviceNotebook ButtonToken = "BTN_DEVICE_NOTEBOOK"
	BtnDeviceDesktop  ButtonToken = "BTN_DEVICE_DESKTOP"
	BtnDevicePhone    ButtonToken = "BTN_DEVICE_PHONE"
	BtnDeviceRouter   ButtonToken = "BTN_DEVICE_ROUTER"
	BtnDeviceOther    ButtonToken = "BTN_DEVICE_OTHER"
	BtnTestsDone      ButtonToken = "BTN_TESTS_DONE"
	BtnTestsFail      ButtonToken = "BTN_TESTS_FAIL"
	BtnSolved         ButtonToken = "BTN_SOLVED"
	BtnYes            ButtonToken = "BTN_YES"
	BtnNo             ButtonToken = "BTN_NO"
	BtnWhatsApp       ButtonToken = "BTN_WHATSAPP"
	BtnRestart        ButtonToken = "BTN_RESTART"
)

// Action describes what a stage handler decided to do with a turn.
type Action string

// Flow actions.
const (
	ActionConsentAccepted Action = "CONSENT_ACCEPTED"
	ActionConsentRejected Action = "CONSENT_REJECTED"
	ActionSetLanguage     Action = "SET_LANGUAGE"
	ActionSetName         Action = "SET_NAME"
	ActionSetMode         Action = "SET_MODE"
	ActionSetProblem      Action = "SET_PROBLEM"
	ActionSetDevice       Action = "SET_DEVICE"
	ActionTestsDone       Action = "TESTS_DONE"
	ActionTestsFail       Action = "TESTS_FAIL"
	ActionSolved          Action = "SOLVED"
	ActionCreateTicket    Action = "CREATE_TICKET"
	ActionSetEmail        Action = "SET_EMAIL"
	ActionSetPhone        Action = "SET_PHONE"
	ActionTicketCreated   Action = "TICKET_CREATED"
	ActionRestart         Action = "RESTART"
	ActionNotUnderstood   Action = "NOT_UNDERSTOOD"
	ActionUnknownButton   Action = "UNKNOWN_BUTTON"
	ActionEndConversation Action = "END_CONVERSATION"
)

// Mode is what the user came for: fixing something or getting a task done.
type Mode string

const (
	// ModeHelp means troubleshooting a broken device.
	ModeHelp Mode = "help"
	// ModeTask means guided assistance with a concrete task.
	ModeTask Mode = "task"
)

// DeviceType is the coarse device category used to pick basic test steps.
type DeviceType string

const (
	DeviceNotebook DeviceType = "notebook"
	DeviceDesktop  DeviceType = "desktop"
	DevicePhone    DeviceType = "phone"
	DeviceRouter   DeviceType = "router"
	DeviceConsole  DeviceType = "console"
	DevicePrinter  DeviceType = "printer"
	DeviceOther    DeviceType = "other"
)

// ReplyKey selects a localized reply template from the catalog.
type ReplyKey string

// FlowResult is the transient object a stage handler returns. It dictates
// the next stage, the reply and the quick-reply options for the turn.
// Mutate, when set, is applied by the orchestrator to its working copy of
// the session; handlers never touch the session they receive.
type FlowResult struct {
	Action          Action
	ReplyKey        ReplyKey
	ReplyArgs       []interface{}
	Buttons         []ButtonToken
	NextStage       Stage
	EndConversation bool
	AllowWhatsApp   bool
	Mutate          func(*Session)
}
