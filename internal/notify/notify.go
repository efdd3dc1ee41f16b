// Package notify hands conversations off to humans: it builds the wa.me
// deep link shown to the user and pings the shop supervisor on WhatsApp
// through Twilio when a ticket is created.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/stirosario/tecnos/internal/models"
)

// Notifier pings the supervisor about a new ticket.
type Notifier interface {
	NotifyTicket(ctx context.Context, t *models.Ticket) error
}

// WhatsAppLink builds the wa.me deep link that opens a chat with the shop
// pre-filled with the ticket reference. The shop number is digits only,
// international format without '+'.
func WhatsAppLink(shopNumber string, t *models.Ticket) string {
	number := strings.TrimPrefix(strings.ReplaceAll(strings.ReplaceAll(shopNumber, " ", ""), "-", ""), "+")
	var text string
	if t.Locale == models.LocaleEn {
		text = fmt.Sprintf("Hi! I'm following up on ticket %s (%s).", t.ID, t.Problem)
	} else {
		text = fmt.Sprintf("¡Hola! Vengo por el ticket %s (%s).", t.ID, t.Problem)
	}
	return "https://wa.me/" + number + "?text=" + url.QueryEscape(text)
}

// Opts holds configuration options for the Twilio notifier.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string
	// Supervisor is the number pinged on ticket creation, "+549..." format.
	Supervisor string
}

// Option defines a configuration option for the Twilio notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromWhats sets the sending WhatsApp number.
func WithFromWhats(from string) Option {
	return func(o *Opts) { o.FromWhats = from }
}

// WithSupervisor sets the supervisor number to ping.
func WithSupervisor(number string) Option {
	return func(o *Opts) { o.Supervisor = number }
}

// TwilioNotifier sends the supervisor ping through the Twilio API.
type TwilioNotifier struct {
	client     *twilio.RestClient
	fromWhats  string
	supervisor string
}

// NewTwilioNotifier builds a notifier, falling back to environment
// variables for unset options. Returns an error when credentials are
// incomplete; callers that want notifications to be optional should check
// HasTwilioCreds first.
func NewTwilioNotifier(opts ...Option) (*TwilioNotifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromWhats == "" {
		cfg.FromWhats = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.Supervisor == "" {
		cfg.Supervisor = os.Getenv("SUPERVISOR_WHATSAPP")
	}
	slog.Debug("Twilio notifier config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromWhats_set", cfg.FromWhats != "",
		"Supervisor_set", cfg.Supervisor != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromWhats == "" || cfg.Supervisor == "" {
		return nil, fmt.Errorf("from and supervisor numbers must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)
	return &TwilioNotifier{client: client, fromWhats: cfg.FromWhats, supervisor: cfg.Supervisor}, nil
}

// HasTwilioCreds reports whether the environment carries enough Twilio
// configuration to build a notifier.
func HasTwilioCreds() bool {
	return os.Getenv("TWILIO_ACCOUNT_SID") != "" &&
		os.Getenv("TWILIO_AUTH_TOKEN") != "" &&
		os.Getenv("TWILIO_FROM_NUMBER") != "" &&
		os.Getenv("SUPERVISOR_WHATSAPP") != ""
}

// NotifyTicket sends the supervisor one WhatsApp message summarizing the
// new ticket.
func (n *TwilioNotifier) NotifyTicket(ctx context.Context, t *models.Ticket) error {
	body := TicketSummary(t)
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + n.supervisor)
	params.SetFrom(n.fromWhats)
	params.SetBody(body)

	_, err := n.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("TwilioNotifier.NotifyTicket failed", "ticketID", t.ID, "error", err)
		return fmt.Errorf("failed to notify supervisor about ticket %s: %w", t.ID, err)
	}
	slog.Info("TwilioNotifier.NotifyTicket: supervisor pinged", "ticketID", t.ID)
	return nil
}

// TicketSummary renders the supervisor message for a ticket.
func TicketSummary(t *models.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎫 Nuevo ticket %s\n", t.ID)
	if t.Name != "" {
		fmt.Fprintf(&b, "Cliente: %s\n", t.Name)
	}
	if t.DeviceType != "" {
		fmt.Fprintf(&b, "Equipo: %s", t.DeviceType)
		if t.Device != "" {
			fmt.Fprintf(&b, " (%s)", t.Device)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Problema: %s\n", t.Problem)
	if t.TestsResult != "" {
		fmt.Fprintf(&b, "Pruebas básicas: %s\n", t.TestsResult)
	}
	fmt.Fprintf(&b, "Contacto: %s / %s", t.Email, t.Phone)
	return b.String()
}

// NoopNotifier is used when Twilio is not configured; it only logs.
type NoopNotifier struct{}

// NotifyTicket logs the ticket instead of sending anything.
func (NoopNotifier) NotifyTicket(ctx context.Context, t *models.Ticket) error {
	slog.Info("NoopNotifier.NotifyTicket: Twilio not configured, skipping supervisor ping", "ticketID", t.ID)
	return nil
}
