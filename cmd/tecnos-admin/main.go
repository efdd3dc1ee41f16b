// tecnos-admin is a workshop tool for inspecting and managing tickets
// created by the Tecnos chatbot.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"github.com/stirosario/tecnos/internal/models"
	"github.com/stirosario/tecnos/internal/store"
)

// DefaultStateDir mirrors the server default so both binaries find the
// same SQLite database out of the box.
const (
	DefaultStateDir   = "/var/lib/tecnos"
	DefaultDBFileName = "tecnos.db"
)

var dbDSN string

var rootCmd = &cobra.Command{
	Use:           "tecnos-admin",
	Short:         "Inspect and manage Tecnos support tickets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Ticket operations",
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tickets",
	Args:  cobra.NoArgs,
	RunE:  runTicketsList,
}

var ticketsShowCmd = &cobra.Command{
	Use:   "show <ticket-id>",
	Short: "Show a ticket in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketsShow,
}

var ticketsQRCmd = &cobra.Command{
	Use:   "qr <ticket-id>",
	Short: "Render the ticket's WhatsApp handoff link as a terminal QR code",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketsQR,
}

var ticketsCloseCmd = &cobra.Command{
	Use:   "close <ticket-id>",
	Short: "Mark a ticket as closed",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketsClose,
}

func main() {
	// .env values feed the flag defaults below
	_ = godotenv.Load()

	defaultDSN := os.Getenv("DATABASE_URL")
	if defaultDSN == "" {
		stateDir := os.Getenv("TECNOS_STATE_DIR")
		if stateDir == "" {
			stateDir = DefaultStateDir
		}
		defaultDSN = filepath.Join(stateDir, DefaultDBFileName)
	}

	rootCmd.PersistentFlags().StringVar(&dbDSN, "db-dsn", defaultDSN, "database DSN for the ticket store (overrides $DATABASE_URL)")

	ticketsCmd.AddCommand(ticketsListCmd, ticketsShowCmd, ticketsQRCmd, ticketsCloseCmd)
	rootCmd.AddCommand(ticketsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openStore connects to the same store the server uses.
func openStore() (store.Store, error) {
	st, err := store.NewStore(store.WithDSN(dbDSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

func runTicketsList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	tickets, err := st.ListTickets()
	if err != nil {
		return fmt.Errorf("failed to list tickets: %w", err)
	}
	if len(tickets) == 0 {
		fmt.Println("No tickets.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tNAME\tDEVICE\tPROBLEM\tCREATED")
	for _, t := range tickets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Status, t.Name, t.Device, truncate(t.Problem, 40), t.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runTicketsShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	t, err := loadTicket(st, args[0])
	if err != nil {
		return err
	}

	fmt.Println("ID:          ", t.ID)
	fmt.Println("Status:      ", t.Status)
	fmt.Println("Session:     ", t.SessionID)
	fmt.Println("Name:        ", t.Name)
	fmt.Println("Locale:      ", t.Locale)
	fmt.Println("Device:      ", t.Device)
	if t.DeviceType != "" {
		fmt.Println("Device type: ", t.DeviceType)
	}
	fmt.Println("Problem:     ", t.Problem)
	if t.TestsResult != "" {
		fmt.Println("Basic tests: ", t.TestsResult)
	}
	fmt.Println("Email:       ", t.Email)
	fmt.Println("Phone:       ", t.Phone)
	if t.WhatsAppLink != "" {
		fmt.Println("WhatsApp:    ", t.WhatsAppLink)
	}
	fmt.Println("Created:     ", t.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runTicketsQR(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	t, err := loadTicket(st, args[0])
	if err != nil {
		return err
	}
	if t.WhatsAppLink == "" {
		return fmt.Errorf("ticket %s has no WhatsApp link (shop number was not configured when it was created)", t.ID)
	}

	fmt.Printf("Scan to open the WhatsApp conversation for %s:\n\n", t.ID)
	qrterminal.GenerateHalfBlock(t.WhatsAppLink, qrterminal.L, os.Stdout)
	fmt.Println("\n" + t.WhatsAppLink)
	return nil
}

func runTicketsClose(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.UpdateTicketStatus(args[0], models.TicketStatusClosed); err != nil {
		return fmt.Errorf("failed to close ticket %s: %w", args[0], err)
	}
	fmt.Printf("Ticket %s closed.\n", args[0])
	return nil
}

func loadTicket(st store.Store, id string) (*models.Ticket, error) {
	t, err := st.GetTicket(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket %s: %w", id, err)
	}
	if t == nil {
		return nil, fmt.Errorf("ticket %s not found", id)
	}
	return t, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
