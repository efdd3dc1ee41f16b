package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/stirosario/tecnos/internal/ai"
	"github.com/stirosario/tecnos/internal/api"
	"github.com/stirosario/tecnos/internal/audit"
	"github.com/stirosario/tecnos/internal/images"
	"github.com/stirosario/tecnos/internal/lockfile"
	"github.com/stirosario/tecnos/internal/notify"
	"github.com/stirosario/tecnos/internal/orchestrator"
	"github.com/stirosario/tecnos/internal/session"
	"github.com/stirosario/tecnos/internal/store"
	"github.com/stirosario/tecnos/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Tecnos state data
	DefaultStateDir = "/var/lib/tecnos"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "tecnos.db"
	// DefaultUploadsDirName is the uploads directory inside the state directory
	DefaultUploadsDirName = "uploads"
	// DefaultAuditFileName is the CSV audit log filename inside the state directory
	DefaultAuditFileName = "audit.csv"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Only one instance may serve a state directory
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	slog.Info("Bootstrapping Tecnos with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"uploads_dir", *flags.uploadsDir,
		"shop_whatsapp_set", *flags.shopWhatsApp != "",
		"openai_key_set", *flags.openaiKey != "")

	if err := run(flags); err != nil {
		slog.Error("Tecnos failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("Tecnos exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	StateDir     string
	OpenAIKey    string
	APIAddr      string
	UploadsDir   string
	BaseURL      string
	ShopWhatsApp string
	AuditLog     string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	openaiKey    *string
	apiAddr      *string
	uploadsDir   *string
	baseURL      *string
	shopWhatsApp *string
	auditLog     *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     os.Getenv("TECNOS_STATE_DIR"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		APIAddr:      os.Getenv("API_ADDR"),
		UploadsDir:   os.Getenv("UPLOADS_DIR"),
		BaseURL:      os.Getenv("PUBLIC_BASE_URL"),
		ShopWhatsApp: os.Getenv("SHOP_WHATSAPP"),
		AuditLog:     os.Getenv("AUDIT_LOG"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No TECNOS_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	// Uploads and audit log default to the state directory
	if config.UploadsDir == "" {
		config.UploadsDir = filepath.Join(config.StateDir, DefaultUploadsDirName)
	}
	if config.AuditLog == "" {
		config.AuditLog = filepath.Join(config.StateDir, DefaultAuditFileName)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"TECNOS_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"UPLOADS_DIR", config.UploadsDir,
		"PUBLIC_BASE_URL", config.BaseURL,
		"SHOP_WHATSAPP_SET", config.ShopWhatsApp != "",
		"AUDIT_LOG", config.AuditLog)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for Tecnos data (overrides $TECNOS_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for the session and ticket store (overrides $DATABASE_URL)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		uploadsDir:   flag.String("uploads-dir", config.UploadsDir, "directory for uploaded images (overrides $UPLOADS_DIR)"),
		baseURL:      flag.String("base-url", config.BaseURL, "public base URL used in image links (overrides $PUBLIC_BASE_URL)"),
		shopWhatsApp: flag.String("shop-whatsapp", config.ShopWhatsApp, "shop WhatsApp number for ticket handoff links (overrides $SHOP_WHATSAPP)"),
		auditLog:     flag.String("audit-log", config.AuditLog, "path to the CSV turn audit log (overrides $AUDIT_LOG)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"uploadsDir", *flags.uploadsDir,
		"shopWhatsAppSet", *flags.shopWhatsApp != "")

	// Follow the state directory for paths not explicitly overridden
	if *flags.stateDir != config.StateDir {
		if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) {
			*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		}
		if *flags.uploadsDir == filepath.Join(config.StateDir, DefaultUploadsDirName) {
			*flags.uploadsDir = filepath.Join(*flags.stateDir, DefaultUploadsDirName)
		}
		if *flags.auditLog == filepath.Join(config.StateDir, DefaultAuditFileName) {
			*flags.auditLog = filepath.Join(*flags.stateDir, DefaultAuditFileName)
		}
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	dirs := []string{*flags.stateDir, *flags.uploadsDir, filepath.Dir(*flags.auditLog)}
	if store.DetectDSNType(*flags.dbDSN) == store.DSNTypeSQLite {
		dirs = append(dirs, filepath.Dir(*flags.dbDSN))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create directory", "error", err, "dir", dir)
			return err
		}
	}
	return nil
}

// run wires the modules together and serves until interrupted.
func run(flags Flags) error {
	st, err := store.NewStore(store.WithDSN(*flags.dbDSN))
	if err != nil {
		return err
	}
	defer st.Close()

	ttlHours := util.ParseIntEnv("SESSION_TTL_HOURS", int(session.DefaultTTL/time.Hour))
	sessions := session.NewManager(st, session.WithTTL(time.Duration(ttlHours)*time.Hour))
	if err := sessions.StartCleanup(); err != nil {
		return err
	}
	defer sessions.StopCleanup()

	saver := session.NewSaver(st)

	imgStore, err := images.NewStore(images.Opts{Dir: *flags.uploadsDir, BaseURL: *flags.baseURL})
	if err != nil {
		return err
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithImageStore(imgStore),
		orchestrator.WithShopNumber(*flags.shopWhatsApp),
	}

	if *flags.openaiKey != "" {
		analyzer, err := ai.NewClient(ai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			return err
		}
		orchOpts = append(orchOpts, orchestrator.WithAnalyzer(analyzer))
	} else {
		slog.Warn("No OpenAI API key configured, problem classification and image analysis are disabled")
	}

	if notify.HasTwilioCreds() {
		notifier, err := notify.NewTwilioNotifier()
		if err != nil {
			return err
		}
		orchOpts = append(orchOpts, orchestrator.WithNotifier(notifier))
	} else {
		slog.Info("No Twilio credentials configured, ticket notifications are log-only")
	}

	if util.ParseBoolEnv("AUDIT_ENABLED", true) {
		auditLog, err := audit.Open(*flags.auditLog)
		if err != nil {
			return err
		}
		defer auditLog.Close()
		orchOpts = append(orchOpts, orchestrator.WithAudit(auditLog))
	} else {
		slog.Info("Turn auditing disabled via AUDIT_ENABLED")
	}

	orch := orchestrator.New(st, orchOpts...)

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	apiOpts = append(apiOpts, api.WithUploadsDir(*flags.uploadsDir))

	srv := api.NewServer(sessions, saver, orch, st, apiOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping server")
		if err := srv.Shutdown(context.Background()); err != nil {
			return err
		}
		return <-errCh
	}
}
