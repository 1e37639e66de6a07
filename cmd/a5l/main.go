package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/areafiftylan/a5l/internal/api"
	"github.com/areafiftylan/a5l/internal/app"
	"github.com/areafiftylan/a5l/internal/clock"
	"github.com/areafiftylan/a5l/internal/config"
	"github.com/areafiftylan/a5l/internal/db"
	"github.com/areafiftylan/a5l/internal/logging"
	"github.com/areafiftylan/a5l/internal/mail"
	"github.com/areafiftylan/a5l/internal/store"
)

func main() {
	fs := flag.NewFlagSet("a5l", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var adminUser string
	fs.StringVar(&adminUser, "user", "", "")
	fs.StringVar(&adminUser, "u", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: a5l [flags]

Flags:
  -c, -config <path>      YAML configuration file (default: none, A5L_* environment only)
  -d, -db <path>          SQLite database path (default: a5l.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Flags override the configuration file and the environment.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if adminUser != "" {
		cfg.Admin.Username = adminUser
	}
	if logPath != "" {
		cfg.Log.File = logPath
	}

	closeLog, err := logging.Setup(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
		password, err := initDatabase(cfg)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(cfg.Database.Path, cfg.Admin.Username, password)
		fmt.Println()
	}

	database, err := db.OpenWithTimeout(cfg.Database.Path, cfg.Database.BusyTimeout)
	if err != nil {
		return err
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	if err := seedTicketTypes(ctx, database, cfg.TicketTypes()); err != nil {
		return err
	}

	slog.Info("database ready", "path", cfg.Database.Path)

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	sender, closeSender, err := newSender(cfg.Mail)
	if err != nil {
		return err
	}
	defer closeSender()
	notifier := mail.NewNotifier(sender, cfg.Mail.SendTimeout)

	repo := store.New(database)
	clk := clock.NewSystem()
	services := api.Services{
		Tickets: app.NewTicketService(repo, notifier, clk,
			app.WithTransferTTL(cfg.Tokens.TransferTTL),
			app.WithAcceptURL(cfg.URLs.AcceptTransfer),
		),
		Accounts: app.NewAccountService(repo, notifier, clk,
			app.WithTokenTTLs(cfg.Tokens.VerificationTTL, cfg.Tokens.PasswordResetTTL),
			app.WithAccountURLs(cfg.URLs.ConfirmRegistration, cfg.URLs.ResetPassword),
		),
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(database, jwtSecret, services))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Server.Addr, "mail_backend", cfg.Mail.Backend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
