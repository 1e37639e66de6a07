// Command a5l-mailer delivers the mail that the server queues when it runs
// with the amqp mail backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/areafiftylan/a5l/internal/config"
	"github.com/areafiftylan/a5l/internal/logging"
	"github.com/areafiftylan/a5l/internal/mail"
)

func main() {
	fs := flag.NewFlagSet("a5l-mailer", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "")
	fs.BoolVar(&dryRun, "n", false, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: a5l-mailer [flags]

Consumes queued mail and sends it over SMTP.

Flags:
  -c, -config <path>   YAML configuration file (default: none, A5L_* environment only)
  -l, -log <path>      log file path (default: no file, stdout/stderr only)
  -n, -dry-run         log messages instead of sending them
  -h, -help            show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg.Mail, dryRun); err != nil {
		slog.Error("mailer failed", "error", err)
		stop()
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.MailConfig, dryRun bool) error {
	q, err := mail.DialQueue(cfg.AMQPURL, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer func() {
		if err := q.Close(); err != nil {
			slog.Warn("closing mail queue", "error", err)
		}
	}()

	var sender mail.Sender = mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.From,
	})
	if dryRun {
		sender = mail.LogSender{Logger: slog.Default()}
	}

	slog.Info("mailer started", "queue", cfg.AMQPQueue, "smtp_host", cfg.SMTPHost, "dry_run", dryRun)
	err = q.Consume(ctx, sender)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("mailer stopped")
	return nil
}
