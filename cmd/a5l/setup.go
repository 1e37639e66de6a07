package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/areafiftylan/a5l/internal/config"
	"github.com/areafiftylan/a5l/internal/db"
	"github.com/areafiftylan/a5l/internal/mail"
	"github.com/areafiftylan/a5l/internal/model"
	"github.com/areafiftylan/a5l/internal/store"
)

// initDatabase creates a new database with the schema and an enabled admin
// account, returning the admin's generated password. The file is removed
// again if any step fails.
func initDatabase(cfg *config.Config) (string, error) {
	path := cfg.Database.Path
	database, err := db.OpenWithTimeout(path, cfg.Database.BusyTimeout)
	if err != nil {
		return "", err
	}

	password, err := createAdmin(database, cfg.Admin.Username)
	database.Close()
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return password, nil
}

func createAdmin(database *sql.DB, username string) (string, error) {
	if err := db.EnsureSchema(database); err != nil {
		return "", fmt.Errorf("ensuring schema: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	email := username + "@localhost"
	if _, err := store.CreateUser(context.Background(), database, username, email, string(hash), model.RoleAdmin, true); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

// seedTicketTypes stores the configured catalogue. Limits of existing types
// are updated; types no longer configured are kept for the tickets sold.
func seedTicketTypes(ctx context.Context, database *sql.DB, types []model.TicketType) error {
	for _, tt := range types {
		if err := store.UpsertTicketType(ctx, database, tt.Name, tt.Limit); err != nil {
			return fmt.Errorf("seeding ticket type %s: %w", tt.Name, err)
		}
		slog.Info("ticket type configured", "type", tt.Name, "limit", tt.Limit)
	}
	return nil
}

// newSender builds the mail backend. The returned close function is never nil.
func newSender(cfg config.MailConfig) (mail.Sender, func(), error) {
	switch cfg.Backend {
	case config.MailBackendSMTP:
		return mail.NewSMTPSender(smtpConfig(cfg)), func() {}, nil
	case config.MailBackendAMQP:
		q, err := mail.DialQueue(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, nil, err
		}
		return q, func() {
			if err := q.Close(); err != nil {
				slog.Warn("closing mail queue", "error", err)
			}
		}, nil
	default:
		return mail.LogSender{Logger: slog.Default()}, func() {}, nil
	}
}

func smtpConfig(cfg config.MailConfig) mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.From,
	}
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
