package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/areafiftylan/a5l/internal/config"
	"github.com/areafiftylan/a5l/internal/db"
	"github.com/areafiftylan/a5l/internal/mail"
	"github.com/areafiftylan/a5l/internal/model"
	"github.com/areafiftylan/a5l/internal/store"
)

func TestInitDatabaseCreatesAdmin(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Path = filepath.Join(t.TempDir(), "a5l.sqlite3")
	cfg.Database.BusyTimeout = time.Second
	cfg.Admin.Username = "root"

	password, err := initDatabase(cfg)
	if err != nil {
		t.Fatalf("initDatabase: %v", err)
	}
	if len(password) != 16 {
		t.Errorf("expected 16 character password, got %d", len(password))
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer database.Close()

	admin, err := store.GetUserByUsername(context.Background(), database, "root")
	if err != nil || admin == nil {
		t.Fatalf("expected admin user, got %v, %v", admin, err)
	}
	if admin.Role != model.RoleAdmin || !admin.Enabled {
		t.Errorf("expected enabled admin, got role=%s enabled=%v", admin.Role, admin.Enabled)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		t.Error("expected printed password to match the stored hash")
	}
}

func TestInitDatabaseRemovesFileOnFailure(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Path = filepath.Join(t.TempDir(), "a5l.sqlite3")
	cfg.Database.BusyTimeout = time.Second
	cfg.Admin.Username = "root"

	if _, err := initDatabase(cfg); err != nil {
		t.Fatalf("initDatabase: %v", err)
	}
	if _, err := initDatabase(cfg); err == nil {
		t.Fatal("expected second init to fail on the duplicate admin")
	}
	if _, err := os.Stat(cfg.Database.Path); !os.IsNotExist(err) {
		t.Errorf("expected database file to be removed, stat err = %v", err)
	}
}

func TestSeedTicketTypes(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := seedTicketTypes(ctx, database, model.DefaultTicketTypes()); err != nil {
		t.Fatalf("seedTicketTypes: %v", err)
	}
	// Reseeding updates limits in place.
	if err := seedTicketTypes(ctx, database, []model.TicketType{{Name: model.TicketTypeEarlyBird, Limit: 5}}); err != nil {
		t.Fatalf("reseeding: %v", err)
	}

	types, err := store.ListTicketTypes(ctx, database)
	if err != nil {
		t.Fatalf("ListTicketTypes: %v", err)
	}
	if len(types) != len(model.DefaultTicketTypes()) {
		t.Fatalf("expected %d types, got %d", len(model.DefaultTicketTypes()), len(types))
	}
	for _, tt := range types {
		if tt.Name == model.TicketTypeEarlyBird && tt.Limit != 5 {
			t.Errorf("expected EARLY_BIRD limit 5, got %d", tt.Limit)
		}
	}
}

func TestNewSender(t *testing.T) {
	sender, closeSender, err := newSender(config.MailConfig{Backend: config.MailBackendLog})
	if err != nil {
		t.Fatalf("newSender: %v", err)
	}
	defer closeSender()
	if _, ok := sender.(mail.LogSender); !ok {
		t.Errorf("expected LogSender, got %T", sender)
	}

	sender, closeSender, err = newSender(config.MailConfig{Backend: config.MailBackendSMTP, SMTPHost: "localhost", SMTPPort: 25})
	if err != nil {
		t.Fatalf("newSender: %v", err)
	}
	defer closeSender()
	if _, ok := sender.(*mail.SMTPSender); !ok {
		t.Errorf("expected *SMTPSender, got %T", sender)
	}
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(24)
	if err != nil {
		t.Fatalf("generatePassword: %v", err)
	}
	b, _ := generatePassword(24)
	if len(a) != 24 || a == b {
		t.Errorf("expected two distinct 24 character passwords, got %q and %q", a, b)
	}
}
