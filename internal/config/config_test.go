package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areafiftylan/a5l/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, 5*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, "a5l.sqlite3", c.Database.Path)
	assert.Equal(t, 72*time.Hour, c.Tokens.TransferTTL)
	assert.Equal(t, 24*time.Hour, c.Tokens.VerificationTTL)
	assert.Equal(t, MailBackendLog, c.Mail.Backend)
	assert.Equal(t, 10*time.Second, c.Mail.SendTimeout)

	assert.Equal(t, []model.TicketType{
		{Name: model.TicketTypeEarlyBird, Limit: 50},
		{Name: model.TicketTypeLastMinute, Limit: 20},
		{Name: model.TicketTypeRegularFull, Limit: 150},
		{Name: model.TicketTypeTest, Limit: 2},
	}, c.TicketTypes())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a5l.yaml")
	err := os.WriteFile(path, []byte(`
server:
  addr: ":9090"
tokens:
  transfer_ttl: 1h
mail:
  backend: smtp
  smtp_host: mail.example.org
  smtp_port: 587
tickets:
  types:
    EARLY_BIRD: 10
    VIP: 3
`), 0o644)
	require.NoError(t, err)

	t.Setenv("A5L_DATABASE_PATH", "/var/lib/a5l/a5l.sqlite3")
	t.Setenv("A5L_SERVER_ADDR", ":7070")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", c.Server.Addr, "environment overrides file")
	assert.Equal(t, "/var/lib/a5l/a5l.sqlite3", c.Database.Path)
	assert.Equal(t, time.Hour, c.Tokens.TransferTTL)
	assert.Equal(t, MailBackendSMTP, c.Mail.Backend)
	assert.Equal(t, "mail.example.org", c.Mail.SMTPHost)
	assert.Equal(t, 587, c.Mail.SMTPPort)

	assert.Equal(t, []model.TicketType{
		{Name: model.TicketTypeEarlyBird, Limit: 10},
		{Name: "VIP", Limit: 3},
	}, c.TicketTypes())
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a5l.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mail:\n  backend: pigeon\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown mail backend")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
