package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelRouting(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(NewHandler(&out, &errOut, slog.LevelInfo)).With("component", "test")

	logger.Debug("hidden")
	logger.Info("ticket issued", "ticket_id", 7)
	logger.Warn("notification failed")
	logger.Error("request failed")

	if strings.Contains(out.String(), "hidden") || strings.Contains(errOut.String(), "hidden") {
		t.Error("expected debug record to be dropped")
	}
	if !strings.Contains(out.String(), "ticket issued") || !strings.Contains(out.String(), "ticket_id=7") {
		t.Errorf("expected info record on stdout, got %q", out.String())
	}
	if !strings.Contains(out.String(), "notification failed") {
		t.Errorf("expected warn record on stdout, got %q", out.String())
	}
	if strings.Contains(out.String(), "request failed") {
		t.Error("expected error record to stay off stdout")
	}
	if !strings.Contains(errOut.String(), "request failed") || !strings.Contains(errOut.String(), "component=test") {
		t.Errorf("expected error record with attrs on stderr, got %q", errOut.String())
	}
}
