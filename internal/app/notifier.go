package app

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/areafiftylan/a5l/internal/model"
)

// Notifier delivers the mails that accompany token issuance. Delivery is
// best-effort: services log a failed send and carry on.
type Notifier interface {
	SendTransferOffer(ctx context.Context, owner, target model.User, acceptURL string) error
	SendVerification(ctx context.Context, user model.User, confirmURL string) error
	SendPasswordReset(ctx context.Context, user model.User, resetURL string) error
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) SendTransferOffer(context.Context, model.User, model.User, string) error {
	return nil
}

func (NopNotifier) SendVerification(context.Context, model.User, string) error { return nil }

func (NopNotifier) SendPasswordReset(context.Context, model.User, string) error { return nil }

// tokenURL appends the token value to base as the "token" query parameter.
func tokenURL(base, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(value)
	}
	q := u.Query()
	q.Set("token", value)
	u.RawQuery = q.Encode()
	return u.String()
}

func logNotifyError(err error, kind string, user model.User) {
	if err == nil {
		return
	}
	slog.Warn("notification failed", "kind", kind, "user", user.Username, "error", err)
}
