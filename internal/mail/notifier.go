package mail

import (
	"context"
	"time"

	"github.com/areafiftylan/a5l/internal/model"
)

// DefaultSendTimeout bounds a single delivery attempt.
const DefaultSendTimeout = 10 * time.Second

// Notifier renders the account and ticket mails and hands them to a Sender.
type Notifier struct {
	sender  Sender
	timeout time.Duration
}

// NewNotifier returns a Notifier that gives each send at most timeout.
func NewNotifier(sender Sender, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Notifier{sender: sender, timeout: timeout}
}

func (n *Notifier) SendTransferOffer(ctx context.Context, owner, target model.User, acceptURL string) error {
	return n.send(ctx, target, "AreaFiftyLAN ticket transfer", "transfer", templateData{
		Owner:  displayName(owner),
		Target: displayName(target),
		URL:    acceptURL,
	})
}

func (n *Notifier) SendVerification(ctx context.Context, user model.User, confirmURL string) error {
	return n.send(ctx, user, "Confirm your AreaFiftyLAN registration", "verification", templateData{
		Target: displayName(user),
		URL:    confirmURL,
	})
}

func (n *Notifier) SendPasswordReset(ctx context.Context, user model.User, resetURL string) error {
	return n.send(ctx, user, "AreaFiftyLAN password reset", "reset", templateData{
		Target: displayName(user),
		URL:    resetURL,
	})
}

func (n *Notifier) send(ctx context.Context, to model.User, subject, tmpl string, data templateData) error {
	body, err := render(tmpl, data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	return n.sender.Send(ctx, Message{
		To:      to.Email,
		ToName:  displayName(to),
		Subject: subject,
		Body:    body,
	})
}

func displayName(u model.User) string {
	if u.Profile != nil && u.Profile.DisplayName != "" {
		return u.Profile.DisplayName
	}
	return u.Username
}
