package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/areafiftylan/a5l/internal/clock"
	"github.com/areafiftylan/a5l/internal/model"
)

// AccountRepository is the storage the account service needs.
type AccountRepository interface {
	TokenStore
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, username, email, passwordHash, role string, enabled bool) (*model.User, error)
	SetUserEnabled(ctx context.Context, id int64, enabled bool) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
}

// AccountService registers users and redeems the verification and password
// reset tokens mailed to them.
type AccountService struct {
	repo            AccountRepository
	notifier        Notifier
	clock           clock.Clock
	verificationTTL time.Duration
	resetTTL        time.Duration
	confirmURL      string
	resetURL        string
	bcryptCost      int
}

const (
	defaultVerificationTTL = 24 * time.Hour
	defaultResetTTL        = 24 * time.Hour
	defaultConfirmURL      = "http://localhost:8080/api/confirm-registration"
	defaultResetURL        = "http://localhost:8080/reset-password"
)

func NewAccountService(repo AccountRepository, notifier Notifier, clk clock.Clock, opts ...AccountServiceOption) *AccountService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	svc := &AccountService{
		repo:            repo,
		notifier:        notifier,
		clock:           clk,
		verificationTTL: defaultVerificationTTL,
		resetTTL:        defaultResetTTL,
		confirmURL:      defaultConfirmURL,
		resetURL:        defaultResetURL,
		bcryptCost:      bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type AccountServiceOption func(*AccountService)

// WithTokenTTLs overrides the lifetimes of verification and reset tokens.
// Zero keeps the default.
func WithTokenTTLs(verification, reset time.Duration) AccountServiceOption {
	return func(s *AccountService) {
		if verification > 0 {
			s.verificationTTL = verification
		}
		if reset > 0 {
			s.resetTTL = reset
		}
	}
}

// WithAccountURLs sets the pages the verification and reset mails link to.
func WithAccountURLs(confirm, reset string) AccountServiceOption {
	return func(s *AccountService) {
		if confirm != "" {
			s.confirmURL = confirm
		}
		if reset != "" {
			s.resetURL = reset
		}
	}
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) AccountServiceOption {
	return func(s *AccountService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a disabled account and mails its verification link.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: username and email are required", model.ErrInvalidInput)
	}
	if err := model.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	var (
		user *model.User
		tok  *model.Token
	)
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if u, err := s.repo.GetUserByUsername(txCtx, in.Username); err != nil {
			return err
		} else if u != nil {
			return model.ErrUserExists
		}
		if u, err := s.repo.GetUserByEmail(txCtx, in.Email); err != nil {
			return err
		} else if u != nil {
			return model.ErrUserExists
		}

		u, err := s.repo.CreateUser(txCtx, in.Username, in.Email, string(hash), model.RoleUser, false)
		if err != nil {
			return err
		}
		t, err := s.issue(txCtx, model.TokenVerification, u.ID, s.verificationTTL)
		if err != nil {
			return err
		}
		user, tok = u, t
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user", user.Username)
	s.sendVerification(ctx, *user, tok)
	return user, nil
}

// IssueVerificationToken creates a fresh verification token for a user and
// mails it.
func (s *AccountService) IssueVerificationToken(ctx context.Context, userID int64) (*model.Token, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	tok, err := s.issue(ctx, model.TokenVerification, user.ID, s.verificationTTL)
	if err != nil {
		return nil, err
	}
	s.sendVerification(ctx, *user, tok)
	return tok, nil
}

// RedeemVerificationToken enables the account the token was issued for.
func (s *AccountService) RedeemVerificationToken(ctx context.Context, value string) error {
	now := s.clock.Now()

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		tok, err := redeemable(txCtx, s.repo, value, model.TokenVerification, now)
		if err != nil {
			return err
		}
		if err := s.repo.SetUserEnabled(txCtx, tok.UserID, true); err != nil {
			return err
		}
		tok.Use()
		return s.repo.SaveToken(txCtx, tok)
	})
}

// IssuePasswordResetToken creates a password reset token for a user and
// mails it.
func (s *AccountService) IssuePasswordResetToken(ctx context.Context, userID int64) (*model.Token, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	tok, err := s.issue(ctx, model.TokenPasswordReset, user.ID, s.resetTTL)
	if err != nil {
		return nil, err
	}

	err = s.notifier.SendPasswordReset(ctx, *user, tokenURL(s.resetURL, tok.Value))
	logNotifyError(err, string(model.TokenPasswordReset), *user)
	return tok, nil
}

// RequestPasswordReset issues a reset token to the account registered
// under email.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if user == nil {
		return model.ErrUserNotFound
	}
	_, err = s.IssuePasswordResetToken(ctx, user.ID)
	return err
}

// RedeemPasswordResetToken sets a new password for the account the token
// was issued for.
func (s *AccountService) RedeemPasswordResetToken(ctx context.Context, value, newPassword string) error {
	if err := model.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	now := s.clock.Now()

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		tok, err := redeemable(txCtx, s.repo, value, model.TokenPasswordReset, now)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateUserPassword(txCtx, tok.UserID, string(hash)); err != nil {
			return err
		}
		tok.Use()
		return s.repo.SaveToken(txCtx, tok)
	})
}

func (s *AccountService) user(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil || u.DeletedAt != nil {
		return nil, model.ErrUserNotFound
	}
	return u, nil
}

func (s *AccountService) issue(ctx context.Context, kind model.TokenKind, userID int64, ttl time.Duration) (*model.Token, error) {
	tok, err := model.NewToken(kind, userID, s.clock.Now(), ttl)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *AccountService) sendVerification(ctx context.Context, user model.User, tok *model.Token) {
	err := s.notifier.SendVerification(ctx, user, tokenURL(s.confirmURL, tok.Value))
	logNotifyError(err, string(model.TokenVerification), user)
}
