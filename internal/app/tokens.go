package app

import (
	"context"
	"time"

	"github.com/areafiftylan/a5l/internal/model"
)

// TokenStore persists tokens. SaveToken inserts or updates by value; the
// used and revoked flags never go back to false.
type TokenStore interface {
	FindToken(ctx context.Context, value string) (*model.Token, error)
	ListTicketTokens(ctx context.Context, ticketID int64) ([]model.Token, error)
	SaveToken(ctx context.Context, t *model.Token) error
}

// redeemable looks up a token of the given kind and checks that it can still
// be redeemed at now. A token of another kind is reported as not found.
func redeemable(ctx context.Context, tokens TokenStore, value string, kind model.TokenKind, now time.Time) (*model.Token, error) {
	if value == "" {
		return nil, model.ErrTokenNotFound
	}
	tok, err := tokens.FindToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if tok == nil || tok.Kind != kind {
		return nil, model.ErrTokenNotFound
	}
	if !tok.IsValid(now) {
		return nil, model.ErrInvalidToken
	}
	return tok, nil
}

// pendingTransfer returns the valid transfer token among tokens, if any.
func pendingTransfer(tokens []model.Token, now time.Time) *model.Token {
	for i := range tokens {
		if tokens[i].Kind == model.TokenTicketTransfer && tokens[i].IsValid(now) {
			return &tokens[i]
		}
	}
	return nil
}
