package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenKind discriminates what a token can be redeemed for.
type TokenKind string

const (
	TokenVerification   TokenKind = "verification"
	TokenPasswordReset  TokenKind = "password_reset"
	TokenTicketTransfer TokenKind = "ticket_transfer"
)

// Token is a single-use, expiring capability handed to a user by mail.
//
// For ticket transfers UserID is the prospective new owner and TicketID the
// ticket on offer. For the other kinds TicketID is nil.
type Token struct {
	Value     string    `json:"token"`
	Kind      TokenKind `json:"kind"`
	UserID    int64     `json:"user_id"`
	TicketID  *int64    `json:"ticket_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	Revoked   bool      `json:"revoked"`
}

// NewToken creates a fresh token for userID that expires ttl after now.
func NewToken(kind TokenKind, userID int64, now time.Time, ttl time.Duration) (*Token, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generating token value: %w", err)
	}
	return &Token{
		Value:     id.String(),
		Kind:      kind,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// NewTransferToken creates a transfer token offering ticketID to targetUserID.
func NewTransferToken(targetUserID, ticketID int64, now time.Time, ttl time.Duration) (*Token, error) {
	t, err := NewToken(TokenTicketTransfer, targetUserID, now, ttl)
	if err != nil {
		return nil, err
	}
	t.TicketID = &ticketID
	return t, nil
}

// IsValid reports whether the token is unused, unrevoked and not expired at now.
func (t *Token) IsValid(now time.Time) bool {
	return !t.Used && !t.Revoked && now.Before(t.ExpiresAt)
}

// Use marks the token as redeemed. Calling it twice is a no-op.
func (t *Token) Use() {
	t.Used = true
}

// Revoke withdraws the token before redemption.
func (t *Token) Revoke() {
	t.Revoked = true
}
