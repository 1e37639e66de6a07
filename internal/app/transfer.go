package app

import (
	"context"
	"log/slog"

	"github.com/areafiftylan/a5l/internal/model"
)

// SetupTransfer offers a ticket to another user. It fails with
// ErrTransferPending while an earlier offer for the ticket is still open.
// The target is mailed the accept link after the offer is stored; a failed
// mail leaves the offer open.
func (s *TicketService) SetupTransfer(ctx context.Context, ticketID int64, targetUsername string) (*model.Token, error) {
	now := s.clock.Now()
	var (
		tok           *model.Token
		owner, target model.User
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		u, err := s.repo.GetUserByUsername(txCtx, targetUsername)
		if err != nil {
			return err
		}
		if u == nil {
			return model.ErrUserNotFound
		}

		t, err := s.repo.GetTicket(txCtx, ticketID)
		if err != nil {
			return err
		}
		if t == nil {
			return model.ErrTicketNotFound
		}
		if t.OwnerID == u.ID {
			return model.ErrTransferToSelf
		}

		existing, err := s.repo.ListTicketTokens(txCtx, ticketID)
		if err != nil {
			return err
		}
		if pendingTransfer(existing, now) != nil {
			return model.ErrTransferPending
		}

		o, err := s.repo.GetUser(txCtx, t.OwnerID)
		if err != nil {
			return err
		}
		if o == nil {
			return model.ErrUserNotFound
		}

		newTok, err := model.NewTransferToken(u.ID, t.ID, now, s.transferTTL)
		if err != nil {
			return err
		}
		if err := s.repo.SaveToken(txCtx, newTok); err != nil {
			return err
		}

		tok, owner, target = newTok, *o, *u
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("ticket transfer offered", "ticket_id", ticketID, "from", owner.Username, "to", target.Username)

	err = s.notifier.SendTransferOffer(ctx, owner, target, tokenURL(s.acceptURL, tok.Value))
	logNotifyError(err, string(model.TokenTicketTransfer), target)

	return tok, nil
}

// AcceptTransfer hands the ticket to the user the token was issued to and
// uses up the token. Both happen or neither does.
func (s *TicketService) AcceptTransfer(ctx context.Context, tokenValue string) error {
	return s.acceptTransfer(ctx, tokenValue, nil)
}

// AcceptTransferAs is AcceptTransfer on behalf of userID. It fails with
// ErrNotTransferTarget unless userID is the user the ticket was offered to,
// leaving ticket and token untouched.
func (s *TicketService) AcceptTransferAs(ctx context.Context, tokenValue string, userID int64) error {
	return s.acceptTransfer(ctx, tokenValue, &userID)
}

func (s *TicketService) acceptTransfer(ctx context.Context, tokenValue string, accepter *int64) error {
	now := s.clock.Now()
	var tok *model.Token

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		t, err := redeemable(txCtx, s.repo, tokenValue, model.TokenTicketTransfer, now)
		if err != nil {
			return err
		}
		if accepter != nil && *accepter != t.UserID {
			return model.ErrNotTransferTarget
		}
		// The ticket was removed after the offer was made.
		if t.TicketID == nil {
			return model.ErrInvalidToken
		}

		if err := s.repo.SetTicketOwner(txCtx, *t.TicketID, t.UserID); err != nil {
			return err
		}
		t.Use()
		if err := s.repo.SaveToken(txCtx, t); err != nil {
			return err
		}
		tok = t
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("ticket transferred", "ticket_id", *tok.TicketID, "owner_id", tok.UserID)
	return nil
}

// CancelTransfer withdraws an open transfer offer.
func (s *TicketService) CancelTransfer(ctx context.Context, tokenValue string) error {
	now := s.clock.Now()

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		t, err := redeemable(txCtx, s.repo, tokenValue, model.TokenTicketTransfer, now)
		if err != nil {
			return err
		}
		t.Revoke()
		return s.repo.SaveToken(txCtx, t)
	})
}

// PendingTransfer returns the open transfer offer for a ticket, or nil.
func (s *TicketService) PendingTransfer(ctx context.Context, ticketID int64) (*model.Token, error) {
	tokens, err := s.repo.ListTicketTokens(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return pendingTransfer(tokens, s.clock.Now()), nil
}
