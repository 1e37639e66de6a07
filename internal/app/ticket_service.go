package app

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/areafiftylan/a5l/internal/clock"
	"github.com/areafiftylan/a5l/internal/model"
)

// TicketRepository is the storage the ticket service needs. Calls made with
// the context handed to WithTx's callback run in that transaction.
type TicketRepository interface {
	TokenStore
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetTicketType(ctx context.Context, name string) (*model.TicketType, error)
	ListTicketTypes(ctx context.Context) ([]model.TicketType, error)
	CountTicketsByType(ctx context.Context, name string) (int, error)
	CreateTicket(ctx context.Context, t *model.Ticket) error
	GetTicket(ctx context.Context, id int64) (*model.Ticket, error)
	ListTickets(ctx context.Context) ([]model.Ticket, error)
	ListTicketsByOwnerUsername(ctx context.Context, username string) ([]model.Ticket, error)
	SetTicketOwner(ctx context.Context, id, ownerID int64) error
	SetTicketValid(ctx context.Context, id int64, valid bool) error
	DeleteTicket(ctx context.Context, id int64) error
	RemoveRFIDLinkByTicket(ctx context.Context, ticketID int64) (*model.RFIDLink, error)
}

// TicketService sells tickets within their type limits and moves them
// between users through transfer tokens.
type TicketService struct {
	repo        TicketRepository
	notifier    Notifier
	clock       clock.Clock
	transferTTL time.Duration
	acceptURL   string
}

const (
	defaultTransferTTL = 72 * time.Hour
	defaultAcceptURL   = "http://localhost:8080/transfer"
)

func NewTicketService(repo TicketRepository, notifier Notifier, clk clock.Clock, opts ...TicketServiceOption) *TicketService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	svc := &TicketService{
		repo:        repo,
		notifier:    notifier,
		clock:       clk,
		transferTTL: defaultTransferTTL,
		acceptURL:   defaultAcceptURL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type TicketServiceOption func(*TicketService)

// WithTransferTTL overrides how long a transfer offer stays open.
func WithTransferTTL(d time.Duration) TicketServiceOption {
	return func(s *TicketService) {
		if d > 0 {
			s.transferTTL = d
		}
	}
}

// WithAcceptURL sets the page the transfer mail links to.
func WithAcceptURL(u string) TicketServiceOption {
	return func(s *TicketService) {
		if u != "" {
			s.acceptURL = u
		}
	}
}

// TicketOptions are the extras chosen at purchase.
type TicketOptions struct {
	PickupService bool
	CHMember      bool
}

// RequestTicket issues a ticket of the named type to ownerID, provided the
// type has not sold out. Concurrent requests for the last ticket of a type
// are serialised by the store transaction; exactly one of them succeeds.
func (s *TicketService) RequestTicket(ctx context.Context, typeName string, ownerID int64, opts TicketOptions) (*model.Ticket, error) {
	var ticket *model.Ticket

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		tt, err := s.repo.GetTicketType(txCtx, typeName)
		if err != nil {
			return err
		}
		if tt == nil {
			return model.ErrTicketTypeNotFound
		}

		sold, err := s.repo.CountTicketsByType(txCtx, tt.Name)
		if err != nil {
			return err
		}
		if sold >= tt.Limit {
			return fmt.Errorf("%w: %s", model.ErrTicketUnavailable, tt.Name)
		}

		t := &model.Ticket{
			Type:          tt.Name,
			OwnerID:       ownerID,
			Valid:         true,
			PickupService: opts.PickupService,
			CHMember:      opts.CHMember,
			CreatedAt:     s.clock.Now(),
		}
		if err := s.repo.CreateTicket(txCtx, t); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("ticket issued", "ticket_id", ticket.ID, "type", ticket.Type, "owner_id", ownerID)
	return ticket, nil
}

// RemoveTicket deletes a ticket and returns it as it was. Any open transfer
// offer for it is revoked and its RFID link dropped.
func (s *TicketService) RemoveTicket(ctx context.Context, id int64) (*model.Ticket, error) {
	now := s.clock.Now()
	var removed *model.Ticket

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		t, err := s.repo.GetTicket(txCtx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return model.ErrTicketNotFound
		}

		tokens, err := s.repo.ListTicketTokens(txCtx, id)
		if err != nil {
			return err
		}
		for i := range tokens {
			if !tokens[i].IsValid(now) {
				continue
			}
			tokens[i].Revoke()
			if err := s.repo.SaveToken(txCtx, &tokens[i]); err != nil {
				return err
			}
		}

		if _, err := s.repo.RemoveRFIDLinkByTicket(txCtx, id); err != nil {
			return err
		}
		if err := s.repo.DeleteTicket(txCtx, id); err != nil {
			return err
		}
		removed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("ticket removed", "ticket_id", id, "type", removed.Type)
	return removed, nil
}

// ValidateTicket marks a ticket as valid.
func (s *TicketService) ValidateTicket(ctx context.Context, id int64) error {
	return s.repo.SetTicketValid(ctx, id, true)
}

// CountSold returns how many tickets of a type exist.
func (s *TicketService) CountSold(ctx context.Context, typeName string) (int, error) {
	return s.repo.CountTicketsByType(ctx, typeName)
}

// ValidTicketsForOwner yields the valid tickets held by username.
func (s *TicketService) ValidTicketsForOwner(ctx context.Context, username string) (iter.Seq[model.Ticket], error) {
	tickets, err := s.repo.ListTicketsByOwnerUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return func(yield func(model.Ticket) bool) {
		for _, t := range tickets {
			if !t.Valid {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}, nil
}

// GetTicket returns a ticket by ID.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*model.Ticket, error) {
	t, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, model.ErrTicketNotFound
	}
	return t, nil
}

func (s *TicketService) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	return s.repo.ListTickets(ctx)
}

// Availability lists every ticket type with its limit and sold count.
func (s *TicketService) Availability(ctx context.Context) ([]model.TicketType, error) {
	return s.repo.ListTicketTypes(ctx)
}
