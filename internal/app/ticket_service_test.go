package app

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areafiftylan/a5l/internal/clock"
	"github.com/areafiftylan/a5l/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestTicketService(t *testing.T) (*TicketService, *fakeRepo, *fakeNotifier) {
	t.Helper()
	repo := newFakeRepo()
	repo.addType(model.TicketTypeEarlyBird, 1)
	repo.addType(model.TicketTypeRegularFull, 10)
	notifier := &fakeNotifier{}
	svc := NewTicketService(repo, notifier, clock.NewFixed(testNow),
		WithTransferTTL(time.Hour), WithAcceptURL("https://a5l.example.org/transfer"))
	return svc, repo, notifier
}

func TestTicketService_RequestTicket(t *testing.T) {
	t.Parallel()

	t.Run("issues valid ticket while stock lasts", func(t *testing.T) {
		svc, repo, _ := newTestTicketService(t)
		alice := repo.addUser("alice")

		ticket, err := svc.RequestTicket(context.Background(), model.TicketTypeRegularFull, alice.ID,
			TicketOptions{PickupService: true})
		require.NoError(t, err)
		assert.NotZero(t, ticket.ID)
		assert.True(t, ticket.Valid)
		assert.True(t, ticket.PickupService)
		assert.False(t, ticket.CHMember)
		assert.Equal(t, testNow, ticket.CreatedAt)
		assert.Equal(t, alice.ID, ticket.OwnerID)
	})

	t.Run("fails when type is sold out", func(t *testing.T) {
		svc, repo, _ := newTestTicketService(t)
		alice := repo.addUser("alice")

		_, err := svc.RequestTicket(context.Background(), model.TicketTypeEarlyBird, alice.ID, TicketOptions{})
		require.NoError(t, err)

		_, err = svc.RequestTicket(context.Background(), model.TicketTypeEarlyBird, alice.ID, TicketOptions{})
		require.ErrorIs(t, err, model.ErrTicketUnavailable)
		assert.Contains(t, err.Error(), model.TicketTypeEarlyBird)

		sold, err := svc.CountSold(context.Background(), model.TicketTypeEarlyBird)
		require.NoError(t, err)
		assert.Equal(t, 1, sold)
	})

	t.Run("unknown type", func(t *testing.T) {
		svc, repo, _ := newTestTicketService(t)
		alice := repo.addUser("alice")

		_, err := svc.RequestTicket(context.Background(), "VIP", alice.ID, TicketOptions{})
		require.ErrorIs(t, err, model.ErrTicketTypeNotFound)
	})

	t.Run("concurrent requests never oversell", func(t *testing.T) {
		svc, repo, _ := newTestTicketService(t)
		repo.addType("SMALL", 5)
		alice := repo.addUser("alice")

		var ok atomic.Int32
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.RequestTicket(context.Background(), "SMALL", alice.ID, TicketOptions{}); err == nil {
					ok.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 5, ok.Load())
		sold, _ := svc.CountSold(context.Background(), "SMALL")
		assert.Equal(t, 5, sold)
	})
}

func TestTicketService_RemoveTicket(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestTicketService(t)
	ctx := context.Background()
	alice := repo.addUser("alice")
	repo.addUser("bob")

	ticket, err := svc.RequestTicket(ctx, model.TicketTypeRegularFull, alice.ID, TicketOptions{})
	require.NoError(t, err)
	repo.rfids[ticket.ID] = "ABCDE12345"

	tok, err := svc.SetupTransfer(ctx, ticket.ID, "bob")
	require.NoError(t, err)

	removed, err := svc.RemoveTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, removed.ID)
	assert.Equal(t, "alice", removed.OwnerUsername)

	_, err = svc.GetTicket(ctx, ticket.ID)
	require.ErrorIs(t, err, model.ErrTicketNotFound)
	assert.Empty(t, repo.rfids)

	stored, _ := repo.FindToken(ctx, tok.Value)
	assert.True(t, stored.Revoked)
	require.ErrorIs(t, svc.AcceptTransfer(ctx, tok.Value), model.ErrInvalidToken)

	_, err = svc.RemoveTicket(ctx, ticket.ID)
	require.ErrorIs(t, err, model.ErrTicketNotFound)
}

func TestTicketService_ValidTicketsForOwner(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestTicketService(t)
	ctx := context.Background()
	alice := repo.addUser("alice")

	t1, _ := svc.RequestTicket(ctx, model.TicketTypeRegularFull, alice.ID, TicketOptions{})
	t2, _ := svc.RequestTicket(ctx, model.TicketTypeRegularFull, alice.ID, TicketOptions{})
	require.NoError(t, repo.SetTicketValid(ctx, t2.ID, false))

	seq, err := svc.ValidTicketsForOwner(ctx, "alice")
	require.NoError(t, err)
	tickets := slices.Collect(seq)
	require.Len(t, tickets, 1)
	assert.Equal(t, t1.ID, tickets[0].ID)

	require.NoError(t, svc.ValidateTicket(ctx, t2.ID))
	seq, _ = svc.ValidTicketsForOwner(ctx, "alice")
	assert.Len(t, slices.Collect(seq), 2)

	require.ErrorIs(t, svc.ValidateTicket(ctx, 999), model.ErrTicketNotFound)

	seq, err = svc.ValidTicketsForOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq))
}

func TestTicketService_Availability(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestTicketService(t)
	alice := repo.addUser("alice")
	_, err := svc.RequestTicket(context.Background(), model.TicketTypeEarlyBird, alice.ID, TicketOptions{})
	require.NoError(t, err)

	types, err := svc.Availability(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, model.TicketTypeEarlyBird, types[0].Name)
	assert.Equal(t, 0, types[0].Available())
	assert.Equal(t, 10, types[1].Available())
}
