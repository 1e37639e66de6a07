package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/areafiftylan/a5l/internal/db"
	"github.com/areafiftylan/a5l/internal/model"
)

func seedTicketFixtures(t *testing.T, database *sql.DB) (*model.User, *model.User) {
	t.Helper()
	ctx := context.Background()

	if err := UpsertTicketType(ctx, database, model.TicketTypeEarlyBird, 2); err != nil {
		t.Fatalf("UpsertTicketType: %v", err)
	}
	if err := UpsertTicketType(ctx, database, model.TicketTypeRegularFull, 5); err != nil {
		t.Fatalf("UpsertTicketType: %v", err)
	}
	alice, err := CreateUser(ctx, database, "alice", "alice@example.org", "hash", model.RoleUser, true)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	bob, err := CreateUser(ctx, database, "bob", "bob@example.org", "hash", model.RoleUser, true)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return alice, bob
}

func newTicket(t *testing.T, database *sql.DB, typ string, ownerID int64) *model.Ticket {
	t.Helper()
	ticket := &model.Ticket{Type: typ, OwnerID: ownerID, CreatedAt: time.Now().UTC()}
	if err := CreateTicket(context.Background(), database, ticket); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	return ticket
}

func TestTicketTypes(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice, _ := seedTicketFixtures(t, database)

	newTicket(t, database, model.TicketTypeEarlyBird, alice.ID)

	tt, err := GetTicketType(ctx, database, model.TicketTypeEarlyBird)
	if err != nil {
		t.Fatalf("GetTicketType: %v", err)
	}
	if tt == nil || tt.Limit != 2 {
		t.Fatalf("expected EARLY_BIRD with limit 2, got %v", tt)
	}

	missing, err := GetTicketType(ctx, database, "NOPE")
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing type, got %v, %v", missing, err)
	}

	types, err := ListTicketTypes(ctx, database)
	if err != nil {
		t.Fatalf("ListTicketTypes: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(types))
	}
	if types[0].Name != model.TicketTypeEarlyBird || types[0].Sold != 1 || types[0].Available() != 1 {
		t.Errorf("unexpected EARLY_BIRD availability: %+v", types[0])
	}
	if types[1].Sold != 0 {
		t.Errorf("expected REGULAR_FULL to have none sold, got %d", types[1].Sold)
	}

	// Upserting changes the limit but keeps sold tickets.
	UpsertTicketType(ctx, database, model.TicketTypeEarlyBird, 10)
	tt, _ = GetTicketType(ctx, database, model.TicketTypeEarlyBird)
	if tt.Limit != 10 {
		t.Errorf("expected limit 10 after upsert, got %d", tt.Limit)
	}
}

func TestCreateAndGetTicket(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice, _ := seedTicketFixtures(t, database)

	ticket := &model.Ticket{
		Type:          model.TicketTypeRegularFull,
		OwnerID:       alice.ID,
		PickupService: true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := CreateTicket(ctx, database, ticket); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.ID == 0 {
		t.Fatal("expected ticket id to be set")
	}

	got, err := GetTicket(ctx, database, ticket.ID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if got.OwnerUsername != "alice" || !got.PickupService || got.Valid || got.CHMember {
		t.Errorf("unexpected ticket: %+v", got)
	}

	missing, err := GetTicket(ctx, database, 999)
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing ticket, got %v, %v", missing, err)
	}
}

func TestCreateTicketUnknownType(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice, _ := seedTicketFixtures(t, database)

	err := CreateTicket(ctx, database, &model.Ticket{Type: "NOPE", OwnerID: alice.ID, CreatedAt: time.Now()})
	if err == nil {
		t.Error("expected foreign key error for unknown ticket type")
	}
}

func TestTicketOwnershipAndValidity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice, bob := seedTicketFixtures(t, database)

	ticket := newTicket(t, database, model.TicketTypeEarlyBird, alice.ID)

	if err := SetTicketValid(ctx, database, ticket.ID, true); err != nil {
		t.Fatalf("SetTicketValid: %v", err)
	}
	if err := SetTicketOwner(ctx, database, ticket.ID, bob.ID); err != nil {
		t.Fatalf("SetTicketOwner: %v", err)
	}

	aliceTickets, _ := ListTicketsByOwnerUsername(ctx, database, "alice")
	if len(aliceTickets) != 0 {
		t.Errorf("expected alice to hold no tickets, got %d", len(aliceTickets))
	}
	bobTickets, _ := ListTicketsByOwnerUsername(ctx, database, "bob")
	if len(bobTickets) != 1 || !bobTickets[0].Valid {
		t.Errorf("expected bob to hold one valid ticket, got %+v", bobTickets)
	}

	if err := SetTicketOwner(ctx, database, 999, bob.ID); !errors.Is(err, model.ErrTicketNotFound) {
		t.Errorf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestCountAndDeleteTickets(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice, bob := seedTicketFixtures(t, database)

	t1 := newTicket(t, database, model.TicketTypeEarlyBird, alice.ID)
	newTicket(t, database, model.TicketTypeEarlyBird, bob.ID)
	newTicket(t, database, model.TicketTypeRegularFull, bob.ID)

	count, err := CountTicketsByType(ctx, database, model.TicketTypeEarlyBird)
	if err != nil {
		t.Fatalf("CountTicketsByType: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 EARLY_BIRD tickets, got %d", count)
	}

	if err := DeleteTicket(ctx, database, t1.ID); err != nil {
		t.Fatalf("DeleteTicket: %v", err)
	}
	count, _ = CountTicketsByType(ctx, database, model.TicketTypeEarlyBird)
	if count != 1 {
		t.Errorf("expected 1 EARLY_BIRD ticket after delete, got %d", count)
	}

	all, _ := ListTickets(ctx, database)
	if len(all) != 2 {
		t.Errorf("expected 2 tickets, got %d", len(all))
	}

	if err := DeleteTicket(ctx, database, t1.ID); !errors.Is(err, model.ErrTicketNotFound) {
		t.Errorf("expected ErrTicketNotFound on second delete, got %v", err)
	}
}
