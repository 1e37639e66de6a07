package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/areafiftylan/a5l/internal/model"
)

// UpsertTicketType creates a ticket type or updates its sale limit.
func UpsertTicketType(ctx context.Context, db DBTX, name string, limit int) error {
	if limit < 0 {
		return fmt.Errorf("sale limit must not be negative")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO ticket_types (name, sale_limit) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET sale_limit = excluded.sale_limit`,
		name, limit,
	)
	if err != nil {
		return fmt.Errorf("saving ticket type: %w", err)
	}
	return nil
}

// GetTicketType returns a ticket type by name, or nil if there is none.
func GetTicketType(ctx context.Context, db DBTX, name string) (*model.TicketType, error) {
	tt := &model.TicketType{}
	err := db.QueryRowContext(ctx,
		`SELECT name, sale_limit FROM ticket_types WHERE name = ?`, name,
	).Scan(&tt.Name, &tt.Limit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting ticket type: %w", err)
	}
	return tt, nil
}

// ListTicketTypes returns all ticket types with their sold counts.
func ListTicketTypes(ctx context.Context, db DBTX) ([]model.TicketType, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT tt.name, tt.sale_limit, COUNT(t.id)
		 FROM ticket_types tt
		 LEFT JOIN tickets t ON t.type = tt.name
		 GROUP BY tt.name, tt.sale_limit
		 ORDER BY tt.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing ticket types: %w", err)
	}
	defer rows.Close()

	var types []model.TicketType
	for rows.Next() {
		var tt model.TicketType
		if err := rows.Scan(&tt.Name, &tt.Limit, &tt.Sold); err != nil {
			return nil, fmt.Errorf("scanning ticket type: %w", err)
		}
		types = append(types, tt)
	}
	return types, rows.Err()
}

// CountTicketsByType returns how many tickets of a type exist.
func CountTicketsByType(ctx context.Context, db DBTX, name string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE type = ?`, name,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting tickets: %w", err)
	}
	return count, nil
}

// CreateTicket inserts a ticket and sets its ID and creation time.
func CreateTicket(ctx context.Context, db DBTX, t *model.Ticket) error {
	result, err := db.ExecContext(ctx,
		`INSERT INTO tickets (type, owner_id, valid, pickup_service, ch_member, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.Type, t.OwnerID, t.Valid, t.PickupService, t.CHMember, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating ticket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting ticket id: %w", err)
	}
	t.ID = id
	return nil
}

const ticketSelect = `SELECT t.id, t.type, t.owner_id, t.valid, t.pickup_service, t.ch_member, t.created_at,
        u.username AS owner_username
 FROM tickets t
 JOIN users u ON u.id = t.owner_id`

// GetTicket returns a ticket by ID, or nil if there is none.
func GetTicket(ctx context.Context, db DBTX, id int64) (*model.Ticket, error) {
	t := &model.Ticket{}
	err := db.QueryRowContext(ctx, ticketSelect+` WHERE t.id = ?`, id).
		Scan(&t.ID, &t.Type, &t.OwnerID, &t.Valid, &t.PickupService, &t.CHMember, &t.CreatedAt, &t.OwnerUsername)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting ticket: %w", err)
	}
	return t, nil
}

// ListTickets returns all tickets.
func ListTickets(ctx context.Context, db DBTX) ([]model.Ticket, error) {
	rows, err := db.QueryContext(ctx, ticketSelect+` ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	return scanTickets(rows)
}

// ListTicketsByOwnerUsername returns all tickets held by a user, valid or not.
func ListTicketsByOwnerUsername(ctx context.Context, db DBTX, username string) ([]model.Ticket, error) {
	rows, err := db.QueryContext(ctx,
		ticketSelect+` WHERE u.username = ? AND u.deleted_at IS NULL ORDER BY t.id`, username,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tickets by owner: %w", err)
	}
	defer rows.Close()

	return scanTickets(rows)
}

// SetTicketOwner moves a ticket to another user.
func SetTicketOwner(ctx context.Context, db DBTX, id, ownerID int64) error {
	return execOne(ctx, db, model.ErrTicketNotFound,
		`UPDATE tickets SET owner_id = ? WHERE id = ?`, ownerID, id)
}

// SetTicketValid sets the validity flag of a ticket.
func SetTicketValid(ctx context.Context, db DBTX, id int64, valid bool) error {
	return execOne(ctx, db, model.ErrTicketNotFound,
		`UPDATE tickets SET valid = ? WHERE id = ?`, valid, id)
}

// DeleteTicket removes a ticket. Its RFID link goes with it and its tokens
// lose the ticket reference.
func DeleteTicket(ctx context.Context, db DBTX, id int64) error {
	return execOne(ctx, db, model.ErrTicketNotFound,
		`DELETE FROM tickets WHERE id = ?`, id)
}

func scanTickets(rows *sql.Rows) ([]model.Ticket, error) {
	var tickets []model.Ticket
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.Type, &t.OwnerID, &t.Valid, &t.PickupService, &t.CHMember,
			&t.CreatedAt, &t.OwnerUsername); err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
