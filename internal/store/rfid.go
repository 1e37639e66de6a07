package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/areafiftylan/a5l/internal/model"
)

// AddRFIDLink binds a badge to a ticket. A badge and a ticket can each be in
// at most one link.
func AddRFIDLink(ctx context.Context, db DBTX, rfid string, ticketID int64) error {
	existing, err := GetRFIDLinkByTicket(ctx, db, ticketID)
	if err != nil {
		return err
	}
	if existing != nil {
		return model.ErrTicketLinked
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO rfid_links (rfid, ticket_id) VALUES (?, ?)`, rfid, ticketID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrRFIDTaken
		}
		return fmt.Errorf("adding rfid link: %w", err)
	}
	return nil
}

// GetRFIDLink returns the link of a badge, or nil if it is not linked.
func GetRFIDLink(ctx context.Context, db DBTX, rfid string) (*model.RFIDLink, error) {
	return getRFIDLink(ctx, db, `SELECT rfid, ticket_id FROM rfid_links WHERE rfid = ?`, rfid)
}

// GetRFIDLinkByTicket returns the link of a ticket, or nil if it is not linked.
func GetRFIDLinkByTicket(ctx context.Context, db DBTX, ticketID int64) (*model.RFIDLink, error) {
	return getRFIDLink(ctx, db, `SELECT rfid, ticket_id FROM rfid_links WHERE ticket_id = ?`, ticketID)
}

func getRFIDLink(ctx context.Context, db DBTX, query string, arg any) (*model.RFIDLink, error) {
	l := &model.RFIDLink{}
	err := db.QueryRowContext(ctx, query, arg).Scan(&l.RFID, &l.TicketID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting rfid link: %w", err)
	}
	return l, nil
}

// ListRFIDLinks returns all links.
func ListRFIDLinks(ctx context.Context, db DBTX) ([]model.RFIDLink, error) {
	rows, err := db.QueryContext(ctx, `SELECT rfid, ticket_id FROM rfid_links ORDER BY rfid`)
	if err != nil {
		return nil, fmt.Errorf("listing rfid links: %w", err)
	}
	defer rows.Close()

	var links []model.RFIDLink
	for rows.Next() {
		var l model.RFIDLink
		if err := rows.Scan(&l.RFID, &l.TicketID); err != nil {
			return nil, fmt.Errorf("scanning rfid link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// RemoveRFIDLink unlinks a badge.
func RemoveRFIDLink(ctx context.Context, db DBTX, rfid string) error {
	return execOne(ctx, db, model.ErrRFIDNotFound,
		`DELETE FROM rfid_links WHERE rfid = ?`, rfid)
}

// RemoveRFIDLinkByTicket unlinks a ticket and returns the removed link, or
// nil if the ticket had none.
func RemoveRFIDLinkByTicket(ctx context.Context, db DBTX, ticketID int64) (*model.RFIDLink, error) {
	l, err := GetRFIDLinkByTicket(ctx, db, ticketID)
	if err != nil || l == nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM rfid_links WHERE ticket_id = ?`, ticketID); err != nil {
		return nil, fmt.Errorf("removing rfid link: %w", err)
	}
	return l, nil
}
