package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/areafiftylan/a5l/internal/model"
)

const tokenColumns = `value, kind, user_id, ticket_id, created_at, expires_at, used, revoked`

func scanToken(row interface{ Scan(...any) error }) (*model.Token, error) {
	t := &model.Token{}
	var ticketID sql.NullInt64
	err := row.Scan(&t.Value, &t.Kind, &t.UserID, &ticketID, &t.CreatedAt, &t.ExpiresAt, &t.Used, &t.Revoked)
	if err != nil {
		return nil, err
	}
	if ticketID.Valid {
		t.TicketID = &ticketID.Int64
	}
	return t, nil
}

// FindToken returns a token by its value, or nil if there is none.
func FindToken(ctx context.Context, db DBTX, value string) (*model.Token, error) {
	t, err := scanToken(db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE value = ?`, value,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding token: %w", err)
	}
	return t, nil
}

// ListTicketTokens returns every token that references a ticket, oldest first.
func ListTicketTokens(ctx context.Context, db DBTX, ticketID int64) ([]model.Token, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE ticket_id = ? ORDER BY created_at, rowid`, ticketID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing ticket tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}

// SaveToken inserts a token or updates its used and revoked flags. The flags
// only ever go from false to true; saving a stale copy cannot revive a token.
func SaveToken(ctx context.Context, db DBTX, t *model.Token) error {
	var ticketID any
	if t.TicketID != nil {
		ticketID = *t.TicketID
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO tokens (`+tokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (value) DO UPDATE SET
		     used = MAX(used, excluded.used),
		     revoked = MAX(revoked, excluded.revoked)`,
		t.Value, t.Kind, t.UserID, ticketID, t.CreatedAt, t.ExpiresAt, t.Used, t.Revoked,
	)
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// RevokeJWT adds a session token's JTI to the revocation list.
func RevokeJWT(ctx context.Context, db DBTX, jti string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_jwts (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}

	// Opportunistically clean up expired revocations.
	_, _ = db.ExecContext(ctx,
		`DELETE FROM revoked_jwts WHERE expires_at < ?`, time.Now().UTC(),
	)

	return nil
}

// IsJWTRevoked checks if a session token's JTI has been revoked.
func IsJWTRevoked(ctx context.Context, db DBTX, jti string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_jwts WHERE jti = ?`, jti,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking session revocation: %w", err)
	}
	return count > 0, nil
}
