package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/areafiftylan/a5l/internal/model"
)

const userColumns = `id, username, email, password_hash, role, enabled, created_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Enabled, &u.CreatedAt, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new user with an empty profile.
func CreateUser(ctx context.Context, db DBTX, username, email, passwordHash, role string, enabled bool) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, enabled) VALUES (?, ?, ?, ?, ?)`,
		username, email, passwordHash, role, enabled,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrUserExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO profiles (user_id) VALUES (?)`, id); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, or nil if there is none.
func GetUser(ctx context.Context, db DBTX, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns an active user by username.
func GetUserByUsername(ctx context.Context, db DBTX, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns an active user by email, compared case-insensitively.
func GetUserByEmail(ctx context.Context, db DBTX, email string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = ? AND deleted_at IS NULL`,
		strings.ToLower(email),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db DBTX) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserRole updates a user's role.
func UpdateUserRole(ctx context.Context, db DBTX, id int64, role string) error {
	return execOne(ctx, db, model.ErrUserNotFound,
		`UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`, role, id)
}

// SetUserEnabled marks a user's account as verified (or not).
func SetUserEnabled(ctx context.Context, db DBTX, id int64, enabled bool) error {
	return execOne(ctx, db, model.ErrUserNotFound,
		`UPDATE users SET enabled = ? WHERE id = ? AND deleted_at IS NULL`, enabled, id)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db DBTX, id int64, passwordHash string) error {
	return execOne(ctx, db, model.ErrUserNotFound,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`, passwordHash, id)
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db DBTX, id int64) error {
	return execOne(ctx, db, model.ErrUserNotFound,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
}

// GetProfile returns the profile of a user.
func GetProfile(ctx context.Context, db DBTX, userID int64) (*model.Profile, error) {
	p := &model.Profile{}
	err := db.QueryRowContext(ctx,
		`SELECT first_name, last_name, display_name, gender, birthday, address, zipcode, city, phone_number, notes
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.FirstName, &p.LastName, &p.DisplayName, &p.Gender, &p.Birthday,
		&p.Address, &p.Zipcode, &p.City, &p.PhoneNumber, &p.Notes)
	if err == sql.ErrNoRows {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return p, nil
}

// UpdateProfile replaces the profile of a user.
func UpdateProfile(ctx context.Context, db DBTX, userID int64, p model.Profile) error {
	return execOne(ctx, db, model.ErrUserNotFound,
		`UPDATE profiles SET first_name = ?, last_name = ?, display_name = ?, gender = ?, birthday = ?,
		        address = ?, zipcode = ?, city = ?, phone_number = ?, notes = ?
		 WHERE user_id = ?`,
		p.FirstName, p.LastName, p.DisplayName, p.Gender, p.Birthday,
		p.Address, p.Zipcode, p.City, p.PhoneNumber, p.Notes, userID,
	)
}

// execOne runs a statement that must affect exactly one row and returns
// notFound when it affects none.
func execOne(ctx context.Context, db DBTX, notFound error, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("executing update: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
