package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/areafiftylan/a5l/internal/model"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store binds the query functions of this package to a database and carries
// transactions through the context, so services can group several calls into
// one atomic unit.
type Store struct {
	db *sql.DB
}

// New returns a Store over db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

type txKey struct{}

// WithTx runs fn inside a transaction. Calls on s made with the context passed
// to fn use that transaction. A nested WithTx joins the outer transaction.
// The transaction is rolled back if fn returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// InTx runs fn inside a transaction on db, for callers working with the
// query functions directly.
func InTx(ctx context.Context, db *sql.DB, fn func(tx DBTX) error) error {
	return New(db).WithTx(ctx, func(ctx context.Context) error {
		return fn(txFromContext(ctx))
	})
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

func (s *Store) conn(ctx context.Context) DBTX {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

// Users.

func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return GetUser(ctx, s.conn(ctx), id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return GetUserByUsername(ctx, s.conn(ctx), username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return GetUserByEmail(ctx, s.conn(ctx), email)
}

func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash, role string, enabled bool) (*model.User, error) {
	return CreateUser(ctx, s.conn(ctx), username, email, passwordHash, role, enabled)
}

func (s *Store) SetUserEnabled(ctx context.Context, id int64, enabled bool) error {
	return SetUserEnabled(ctx, s.conn(ctx), id, enabled)
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return UpdateUserPassword(ctx, s.conn(ctx), id, passwordHash)
}

// Tickets.

func (s *Store) GetTicketType(ctx context.Context, name string) (*model.TicketType, error) {
	return GetTicketType(ctx, s.conn(ctx), name)
}

func (s *Store) ListTicketTypes(ctx context.Context) ([]model.TicketType, error) {
	return ListTicketTypes(ctx, s.conn(ctx))
}

func (s *Store) CountTicketsByType(ctx context.Context, name string) (int, error) {
	return CountTicketsByType(ctx, s.conn(ctx), name)
}

func (s *Store) CreateTicket(ctx context.Context, t *model.Ticket) error {
	return CreateTicket(ctx, s.conn(ctx), t)
}

func (s *Store) GetTicket(ctx context.Context, id int64) (*model.Ticket, error) {
	return GetTicket(ctx, s.conn(ctx), id)
}

func (s *Store) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	return ListTickets(ctx, s.conn(ctx))
}

func (s *Store) ListTicketsByOwnerUsername(ctx context.Context, username string) ([]model.Ticket, error) {
	return ListTicketsByOwnerUsername(ctx, s.conn(ctx), username)
}

func (s *Store) SetTicketOwner(ctx context.Context, id, ownerID int64) error {
	return SetTicketOwner(ctx, s.conn(ctx), id, ownerID)
}

func (s *Store) SetTicketValid(ctx context.Context, id int64, valid bool) error {
	return SetTicketValid(ctx, s.conn(ctx), id, valid)
}

func (s *Store) DeleteTicket(ctx context.Context, id int64) error {
	return DeleteTicket(ctx, s.conn(ctx), id)
}

// Tokens.

func (s *Store) FindToken(ctx context.Context, value string) (*model.Token, error) {
	return FindToken(ctx, s.conn(ctx), value)
}

func (s *Store) ListTicketTokens(ctx context.Context, ticketID int64) ([]model.Token, error) {
	return ListTicketTokens(ctx, s.conn(ctx), ticketID)
}

func (s *Store) SaveToken(ctx context.Context, t *model.Token) error {
	return SaveToken(ctx, s.conn(ctx), t)
}

// RFID.

func (s *Store) RemoveRFIDLinkByTicket(ctx context.Context, ticketID int64) (*model.RFIDLink, error) {
	return RemoveRFIDLinkByTicket(ctx, s.conn(ctx), ticketID)
}
