package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/areafiftylan/a5l/internal/model"
)

type fakeRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users   map[int64]*model.User
	types   map[string]model.TicketType
	tickets map[int64]*model.Ticket
	tokens  map[string]model.Token
	rfids   map[int64]string

	nextUserID   int64
	nextTicketID int64

	// failSaveToken makes every SaveToken call fail.
	failSaveToken error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:   map[int64]*model.User{},
		types:   map[string]model.TicketType{},
		tickets: map[int64]*model.Ticket{},
		tokens:  map[string]model.Token{},
		rfids:   map[int64]string{},
	}
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(ctx)
}

func (r *fakeRepo) addUser(username string) *model.User {
	u, _ := r.CreateUser(context.Background(), username, username+"@example.org", "hash", model.RoleUser, true)
	return u
}

func (r *fakeRepo) addType(name string, limit int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = model.TicketType{Name: name, Limit: limit}
}

func (r *fakeRepo) GetUser(_ context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) CreateUser(_ context.Context, username, email, passwordHash, role string, enabled bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return nil, model.ErrUserExists
		}
	}
	r.nextUserID++
	u := &model.User{ID: r.nextUserID, Username: username, Email: email, PasswordHash: passwordHash, Role: role, Enabled: enabled}
	r.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) SetUserEnabled(_ context.Context, id int64, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.Enabled = enabled
	return nil
}

func (r *fakeRepo) UpdateUserPassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeRepo) GetTicketType(_ context.Context, name string) (*model.TicketType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tt, ok := r.types[name]
	if !ok {
		return nil, nil
	}
	return &tt, nil
}

func (r *fakeRepo) ListTicketTypes(_ context.Context) ([]model.TicketType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []model.TicketType
	for _, tt := range r.types {
		for _, t := range r.tickets {
			if t.Type == tt.Name {
				tt.Sold++
			}
		}
		types = append(types, tt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}

func (r *fakeRepo) CountTicketsByType(_ context.Context, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tickets {
		if t.Type == name {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CreateTicket(_ context.Context, t *model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Type]; !ok {
		return errors.New("unknown ticket type")
	}
	r.nextTicketID++
	t.ID = r.nextTicketID
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *fakeRepo) GetTicket(_ context.Context, id int64) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	if u, ok := r.users[t.OwnerID]; ok {
		cp.OwnerUsername = u.Username
	}
	return &cp, nil
}

func (r *fakeRepo) ListTickets(_ context.Context) ([]model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Ticket
	for _, t := range r.tickets {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) ListTicketsByOwnerUsername(ctx context.Context, username string) ([]model.Ticket, error) {
	all, _ := r.ListTickets(ctx)
	owner, _ := r.GetUserByUsername(ctx, username)
	var out []model.Ticket
	for _, t := range all {
		if owner != nil && t.OwnerID == owner.ID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeRepo) SetTicketOwner(_ context.Context, id, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return model.ErrTicketNotFound
	}
	t.OwnerID = ownerID
	return nil
}

func (r *fakeRepo) SetTicketValid(_ context.Context, id int64, valid bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return model.ErrTicketNotFound
	}
	t.Valid = valid
	return nil
}

func (r *fakeRepo) DeleteTicket(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return model.ErrTicketNotFound
	}
	delete(r.tickets, id)
	for v, tok := range r.tokens {
		if tok.TicketID != nil && *tok.TicketID == id {
			tok.TicketID = nil
			r.tokens[v] = tok
		}
	}
	return nil
}

func (r *fakeRepo) RemoveRFIDLinkByTicket(_ context.Context, ticketID int64) (*model.RFIDLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rfid, ok := r.rfids[ticketID]
	if !ok {
		return nil, nil
	}
	delete(r.rfids, ticketID)
	return &model.RFIDLink{RFID: rfid, TicketID: ticketID}, nil
}

func (r *fakeRepo) FindToken(_ context.Context, value string) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[value]
	if !ok {
		return nil, nil
	}
	return &tok, nil
}

func (r *fakeRepo) ListTicketTokens(_ context.Context, ticketID int64) ([]model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Token
	for _, tok := range r.tokens {
		if tok.TicketID != nil && *tok.TicketID == ticketID {
			out = append(out, tok)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepo) SaveToken(_ context.Context, t *model.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSaveToken != nil {
		return r.failSaveToken
	}
	stored, ok := r.tokens[t.Value]
	if !ok {
		r.tokens[t.Value] = *t
		return nil
	}
	stored.Used = stored.Used || t.Used
	stored.Revoked = stored.Revoked || t.Revoked
	r.tokens[t.Value] = stored
	return nil
}

type sentMail struct {
	kind string
	to   string
	url  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) record(kind string, to model.User, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: kind, to: to.Username, url: url})
	return n.err
}

func (n *fakeNotifier) SendTransferOffer(_ context.Context, _, target model.User, acceptURL string) error {
	return n.record("transfer", target, acceptURL)
}

func (n *fakeNotifier) SendVerification(_ context.Context, user model.User, confirmURL string) error {
	return n.record("verification", user, confirmURL)
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, user model.User, resetURL string) error {
	return n.record("reset", user, resetURL)
}

func (n *fakeNotifier) messages() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail(nil), n.sent...)
}
