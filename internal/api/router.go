package api

import (
	"database/sql"
	"net/http"

	"github.com/areafiftylan/a5l/internal/app"
	"github.com/areafiftylan/a5l/internal/model"
)

// Services are the application services behind the API.
type Services struct {
	Tickets  *app.TicketService
	Accounts *app.AccountService
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, svc Services) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, Accounts: svc.Accounts}
	usersHandler := &UsersHandler{DB: db, Accounts: svc.Accounts}
	ticketsHandler := &TicketsHandler{Tickets: svc.Tickets}
	teamsHandler := &TeamsHandler{DB: db}
	rfidHandler := &RFIDHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireCommittee := RequireRole(model.RoleCommittee)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	committee := func(h http.HandlerFunc) http.Handler { return authMW(requireCommittee(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public: login, registration and account recovery.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/password/reset-request", authHandler.RequestPasswordReset)
	mux.HandleFunc("POST /api/auth/password/reset", authHandler.ResetPassword)
	mux.HandleFunc("GET /api/confirm-registration", authHandler.ConfirmRegistration)
	mux.HandleFunc("POST /api/users", usersHandler.Register)
	mux.HandleFunc("GET /api/tickets/available", ticketsHandler.Availability)

	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Users: self or committee+ to read, admin to manage.
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("GET /api/users/current", authed(usersHandler.Current))
	mux.Handle("GET /api/users/{id}", authed(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/profile", authed(usersHandler.UpdateProfile))
	mux.Handle("GET /api/users/{id}/teams", authed(usersHandler.Teams))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.SetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Tickets.
	mux.Handle("POST /api/tickets", authed(ticketsHandler.Request))
	mux.Handle("GET /api/tickets", committee(ticketsHandler.List))
	mux.Handle("GET /api/tickets/mine", authed(ticketsHandler.Mine))
	mux.Handle("GET /api/tickets/{id}", authed(ticketsHandler.Get))
	mux.Handle("PUT /api/tickets/{id}/validate", committee(ticketsHandler.Validate))
	mux.Handle("DELETE /api/tickets/{id}", admin(ticketsHandler.Delete))

	// Transfers: the token is the capability.
	mux.Handle("POST /api/tickets/{id}/transfer", authed(ticketsHandler.SetupTransfer))
	mux.Handle("GET /api/tickets/{id}/transfer", authed(ticketsHandler.PendingTransfer))
	mux.Handle("PUT /api/tickets/transfer", authed(ticketsHandler.AcceptTransfer))
	mux.Handle("DELETE /api/tickets/transfer", authed(ticketsHandler.CancelTransfer))

	// Teams.
	mux.Handle("POST /api/teams", authed(teamsHandler.Create))
	mux.Handle("GET /api/teams", committee(teamsHandler.List))
	mux.Handle("GET /api/teams/{id}", authed(teamsHandler.Get))
	mux.Handle("POST /api/teams/{id}/members", authed(teamsHandler.AddMember))
	mux.Handle("DELETE /api/teams/{id}/members/{username}", authed(teamsHandler.RemoveMember))

	// RFID badges (committee+).
	mux.Handle("GET /api/rfid", committee(rfidHandler.List))
	mux.Handle("POST /api/rfid", committee(rfidHandler.Add))
	mux.Handle("GET /api/rfid/{rfid}", committee(rfidHandler.Get))
	mux.Handle("DELETE /api/rfid/{rfid}", committee(rfidHandler.Remove))
	mux.Handle("GET /api/rfid/tickets/{id}", committee(rfidHandler.GetByTicket))
	mux.Handle("DELETE /api/rfid/tickets/{id}", committee(rfidHandler.RemoveByTicket))

	return mux
}
