package api

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/areafiftylan/a5l/internal/app"
	"github.com/areafiftylan/a5l/internal/model"
)

// TicketsHandler handles ticket sales, validation and transfers.
type TicketsHandler struct {
	Tickets *app.TicketService
}

type requestTicketRequest struct {
	Type          string `json:"type"`
	PickupService bool   `json:"pickup_service"`
	CHMember      bool   `json:"ch_member"`
}

type setupTransferRequest struct {
	Username string `json:"username"`
}

type transferTokenRequest struct {
	Token string `json:"token"`
}

type availabilityResponse struct {
	Name      string `json:"name"`
	Limit     int    `json:"limit"`
	Sold      int    `json:"sold"`
	Available int    `json:"available"`
}

type pendingTransferResponse struct {
	Pending      bool       `json:"pending"`
	TargetUserID int64      `json:"target_user_id,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Request handles POST /api/tickets. The ticket goes to the caller.
func (h *TicketsHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req requestTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type == "" {
		jsonError(w, http.StatusBadRequest, "ticket type required")
		return
	}

	claims := GetClaims(r.Context())
	ticket, err := h.Tickets.RequestTicket(r.Context(), strings.ToUpper(req.Type), claims.UserID, app.TicketOptions{
		PickupService: req.PickupService,
		CHMember:      req.CHMember,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ticket.OwnerUsername = claims.Username
	jsonResponse(w, http.StatusCreated, ticket)
}

// Mine handles GET /api/tickets/mine.
func (h *TicketsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	seq, err := h.Tickets.ValidTicketsForOwner(r.Context(), GetClaims(r.Context()).Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	tickets := slices.Collect(seq)
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	jsonResponse(w, http.StatusOK, tickets)
}

// List handles GET /api/tickets.
func (h *TicketsHandler) List(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Tickets.ListTickets(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	jsonResponse(w, http.StatusOK, tickets)
}

// Availability handles GET /api/tickets/available.
func (h *TicketsHandler) Availability(w http.ResponseWriter, r *http.Request) {
	types, err := h.Tickets.Availability(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]availabilityResponse, 0, len(types))
	for _, tt := range types {
		resp = append(resp, availabilityResponse{
			Name:      tt.Name,
			Limit:     tt.Limit,
			Sold:      tt.Sold,
			Available: tt.Available(),
		})
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Get handles GET /api/tickets/{id}.
func (h *TicketsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.ownTicket(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, ticket)
}

// Validate handles PUT /api/tickets/{id}/validate.
func (h *TicketsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "ticket")
	if !ok {
		return
	}

	if err := h.Tickets.ValidateTicket(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("ticket validated", "user", GetClaims(r.Context()).Username, "ticket_id", id)
	jsonMessage(w, "ticket validated")
}

// Delete handles DELETE /api/tickets/{id}.
func (h *TicketsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "ticket")
	if !ok {
		return
	}

	ticket, err := h.Tickets.RemoveTicket(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("ticket deleted", "user", GetClaims(r.Context()).Username, "ticket_id", id, "owner_id", ticket.OwnerID)
	jsonResponse(w, http.StatusOK, ticket)
}

// SetupTransfer handles POST /api/tickets/{id}/transfer. Only the owner can
// offer a ticket. The response carries the token so the owner can cancel.
func (h *TicketsHandler) SetupTransfer(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.ownTicket(w, r)
	if !ok {
		return
	}
	claims := GetClaims(r.Context())
	if ticket.OwnerID != claims.UserID {
		jsonError(w, http.StatusForbidden, "only the owner can transfer a ticket")
		return
	}

	var req setupTransferRequest
	if err := decodeJSON(r, &req); err != nil || req.Username == "" {
		jsonError(w, http.StatusBadRequest, "username required")
		return
	}

	tok, err := h.Tickets.SetupTransfer(r.Context(), ticket.ID, req.Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, tok)
}

// PendingTransfer handles GET /api/tickets/{id}/transfer.
func (h *TicketsHandler) PendingTransfer(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.ownTicket(w, r)
	if !ok {
		return
	}

	tok, err := h.Tickets.PendingTransfer(r.Context(), ticket.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if tok == nil {
		jsonResponse(w, http.StatusOK, pendingTransferResponse{})
		return
	}
	jsonResponse(w, http.StatusOK, pendingTransferResponse{
		Pending:      true,
		TargetUserID: tok.UserID,
		ExpiresAt:    &tok.ExpiresAt,
	})
}

// AcceptTransfer handles PUT /api/tickets/transfer. Only the user the ticket
// was offered to can accept it.
func (h *TicketsHandler) AcceptTransfer(w http.ResponseWriter, r *http.Request) {
	token, ok := decodeTransferToken(w, r)
	if !ok {
		return
	}
	if err := h.Tickets.AcceptTransferAs(r.Context(), token, GetClaims(r.Context()).UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	jsonMessage(w, "ticket transferred")
}

// CancelTransfer handles DELETE /api/tickets/transfer.
func (h *TicketsHandler) CancelTransfer(w http.ResponseWriter, r *http.Request) {
	token, ok := decodeTransferToken(w, r)
	if !ok {
		return
	}
	if err := h.Tickets.CancelTransfer(r.Context(), token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	jsonMessage(w, "transfer cancelled")
}

func decodeTransferToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req transferTokenRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		jsonError(w, http.StatusBadRequest, "token required")
		return "", false
	}
	return req.Token, true
}

// ownTicket loads the ticket named in the path. Tickets of other users are
// reported as not found unless the caller is committee or above.
func (h *TicketsHandler) ownTicket(w http.ResponseWriter, r *http.Request) (*model.Ticket, bool) {
	id, ok := pathID(w, r, "id", "ticket")
	if !ok {
		return nil, false
	}

	ticket, err := h.Tickets.GetTicket(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}

	claims := GetClaims(r.Context())
	if ticket.OwnerID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleCommittee) {
		jsonError(w, http.StatusNotFound, model.ErrTicketNotFound.Error())
		return nil, false
	}
	return ticket, true
}
