package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/areafiftylan/a5l/internal/model"
	"github.com/areafiftylan/a5l/internal/store"
)

// RFIDHandler handles badge links for the entrance desk (committee+).
type RFIDHandler struct {
	DB *sql.DB
}

type addRFIDRequest struct {
	RFID     string `json:"rfid"`
	TicketID int64  `json:"ticket_id"`
}

// List handles GET /api/rfid.
func (h *RFIDHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := store.ListRFIDLinks(r.Context(), h.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if links == nil {
		links = []model.RFIDLink{}
	}
	jsonResponse(w, http.StatusOK, links)
}

// Add handles POST /api/rfid.
func (h *RFIDHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRFIDRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.IsValidRFID(req.RFID) {
		writeServiceError(w, r, fmt.Errorf("%w: %q", model.ErrInvalidRFID, req.RFID))
		return
	}

	err := store.InTx(r.Context(), h.DB, func(tx store.DBTX) error {
		t, err := store.GetTicket(r.Context(), tx, req.TicketID)
		if err != nil {
			return err
		}
		if t == nil {
			return model.ErrTicketNotFound
		}
		return store.AddRFIDLink(r.Context(), tx, req.RFID, req.TicketID)
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("rfid linked", "user", GetClaims(r.Context()).Username, "rfid", req.RFID, "ticket_id", req.TicketID)
	jsonResponse(w, http.StatusCreated, model.RFIDLink{RFID: req.RFID, TicketID: req.TicketID})
}

// Get handles GET /api/rfid/{rfid}.
func (h *RFIDHandler) Get(w http.ResponseWriter, r *http.Request) {
	rfid := r.PathValue("rfid")
	if !model.IsValidRFID(rfid) {
		writeServiceError(w, r, fmt.Errorf("%w: %q", model.ErrInvalidRFID, rfid))
		return
	}

	link, err := store.GetRFIDLink(r.Context(), h.DB, rfid)
	h.writeLink(w, r, link, err)
}

// GetByTicket handles GET /api/rfid/tickets/{id}.
func (h *RFIDHandler) GetByTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "ticket")
	if !ok {
		return
	}

	link, err := store.GetRFIDLinkByTicket(r.Context(), h.DB, id)
	h.writeLink(w, r, link, err)
}

// Remove handles DELETE /api/rfid/{rfid}.
func (h *RFIDHandler) Remove(w http.ResponseWriter, r *http.Request) {
	rfid := r.PathValue("rfid")
	if err := store.RemoveRFIDLink(r.Context(), h.DB, rfid); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("rfid unlinked", "user", GetClaims(r.Context()).Username, "rfid", rfid)
	jsonMessage(w, "rfid unlinked")
}

// RemoveByTicket handles DELETE /api/rfid/tickets/{id}.
func (h *RFIDHandler) RemoveByTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "ticket")
	if !ok {
		return
	}

	link, err := store.RemoveRFIDLinkByTicket(r.Context(), h.DB, id)
	if err == nil && link == nil {
		err = model.ErrRFIDNotFound
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("rfid unlinked", "user", GetClaims(r.Context()).Username, "rfid", link.RFID, "ticket_id", id)
	jsonResponse(w, http.StatusOK, link)
}

func (h *RFIDHandler) writeLink(w http.ResponseWriter, r *http.Request, link *model.RFIDLink, err error) {
	if err == nil && link == nil {
		err = model.ErrRFIDNotFound
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, link)
}
