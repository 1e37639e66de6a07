package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/areafiftylan/a5l/internal/auth"
	"github.com/areafiftylan/a5l/internal/model"
	"github.com/areafiftylan/a5l/internal/store"
)

// TeamsHandler handles team endpoints.
type TeamsHandler struct {
	DB *sql.DB
}

type createTeamRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	Username string `json:"username"`
}

// Create handles POST /api/teams. The caller becomes the captain.
func (h *TeamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "team name required")
		return
	}

	claims := GetClaims(r.Context())
	var team *model.Team
	err := store.InTx(r.Context(), h.DB, func(tx store.DBTX) error {
		var err error
		team, err = store.CreateTeam(r.Context(), tx, req.Name, claims.UserID)
		return err
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("team created", "user", claims.Username, "team", team.Name)
	jsonResponse(w, http.StatusCreated, team)
}

// List handles GET /api/teams.
func (h *TeamsHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := store.ListTeams(r.Context(), h.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	jsonResponse(w, http.StatusOK, teams)
}

// Get handles GET /api/teams/{id}. Members see their own teams, committee
// members see all.
func (h *TeamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	team, ok := h.team(w, r)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if !model.RoleAtLeast(claims.Role, model.RoleCommittee) {
		member, err := store.IsTeamMember(r.Context(), h.DB, team.ID, claims.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if !member {
			jsonError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
	}

	jsonResponse(w, http.StatusOK, team)
}

// AddMember handles POST /api/teams/{id}/members. Only the captain or an
// admin can add members.
func (h *TeamsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	team, ok := h.team(w, r)
	if !ok {
		return
	}
	claims := GetClaims(r.Context())
	if !isCaptainOrAdmin(claims, team) {
		jsonError(w, http.StatusForbidden, "only the captain can add members")
		return
	}

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil || req.Username == "" {
		jsonError(w, http.StatusBadRequest, "username required")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if user == nil {
		writeServiceError(w, r, fmt.Errorf("%w: %s", model.ErrUserNotFound, req.Username))
		return
	}

	if err := store.AddTeamMember(r.Context(), h.DB, team.ID, user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("team member added", "user", claims.Username, "team", team.Name, "member", user.Username)
	h.writeTeam(w, r, team.ID, http.StatusCreated)
}

// RemoveMember handles DELETE /api/teams/{id}/members/{username}. Members
// may leave on their own; the captain cannot leave.
func (h *TeamsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	team, ok := h.team(w, r)
	if !ok {
		return
	}

	username := r.PathValue("username")
	claims := GetClaims(r.Context())
	if username != claims.Username && !isCaptainOrAdmin(claims, team) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	if username == team.CaptainUsername {
		writeServiceError(w, r, fmt.Errorf("%w: the captain cannot leave the team", model.ErrInvalidInput))
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if user == nil {
		writeServiceError(w, r, model.ErrNotMember)
		return
	}

	if err := store.RemoveTeamMember(r.Context(), h.DB, team.ID, user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("team member removed", "user", claims.Username, "team", team.Name, "member", username)
	h.writeTeam(w, r, team.ID, http.StatusOK)
}

func isCaptainOrAdmin(claims *auth.Claims, team *model.Team) bool {
	return team.CaptainID == claims.UserID || model.RoleAtLeast(claims.Role, model.RoleAdmin)
}

func (h *TeamsHandler) team(w http.ResponseWriter, r *http.Request) (*model.Team, bool) {
	id, ok := pathID(w, r, "id", "team")
	if !ok {
		return nil, false
	}
	team, err := store.GetTeam(r.Context(), h.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	if team == nil {
		writeServiceError(w, r, model.ErrTeamNotFound)
		return nil, false
	}
	return team, true
}

func (h *TeamsHandler) writeTeam(w http.ResponseWriter, r *http.Request, id int64, status int) {
	team, err := store.GetTeam(r.Context(), h.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	jsonResponse(w, status, team)
}
