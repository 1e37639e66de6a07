package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/areafiftylan/a5l/internal/app"
	"github.com/areafiftylan/a5l/internal/auth"
	"github.com/areafiftylan/a5l/internal/model"
	"github.com/areafiftylan/a5l/internal/store"
)

// UsersHandler handles registration, profiles and user management.
type UsersHandler struct {
	DB       *sql.DB
	Accounts *app.AccountService
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Role string `json:"role"`
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

// canAccessUser reports whether the caller may read the account with id.
func canAccessUser(claims *auth.Claims, id int64) bool {
	return claims.UserID == id || model.RoleAtLeast(claims.Role, model.RoleCommittee)
}

// Register handles POST /api/users. The account stays disabled until the
// mailed verification link is followed.
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Accounts.Register(r.Context(), app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusCreated, user)
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Current handles GET /api/users/current.
func (h *UsersHandler) Current(w http.ResponseWriter, r *http.Request) {
	h.writeUser(w, r, GetClaims(r.Context()).UserID)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}
	if !canAccessUser(GetClaims(r.Context()), id) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	h.writeUser(w, r, id)
}

func (h *UsersHandler) writeUser(w http.ResponseWriter, r *http.Request, id int64) {
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	user.Profile, err = store.GetProfile(r.Context(), h.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	if err := store.UpdateUserRole(r.Context(), h.DB, id, req.Role); err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	claims := GetClaims(r.Context())
	slog.Info("user role updated", "user", claims.Username, "target_user", user.Username, "new_role", req.Role)
	jsonResponse(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/users/{id}/profile.
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}
	claims := GetClaims(r.Context())
	if claims.UserID != id && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var p model.Profile
	if err := decodeJSON(r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := p.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := store.UpdateProfile(r.Context(), h.DB, id, p); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("profile updated", "user", claims.Username, "target_user_id", id)
	jsonResponse(w, http.StatusOK, p)
}

// Teams handles GET /api/users/{id}/teams.
func (h *UsersHandler) Teams(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}
	if !canAccessUser(GetClaims(r.Context()), id) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	teams, err := store.ListTeamsByMember(r.Context(), h.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	jsonResponse(w, http.StatusOK, teams)
}

// SetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	var req setPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id, string(hash)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("user password set", "user", claims.Username, "target_user", h.displayName(r, id))
	jsonMessage(w, "password set")
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	// Look up target name before deleting.
	targetName := h.displayName(r, id)

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("user deleted", "user", claims.Username, "deleted_user", targetName)
	jsonMessage(w, "user deleted")
}

func (h *UsersHandler) displayName(r *http.Request, id int64) string {
	if u, _ := store.GetUser(r.Context(), h.DB, id); u != nil {
		return u.Username
	}
	return fmt.Sprintf("id:%d", id)
}
