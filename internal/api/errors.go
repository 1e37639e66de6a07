package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/areafiftylan/a5l/internal/model"
)

var (
	notFoundErrors = []error{
		model.ErrUserNotFound,
		model.ErrTicketNotFound,
		model.ErrTicketTypeNotFound,
		model.ErrTokenNotFound,
		model.ErrTeamNotFound,
		model.ErrRFIDNotFound,
		model.ErrNotMember,
	}
	badRequestErrors = []error{
		model.ErrInvalidToken,
		model.ErrInvalidRFID,
		model.ErrPasswordTooShort,
		model.ErrInvalidProfile,
		model.ErrInvalidInput,
	}
	forbiddenErrors = []error{
		model.ErrNotTransferTarget,
	}
	conflictErrors = []error{
		model.ErrTicketUnavailable,
		model.ErrTransferPending,
		model.ErrTransferToSelf,
		model.ErrRFIDTaken,
		model.ErrTicketLinked,
		model.ErrUserExists,
		model.ErrTeamExists,
		model.ErrAlreadyMember,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// errorStatus maps a service or store error to an HTTP status.
func errorStatus(err error) int {
	switch {
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case isAny(err, forbiddenErrors):
		return http.StatusForbidden
	case isAny(err, conflictErrors):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError answers with the status of err. Unclassified errors are
// logged and reported with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, status, "internal error")
		return
	}
	jsonError(w, status, err.Error())
}
