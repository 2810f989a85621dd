package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/mazarin/internal/app"
	"github.com/shrimpsizemoose/mazarin/internal/scoring"
	"github.com/shrimpsizemoose/mazarin/internal/store"
)

const (
	studentLoginPath = "/login"
	adminLoginPath   = "/admin/login"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// wantsHTML is true for browser navigations, which get redirected to a
// login page on auth failures instead of a JSON error.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func unauthorized(w http.ResponseWriter, r *http.Request, loginPath string) {
	if wantsHTML(r) {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return
	}
	errorJSON(w, http.StatusUnauthorized, "unauthorized")
}

// writeServiceError maps the error taxonomy to structured responses. Auth
// failures go through unauthorized() at the call site instead, because the
// redirect target depends on which gate rejected the request.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		errorJSON(w, http.StatusBadRequest, "invalid payload: "+validationErrs.Error())
	case errors.Is(err, scoring.ErrScoreOutOfRange):
		errorJSON(w, http.StatusBadRequest, "score out of range")
	case errors.Is(err, store.ErrDuplicateEmail):
		errorJSON(w, http.StatusConflict, "email already registered")
	case errors.Is(err, store.ErrNotFound):
		errorJSON(w, http.StatusNotFound, "not found")
	case errors.Is(err, scoring.ErrLeaderboardHidden):
		errorJSON(w, http.StatusForbidden, "leaderboard is hidden")
	case errors.Is(err, app.ErrBadCredentials):
		errorJSON(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, app.ErrUnauthenticated):
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
	default:
		logger.Error.Printf("Request failed: %v", err)
		errorJSON(w, http.StatusInternalServerError, "request failed")
	}
}
