package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/mazarin/internal/app"
	"github.com/shrimpsizemoose/mazarin/internal/metrics"
	"github.com/shrimpsizemoose/mazarin/internal/models"
	"github.com/shrimpsizemoose/mazarin/internal/scoring"
)

type PortalHandler struct {
	service *app.Service
	ranker  *scoring.Ranker
}

func NewPortalHandler(service *app.Service) *PortalHandler {
	return &PortalHandler{
		service: service,
		ranker:  scoring.NewRanker(service.Store),
	}
}

func (h *PortalHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	student, err := h.service.RegisterStudent(&reg)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	metrics.RegistrationsTotal.Inc()
	logger.Info.Printf("Registered student %d (%s)", student.ID, student.School)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"student": student,
	})
}

func (h *PortalHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.service.LoginStudent(r.Context(), &creds)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PortalHandler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.service.LoginAdmin(r.Context(), &creds)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleLogout clears whatever principal is bound, student or admin.
func (h *PortalHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.service.Config.Sessions.CookieName); err == nil {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			logger.Debug.Printf("Failed to clear session: %v", err)
		}
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PortalHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.service.Config.Sessions.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   h.service.Config.Sessions.TTLHours * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *PortalHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.service.Config.Sessions.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
