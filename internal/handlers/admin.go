package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/mazarin/internal/metrics"
	"github.com/shrimpsizemoose/mazarin/internal/models"
)

// HandleAdminStudents lists every student with derived totals. This view
// deliberately ignores the leaderboard visibility flag: admins always see
// aggregate data.
func (h *PortalHandler) HandleAdminStudents(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RequireAdmin(r); err != nil {
		unauthorized(w, r, adminLoginPath)
		return
	}

	students, err := h.service.Store.ListStudents()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	aggregates, err := h.service.Store.FetchStudentAggregates()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	totals := make(map[int64]struct{ total, count int }, len(aggregates))
	for _, agg := range aggregates {
		totals[agg.StudentID] = struct{ total, count int }{agg.TotalScore, agg.SubmissionCount}
	}

	overviews := make([]models.StudentOverview, 0, len(students))
	for _, student := range students {
		agg := totals[student.ID]
		overviews = append(overviews, models.StudentOverview{
			Student:         student,
			TotalScore:      agg.total,
			SubmissionCount: agg.count,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows": overviews,
	})
}

// HandleAssignScore sets the score of one submission to an integer in
// [0, 100]. Overwrites are allowed; clearing back to unscored is not.
func (h *PortalHandler) HandleAssignScore(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RequireAdmin(r); err != nil {
		unauthorized(w, r, adminLoginPath)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		errorJSON(w, http.StatusBadRequest, "missing submission id")
		return
	}

	var payload struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.ranker.AssignScore(id, payload.Score)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	metrics.ScoresAssignedHistogram.Observe(float64(payload.Score))
	logger.Info.Printf("Assigned score %d to submission %s", payload.Score, id)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"submission": sub,
	})
}

func (h *PortalHandler) HandleVisibility(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RequireAdmin(r); err != nil {
		unauthorized(w, r, adminLoginPath)
		return
	}

	visible, err := h.ranker.Visibility()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"leaderboard_visible": visible})
}

// HandleToggleVisibility flips the global flag and returns the new state.
func (h *PortalHandler) HandleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RequireAdmin(r); err != nil {
		unauthorized(w, r, adminLoginPath)
		return
	}

	visible, err := h.ranker.ToggleVisibility()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logger.Info.Printf("Leaderboard visibility toggled, now visible=%t", visible)
	writeJSON(w, http.StatusOK, map[string]bool{"leaderboard_visible": visible})
}
