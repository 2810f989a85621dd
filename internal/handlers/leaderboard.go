package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/mazarin/internal/app"
	"github.com/shrimpsizemoose/mazarin/internal/metrics"
)

// HandleLeaderboard serves the ranked standings. Anyone may ask; whether
// they get an answer depends on the visibility flag, which admin sessions
// bypass.
func (h *PortalHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		metrics.APIRequestDuration.WithLabelValues(
			"/api/v1/leaderboard",
			r.Method,
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())
	}()

	p, err := h.service.Principal(r)
	if err != nil {
		logger.Error.Printf("Failed to resolve principal: %v", err)
		status = http.StatusInternalServerError
		errorJSON(w, status, "request failed")
		return
	}

	ranks, err := h.ranker.Leaderboard(p.Kind == app.KindAdmin)
	if err != nil {
		status = http.StatusForbidden
		writeServiceError(w, err)
		return
	}

	writeJSON(w, status, map[string]interface{}{
		"rows": ranks,
	})
}
