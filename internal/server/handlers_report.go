package server

import (
	"net/http"
	"time"

	"github.com/akumol/guardian/internal/services/report"
)

// handleBalanceHistoryChart handles GET /api/reports/balance-history.png.
// Renders the caller's balance history as a PNG chart.
func (s *Server) handleBalanceHistoryChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, ok := s.loadProfile(w, r, uc.UserID)
	if !ok {
		return
	}

	png, err := report.RenderBalanceHistory(profile, time.Now())
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "not enough balance history to chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
