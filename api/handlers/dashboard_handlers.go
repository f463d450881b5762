package handlers

import (
	"net/http"

	"github.com/shenulal/telematics-io-manager/core/store"
)

type DashboardHandler struct {
	dashboard store.DashboardStore
}

func NewDashboardHandler(dashboard store.DashboardStore) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		failServer(w)
		return
	}
	respond(w, http.StatusOK, stats)
}
