package handlers

import (
	"net/http"
	"time"

	"github.com/shenulal/telematics-io-manager/core/store"
)

type AuditLogsHandler struct {
	audits store.AuditStore
}

func NewAuditLogsHandler(audits store.AuditStore) *AuditLogsHandler {
	return &AuditLogsHandler{audits: audits}
}

func (h *AuditLogsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pageFromQuery(r)
	filter := store.AuditFilter{
		Search:   q.Get("search"),
		Module:   q.Get("module"),
		Action:   q.Get("action"),
		UserID:   parseInt64Default(q.Get("userId"), 0),
		Page:     page,
		PageSize: pageSize,
	}
	if from := parseDateParam(q.Get("dateFrom"), false); from != nil {
		filter.DateFrom = from
	}
	if to := parseDateParam(q.Get("dateTo"), true); to != nil {
		filter.DateTo = to
	}
	items, total, err := h.audits.List(r.Context(), filter)
	if err != nil {
		failServer(w)
		return
	}
	respondList(w, items, total, page, pageSize)
}

// parseDateParam accepts RFC3339 or a plain date. A plain date used as the
// range end covers the whole day.
func parseDateParam(v string, endOfDay bool) *time.Time {
	if v == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		utc := ts.UTC()
		return &utc
	}
	ts, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	utc := ts.UTC()
	if endOfDay {
		utc = utc.Add(24*time.Hour - time.Nanosecond)
	}
	return &utc
}
