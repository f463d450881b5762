package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/shenulal/telematics-io-manager/core/auth"
)

// envelope is the uniform response wrapper used by every /api route.
type envelope struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	Total      *int   `json:"total,omitempty"`
	Page       *int   `json:"page,omitempty"`
	PageSize   *int   `json:"pageSize,omitempty"`
	TotalPages *int   `json:"totalPages,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

func respondList(w http.ResponseWriter, data any, total, page, pageSize int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	totalPages := (total + pageSize - 1) / pageSize
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       data,
		Total:      &total,
		Page:       &page,
		PageSize:   &pageSize,
		TotalPages: &totalPages,
	})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: message})
}

func failServer(w http.ResponseWriter) {
	fail(w, http.StatusInternalServerError, "Internal server error")
}

const (
	defaultPageSize = 20
	// maxPageSize mirrors the store-level cap so the envelope's pageSize
	// always matches the rows actually fetched.
	maxPageSize = 200
)

func pageFromQuery(r *http.Request) (int, int) {
	q := r.URL.Query()
	page := parseIntDefault(q.Get("page"), 1)
	pageSize := parseIntDefault(q.Get("pageSize"), defaultPageSize)
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func parseIntDefault(v string, def int) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseInt64Default(v string, def int64) int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func parseBoolParam(v string) *bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "active":
		b := true
		return &b
	case "0", "false", "no", "inactive":
		b := false
		return &b
	}
	return nil
}

func currentIdentity(r *http.Request) *auth.Identity {
	return auth.IdentityFromContext(r.Context())
}

func clientAddr(r *http.Request) string {
	if v, ok := r.Context().Value(clientIPContextKey).(string); ok && v != "" {
		return v
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

type handlerContextKey string

// clientIPContextKey carries the proxy-aware client address resolved by the
// server middleware.
const clientIPContextKey handlerContextKey = "tio.client_ip"

// ClientIPContextKey is exported for the middleware that populates it.
const ClientIPContextKey = clientIPContextKey
