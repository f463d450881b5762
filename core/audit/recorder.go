package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

const (
	ActionCreate      = "CREATE"
	ActionUpdate      = "UPDATE"
	ActionDelete      = "DELETE"
	ActionLogin       = "LOGIN"
	ActionLogout      = "LOGOUT"
	ActionLoginFailed = "LOGIN_FAILED"
	ActionExport      = "EXPORT"
	ActionImport      = "IMPORT"
)

// Entry describes one action to record. OldValue and NewValue take arbitrary
// snapshots; secret-looking fields are stripped before anything is stored.
type Entry struct {
	UserID      *int64
	Username    string
	Action      string
	Module      string
	RecordID    *int64
	Description string
	OldValue    any
	NewValue    any
	IP          string
	UserAgent   string
}

// Recorder writes audit rows on a best-effort basis. A failed write never
// fails the request that triggered it; it is logged and counted instead.
type Recorder struct {
	store    store.AuditStore
	logger   *utils.Logger
	failures prometheus.Counter
}

func NewRecorder(st store.AuditStore, logger *utils.Logger) *Recorder {
	return &Recorder{
		store:  st,
		logger: logger,
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tio_audit_write_failures_total",
			Help: "Audit rows that could not be written.",
		}),
	}
}

// FailureCounter exposes the write-failure counter for registry registration.
func (r *Recorder) FailureCounter() prometheus.Counter {
	if r == nil {
		return nil
	}
	return r.failures
}

func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.store == nil {
		return
	}
	rec := &store.AuditRecord{
		UserID:      e.UserID,
		Username:    e.Username,
		Action:      e.Action,
		Module:      e.Module,
		RecordID:    e.RecordID,
		Description: e.Description,
		OldValue:    sanitizeJSON(e.OldValue),
		NewValue:    sanitizeJSON(e.NewValue),
		IPAddress:   e.IP,
		UserAgent:   e.UserAgent,
		CreatedAt:   time.Now().UTC(),
	}
	// Request cancellation must not lose the row.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.store.Insert(writeCtx, rec); err != nil {
		r.failures.Inc()
		if r.logger != nil {
			r.logger.Errorf("audit write failed: module=%s action=%s err=%v", e.Module, e.Action, err)
		}
	}
}

var secretKeyMarkers = []string{"password", "token", "secret", "hash", "salt", "pepper"}

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

// sanitizeJSON renders v as JSON with secret-looking fields replaced by a
// placeholder at any nesting depth. Values that cannot be marshalled are
// dropped rather than stored raw.
func sanitizeJSON(v any) string {
	if v == nil {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ""
	}
	clean, err := json.Marshal(sanitizeValue(decoded))
	if err != nil {
		return ""
	}
	return string(clean)
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if isSecretKey(k) {
				out[k] = "***"
				continue
			}
			out[k] = sanitizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}
