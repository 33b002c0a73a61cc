package httpapi

import (
	"net/http"
	"sync"
	"time"
)

// auditEntry captures one mutating API request for the in-memory audit trail.
type auditEntry struct {
	Time     time.Time `json:"time"`
	Method   string    `json:"method"`
	Path     string    `json:"path"`
	Status   int       `json:"status"`
	Duration string    `json:"duration"`
	Remote   string    `json:"remote"`
}

// auditLog is a fixed-capacity ring of recent entries, newest first.
type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
	max     int
}

func newAuditLog(max int) *auditLog {
	if max <= 0 {
		max = 100
	}
	return &auditLog{max: max}
}

func (l *auditLog) add(entry auditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

func (l *auditLog) list() []auditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]auditEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// statusRecorder captures the response code written downstream.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// auditMiddleware records mutating requests. Reads are left out to keep the
// trail focused on state changes.
func (h *handler) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.audit.add(auditEntry{
			Time:     start.UTC(),
			Method:   r.Method,
			Path:     r.URL.Path,
			Status:   rec.status,
			Duration: time.Since(start).Round(time.Millisecond).String(),
			Remote:   r.RemoteAddr,
		})
	})
}

func (h *handler) listAudit(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.audit.list())
}
