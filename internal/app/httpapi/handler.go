// Package httpapi exposes the application services over a REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	app "github.com/TradeBoost-AI/lead-ledger/internal/app"
	appmetrics "github.com/TradeBoost-AI/lead-ledger/internal/app/metrics"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/services/accounts"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/services/calls"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage"
	"github.com/TradeBoost-AI/lead-ledger/internal/middleware"
	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

// Config controls the API surface.
type Config struct {
	// WebhookSecret authenticates telephony webhook deliveries via the
	// X-Webhook-Secret header. Empty disables the check (local dev only).
	WebhookSecret string
	// JWTSecret enables bearer-token auth on the account routes. Empty
	// disables auth (local dev only).
	JWTSecret string
	// AllowedOrigin configures CORS for the dashboard frontend.
	AllowedOrigin string
	// WebhookRatePerSecond / WebhookBurst bound webhook ingestion.
	WebhookRatePerSecond int
	WebhookBurst         int
}

type handler struct {
	app   *app.Application
	cfg   Config
	audit *auditLog
	log   *logger.Logger
}

// NewHandler returns the router exposing the REST API.
func NewHandler(application *app.Application, cfg Config, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	if cfg.WebhookRatePerSecond <= 0 {
		cfg.WebhookRatePerSecond = 10
	}
	if cfg.WebhookBurst <= 0 {
		cfg.WebhookBurst = 20
	}

	h := &handler{
		app:   application,
		cfg:   cfg,
		audit: newAuditLog(200),
		log:   log,
	}

	webhookLimiter := middleware.NewRateLimiter(cfg.WebhookRatePerSecond, cfg.WebhookBurst, func(r *http.Request) string {
		return chi.URLParam(r, "provider") + "|" + r.RemoteAddr
	}, log)

	r := chi.NewRouter()
	r.Use(appmetrics.InstrumentHandler)
	r.Use(middleware.CORS(cfg.AllowedOrigin))
	r.Use(h.auditMiddleware)

	if cfg.JWTSecret != "" {
		auth := middleware.NewAuthMiddleware(cfg.JWTSecret, skipAuth, log)
		r.Use(auth.Handler)
	} else {
		log.Warn("JWT_SECRET not set; API authentication disabled")
	}

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", appmetrics.Handler())
	r.Get("/audit", h.listAudit)

	r.With(webhookLimiter.Handler).Post("/webhooks/calls/{provider}", h.webhookCall)

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.createAccount)
		r.Get("/", h.listAccounts)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getAccount)
			r.Delete("/", h.deleteAccount)
			r.Put("/profile", h.updateProfile)
			r.Get("/calls", h.listCalls)
			r.Post("/spend/sync", h.syncSpend)
			r.Get("/spend", h.listSpend)
			r.Get("/dashboard", h.dashboard)
		})
	})

	r.Post("/compliance/scan", h.scanCopy)

	return r
}

// skipAuth exempts routes with their own (or no) authentication scheme.
func skipAuth(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	}
	return len(r.URL.Path) > 10 && r.URL.Path[:10] == "/webhooks/"
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- accounts ---------------------------------------------------------------

func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Owner string `json:"owner"`
		Email string `json:"email"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	acct, err := h.app.Accounts.Create(r.Context(), payload.Owner, payload.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountView(acct))
}

func (h *handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accts, err := h.app.Accounts.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]accountPayload, 0, len(accts))
	for _, acct := range accts {
		views = append(views, accountView(acct))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) getAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.app.Accounts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, accountView(acct))
}

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Accounts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email                     *string `json:"email"`
		Timezone                  *string `json:"timezone"`
		CurrencyCode              *string `json:"currency_code"`
		AverageRevenuePerJobPence *int64  `json:"average_revenue_per_job_pence"`
		GoogleCustomerID          *string `json:"google_customer_id"`
		GoogleRefreshToken        *string `json:"google_refresh_token"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	acct, err := h.app.Accounts.UpdateProfile(r.Context(), chi.URLParam(r, "id"), accounts.ProfileUpdate{
		Email:                     payload.Email,
		Timezone:                  payload.Timezone,
		CurrencyCode:              payload.CurrencyCode,
		AverageRevenuePerJobPence: payload.AverageRevenuePerJobPence,
		GoogleCustomerID:          payload.GoogleCustomerID,
		GoogleRefreshToken:        payload.GoogleRefreshToken,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, accountView(acct))
}

// --- calls ------------------------------------------------------------------

func (h *handler) webhookCall(w http.ResponseWriter, r *http.Request) {
	if h.cfg.WebhookSecret != "" && r.Header.Get("X-Webhook-Secret") != h.cfg.WebhookSecret {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid webhook secret"))
		return
	}

	var payload struct {
		AccountID       string `json:"account_id"`
		ExternalCallID  string `json:"external_call_id"`
		FromNumber      string `json:"from_number"`
		ToNumber        string `json:"to_number"`
		TrackingNumber  string `json:"tracking_number"`
		StartedAtMillis int64  `json:"started_at"`
		DurationSeconds int    `json:"duration_seconds"`
		Answered        bool   `json:"answered"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.StartedAtMillis <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("started_at must be epoch milliseconds"))
		return
	}

	rec, created, err := h.app.Calls.Record(r.Context(), calls.Event{
		AccountID:       payload.AccountID,
		Provider:        chi.URLParam(r, "provider"),
		ExternalCallID:  payload.ExternalCallID,
		FromNumber:      payload.FromNumber,
		ToNumber:        payload.ToNumber,
		TrackingNumber:  payload.TrackingNumber,
		StartedAt:       time.UnixMilli(payload.StartedAtMillis),
		DurationSeconds: payload.DurationSeconds,
		Answered:        payload.Answered,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	// 200 for replays as well; telephony providers retry anything else.
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      rec.ID,
		"created": created,
		"status":  rec.Status,
		"reason":  rec.Reason,
	})
}

func (h *handler) listCalls(w http.ResponseWriter, r *http.Request) {
	records, err := h.app.Calls.MonthRecords(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// --- spend ------------------------------------------------------------------

func (h *handler) syncSpend(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Spend.RefreshCurrentMonthIfStale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		// Auth or platform failures surface verbatim so the user can act
		// on them; the caller decides whether to retry.
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": err.Error(),
			"days":  result.Days,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) listSpend(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.app.Spend.MonthSnapshots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// --- dashboard --------------------------------------------------------------

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Dashboard.Metrics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- compliance -------------------------------------------------------------

func (h *handler) scanCopy(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Text == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.app.Compliance.Scan(payload.Text))
}

// --- helpers ----------------------------------------------------------------

func statusFor(err error) int {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(io.LimitReader(body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
