// Package calls ingests call events from telephony providers and classifies
// each as a qualified lead or not.
package calls

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/call"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/metrics"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/period"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage"
	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

// DefaultMinQualifiedSeconds is the answered-call duration at or above which
// a call counts as a lead. Inherited business constant; override via config.
const DefaultMinQualifiedSeconds = 30

// Event is an inbound call delivered by a telephony provider webhook.
type Event struct {
	AccountID       string
	Provider        string
	ExternalCallID  string
	FromNumber      string
	ToNumber        string
	TrackingNumber  string
	StartedAt       time.Time
	DurationSeconds int
	Answered        bool
}

// Options tunes the recorder.
type Options struct {
	// MinQualifiedSeconds overrides the qualification duration threshold;
	// zero selects the default.
	MinQualifiedSeconds int
	// DefaultTimezone is used for accounts without a profile timezone.
	DefaultTimezone string
	// Now supplies wall-clock time; tests pin it. Nil selects time.Now.
	Now func() time.Time
}

// Service records call events idempotently.
type Service struct {
	accounts            storage.AccountStore
	store               storage.CallStore
	minQualifiedSeconds int
	defaultTZ           string
	now                 func() time.Time
	log                 *logger.Logger
}

// New constructs a call ingestion service.
func New(accounts storage.AccountStore, store storage.CallStore, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("calls")
	}
	if opts.MinQualifiedSeconds <= 0 {
		opts.MinQualifiedSeconds = DefaultMinQualifiedSeconds
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "Europe/London"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		accounts:            accounts,
		store:               store,
		minQualifiedSeconds: opts.MinQualifiedSeconds,
		defaultTZ:           opts.DefaultTimezone,
		now:                 opts.Now,
		log:                 log,
	}
}

// Record ingests one call event. Redelivery of the same (provider,
// external_call_id) returns the stored record with created=false and does not
// re-evaluate qualification, so webhook retries are safe by construction.
func (s *Service) Record(ctx context.Context, event Event) (call.Record, bool, error) {
	event.Provider = strings.TrimSpace(strings.ToLower(event.Provider))
	event.ExternalCallID = strings.TrimSpace(event.ExternalCallID)

	if event.AccountID == "" {
		return call.Record{}, false, fmt.Errorf("account_id is required")
	}
	if event.Provider == "" || event.ExternalCallID == "" {
		return call.Record{}, false, fmt.Errorf("provider and external_call_id are required")
	}
	if event.DurationSeconds < 0 {
		return call.Record{}, false, fmt.Errorf("duration_seconds must not be negative")
	}
	if event.StartedAt.IsZero() {
		return call.Record{}, false, fmt.Errorf("started_at is required")
	}

	if _, err := s.accounts.GetAccount(ctx, event.AccountID); err != nil {
		return call.Record{}, false, fmt.Errorf("account validation failed: %w", err)
	}

	status, reason := qualify(event.Answered, event.DurationSeconds, s.minQualifiedSeconds)

	rec := call.Record{
		AccountID:       event.AccountID,
		Provider:        event.Provider,
		ExternalCallID:  event.ExternalCallID,
		FromNumber:      event.FromNumber,
		ToNumber:        event.ToNumber,
		TrackingNumber:  event.TrackingNumber,
		StartedAt:       event.StartedAt.UTC(),
		DurationSeconds: event.DurationSeconds,
		Answered:        event.Answered,
		Status:          status,
		Reason:          reason,
	}

	rec, created, err := s.store.InsertCall(ctx, rec)
	if err != nil {
		return call.Record{}, false, err
	}
	if !created {
		s.log.WithField("provider", rec.Provider).
			WithField("external_call_id", rec.ExternalCallID).
			Debug("duplicate call delivery ignored")
		return rec, false, nil
	}

	metrics.RecordCallIngested(rec.Provider, string(rec.Status))
	s.log.WithField("account_id", rec.AccountID).
		WithField("call_id", rec.ID).
		WithField("status", rec.Status).
		WithField("reason", rec.Reason).
		Info("call recorded")
	return rec, true, nil
}

// ListMonth returns the account's call records inside the period's month.
func (s *Service) ListMonth(ctx context.Context, accountID string, p period.Period) ([]call.Record, error) {
	return s.store.ListCallsInRange(ctx, accountID, p.MonthStart, p.MonthEnd)
}

// MonthRecords returns the account's call records for the current reporting
// month in the account's timezone.
func (s *Service) MonthRecords(ctx context.Context, accountID string) ([]call.Record, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	tz := acct.Timezone
	if tz == "" {
		tz = s.defaultTZ
	}
	p, err := period.Resolve(tz, s.now())
	if err != nil {
		return nil, err
	}
	return s.ListMonth(ctx, accountID, p)
}

// qualify applies the fixed lead rule: answered and at least minSeconds long.
// Reason precedence: not_answered beats short_duration.
func qualify(answered bool, durationSeconds, minSeconds int) (call.Status, call.Reason) {
	switch {
	case !answered:
		return call.StatusUnqualified, call.ReasonNotAnswered
	case durationSeconds < minSeconds:
		return call.StatusUnqualified, call.ReasonShortDuration
	default:
		return call.StatusQualified, call.ReasonRulesSatisfied
	}
}
