// Package spend maintains daily ad-spend snapshots and reconciles them
// against the external ads platform.
package spend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/account"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/spend"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/metrics"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/period"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage"
	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

// DefaultFreshness is the minimum age of the last successful sync before a
// new external fetch is made. Inherited business constant; override via
// config.
const DefaultFreshness = 45 * time.Minute

// SourceGoogleAds tags snapshots written from the Google Ads report.
const SourceGoogleAds = "google_ads"

// SourceMeta carries provenance fields onto a snapshot.
type SourceMeta struct {
	Source           string
	GoogleCustomerID string
}

// Options tunes the sync orchestrator.
type Options struct {
	// DefaultTimezone is used for accounts without a profile timezone.
	DefaultTimezone string
	// Freshness gates external fetch frequency; zero selects the default.
	Freshness time.Duration
	// Now supplies wall-clock time; tests pin it. Nil selects time.Now.
	Now func() time.Time
}

// Service owns the snapshot store and the freshness-gated sync against the
// ads platform.
type Service struct {
	accounts  storage.AccountStore
	store     storage.SpendStore
	reporter  CostReporter
	locker    Locker
	defaultTZ string
	freshness time.Duration
	now       func() time.Time
	log       *logger.Logger
}

// New constructs a spend service. Without a reporter, syncs fail with a
// descriptive error; snapshot reads and upserts still work.
func New(accounts storage.AccountStore, store storage.SpendStore, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("spend")
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "Europe/London"
	}
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		accounts:  accounts,
		store:     store,
		locker:    NewMemoryLocker(),
		defaultTZ: opts.DefaultTimezone,
		freshness: opts.Freshness,
		now:       opts.Now,
		log:       log,
	}
}

// WithReporter assigns the cost reporter used during syncs.
func (s *Service) WithReporter(reporter CostReporter) { s.reporter = reporter }

// WithLocker replaces the per-account sync guard, e.g. with a redis lease
// when multiple instances run.
func (s *Service) WithLocker(locker Locker) {
	if locker != nil {
		s.locker = locker
	}
}

// UpsertDailySpend writes one day's spend for an account, fully replacing any
// existing row for that day. The platform's latest figure is authoritative,
// so nothing accumulates.
func (s *Service) UpsertDailySpend(ctx context.Context, accountID, date, currencyCode string, spendMicros int64, meta SourceMeta) (spend.Snapshot, error) {
	date = strings.TrimSpace(date)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return spend.Snapshot{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	if spendMicros < 0 {
		return spend.Snapshot{}, fmt.Errorf("spend_micros must not be negative")
	}

	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return spend.Snapshot{}, fmt.Errorf("account validation failed: %w", err)
	}
	if currencyCode == "" {
		currencyCode = acct.CurrencyCode
	}
	if meta.Source == "" {
		meta.Source = "manual"
	}

	return s.store.UpsertSnapshot(ctx, spend.Snapshot{
		AccountID:        accountID,
		Date:             date,
		CurrencyCode:     strings.ToUpper(currencyCode),
		SpendMicros:      spendMicros,
		Source:           meta.Source,
		GoogleCustomerID: meta.GoogleCustomerID,
		SyncedAt:         s.now().UTC(),
	})
}

// MonthSnapshots returns the account's snapshots for the current reporting
// month.
func (s *Service) MonthSnapshots(ctx context.Context, accountID string) ([]spend.Snapshot, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	p, err := s.resolvePeriod(acct)
	if err != nil {
		return nil, err
	}
	return s.store.ListMonthSnapshots(ctx, accountID, p.MonthKey)
}

// RefreshCurrentMonthIfStale syncs the current month's daily spend from the
// ads platform unless the last sync is recent enough, the account is not
// connected, or another sync for the account is already running. The decision
// is made fresh on every call; there is no persisted state machine.
//
// On a fatal error (token refresh, report fetch, storage) the returned
// SyncResult still carries the number of days persisted before the failure.
func (s *Service) RefreshCurrentMonthIfStale(ctx context.Context, accountID string) (spend.SyncResult, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return spend.SyncResult{}, err
	}
	if !acct.AdsConnected() {
		metrics.RecordSyncOutcome(spend.ReasonNotConnected, 0)
		return spend.SyncResult{Skipped: true, Reason: spend.ReasonNotConnected}, nil
	}

	p, err := s.resolvePeriod(acct)
	if err != nil {
		return spend.SyncResult{}, err
	}

	latest, err := s.store.LatestSyncedAt(ctx, accountID, p.MonthKey)
	if err != nil {
		return spend.SyncResult{}, err
	}
	if !latest.IsZero() && s.now().Sub(latest) < s.freshness {
		metrics.RecordSyncOutcome(spend.ReasonFreshEnough, 0)
		return spend.SyncResult{Skipped: true, Reason: spend.ReasonFreshEnough}, nil
	}

	locked, err := s.locker.TryLock(ctx, accountID)
	if err != nil {
		return spend.SyncResult{}, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !locked {
		metrics.RecordSyncOutcome(spend.ReasonSyncInProgress, 0)
		return spend.SyncResult{Skipped: true, Reason: spend.ReasonSyncInProgress}, nil
	}
	defer func() {
		if err := s.locker.Unlock(ctx, accountID); err != nil {
			s.log.WithError(err).WithField("account_id", accountID).Warn("release sync lock")
		}
	}()

	if s.reporter == nil {
		metrics.RecordSyncOutcome("error", 0)
		return spend.SyncResult{}, fmt.Errorf("ads platform reporter not configured")
	}

	// Today's partial figure is included on purpose; the next sync cycle
	// overwrites it with the platform's updated total.
	rows, err := s.reporter.DailyCost(ctx, acct, p.FirstOfMonth, p.TodayDate)
	if err != nil {
		metrics.RecordSyncOutcome("error", 0)
		return spend.SyncResult{}, fmt.Errorf("fetch daily cost report: %w", err)
	}

	meta := SourceMeta{Source: SourceGoogleAds, GoogleCustomerID: acct.GoogleCustomerID}
	days := 0
	for _, row := range rows {
		if row.Date == "" {
			s.log.WithField("account_id", accountID).Warn("report row missing date, skipped")
			continue
		}
		if row.CostMicros < 0 {
			s.log.WithField("account_id", accountID).
				WithField("date", row.Date).
				Warn("report row with negative cost, skipped")
			continue
		}
		if _, err := s.UpsertDailySpend(ctx, accountID, row.Date, acct.CurrencyCode, row.CostMicros, meta); err != nil {
			metrics.RecordSyncOutcome("error", days)
			return spend.SyncResult{Days: days}, fmt.Errorf("persist spend for %s: %w", row.Date, err)
		}
		days++
	}

	metrics.RecordSyncOutcome("synced", days)
	s.log.WithField("account_id", accountID).
		WithField("month", p.MonthKey).
		WithField("days", days).
		Info("ad spend synced")
	return spend.SyncResult{Days: days}, nil
}

// LatestSyncedAt reports the most recent sync instant for the account's
// current month, or zero when no snapshot exists yet.
func (s *Service) LatestSyncedAt(ctx context.Context, accountID string) (time.Time, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return time.Time{}, err
	}
	p, err := s.resolvePeriod(acct)
	if err != nil {
		return time.Time{}, err
	}
	return s.store.LatestSyncedAt(ctx, accountID, p.MonthKey)
}

func (s *Service) resolvePeriod(acct account.Account) (period.Period, error) {
	tz := acct.Timezone
	if tz == "" {
		tz = s.defaultTZ
	}
	return period.Resolve(tz, s.now())
}
