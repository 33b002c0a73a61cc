// Package dashboard derives month-to-date KPIs from call records and spend
// snapshots. Everything here is a pure read: metrics are recomputed on every
// call and never cached, so they reflect the latest stored state.
package dashboard

import (
	"context"
	"time"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/account"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/period"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage"
	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

// MicrosPerUnit converts platform cost micros to major currency units.
const MicrosPerUnit = 1_000_000

// Money is an amount in major currency units. All monetary values leave this
// package already converted, with the currency attached.
type Money struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currency_code"`
}

// Metrics is the month-to-date dashboard aggregate.
type Metrics struct {
	MonthKey         string     `json:"month_key"`
	TotalCalls       int        `json:"total_calls"`
	QualifiedCalls   int        `json:"qualified_calls"`
	AdSpend          Money      `json:"ad_spend"`
	CostPerLead      *Money     `json:"cost_per_lead"` // null when no qualified calls yet
	EstimatedRevenue Money      `json:"estimated_revenue"`
	EstimatedROI     Money      `json:"estimated_roi"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`
	// HasRealData distinguishes "no activity yet" from "zero performance".
	HasRealData bool `json:"has_real_data"`
}

// Service computes dashboard metrics.
type Service struct {
	accounts  storage.AccountStore
	calls     storage.CallStore
	spend     storage.SpendStore
	defaultTZ string
	now       func() time.Time
	log       *logger.Logger
}

// New constructs a dashboard service. now is the wall clock; nil selects
// time.Now.
func New(accounts storage.AccountStore, calls storage.CallStore, spendStore storage.SpendStore, defaultTZ string, now func() time.Time, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("dashboard")
	}
	if defaultTZ == "" {
		defaultTZ = "Europe/London"
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		accounts:  accounts,
		calls:     calls,
		spend:     spendStore,
		defaultTZ: defaultTZ,
		now:       now,
		log:       log,
	}
}

// Metrics computes the account's current-month KPIs. The period is resolved
// once and shared by the call and spend queries so both agree on boundaries.
func (s *Service) Metrics(ctx context.Context, accountID string) (Metrics, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return Metrics{}, err
	}

	p, err := s.resolvePeriod(acct)
	if err != nil {
		return Metrics{}, err
	}

	records, err := s.calls.ListCallsInRange(ctx, accountID, p.MonthStart, p.MonthEnd)
	if err != nil {
		return Metrics{}, err
	}
	qualified := 0
	for _, rec := range records {
		if rec.Qualified() {
			qualified++
		}
	}

	spendMicros, err := s.spend.SumSpendRange(ctx, accountID, p.FirstOfMonth, p.TodayDate)
	if err != nil {
		return Metrics{}, err
	}
	spendAmount := float64(spendMicros) / MicrosPerUnit

	currency := acct.CurrencyCode
	result := Metrics{
		MonthKey:       p.MonthKey,
		TotalCalls:     len(records),
		QualifiedCalls: qualified,
		AdSpend:        Money{Amount: spendAmount, CurrencyCode: currency},
		HasRealData:    qualified > 0 || spendMicros > 0,
	}

	if qualified > 0 {
		result.CostPerLead = &Money{Amount: spendAmount / float64(qualified), CurrencyCode: currency}
	}

	revenue := float64(qualified) * float64(acct.AverageRevenuePerJobPence) / 100
	result.EstimatedRevenue = Money{Amount: revenue, CurrencyCode: currency}
	result.EstimatedROI = Money{Amount: revenue - spendAmount, CurrencyCode: currency}

	if latest, err := s.spend.LatestSyncedAt(ctx, accountID, p.MonthKey); err == nil && !latest.IsZero() {
		result.LastSyncedAt = &latest
	}

	return result, nil
}

func (s *Service) resolvePeriod(acct account.Account) (period.Period, error) {
	tz := acct.Timezone
	if tz == "" {
		tz = s.defaultTZ
	}
	return period.Resolve(tz, s.now())
}
