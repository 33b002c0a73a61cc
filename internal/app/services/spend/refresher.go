package spend

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	spenddomain "github.com/TradeBoost-AI/lead-ledger/internal/app/domain/spend"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/system"
	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// Refresher periodically walks connected accounts and runs the same
// freshness-gated refresh the dashboard triggers on load. The freshness gate
// keeps the two paths from doubling external API traffic.
type Refresher struct {
	service  *Service
	accounts storage.AccountStore
	spec     string
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewRefresher creates a lifecycle-managed scheduled refresher. spec is a
// cron expression; empty selects hourly.
func NewRefresher(service *Service, accounts storage.AccountStore, spec string, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("spend-refresher")
	}
	if spec == "" {
		spec = "@hourly"
	}
	return &Refresher{
		service:  service,
		accounts: accounts,
		spec:     spec,
		log:      log,
	}
}

func (r *Refresher) Name() string { return "spend-refresher" }

func (r *Refresher) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(r.spec, r.runAll); err != nil {
		return err
	}
	c.Start()

	r.cron = c
	r.running = true
	r.log.WithField("schedule", r.spec).Info("spend refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.running = false
	r.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	r.log.Info("spend refresher stopped")
	return nil
}

func (r *Refresher) runAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	accounts, err := r.accounts.ListAccounts(ctx)
	if err != nil {
		r.log.WithError(err).Warn("spend refresher list accounts failed")
		return
	}

	for _, acct := range accounts {
		if !acct.AdsConnected() {
			continue
		}
		result, err := r.service.RefreshCurrentMonthIfStale(ctx, acct.ID)
		if err != nil {
			r.log.WithError(err).
				WithField("account_id", acct.ID).
				Warn("scheduled spend sync failed")
			continue
		}
		if result.Skipped && result.Reason != spenddomain.ReasonFreshEnough {
			r.log.WithField("account_id", acct.ID).
				WithField("reason", result.Reason).
				Debug("scheduled spend sync skipped")
		}
	}
}
