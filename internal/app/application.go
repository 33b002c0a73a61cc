// Package app assembles the stores, domain services, and lifecycle-managed
// background workers that make up the lead-ledger application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/services/accounts"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/services/calls"
	compliancesvc "github.com/TradeBoost-AI/lead-ledger/internal/app/services/compliance"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/services/dashboard"
	spendsvc "github.com/TradeBoost-AI/lead-ledger/internal/app/services/spend"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage/memory"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/system"
	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts storage.AccountStore
	Calls    storage.CallStore
	Spend    storage.SpendStore
}

// Options carries the tunable business settings and optional collaborators.
type Options struct {
	DefaultTimezone         string
	DefaultCurrencyCode     string
	SyncFreshness           time.Duration
	MinQualifiedCallSeconds int
	SyncCronSpec            string
	ComplianceRulesPath     string

	// Reporter connects syncs to the ads platform. Nil disables the
	// scheduled refresher; manual syncs then fail with a clear error.
	Reporter spendsvc.CostReporter
	// Locker overrides the per-account sync guard, e.g. a redis lease.
	Locker spendsvc.Locker
	// Now supplies wall-clock time to the period-sensitive services.
	Now func() time.Time
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Accounts   *accounts.Service
	Calls      *calls.Service
	Spend      *spendsvc.Service
	Dashboard  *dashboard.Service
	Compliance *compliancesvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Accounts == nil {
		stores.Accounts = mem
	}
	if stores.Calls == nil {
		stores.Calls = mem
	}
	if stores.Spend == nil {
		stores.Spend = mem
	}

	acctService := accounts.New(stores.Accounts, accounts.Defaults{
		Timezone:     opts.DefaultTimezone,
		CurrencyCode: opts.DefaultCurrencyCode,
	}, log)
	callService := calls.New(stores.Accounts, stores.Calls, calls.Options{
		MinQualifiedSeconds: opts.MinQualifiedCallSeconds,
		DefaultTimezone:     opts.DefaultTimezone,
		Now:                 opts.Now,
	}, log)

	spendService := spendsvc.New(stores.Accounts, stores.Spend, spendsvc.Options{
		DefaultTimezone: opts.DefaultTimezone,
		Freshness:       opts.SyncFreshness,
		Now:             opts.Now,
	}, log)
	if opts.Reporter != nil {
		spendService.WithReporter(opts.Reporter)
	}
	if opts.Locker != nil {
		spendService.WithLocker(opts.Locker)
	}

	dashService := dashboard.New(stores.Accounts, stores.Calls, stores.Spend, opts.DefaultTimezone, opts.Now, log)

	var complianceService *compliancesvc.Service
	var err error
	if opts.ComplianceRulesPath != "" {
		complianceService, err = compliancesvc.NewFromFile(opts.ComplianceRulesPath, log)
	} else {
		complianceService, err = compliancesvc.New(log)
	}
	if err != nil {
		return nil, fmt.Errorf("load compliance rules: %w", err)
	}

	manager := system.NewManager()
	if opts.Reporter != nil {
		refresher := spendsvc.NewRefresher(spendService, stores.Accounts, opts.SyncCronSpec, log)
		if err := manager.Register(refresher); err != nil {
			return nil, fmt.Errorf("register %s: %w", refresher.Name(), err)
		}
	} else {
		log.Warn("ads reporter not configured; scheduled spend sync disabled")
	}

	return &Application{
		manager:    manager,
		log:        log,
		Accounts:   acctService,
		Calls:      callService,
		Spend:      spendService,
		Dashboard:  dashService,
		Compliance: complianceService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
