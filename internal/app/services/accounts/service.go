// Package accounts manages customer accounts and their onboarding profiles.
package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/account"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/period"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage"
	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

// Defaults are applied to new accounts when the caller leaves fields blank.
type Defaults struct {
	Timezone     string
	CurrencyCode string
}

// Service manages account records.
type Service struct {
	store    storage.AccountStore
	defaults Defaults
	log      *logger.Logger
}

// New constructs an account service.
func New(store storage.AccountStore, defaults Defaults, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	if defaults.Timezone == "" {
		defaults.Timezone = "Europe/London"
	}
	if defaults.CurrencyCode == "" {
		defaults.CurrencyCode = "GBP"
	}
	return &Service{store: store, defaults: defaults, log: log}
}

// Create registers a new account.
func (s *Service) Create(ctx context.Context, owner, email string) (account.Account, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return account.Account{}, fmt.Errorf("owner is required")
	}

	acct := account.Account{
		Owner:        owner,
		Email:        strings.TrimSpace(email),
		Timezone:     s.defaults.Timezone,
		CurrencyCode: s.defaults.CurrencyCode,
	}
	acct, err := s.store.CreateAccount(ctx, acct)
	if err != nil {
		return account.Account{}, err
	}
	s.log.WithField("account_id", acct.ID).
		WithField("owner", acct.Owner).
		Info("account created")
	return acct, nil
}

// ProfileUpdate holds optional onboarding profile changes. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Email                     *string
	Timezone                  *string
	CurrencyCode              *string
	AverageRevenuePerJobPence *int64
	GoogleCustomerID          *string
	GoogleRefreshToken        *string
}

// UpdateProfile applies a partial profile update.
func (s *Service) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (account.Account, error) {
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return account.Account{}, err
	}

	if update.Email != nil {
		acct.Email = strings.TrimSpace(*update.Email)
	}
	if update.Timezone != nil {
		tz := strings.TrimSpace(*update.Timezone)
		if _, err := period.Resolve(tz, time.Now()); err != nil {
			return account.Account{}, fmt.Errorf("invalid timezone: %w", err)
		}
		acct.Timezone = tz
	}
	if update.CurrencyCode != nil {
		code := strings.ToUpper(strings.TrimSpace(*update.CurrencyCode))
		if len(code) != 3 {
			return account.Account{}, fmt.Errorf("currency_code must be a 3-letter ISO code")
		}
		acct.CurrencyCode = code
	}
	if update.AverageRevenuePerJobPence != nil {
		if *update.AverageRevenuePerJobPence < 0 {
			return account.Account{}, fmt.Errorf("average_revenue_per_job_pence must not be negative")
		}
		acct.AverageRevenuePerJobPence = *update.AverageRevenuePerJobPence
	}
	if update.GoogleCustomerID != nil {
		acct.GoogleCustomerID = strings.ReplaceAll(strings.TrimSpace(*update.GoogleCustomerID), "-", "")
	}
	if update.GoogleRefreshToken != nil {
		acct.GoogleRefreshToken = strings.TrimSpace(*update.GoogleRefreshToken)
	}

	acct, err = s.store.UpdateAccount(ctx, acct)
	if err != nil {
		return account.Account{}, err
	}
	s.log.WithField("account_id", acct.ID).Info("onboarding profile updated")
	return acct, nil
}

// Get retrieves a single account.
func (s *Service) Get(ctx context.Context, id string) (account.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]account.Account, error) {
	return s.store.ListAccounts(ctx)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.log.WithField("account_id", id).Info("account deleted")
	return nil
}
