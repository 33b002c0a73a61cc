package httpapi

import (
	"time"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/account"
)

// accountPayload is the API shape of an account. The stored refresh token is
// never serialised; the flag tells the frontend whether ads sync is wired up.
type accountPayload struct {
	ID                        string    `json:"id"`
	Owner                     string    `json:"owner"`
	Email                     string    `json:"email,omitempty"`
	Timezone                  string    `json:"timezone"`
	CurrencyCode              string    `json:"currency_code"`
	AverageRevenuePerJobPence int64     `json:"average_revenue_per_job_pence"`
	GoogleCustomerID          string    `json:"google_customer_id,omitempty"`
	AdsConnected              bool      `json:"ads_connected"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

func accountView(acct account.Account) accountPayload {
	return accountPayload{
		ID:                        acct.ID,
		Owner:                     acct.Owner,
		Email:                     acct.Email,
		Timezone:                  acct.Timezone,
		CurrencyCode:              acct.CurrencyCode,
		AverageRevenuePerJobPence: acct.AverageRevenuePerJobPence,
		GoogleCustomerID:          acct.GoogleCustomerID,
		AdsConnected:              acct.AdsConnected(),
		CreatedAt:                 acct.CreatedAt,
		UpdatedAt:                 acct.UpdatedAt,
	}
}
