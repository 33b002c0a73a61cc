package account

import "time"

// Account represents a customer of the platform together with the onboarding
// profile fields the metrics pipeline consumes. Monetary profile values are
// held in pence to keep arithmetic integral.
type Account struct {
	ID                        string
	Owner                     string
	Email                     string
	Timezone                  string
	CurrencyCode              string
	AverageRevenuePerJobPence int64
	GoogleCustomerID          string
	GoogleRefreshToken        string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// AdsConnected reports whether the account can be synced against the ads
// platform.
func (a Account) AdsConnected() bool {
	return a.GoogleCustomerID != "" && a.GoogleRefreshToken != ""
}
