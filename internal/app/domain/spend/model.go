package spend

import "time"

// Snapshot is one day's recorded ad spend for one account. The (AccountID,
// Date) pair is unique; a resync fully replaces the row because the upstream
// platform may revise a day's total after late conversion attribution.
type Snapshot struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"account_id"`
	Date             string    `json:"date"` // YYYY-MM-DD in the account's reporting timezone
	CurrencyCode     string    `json:"currency_code"`
	SpendMicros      int64     `json:"spend_micros"` // 1,000,000 micros per major currency unit
	Source           string    `json:"source"`
	GoogleCustomerID string    `json:"google_customer_id,omitempty"`
	SyncedAt         time.Time `json:"synced_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// CostRow is a single day of spend as reported by the ads platform.
type CostRow struct {
	Date       string
	CostMicros int64
}

// SyncResult reports the outcome of a refresh attempt. Days counts upserted
// snapshots and is populated even when the attempt later fails, so callers
// can see partial progress.
type SyncResult struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
	Days    int    `json:"days"`
}

// Skip reasons returned by the sync orchestrator.
const (
	ReasonFreshEnough    = "fresh_enough"
	ReasonSyncInProgress = "sync_in_progress"
	ReasonNotConnected   = "not_connected"
)
