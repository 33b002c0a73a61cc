package storage

import (
	"context"
	"errors"
	"time"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/account"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/call"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/spend"
)

// ErrNotFound is returned by all stores when the requested record does not
// exist, regardless of backend.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a create collides with an existing record's
// unique key.
var ErrConflict = errors.New("record already exists")

// AccountStore persists accounts and their onboarding profiles.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// CallStore persists ingested call records.
type CallStore interface {
	// InsertCall stores the record unless one already exists for the same
	// (provider, external_call_id) pair. The uniqueness check is atomic at
	// the storage layer so concurrent duplicate deliveries cannot both
	// insert. The bool reports whether a new record was created; on replay
	// the previously stored record is returned unchanged.
	InsertCall(ctx context.Context, rec call.Record) (call.Record, bool, error)

	// ListCallsInRange returns the account's calls with StartedAt in the
	// half-open interval [from, to).
	ListCallsInRange(ctx context.Context, accountID string, from, to time.Time) ([]call.Record, error)
}

// SpendStore persists daily ad-spend snapshots.
type SpendStore interface {
	// UpsertSnapshot atomically inserts or fully replaces the row keyed by
	// (account_id, date). Last write wins; spend never accumulates.
	UpsertSnapshot(ctx context.Context, snap spend.Snapshot) (spend.Snapshot, error)

	// ListMonthSnapshots returns the account's snapshots whose date falls in
	// the given YYYY-MM month, ordered by date.
	ListMonthSnapshots(ctx context.Context, accountID, monthKey string) ([]spend.Snapshot, error)

	// LatestSyncedAt returns the most recent SyncedAt across the account's
	// snapshots for the month, or the zero time when none exist.
	LatestSyncedAt(ctx context.Context, accountID, monthKey string) (time.Time, error)

	// SumSpendRange totals SpendMicros over the inclusive date range
	// [fromDate, toDate]. Lexicographic comparison is valid because the
	// YYYY-MM-DD format sorts in calendar order.
	SumSpendRange(ctx context.Context, accountID, fromDate, toDate string) (int64, error)
}
