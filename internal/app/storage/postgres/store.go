package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/account"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/call"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/spend"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL. Both
// idempotency keys are enforced by unique indexes so concurrent duplicate
// writers cannot race past an application-level existence check.
type Store struct {
	db *sql.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.CallStore = (*Store)(nil)
var _ storage.SpendStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, owner, email, timezone, currency_code, avg_revenue_per_job_pence,
			google_customer_id, google_refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, acct.ID, acct.Owner, acct.Email, acct.Timezone, acct.CurrencyCode, acct.AverageRevenuePerJobPence,
		acct.GoogleCustomerID, acct.GoogleRefreshToken, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	existing, err := s.GetAccount(ctx, acct.ID)
	if err != nil {
		return account.Account{}, err
	}

	acct.CreatedAt = existing.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET owner = $2, email = $3, timezone = $4, currency_code = $5,
			avg_revenue_per_job_pence = $6, google_customer_id = $7,
			google_refresh_token = $8, updated_at = $9
		WHERE id = $1
	`, acct.ID, acct.Owner, acct.Email, acct.Timezone, acct.CurrencyCode,
		acct.AverageRevenuePerJobPence, acct.GoogleCustomerID, acct.GoogleRefreshToken, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrNotFound)
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, email, timezone, currency_code, avg_revenue_per_job_pence,
			google_customer_id, google_refresh_token, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id)

	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return acct, err
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, email, timezone, currency_code, avg_revenue_per_job_pence,
			google_customer_id, google_refresh_token, created_at, updated_at
		FROM accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, rows.Err()
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (account.Account, error) {
	var acct account.Account
	err := row.Scan(&acct.ID, &acct.Owner, &acct.Email, &acct.Timezone, &acct.CurrencyCode,
		&acct.AverageRevenuePerJobPence, &acct.GoogleCustomerID, &acct.GoogleRefreshToken,
		&acct.CreatedAt, &acct.UpdatedAt)
	return acct, err
}

// --- CallStore --------------------------------------------------------------

func (s *Store) InsertCall(ctx context.Context, rec call.Record) (call.Record, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()

	// ON CONFLICT DO NOTHING makes the idempotency check atomic; a replayed
	// delivery yields no row here and we fetch the original instead.
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO call_records (id, account_id, provider, external_call_id, from_number,
			to_number, tracking_number, started_at, duration_seconds, answered,
			qualification_status, qualification_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (provider, external_call_id) DO NOTHING
		RETURNING id
	`, rec.ID, rec.AccountID, rec.Provider, rec.ExternalCallID, rec.FromNumber,
		rec.ToNumber, rec.TrackingNumber, rec.StartedAt, rec.DurationSeconds, rec.Answered,
		rec.Status, rec.Reason, rec.CreatedAt)

	var insertedID string
	err := row.Scan(&insertedID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing, err := s.getCallByExternalID(ctx, rec.Provider, rec.ExternalCallID)
		if err != nil {
			return call.Record{}, false, err
		}
		return existing, false, nil
	case err != nil:
		return call.Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) getCallByExternalID(ctx context.Context, provider, externalCallID string) (call.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, provider, external_call_id, from_number, to_number,
			tracking_number, started_at, duration_seconds, answered,
			qualification_status, qualification_reason, created_at
		FROM call_records
		WHERE provider = $1 AND external_call_id = $2
	`, provider, externalCallID)

	rec, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return call.Record{}, fmt.Errorf("call %s/%s: %w", provider, externalCallID, storage.ErrNotFound)
	}
	return rec, err
}

func (s *Store) ListCallsInRange(ctx context.Context, accountID string, from, to time.Time) ([]call.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, provider, external_call_id, from_number, to_number,
			tracking_number, started_at, duration_seconds, answered,
			qualification_status, qualification_reason, created_at
		FROM call_records
		WHERE account_id = $1 AND started_at >= $2 AND started_at < $3
		ORDER BY started_at
	`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []call.Record
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanCall(row rowScanner) (call.Record, error) {
	var rec call.Record
	err := row.Scan(&rec.ID, &rec.AccountID, &rec.Provider, &rec.ExternalCallID, &rec.FromNumber,
		&rec.ToNumber, &rec.TrackingNumber, &rec.StartedAt, &rec.DurationSeconds, &rec.Answered,
		&rec.Status, &rec.Reason, &rec.CreatedAt)
	rec.StartedAt = rec.StartedAt.UTC()
	return rec, err
}

// --- SpendStore -------------------------------------------------------------

func (s *Store) UpsertSnapshot(ctx context.Context, snap spend.Snapshot) (spend.Snapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if snap.SyncedAt.IsZero() {
		snap.SyncedAt = now
	}
	snap.CreatedAt = now

	// Full-row replace: the platform's revised figure for the day is
	// authoritative, so nothing accumulates.
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO ad_spend_snapshots (id, account_id, date, currency_code, spend_micros,
			source, google_customer_id, synced_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id, date) DO UPDATE SET
			currency_code = EXCLUDED.currency_code,
			spend_micros = EXCLUDED.spend_micros,
			source = EXCLUDED.source,
			google_customer_id = EXCLUDED.google_customer_id,
			synced_at = EXCLUDED.synced_at
		RETURNING id, created_at
	`, snap.ID, snap.AccountID, snap.Date, snap.CurrencyCode, snap.SpendMicros,
		snap.Source, snap.GoogleCustomerID, snap.SyncedAt, snap.CreatedAt)

	if err := row.Scan(&snap.ID, &snap.CreatedAt); err != nil {
		return spend.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) ListMonthSnapshots(ctx context.Context, accountID, monthKey string) ([]spend.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, date, currency_code, spend_micros, source,
			google_customer_id, synced_at, created_at
		FROM ad_spend_snapshots
		WHERE account_id = $1 AND date LIKE $2
		ORDER BY date
	`, accountID, monthKey+"-%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []spend.Snapshot
	for rows.Next() {
		var snap spend.Snapshot
		if err := rows.Scan(&snap.ID, &snap.AccountID, &snap.Date, &snap.CurrencyCode,
			&snap.SpendMicros, &snap.Source, &snap.GoogleCustomerID, &snap.SyncedAt, &snap.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

func (s *Store) LatestSyncedAt(ctx context.Context, accountID, monthKey string) (time.Time, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(synced_at), 'epoch'::timestamptz)
		FROM ad_spend_snapshots
		WHERE account_id = $1 AND date LIKE $2
	`, accountID, monthKey+"-%")

	var latest time.Time
	if err := row.Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if latest.Unix() <= 0 {
		return time.Time{}, nil
	}
	return latest.UTC(), nil
}

func (s *Store) SumSpendRange(ctx context.Context, accountID, fromDate, toDate string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(spend_micros), 0)
		FROM ad_spend_snapshots
		WHERE account_id = $1 AND date >= $2 AND date <= $3
	`, accountID, fromDate, toDate)

	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
