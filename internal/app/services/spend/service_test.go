package spend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/account"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/spend"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage/memory"
)

func newConnectedAccount(t *testing.T, store *memory.Store) account.Account {
	t.Helper()
	acct, err := store.CreateAccount(context.Background(), account.Account{
		Owner:              "Smith Plumbing",
		Timezone:           "UTC",
		CurrencyCode:       "GBP",
		GoogleCustomerID:   "1234567890",
		GoogleRefreshToken: "refresh-token",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acct
}

func staticRows(rows []spend.CostRow) ReporterFunc {
	return func(context.Context, account.Account, string, string) ([]spend.CostRow, error) {
		return rows, nil
	}
}

func TestUpsertDailySpendReplacesRow(t *testing.T) {
	store := memory.New()
	acct := newConnectedAccount(t, store)
	svc := New(store, store, Options{}, nil)

	first, err := svc.UpsertDailySpend(context.Background(), acct.ID, "2025-03-10", "GBP", 1_000_000, SourceMeta{})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second, err := svc.UpsertDailySpend(context.Background(), acct.ID, "2025-03-10", "GBP", 2_500_000, SourceMeta{})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("resync created row %s, want replacement of %s", second.ID, first.ID)
	}
	if second.SpendMicros != 2_500_000 {
		t.Errorf("SpendMicros = %d, want 2500000 (no accumulation)", second.SpendMicros)
	}

	total, err := store.SumSpendRange(context.Background(), acct.ID, "2025-03-01", "2025-03-31")
	if err != nil {
		t.Fatalf("SumSpendRange: %v", err)
	}
	if total != 2_500_000 {
		t.Errorf("month total = %d, want 2500000", total)
	}
}

func TestUpsertDailySpendValidation(t *testing.T) {
	store := memory.New()
	acct := newConnectedAccount(t, store)
	svc := New(store, store, Options{}, nil)

	if _, err := svc.UpsertDailySpend(context.Background(), acct.ID, "10/03/2025", "GBP", 100, SourceMeta{}); err == nil {
		t.Error("expected error for malformed date")
	}
	if _, err := svc.UpsertDailySpend(context.Background(), acct.ID, "2025-03-10", "GBP", -1, SourceMeta{}); err == nil {
		t.Error("expected error for negative spend")
	}
	if _, err := svc.UpsertDailySpend(context.Background(), "nope", "2025-03-10", "GBP", 100, SourceMeta{}); err == nil {
		t.Error("expected error for unknown account")
	}
}

func TestRefreshSkipsWhenNotConnected(t *testing.T) {
	store := memory.New()
	acct, err := store.CreateAccount(context.Background(), account.Account{Owner: "No Ads Ltd", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	svc := New(store, store, Options{}, nil)
	svc.WithReporter(staticRows(nil))

	result, err := svc.RefreshCurrentMonthIfStale(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("RefreshCurrentMonthIfStale: %v", err)
	}
	if !result.Skipped || result.Reason != spend.ReasonNotConnected {
		t.Errorf("result = %+v, want skip with reason %s", result, spend.ReasonNotConnected)
	}
}

func TestRefreshFreshnessGate(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := &now

	store := memory.New()
	acct := newConnectedAccount(t, store)

	svc := New(store, store, Options{Now: func() time.Time { return *clock }}, nil)
	svc.WithReporter(staticRows([]spend.CostRow{{Date: "2025-03-15", CostMicros: 1_000_000}}))

	// First sync writes a snapshot stamped at noon.
	result, err := svc.RefreshCurrentMonthIfStale(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if result.Skipped || result.Days != 1 {
		t.Fatalf("first refresh = %+v, want 1 day synced", result)
	}

	// 10 minutes later the data is still fresh.
	later := now.Add(10 * time.Minute)
	clock = &later
	result, err = svc.RefreshCurrentMonthIfStale(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if !result.Skipped || result.Reason != spend.ReasonFreshEnough {
		t.Errorf("result = %+v, want skip with reason %s", result, spend.ReasonFreshEnough)
	}

	// 50 minutes later the gate opens again.
	evenLater := now.Add(50 * time.Minute)
	clock = &evenLater
	result, err = svc.RefreshCurrentMonthIfStale(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("third refresh: %v", err)
	}
	if result.Skipped {
		t.Errorf("result = %+v, want a real sync after freshness expired", result)
	}
}

func TestRefreshSkipsWhenLockHeld(t *testing.T) {
	store := memory.New()
	acct := newConnectedAccount(t, store)

	svc := New(store, store, Options{}, nil)
	svc.WithReporter(staticRows(nil))

	locker := NewMemoryLocker()
	if ok, err := locker.TryLock(context.Background(), acct.ID); err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}
	svc.WithLocker(locker)

	result, err := svc.RefreshCurrentMonthIfStale(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("RefreshCurrentMonthIfStale: %v", err)
	}
	if !result.Skipped || result.Reason != spend.ReasonSyncInProgress {
		t.Errorf("result = %+v, want skip with reason %s", result, spend.ReasonSyncInProgress)
	}
}

func TestRefreshReleasesLock(t *testing.T) {
	store := memory.New()
	acct := newConnectedAccount(t, store)

	svc := New(store, store, Options{}, nil)
	svc.WithReporter(ReporterFunc(func(context.Context, account.Account, string, string) ([]spend.CostRow, error) {
		return nil, fmt.Errorf("ads platform unavailable")
	}))

	if _, err := svc.RefreshCurrentMonthIfStale(context.Background(), acct.ID); err == nil {
		t.Fatal("expected reporter error")
	}

	// The lock must be free again even after a failed sync.
	svc.WithReporter(staticRows(nil))
	result, err := svc.RefreshCurrentMonthIfStale(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("refresh after failure: %v", err)
	}
	if result.Skipped {
		t.Errorf("result = %+v, want sync attempt (lock released)", result)
	}
}

func TestRefreshSkipsBadRowsAndCountsDays(t *testing.T) {
	store := memory.New()
	acct := newConnectedAccount(t, store)

	svc := New(store, store, Options{Now: func() time.Time {
		return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	}}, nil)
	svc.WithReporter(staticRows([]spend.CostRow{
		{Date: "2025-03-13", CostMicros: 1_000_000},
		{Date: "", CostMicros: 500_000},
		{Date: "2025-03-14", CostMicros: -10},
		{Date: "2025-03-15", CostMicros: 2_000_000},
	}))

	result, err := svc.RefreshCurrentMonthIfStale(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("RefreshCurrentMonthIfStale: %v", err)
	}
	if result.Days != 2 {
		t.Errorf("Days = %d, want 2 (malformed rows skipped)", result.Days)
	}

	snaps, err := svc.MonthSnapshots(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("MonthSnapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	for _, snap := range snaps {
		if snap.Source != SourceGoogleAds {
			t.Errorf("snapshot %s Source = %q, want %s", snap.Date, snap.Source, SourceGoogleAds)
		}
		if snap.GoogleCustomerID != acct.GoogleCustomerID {
			t.Errorf("snapshot %s GoogleCustomerID = %q, want %q", snap.Date, snap.GoogleCustomerID, acct.GoogleCustomerID)
		}
	}
}

func TestRefreshWithoutReporterFails(t *testing.T) {
	store := memory.New()
	acct := newConnectedAccount(t, store)

	svc := New(store, store, Options{}, nil)

	if _, err := svc.RefreshCurrentMonthIfStale(context.Background(), acct.ID); err == nil {
		t.Fatal("expected error when no reporter is configured")
	}
}

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	ok, err := locker.TryLock(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v; want acquired", ok, err)
	}
	ok, err = locker.TryLock(ctx, "a")
	if err != nil || ok {
		t.Fatalf("second TryLock = %v, %v; want held", ok, err)
	}
	ok, err = locker.TryLock(ctx, "b")
	if err != nil || !ok {
		t.Fatalf("TryLock other key = %v, %v; want acquired", ok, err)
	}

	if err := locker.Unlock(ctx, "a"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	ok, err = locker.TryLock(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("TryLock after unlock = %v, %v; want acquired", ok, err)
	}
}
