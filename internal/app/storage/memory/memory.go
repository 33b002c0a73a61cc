package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/account"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/call"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/spend"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	accounts    map[string]account.Account
	calls       map[string]call.Record
	callsByKey  map[string]string // provider|external_call_id -> record id
	snapshots   map[string]spend.Snapshot
	snapshotIDs map[string]string // account_id|date -> snapshot id
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.CallStore = (*Store)(nil)
var _ storage.SpendStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:      1,
		accounts:    make(map[string]account.Account),
		calls:       make(map[string]call.Record),
		callsByKey:  make(map[string]string),
		snapshots:   make(map[string]spend.Snapshot),
		snapshotIDs: make(map[string]string),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func callKey(provider, externalCallID string) string {
	return provider + "|" + externalCallID
}

func snapshotKey(accountID, date string) string {
	return accountID + "|" + date
}

// AccountStore implementation -------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == "" {
		acct.ID = s.nextIDLocked()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrConflict)
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.ID]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrNotFound)
	}

	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return acct, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		result = append(result, acct)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	delete(s.accounts, id)
	return nil
}

// CallStore implementation ----------------------------------------------------

func (s *Store) InsertCall(_ context.Context, rec call.Record) (call.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := callKey(rec.Provider, rec.ExternalCallID)
	if existingID, ok := s.callsByKey[key]; ok {
		return s.calls[existingID], false, nil
	}

	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	}
	rec.CreatedAt = time.Now().UTC()

	s.calls[rec.ID] = rec
	s.callsByKey[key] = rec.ID
	return rec, true, nil
}

func (s *Store) ListCallsInRange(_ context.Context, accountID string, from, to time.Time) ([]call.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []call.Record
	for _, rec := range s.calls {
		if rec.AccountID != accountID {
			continue
		}
		if rec.StartedAt.Before(from) || !rec.StartedAt.Before(to) {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.Before(result[j].StartedAt) })
	return result, nil
}

// SpendStore implementation ---------------------------------------------------

func (s *Store) UpsertSnapshot(_ context.Context, snap spend.Snapshot) (spend.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey(snap.AccountID, snap.Date)
	now := time.Now().UTC()

	if existingID, ok := s.snapshotIDs[key]; ok {
		existing := s.snapshots[existingID]
		snap.ID = existing.ID
		snap.CreatedAt = existing.CreatedAt
	} else {
		snap.ID = s.nextIDLocked()
		snap.CreatedAt = now
		s.snapshotIDs[key] = snap.ID
	}
	if snap.SyncedAt.IsZero() {
		snap.SyncedAt = now
	}

	s.snapshots[snap.ID] = snap
	return snap, nil
}

func (s *Store) ListMonthSnapshots(_ context.Context, accountID, monthKey string) ([]spend.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := monthKey + "-"
	var result []spend.Snapshot
	for _, snap := range s.snapshots {
		if snap.AccountID == accountID && strings.HasPrefix(snap.Date, prefix) {
			result = append(result, snap)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

func (s *Store) LatestSyncedAt(_ context.Context, accountID, monthKey string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := monthKey + "-"
	var latest time.Time
	for _, snap := range s.snapshots {
		if snap.AccountID == accountID && strings.HasPrefix(snap.Date, prefix) && snap.SyncedAt.After(latest) {
			latest = snap.SyncedAt
		}
	}
	return latest, nil
}

func (s *Store) SumSpendRange(_ context.Context, accountID, fromDate, toDate string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, snap := range s.snapshots {
		if snap.AccountID == accountID && snap.Date >= fromDate && snap.Date <= toDate {
			total += snap.SpendMicros
		}
	}
	return total, nil
}
