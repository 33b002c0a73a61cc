package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/storage/memory"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func TestCreateAppliesDefaults(t *testing.T) {
	svc := New(memory.New(), Defaults{}, nil)

	acct, err := svc.Create(context.Background(), "  Smith Plumbing  ", "owner@example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if acct.Owner != "Smith Plumbing" {
		t.Errorf("Owner = %q, want trimmed", acct.Owner)
	}
	if acct.Timezone != "Europe/London" {
		t.Errorf("Timezone = %q, want Europe/London", acct.Timezone)
	}
	if acct.CurrencyCode != "GBP" {
		t.Errorf("CurrencyCode = %q, want GBP", acct.CurrencyCode)
	}
	if acct.ID == "" {
		t.Error("expected assigned ID")
	}
}

func TestCreateRequiresOwner(t *testing.T) {
	svc := New(memory.New(), Defaults{}, nil)
	if _, err := svc.Create(context.Background(), "   ", ""); err == nil {
		t.Fatal("expected error for blank owner")
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	svc := New(memory.New(), Defaults{}, nil)
	acct, err := svc.Create(context.Background(), "Smith Plumbing", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.UpdateProfile(context.Background(), acct.ID, ProfileUpdate{
		AverageRevenuePerJobPence: i64Ptr(25_000),
		GoogleCustomerID:          strPtr("123-456-7890"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	if updated.AverageRevenuePerJobPence != 25_000 {
		t.Errorf("AverageRevenuePerJobPence = %d, want 25000", updated.AverageRevenuePerJobPence)
	}
	if updated.GoogleCustomerID != "1234567890" {
		t.Errorf("GoogleCustomerID = %q, want dashes stripped", updated.GoogleCustomerID)
	}
	// Untouched fields keep their values.
	if updated.Timezone != "Europe/London" {
		t.Errorf("Timezone = %q, want unchanged", updated.Timezone)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	svc := New(memory.New(), Defaults{}, nil)
	acct, err := svc.Create(context.Background(), "Smith Plumbing", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := []struct {
		name   string
		update ProfileUpdate
	}{
		{"invalid timezone", ProfileUpdate{Timezone: strPtr("Narnia/Lamppost")}},
		{"short currency code", ProfileUpdate{CurrencyCode: strPtr("£")}},
		{"negative revenue", ProfileUpdate{AverageRevenuePerJobPence: i64Ptr(-1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.UpdateProfile(context.Background(), acct.ID, tc.update); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestUpdateProfileCurrencyUppercased(t *testing.T) {
	svc := New(memory.New(), Defaults{}, nil)
	acct, err := svc.Create(context.Background(), "Smith Plumbing", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.UpdateProfile(context.Background(), acct.ID, ProfileUpdate{
		CurrencyCode: strPtr("usd"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.CurrencyCode != "USD" {
		t.Errorf("CurrencyCode = %q, want USD", updated.CurrencyCode)
	}
}

func TestGetUnknownAccount(t *testing.T) {
	svc := New(memory.New(), Defaults{}, nil)
	_, err := svc.Get(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	svc := New(memory.New(), Defaults{}, nil)
	acct, err := svc.Create(context.Background(), "Smith Plumbing", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), acct.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), acct.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}
