package period

import (
	"testing"
	"time"
)

func TestResolveMidMonth(t *testing.T) {
	now := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

	p, err := Resolve("Europe/London", now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if p.MonthKey != "2025-03" {
		t.Errorf("MonthKey = %q, want 2025-03", p.MonthKey)
	}
	if p.FirstOfMonth != "2025-03-01" {
		t.Errorf("FirstOfMonth = %q, want 2025-03-01", p.FirstOfMonth)
	}
	if p.TodayDate != "2025-03-15" {
		t.Errorf("TodayDate = %q, want 2025-03-15", p.TodayDate)
	}
}

func TestResolveDecemberRollsToJanuary(t *testing.T) {
	now := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)

	p, err := Resolve("UTC", now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !p.MonthEnd.Equal(want) {
		t.Errorf("MonthEnd = %v, want %v", p.MonthEnd, want)
	}
}

func TestResolveTimezoneShiftsBucket(t *testing.T) {
	// 23:30 UTC on the 31st of May is already the 1st of June in Sydney.
	now := time.Date(2025, 5, 31, 23, 30, 0, 0, time.UTC)

	sydney, err := Resolve("Australia/Sydney", now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sydney.MonthKey != "2025-06" {
		t.Errorf("Sydney MonthKey = %q, want 2025-06", sydney.MonthKey)
	}

	london, err := Resolve("Europe/London", now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if london.MonthKey != "2025-05" {
		t.Errorf("London MonthKey = %q, want 2025-05", london.MonthKey)
	}
}

func TestResolveInvalidTimezone(t *testing.T) {
	if _, err := Resolve("Mars/Olympus_Mons", time.Now()); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestContainsHalfOpenInterval(t *testing.T) {
	p, err := Resolve("UTC", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"month start inclusive", p.MonthStart, true},
		{"last instant of month", p.MonthEnd.Add(-time.Nanosecond), true},
		{"month end exclusive", p.MonthEnd, false},
		{"before month", p.MonthStart.Add(-time.Second), false},
	}
	for _, tc := range cases {
		if got := p.Contains(tc.t); got != tc.want {
			t.Errorf("%s: Contains(%v) = %v, want %v", tc.name, tc.t, got, tc.want)
		}
	}
}
