package spend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/account"
)

func testAdsAccount() account.Account {
	return account.Account{
		ID:                 "acct-1",
		GoogleCustomerID:   "1234567890",
		GoogleRefreshToken: "refresh-token",
	}
}

func newTestReporter(t *testing.T, endpoint string) *GoogleAdsReporter {
	t.Helper()
	reporter, err := NewGoogleAdsReporter(nil, GoogleAdsConfig{
		Endpoint:        endpoint,
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		DeveloperToken:  "dev-token",
		LoginCustomerID: "9876543210",
	}, nil)
	if err != nil {
		t.Fatalf("NewGoogleAdsReporter: %v", err)
	}
	reporter.tokenSource = func(context.Context, string) oauth2.TokenSource {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-access-token"})
	}
	return reporter
}

func TestDailyCostParsesSearchStream(t *testing.T) {
	var gotPath, gotAuth, gotDevToken, gotLogin string
	var gotQuery struct {
		Query string `json:"query"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDevToken = r.Header.Get("developer-token")
		gotLogin = r.Header.Get("login-customer-id")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotQuery)

		// searchStream returns an array of result chunks.
		_, _ = w.Write([]byte(`[
			{"results": [
				{"segments": {"date": "2025-03-01"}, "metrics": {"costMicros": "1500000"}},
				{"segments": {"date": "2025-03-02"}, "metrics": {"costMicros": "2250000"}}
			]},
			{"results": [
				{"segments": {"date": "2025-03-03"}, "metrics": {"costMicros": "0"}}
			]}
		]`))
	}))
	defer server.Close()

	reporter := newTestReporter(t, server.URL)

	rows, err := reporter.DailyCost(context.Background(), testAdsAccount(), "2025-03-01", "2025-03-15")
	if err != nil {
		t.Fatalf("DailyCost: %v", err)
	}

	if gotPath != "/v17/customers/1234567890/googleAds:searchStream" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-access-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotDevToken != "dev-token" {
		t.Errorf("developer-token = %q", gotDevToken)
	}
	if gotLogin != "9876543210" {
		t.Errorf("login-customer-id = %q", gotLogin)
	}
	if gotQuery.Query != "SELECT segments.date, metrics.cost_micros FROM customer WHERE segments.date BETWEEN '2025-03-01' AND '2025-03-15'" {
		t.Errorf("query = %q", gotQuery.Query)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Date != "2025-03-01" || rows[0].CostMicros != 1_500_000 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[2].Date != "2025-03-03" || rows[2].CostMicros != 0 {
		t.Errorf("rows[2] = %+v", rows[2])
	}
}

func TestDailyCostPlatformError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"message": "developer token not approved"}}`))
	}))
	defer server.Close()

	reporter := newTestReporter(t, server.URL)

	if _, err := reporter.DailyCost(context.Background(), testAdsAccount(), "2025-03-01", "2025-03-15"); err == nil {
		t.Fatal("expected error for non-200 platform response")
	}
}

func TestDailyCostRequiresConnection(t *testing.T) {
	reporter := newTestReporter(t, "http://127.0.0.1:0")

	acct := testAdsAccount()
	acct.GoogleRefreshToken = ""

	if _, err := reporter.DailyCost(context.Background(), acct, "2025-03-01", "2025-03-15"); err == nil {
		t.Fatal("expected error for account without ads connection")
	}
}

func TestNewGoogleAdsReporterValidatesConfig(t *testing.T) {
	if _, err := NewGoogleAdsReporter(nil, GoogleAdsConfig{DeveloperToken: "x"}, nil); err == nil {
		t.Error("expected error without oauth client credentials")
	}
	if _, err := NewGoogleAdsReporter(nil, GoogleAdsConfig{ClientID: "a", ClientSecret: "b"}, nil); err == nil {
		t.Error("expected error without developer token")
	}
}
