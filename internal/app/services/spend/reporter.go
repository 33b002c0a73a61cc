package spend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/account"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/spend"
	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

// CostReporter retrieves daily cost rows for an account from the ads
// platform. Dates are inclusive YYYY-MM-DD bounds in the account's reporting
// timezone.
type CostReporter interface {
	DailyCost(ctx context.Context, acct account.Account, fromDate, toDate string) ([]spend.CostRow, error)
}

// ReporterFunc adapts a function to the CostReporter interface.
type ReporterFunc func(ctx context.Context, acct account.Account, fromDate, toDate string) ([]spend.CostRow, error)

func (f ReporterFunc) DailyCost(ctx context.Context, acct account.Account, fromDate, toDate string) ([]spend.CostRow, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx, acct, fromDate, toDate)
}

// GoogleAdsConfig configures the Google Ads reporter.
type GoogleAdsConfig struct {
	Endpoint        string // default https://googleads.googleapis.com
	APIVersion      string // default v17
	ClientID        string
	ClientSecret    string
	DeveloperToken  string
	LoginCustomerID string // optional manager (MCC) account
}

// GoogleAdsReporter fetches a daily cost report through the Google Ads
// searchStream endpoint. Access tokens are minted per call from the account's
// stored refresh token; the refresh-token grant is a one-shot exchange and a
// failure aborts the whole report fetch.
type GoogleAdsReporter struct {
	httpClient  *http.Client
	cfg         GoogleAdsConfig
	log         *logger.Logger
	tokenSource func(ctx context.Context, refreshToken string) oauth2.TokenSource
}

// NewGoogleAdsReporter validates the config and builds a reporter.
func NewGoogleAdsReporter(httpClient *http.Client, cfg GoogleAdsConfig, log *logger.Logger) (*GoogleAdsReporter, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logger.NewDefault("google-ads")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google ads oauth client credentials are required")
	}
	if cfg.DeveloperToken == "" {
		return nil, fmt.Errorf("google ads developer token is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://googleads.googleapis.com"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v17"
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
	}
	return &GoogleAdsReporter{
		httpClient: httpClient,
		cfg:        cfg,
		log:        log,
		tokenSource: func(ctx context.Context, refreshToken string) oauth2.TokenSource {
			return oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
		},
	}, nil
}

var _ CostReporter = (*GoogleAdsReporter)(nil)

// DailyCost runs a GAQL query for cost micros segmented by date.
func (r *GoogleAdsReporter) DailyCost(ctx context.Context, acct account.Account, fromDate, toDate string) ([]spend.CostRow, error) {
	if !acct.AdsConnected() {
		return nil, fmt.Errorf("account %s has no google ads connection", acct.ID)
	}

	token, err := r.tokenSource(ctx, acct.GoogleRefreshToken).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh ads access token: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT segments.date, metrics.cost_micros FROM customer WHERE segments.date BETWEEN '%s' AND '%s'",
		fromDate, toDate,
	)
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/customers/%s/googleAds:searchStream",
		r.cfg.Endpoint, r.cfg.APIVersion, acct.GoogleCustomerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("developer-token", r.cfg.DeveloperToken)
	if r.cfg.LoginCustomerID != "" {
		req.Header.Set("login-customer-id", r.cfg.LoginCustomerID)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ads report request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read ads report response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ads report request failed: status %d: %s",
			resp.StatusCode, truncate(string(raw), 256))
	}

	// searchStream responds with an array of result chunks.
	var rows []spend.CostRow
	for _, chunk := range gjson.ParseBytes(raw).Array() {
		for _, result := range chunk.Get("results").Array() {
			rows = append(rows, spend.CostRow{
				Date:       result.Get("segments.date").String(),
				CostMicros: result.Get("metrics.costMicros").Int(),
			})
		}
	}

	r.log.WithField("customer_id", acct.GoogleCustomerID).
		WithField("rows", len(rows)).
		Debug("daily cost report fetched")
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
