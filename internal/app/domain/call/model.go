package call

import "time"

// Status classifies a call as a sales lead or not.
type Status string

const (
	StatusQualified   Status = "qualified"
	StatusUnqualified Status = "unqualified"
)

// Reason explains the qualification outcome. Precedence: not_answered wins
// over short_duration; rules_satisfied only when every rule passes.
type Reason string

const (
	ReasonNotAnswered    Reason = "not_answered"
	ReasonShortDuration  Reason = "short_duration"
	ReasonRulesSatisfied Reason = "rules_satisfied"
)

// Record is one ingested inbound call. Records are append-only: qualification
// is evaluated once on first ingestion and never revisited, and replays of the
// same (Provider, ExternalCallID) return the stored record untouched.
type Record struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Provider        string    `json:"provider"`
	ExternalCallID  string    `json:"external_call_id"`
	FromNumber      string    `json:"from_number,omitempty"`
	ToNumber        string    `json:"to_number,omitempty"`
	TrackingNumber  string    `json:"tracking_number,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int       `json:"duration_seconds"`
	Answered        bool      `json:"answered"`
	Status          Status    `json:"qualification_status"`
	Reason          Reason    `json:"qualification_reason"`
	CreatedAt       time.Time `json:"created_at"`
}

// Qualified reports whether the record counts as a lead.
func (r Record) Qualified() bool { return r.Status == StatusQualified }
