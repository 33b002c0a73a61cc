package compliance

// Severity grades how risky a flagged phrase is under UK advertising rules.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// rank orders severities so a report can surface the worst finding.
func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Worse reports whether s outranks other.
func (s Severity) Worse(other Severity) bool { return s.rank() > other.rank() }

// Rule is one ad-copy check. Pattern is a case-insensitive regular
// expression; Suggestion proposes compliant replacement wording.
type Rule struct {
	ID         string   `yaml:"id"`
	Pattern    string   `yaml:"pattern"`
	Severity   Severity `yaml:"severity"`
	Category   string   `yaml:"category"`
	Message    string   `yaml:"message"`
	Suggestion string   `yaml:"suggestion"`
}

// Finding is one matched rule inside a piece of ad copy.
type Finding struct {
	RuleID     string   `json:"rule_id"`
	Severity   Severity `json:"severity"`
	Category   string   `json:"category"`
	Fragment   string   `json:"fragment"`
	Position   int      `json:"position"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Report is the result of scanning one piece of ad copy.
type Report struct {
	Findings  []Finding `json:"findings"`
	RiskLevel Severity  `json:"risk_level,omitempty"`
	Clean     bool      `json:"clean"`
}
