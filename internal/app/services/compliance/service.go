// Package compliance scans ad copy against a fixed set of UK advertising
// rules (CAP Code oriented) and proposes compliant rewrites.
package compliance

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/domain/compliance"
	"github.com/TradeBoost-AI/lead-ledger/internal/app/metrics"
	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

type ruleFile struct {
	Rules []compliance.Rule `yaml:"rules"`
}

type compiledRule struct {
	rule compliance.Rule
	re   *regexp.Regexp
}

// Service evaluates ad copy against the loaded rule set. Scanning is a pure
// single-pass over in-memory rules.
type Service struct {
	rules []compiledRule
	log   *logger.Logger
}

// New loads the built-in rule set.
func New(log *logger.Logger) (*Service, error) {
	return newFromYAML(defaultRulesYAML, log)
}

// NewFromFile loads a custom rule set, replacing the built-in rules.
func NewFromFile(path string, log *logger.Logger) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compliance rules: %w", err)
	}
	return newFromYAML(data, log)
}

func newFromYAML(data []byte, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewDefault("compliance")
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse compliance rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("compliance rule set is empty")
	}

	compiled := make([]compiledRule, 0, len(file.Rules))
	for _, rule := range file.Rules {
		if rule.ID == "" || rule.Pattern == "" {
			return nil, fmt.Errorf("compliance rule missing id or pattern")
		}
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile rule %s: %w", rule.ID, err)
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}

	log.WithField("rules", len(compiled)).Info("compliance rule set loaded")
	return &Service{rules: compiled, log: log}, nil
}

// Scan flags risky phrases in the given ad copy. The report's risk level is
// the highest severity among the findings.
func (s *Service) Scan(text string) compliance.Report {
	report := compliance.Report{Findings: []compliance.Finding{}}

	for _, cr := range s.rules {
		loc := cr.re.FindStringIndex(text)
		if loc == nil {
			continue
		}

		finding := compliance.Finding{
			RuleID:     cr.rule.ID,
			Severity:   cr.rule.Severity,
			Category:   cr.rule.Category,
			Fragment:   text[loc[0]:loc[1]],
			Position:   loc[0],
			Message:    cr.rule.Message,
			Suggestion: cr.rule.Suggestion,
		}
		report.Findings = append(report.Findings, finding)
		metrics.RecordScanFinding(string(finding.Severity))

		if finding.Severity.Worse(report.RiskLevel) {
			report.RiskLevel = finding.Severity
		}
	}

	report.Clean = len(report.Findings) == 0
	return report
}

// RuleCount reports how many rules are loaded.
func (s *Service) RuleCount() int { return len(s.rules) }
