// Package vaultaudit validates identity vaults in two phases: a structural
// pass over the raw document, then semantic quality checks that only run when
// the structure is sound.
package vaultaudit

import (
	"encoding/json"
	"fmt"
	"strings"

	"steelloop/internal/domain"
)

// Severity grades an audit issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
)

// Issue is one audit finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Field    string   `json:"field,omitempty"`
}

// Result is the outcome of Audit.
type Result struct {
	Passed  bool               `json:"passed"`
	Status  domain.AuditStatus `json:"status"`
	Issues  []Issue            `json:"issues"`
	Summary string             `json:"summary"`
}

// CircularPhrases mark a secret_math that restates the result instead of
// explaining it.
var CircularPhrases = []string{
	"because we executed well",
	"our process is better",
	"we did it right",
	"through hard work",
	"by being thorough",
}

// Audit validates a raw JSON vault document.
func Audit(raw []byte) Result {
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return finish([]Issue{{Severity: SeverityBlocking, Message: "Vault is not valid JSON"}})
	}
	return AuditValue(tree)
}

// AuditValue validates an already-decoded vault tree.
func AuditValue(tree any) Result {
	issues := checkStructure(tree)
	if len(issues) == 0 {
		raw, err := json.Marshal(tree)
		if err == nil {
			if vault, err := Decode(raw); err == nil {
				issues = append(issues, checkSemantics(vault)...)
			}
		}
	}
	return finish(issues)
}

func severityFor(field string) Severity {
	if strings.HasPrefix(field, "content_strategy") ||
		strings.HasPrefix(field, "voice_dna") ||
		field == "historical_wins" {
		return SeverityCritical
	}
	return SeverityBlocking
}

func checkSemantics(v Vault) []Issue {
	var issues []Issue
	warn := func(field, message string) {
		issues = append(issues, Issue{Severity: SeverityWarning, Message: message, Field: field})
	}

	if len(v.VoiceDNA.AISlopTriggers) < 3 {
		warn("voice_dna.ai_slop_triggers", "Recommended: at least 3 AI slop triggers")
	}

	for _, win := range v.HistoricalWins {
		lower := strings.ToLower(win.SecretMath)
		for _, phrase := range CircularPhrases {
			if strings.Contains(lower, phrase) {
				warn("historical_wins.secret_math",
					fmt.Sprintf("%s: Secret Math appears circular, needs mechanism explanation", win.ProjectName))
				break
			}
		}
	}

	if v.ICP.DecisionMaker == "" {
		warn("icp.decision_maker", "Recommended: specify decision maker title")
	}

	if v.IndustryContext == nil {
		warn("industry_context", "Recommended: add industry_context for better content quality")
	} else {
		ic := v.IndustryContext
		if ic.PrimaryIndustry == "" {
			warn("industry_context.primary_industry", "industry_context.primary_industry not specified")
		}
		var jargon, metrics []string
		if ic.WritingGuidelines != nil {
			jargon = ic.WritingGuidelines.AppropriateJargon
			metrics = ic.WritingGuidelines.AppropriateMetrics
		}
		if len(jargon) < 3 {
			warn("industry_context.writing_guidelines.appropriate_jargon",
				"Add at least 3 appropriate_jargon terms for authenticity")
		}
		if len(metrics) < 2 {
			warn("industry_context.writing_guidelines.appropriate_metrics",
				"Add at least 2 appropriate_metrics for credibility")
		}
	}

	if v.ContentStrategy.PostingFrequency == "" {
		warn("content_strategy.posting_frequency", "Recommended: set posting_frequency")
	}
	return issues
}

func finish(issues []Issue) Result {
	if issues == nil {
		issues = []Issue{}
	}
	var critical, blocking, warnings int
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityCritical:
			critical++
		case SeverityBlocking:
			blocking++
		case SeverityWarning:
			warnings++
		}
	}

	res := Result{Issues: issues}
	switch {
	case critical > 0 || blocking > 0:
		res.Status = domain.AuditFailed
		parts := make([]string, 0, 3)
		if critical > 0 {
			parts = append(parts, plural(critical, "critical issue"))
		}
		if blocking > 0 {
			parts = append(parts, plural(blocking, "blocking issue"))
		}
		if warnings > 0 {
			parts = append(parts, plural(warnings, "warning"))
		}
		res.Summary = "Audit failed: " + strings.Join(parts, ", ")
	case warnings > 0:
		res.Status = domain.AuditPassedWithWarnings
		res.Summary = "Audit passed with " + plural(warnings, "warning")
	default:
		res.Status = domain.AuditPassed
		res.Summary = "Audit passed: vault is production-ready"
	}
	res.Passed = res.Status != domain.AuditFailed
	return res
}

// Ready reports whether an audit status lets the Scout stage treat the vault
// as production-ready.
func Ready(status domain.AuditStatus) bool {
	return status == domain.AuditPassed
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
