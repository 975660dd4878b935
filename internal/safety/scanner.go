// Package safety guards both ends of the pipeline: Scanner scores inbound
// text for attack patterns and Sanitizer scrubs outbound text before it
// reaches the caller.
package safety

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Structural issue categories. They are not weighted; any of them rejects.
const (
	CategoryStructure = "structure"

	PatternEmptyInput = "empty_input"
	PatternTooLong    = "too_long"
)

// Issue is one matched detector, in scan order.
type Issue struct {
	Category    string   `json:"category"`
	PatternID   string   `json:"pattern_id"`
	Severity    Severity `json:"severity"`
	MatchedSpan string   `json:"matched_span"`
	Start       int      `json:"start"`
	End         int      `json:"end"`
}

// RiskResult is the outcome of a scan.
type RiskResult struct {
	Score  float64
	Issues []Issue
}

// Structural reports whether any issue is a structural one.
func (r RiskResult) Structural() bool {
	for _, issue := range r.Issues {
		if issue.Category == CategoryStructure {
			return true
		}
	}
	return false
}

// Scanner evaluates text against an ordered set of risk categories. It holds
// no mutable state and is safe for concurrent use.
type Scanner struct {
	categories []RiskCategory
}

// NewScanner builds a scanner from compiled rules.
func NewScanner(rules *RiskRuleFile) *Scanner {
	return &Scanner{categories: rules.Categories}
}

// NewDefaultScanner builds a scanner from the embedded rule file.
func NewDefaultScanner() (*Scanner, error) {
	rules, err := LoadRiskRules("")
	if err != nil {
		return nil, err
	}
	return NewScanner(rules), nil
}

// Scan returns every match in category order. Each category adds the highest
// weight among its matches, so repeats inside one category never stack.
func (s *Scanner) Scan(text string) RiskResult {
	var (
		result RiskResult
		total  float64
	)
	for _, cat := range s.categories {
		contribution := 0.0
		for _, p := range cat.Patterns {
			for _, loc := range p.compiled.FindAllStringIndex(text, -1) {
				result.Issues = append(result.Issues, Issue{
					Category:    cat.Name,
					PatternID:   p.ID,
					Severity:    p.Severity,
					MatchedSpan: text[loc[0]:loc[1]],
					Start:       loc[0],
					End:         loc[1],
				})
				contribution = math.Max(contribution, p.Weight)
			}
		}
		total += contribution
	}
	result.Score = math.Min(1, total)
	return result
}

// Normalize drops control characters and collapses whitespace runs to a
// single space.
func Normalize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == utf8.RuneError {
			return -1
		}
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Validate reports structural problems with already-normalized text.
func Validate(text string, maxLength int) []Issue {
	if text == "" {
		return []Issue{{Category: CategoryStructure, PatternID: PatternEmptyInput, Severity: SeverityError}}
	}
	if n := utf8.RuneCountInString(text); n > maxLength {
		return []Issue{{
			Category:  CategoryStructure,
			PatternID: PatternTooLong,
			Severity:  SeverityError,
			Start:     0,
			End:       len(text),
		}}
	}
	return nil
}
