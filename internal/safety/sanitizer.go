package safety

import (
	"regexp"
	"strings"
)

// Caveat is appended to responses whose wording contradicts their score.
const Caveat = "[Note: This response was generated automatically. Please verify it with a support specialist before acting on it.]"

// Finding groups.
const (
	GroupPII           = "pii"
	GroupInternal      = "internal"
	GroupHallucination = "hallucination"
)

// Finding records one redaction or check that fired. Matched content is
// never retained.
type Finding struct {
	Group string `json:"group"`
	Type  string `json:"type"`
}

// Sanitized is the outbound message after scrubbing.
type Sanitized struct {
	Text           string
	Findings       []Finding
	Caveated       bool
	ShouldEscalate bool
}

// SanitizerConfig holds the hallucination thresholds.
type SanitizerConfig struct {
	LowConfidence  float64
	HighConfidence float64
}

// Sanitizer redacts PII and internal data and flags wording that disagrees
// with the confidence score. Safe for concurrent use.
type Sanitizer struct {
	cfg            SanitizerConfig
	pii            []RedactionRule
	internal       []RedactionRule
	lowConfidence  []*regexp.Regexp
	highConfidence []*regexp.Regexp
}

// NewSanitizer builds a sanitizer from the embedded redaction rules.
func NewSanitizer(cfg SanitizerConfig) (*Sanitizer, error) {
	rules, err := loadRedactionRules()
	if err != nil {
		return nil, err
	}
	low, err := compileAll(rules.Hallucination.LowConfidence)
	if err != nil {
		return nil, err
	}
	high, err := compileAll(rules.Hallucination.HighConfidence)
	if err != nil {
		return nil, err
	}
	return &Sanitizer{
		cfg:            cfg,
		pii:            rules.PII,
		internal:       rules.Internal,
		lowConfidence:  low,
		highConfidence: high,
	}, nil
}

// maxRedactionPasses bounds the redaction loop in Sanitize.
const maxRedactionPasses = 8

const caveatSuffix = "\n\n" + Caveat

// Sanitize runs PII redaction, then internal-data redaction, then the
// hallucination check. requesterEmail, when set, is left visible. Applying
// Sanitize to its own output returns the same text.
func (s *Sanitizer) Sanitize(message string, confidence float64, requesterEmail string) Sanitized {
	out := Sanitized{Text: strings.TrimSuffix(message, caveatSuffix)}

	// A placeholder can open a word boundary for a rule that missed on the
	// previous pass, so redact until the text stops changing.
	for pass := 0; pass < maxRedactionPasses; pass++ {
		before := out.Text
		out.Text = s.redactPass(out.Text, requesterEmail, &out)
		if out.Text == before {
			break
		}
	}

	if s.contradicts(out.Text, confidence) {
		out.Findings = append(out.Findings, Finding{Group: GroupHallucination, Type: "confidence_mismatch"})
		out.Text = strings.TrimRight(out.Text, " ") + caveatSuffix
		out.Caveated = true
	}

	return out
}

func (s *Sanitizer) redactPass(text, requesterEmail string, out *Sanitized) string {
	for _, rule := range s.pii {
		var keep func(string) bool
		if rule.Type == "email" && requesterEmail != "" {
			keep = func(match string) bool { return strings.EqualFold(match, requesterEmail) }
		}
		text = s.redact(text, rule, GroupPII, keep, &out.Findings)
	}

	for _, rule := range s.internal {
		before := len(out.Findings)
		text = s.redact(text, rule, GroupInternal, nil, &out.Findings)
		if len(out.Findings) > before {
			out.ShouldEscalate = true
		}
	}
	return text
}

func (s *Sanitizer) redact(text string, rule RedactionRule, group string, keep func(string) bool, findings *[]Finding) string {
	placeholder := "[REDACTED_" + strings.ToUpper(rule.Type) + "]"
	return rule.compiled.ReplaceAllStringFunc(text, func(match string) string {
		if keep != nil && keep(match) {
			return match
		}
		*findings = append(*findings, Finding{Group: group, Type: rule.Type})
		return placeholder
	})
}

func (s *Sanitizer) contradicts(text string, confidence float64) bool {
	body := strings.Replace(text, Caveat, "", 1)
	switch {
	case confidence >= s.cfg.HighConfidence:
		return matchesAny(s.lowConfidence, body)
	case confidence < s.cfg.LowConfidence:
		return matchesAny(s.highConfidence, body)
	default:
		return false
	}
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
