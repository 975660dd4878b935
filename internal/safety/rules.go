package safety

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed rules/risk_patterns.yaml
var defaultRiskPatterns []byte

//go:embed rules/redaction_rules.yaml
var defaultRedactionRules []byte

// Severity grades a single risk pattern.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch sev := Severity(raw); sev {
	case SeverityWarning, SeverityError, SeverityCritical:
		*s = sev
		return nil
	default:
		return fmt.Errorf("invalid severity %q", raw)
	}
}

// RiskRuleFile is the on-disk shape of the risk detector list.
type RiskRuleFile struct {
	Categories []RiskCategory `yaml:"categories"`
}

// RiskCategory groups patterns whose matches do not stack.
type RiskCategory struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Patterns    []RiskPattern `yaml:"patterns"`
}

// RiskPattern is one detector within a category.
type RiskPattern struct {
	ID            string   `yaml:"id"`
	Regex         string   `yaml:"regex"`
	Severity      Severity `yaml:"severity"`
	Weight        float64  `yaml:"weight"`
	CaseSensitive bool     `yaml:"case_sensitive"`

	compiled *regexp.Regexp
}

// LoadRiskRules parses the rule file at path, or the embedded defaults when
// path is empty.
func LoadRiskRules(path string) (*RiskRuleFile, error) {
	data := defaultRiskPatterns
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read risk rules: %w", err)
		}
		data = raw
	}

	var file RiskRuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse risk rules: %w", err)
	}
	if err := file.compile(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *RiskRuleFile) compile() error {
	if len(f.Categories) == 0 {
		return fmt.Errorf("risk rules: no categories defined")
	}
	for ci := range f.Categories {
		cat := &f.Categories[ci]
		for pi := range cat.Patterns {
			p := &cat.Patterns[pi]
			if p.Weight < 0 || p.Weight > 1 {
				return fmt.Errorf("risk rule %s/%s: weight %v not in [0,1]", cat.Name, p.ID, p.Weight)
			}
			expr := p.Regex
			if !p.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return fmt.Errorf("risk rule %s/%s: %w", cat.Name, p.ID, err)
			}
			p.compiled = re
		}
	}
	return nil
}

// RedactionRuleFile is the on-disk shape of the outbound redaction rules.
type RedactionRuleFile struct {
	PII           []RedactionRule `yaml:"pii"`
	Internal      []RedactionRule `yaml:"internal"`
	Hallucination struct {
		LowConfidence  []string `yaml:"low_confidence"`
		HighConfidence []string `yaml:"high_confidence"`
	} `yaml:"hallucination"`
}

// RedactionRule replaces every match with a typed placeholder.
type RedactionRule struct {
	Type  string `yaml:"type"`
	Regex string `yaml:"regex"`

	compiled *regexp.Regexp
}

func loadRedactionRules() (*RedactionRuleFile, error) {
	var file RedactionRuleFile
	if err := yaml.Unmarshal(defaultRedactionRules, &file); err != nil {
		return nil, fmt.Errorf("parse redaction rules: %w", err)
	}
	for _, group := range [][]RedactionRule{file.PII, file.Internal} {
		for i := range group {
			re, err := regexp.Compile(group[i].Regex)
			if err != nil {
				return nil, fmt.Errorf("redaction rule %s: %w", group[i].Type, err)
			}
			group[i].compiled = re
		}
	}
	return &file, nil
}

func compileAll(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}
