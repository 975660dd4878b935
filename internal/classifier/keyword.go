package classifier

import (
	"context"
	"regexp"
	"strings"
)

type keywordRule struct {
	category  string
	intent    string
	certainty float64
	pattern   *regexp.Regexp
}

func rule(category, intent string, certainty float64, keywords ...string) keywordRule {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return keywordRule{
		category:  category,
		intent:    intent,
		certainty: certainty,
		pattern:   regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Keyword is a deterministic rule-based classifier. The first matching rule
// wins; text matching nothing is a general question.
type Keyword struct {
	rules []keywordRule
}

// NewKeyword returns the default keyword classifier.
func NewKeyword() *Keyword {
	return &Keyword{rules: []keywordRule{
		rule(CategoryTechnical, IntentAPIAuthFailure, 0.9, "401", "unauthorized", "unauthorised", "auth", "authentication", "api key", "api token"),
		rule(CategoryTechnical, IntentServiceOutage, 0.85, "down", "outage", "unavailable", "503"),
		rule(CategoryTechnical, IntentPerformanceIssue, 0.85, "timeout", "timed out", "slow", "latency", "performance", "lag"),
		rule(CategoryTechnical, "connection_error", 0.8, "connection", "connect", "network", "dns"),
		rule(CategoryTechnical, "rate_limit_exceeded", 0.8, "rate limit", "rate limited", "429", "quota"),
		rule(CategoryBilling, IntentSubscriptionCancel, 0.95, "cancel", "cancellation", "stop subscription", "unsubscribe"),
		rule(CategoryBilling, "subscription_downgrade", 0.9, "downgrade"),
		rule(CategoryBilling, "subscription_upgrade", 0.9, "upgrade", "premium", "platinum"),
		rule(CategoryComplaint, IntentRefundRequest, 0.95, "refund", "money back"),
		rule(CategoryBilling, IntentPaymentIssue, 0.85, "payment", "payments", "charge", "charged", "card", "declined"),
		rule(CategoryBilling, "invoice_request", 0.85, "invoice", "invoices", "bill", "billing", "receipt"),
		rule(CategoryComplaint, IntentServiceDissatisfaction, 0.9, "angry", "terrible", "worst", "hate", "complaint", "unacceptable"),
		rule(CategoryTechnical, IntentBugReport, 0.8, "error", "errors", "bug", "broken", "not working", "crash", "crashes"),
		rule(CategoryAccount, "account_access", 0.8, "locked out", "password reset", "reset my password", "login", "log in", "sign in"),
		rule(CategoryAccount, "account_general", 0.5, "account", "profile"),
		rule(CategoryGeneral, "policy_question", 0.75, "policy", "how to", "how do i", "what is", "can i"),
	}}
}

// Classify never fails.
func (k *Keyword) Classify(_ context.Context, text string) (Classification, error) {
	for _, r := range k.rules {
		if r.pattern.MatchString(text) {
			return Classification{Category: r.category, Intent: r.intent, Certainty: r.certainty}, nil
		}
	}
	return Classification{Category: CategoryGeneral, Intent: IntentGeneralQuestion, Certainty: 0.6}, nil
}
