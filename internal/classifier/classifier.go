// Package classifier provides the intent classification and diagnosis
// collaborators used by the pipeline stages.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/config"
)

// Category buckets.
const (
	CategoryTechnical = "technical"
	CategoryBilling   = "billing"
	CategoryAccount   = "account"
	CategoryComplaint = "complaint"
	CategoryGeneral   = "general"
)

// Intent slugs referenced outside the classifiers.
const (
	IntentAPIAuthFailure         = "api_authentication_failure"
	IntentServiceOutage          = "service_outage"
	IntentPerformanceIssue       = "performance_issue"
	IntentBugReport              = "bug_report"
	IntentPaymentIssue           = "payment_issue"
	IntentSubscriptionCancel     = "subscription_cancellation"
	IntentRefundRequest          = "refund_request"
	IntentServiceDissatisfaction = "service_dissatisfaction"
	IntentGeneralQuestion        = "general_question"
)

// Intents lists the allowed specific intents per category.
var Intents = map[string][]string{
	CategoryTechnical: {IntentAPIAuthFailure, IntentServiceOutage, IntentPerformanceIssue, "connection_error", "rate_limit_exceeded", IntentBugReport},
	CategoryBilling:   {IntentSubscriptionCancel, "subscription_downgrade", "subscription_upgrade", IntentPaymentIssue, "invoice_request"},
	CategoryAccount:   {"account_access", "account_general"},
	CategoryComplaint: {IntentServiceDissatisfaction, IntentRefundRequest},
	CategoryGeneral:   {"policy_question", IntentGeneralQuestion},
}

// ErrUnavailable is returned once every attempt against a remote model failed.
var ErrUnavailable = errors.New("classifier unavailable")

// Classification is the two-level intent plus the classifier's certainty.
type Classification struct {
	Category  string
	Intent    string
	Certainty float64
}

// Classifier assigns a Classification to ticket text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// DiagnosisContext is what a Diagnoser sees for a ticket without a known issue.
type DiagnosisContext struct {
	TicketText string
	Category   string
	Intent     string
}

// Diagnoser produces free-text diagnostic reasoning.
type Diagnoser interface {
	Diagnose(ctx context.Context, in DiagnosisContext) (string, error)
}

// New builds the configured classifier wrapped in retry handling. The
// returned Diagnoser is nil unless diagnosis on KB miss is enabled and the
// provider supports it.
func New(cfg config.ClassifierConfig, logger *zap.Logger, opts ...ResilientOption) (Classifier, Diagnoser, error) {
	switch cfg.Provider {
	case "", "keyword":
		return NewResilient(NewKeyword(), nil, cfg, logger, opts...), nil, nil
	case "openai":
		client, err := NewOpenAI(cfg)
		if err != nil {
			return nil, nil, err
		}
		r := NewResilient(client, client, cfg, logger, opts...)
		if !cfg.DiagnoseOnMiss {
			return r, nil, nil
		}
		return r, r, nil
	default:
		return nil, nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}

// Known reports whether category/intent is a recognised pair.
func Known(category, intent string) bool {
	for _, candidate := range Intents[category] {
		if candidate == intent {
			return true
		}
	}
	return false
}
