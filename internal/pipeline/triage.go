package pipeline

import (
	"context"
	"errors"
	"math"
	"regexp"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/classifier"
	"github.com/supportdesk/triage-service/internal/config"
	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/safety"
)

// UserLookup resolves a requester by email. A missing user is reported as
// pgx.ErrNoRows.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TriageResult is the ticket after classification.
type TriageResult struct {
	Ticket            domain.Ticket
	Risk              safety.RiskResult
	PartialConfidence float64
}

// Triage resolves the requester and assigns intent, sentiment, priority and a
// partial confidence.
type Triage struct {
	users      UserLookup
	classifier classifier.Classifier
	ceiling    float64
	logger     *zap.Logger
}

func NewTriage(users UserLookup, c classifier.Classifier, cfg config.PipelineConfig, logger *zap.Logger) *Triage {
	return &Triage{users: users, classifier: c, ceiling: cfg.AnonymousConfidenceCeiling, logger: logger}
}

// ResolveUser returns nil for an empty email, an unknown user, or a failed
// lookup. None of these stop the pipeline.
func (t *Triage) ResolveUser(ctx context.Context, email string) *domain.User {
	if email == "" {
		return nil
	}
	user, err := t.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			t.logger.Warn("user lookup failed; continuing anonymously", zap.Error(err))
		}
		return nil
	}
	return user
}

// Classify never fails on collaborator errors: an unavailable classifier
// yields zero certainty in the general bucket.
func (t *Triage) Classify(ctx context.Context, ticket domain.Ticket, risk safety.RiskResult) (TriageResult, error) {
	if ticket.Requester == nil {
		ticket.Requester = t.ResolveUser(ctx, ticket.UserEmail)
	}

	cls, err := t.classifier.Classify(ctx, ticket.Text)
	if err != nil || cls.Category == "" || cls.Intent == "" {
		if err != nil {
			t.logger.Warn("classification unavailable", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
		cls = classifier.Classification{Category: classifier.CategoryGeneral, Intent: classifier.IntentGeneralQuestion}
	}

	certainty := clamp01(cls.Certainty)
	if ticket.Requester == nil {
		certainty = math.Min(certainty, t.ceiling)
	}

	tier := domain.TierStandard
	if ticket.Requester != nil {
		tier = ticket.Requester.Tier
	}

	ticket.Intent = domain.Intent{Category: cls.Category, Specific: cls.Intent}
	ticket.Sentiment = AnalyzeSentiment(ticket.Text)
	ticket.Priority = AssignPriority(cls, ticket.Sentiment, tier, ticket.Text)
	ticket.Confidence = certainty
	ticket.Status = domain.TicketStatusClassified

	return TriageResult{Ticket: ticket, Risk: risk, PartialConfidence: certainty}, nil
}

var (
	outageWords   = regexp.MustCompile(`(?i)\b(down|outage)\b`)
	angryWords    = regexp.MustCompile(`(?i)\b(angry|furious|outraged|terrible|worst|hate|disgusting)\b`)
	negativeWords = regexp.MustCompile(`(?i)\b(bad|poor|disappointed|unhappy|problem|issue|broken)\b`)
	positiveWords = regexp.MustCompile(`(?i)\b(great|excellent|love|amazing|perfect|thanks?|thank\s+you)\b`)
)

// AnalyzeSentiment is a keyword heuristic; the strongest tone wins.
func AnalyzeSentiment(text string) domain.Sentiment {
	switch {
	case angryWords.MatchString(text):
		return domain.SentimentAngry
	case negativeWords.MatchString(text):
		return domain.SentimentNegative
	case positiveWords.MatchString(text):
		return domain.SentimentPositive
	default:
		return domain.SentimentNeutral
	}
}

// AssignPriority applies the first matching rule.
func AssignPriority(cls classifier.Classification, sentiment domain.Sentiment, tier domain.Tier, text string) domain.TicketPriority {
	premium := tier.Premium()
	switch {
	case cls.Category == classifier.CategoryTechnical && outageWords.MatchString(text):
		if premium {
			return domain.TicketPriorityUrgent
		}
		return domain.TicketPriorityHigh
	case sentiment == domain.SentimentAngry:
		return domain.TicketPriorityUrgent
	case cls.Intent == classifier.IntentAPIAuthFailure || cls.Intent == classifier.IntentServiceDissatisfaction:
		return domain.TicketPriorityHigh
	case premium && (cls.Intent == classifier.IntentSubscriptionCancel || cls.Intent == classifier.IntentRefundRequest):
		return domain.TicketPriorityHigh
	case premium:
		return domain.TicketPriorityMedium
	case cls.Intent == classifier.IntentPerformanceIssue || cls.Intent == classifier.IntentBugReport || cls.Intent == classifier.IntentPaymentIssue:
		return domain.TicketPriorityMedium
	case cls.Certainty < 0.7:
		return domain.TicketPriorityMedium
	default:
		return domain.TicketPriorityLow
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
