// Package pipeline runs a support query through admission, validation, the
// three decision stages and output sanitizing.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/config"
	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/events"
	"github.com/supportdesk/triage-service/internal/observability"
	"github.com/supportdesk/triage-service/internal/ratelimit"
	"github.com/supportdesk/triage-service/internal/safety"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

// Outcome labels for metrics.
const (
	OutcomeResolved           = "resolved"
	OutcomeEscalated          = "escalated"
	OutcomeRateLimited        = "rate_limited"
	OutcomeValidationRejected = "validation_rejected"
	OutcomeFailed             = "failed"
)

// RateLimiter admits or refuses a request for an identity.
type RateLimiter interface {
	Allow(identity string, tier domain.Tier) ratelimit.Decision
}

// AuditWriter records audit entries outside a unit of work.
type AuditWriter interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
}

// Request is one inbound support query.
type Request struct {
	Text      string
	UserEmail string
	SessionID string
	ClientIP  string
}

// Response is the sanitized answer for a query.
type Response struct {
	TicketID            string
	Status              string
	Message             string
	Confidence          float64
	DiagnosticReasoning string
	ShouldEscalate      bool
	Priority            domain.TicketPriority
	Category            string
	Intent              string
	Findings            []safety.Finding
	RateLimitRemaining  int
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Config     config.PipelineConfig
	Limiter    RateLimiter
	Scanner    *safety.Scanner
	Sanitizer  *safety.Sanitizer
	Triage     *Triage
	Retrieval  *Retrieval
	Escalation *Escalation
	Audit      AuditWriter
	Events     events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// Orchestrator sequences one query from admission to a sanitized response.
// Stages only move forward; a rejection ends the run before any stage runs.
type Orchestrator struct {
	Deps
}

func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{Deps: deps}
}

// Handle returns a DomainError for rate-limit and validation rejections and
// for persistence failures. A cancelled ctx stops the run between stages.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	ticket := domain.Ticket{
		ID:        domain.NewTicketID(),
		UserEmail: strings.TrimSpace(req.UserEmail),
		SessionID: req.SessionID,
		Status:    domain.TicketStatusNew,
	}
	logger := o.Logger.With(zap.String("ticket_id", ticket.ID))

	ticket.Requester = o.Triage.ResolveUser(ctx, ticket.UserEmail)
	remaining, err := o.admit(ctx, ticket, req.ClientIP, logger)
	if err != nil {
		return nil, err
	}

	ticket.Text = safety.Normalize(req.Text)
	risk, err := o.validate(ctx, ticket, logger)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	triaged, err := o.Triage.Classify(ctx, ticket, risk)
	o.Metrics.ObserveStage("triage", time.Since(start))
	if err != nil {
		return nil, o.fail(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	retrieved, err := o.Retrieval.Retrieve(ctx, triaged)
	o.Metrics.ObserveStage("retrieval", time.Since(start))
	if err != nil {
		return nil, o.fail(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	verdict, err := o.Escalation.Decide(ctx, retrieved)
	o.Metrics.ObserveStage("escalation", time.Since(start))
	if err != nil {
		return nil, o.fail(err)
	}

	resp := o.respond(verdict)
	resp.RateLimitRemaining = remaining
	o.record(ctx, verdict, logger)
	return resp, nil
}

// admit keys known users by email and everyone else by client IP, so an
// unregistered email never opens a bucket of its own. It returns the
// identity's remaining admissions.
func (o *Orchestrator) admit(ctx context.Context, ticket domain.Ticket, clientIP string, logger *zap.Logger) (int, error) {
	identity, tier := "ip:"+clientIP, domain.TierStandard
	if ticket.Requester != nil {
		identity = "user:" + strings.ToLower(ticket.Requester.Email)
		tier = ticket.Requester.Tier
	}

	decision := o.Limiter.Allow(identity, tier)
	if decision.Allowed {
		return decision.Remaining, nil
	}

	logger.Warn("rate limit exceeded",
		zap.String("identity", identity),
		zap.String("scope", string(decision.Scope)),
		zap.Duration("retry_after", decision.RetryAfter),
	)
	o.Metrics.RecordRateLimited(string(decision.Scope))
	o.Metrics.RecordOutcome(OutcomeRateLimited)
	o.reject(ctx, ticket, domain.AuditActionRateLimitRejected, map[string]any{
		"scope":       decision.Scope,
		"retry_after": apperrors.RetryAfterSeconds(decision.RetryAfter),
		"tier":        tier,
	}, events.TicketRejectedPayload{Reason: domain.AuditActionRateLimitRejected, Scope: string(decision.Scope)}, logger)
	return 0, apperrors.NewRateLimited(decision.RetryAfter, string(decision.Scope))
}

func (o *Orchestrator) validate(ctx context.Context, ticket domain.Ticket, logger *zap.Logger) (safety.RiskResult, error) {
	risk := o.Scanner.Scan(ticket.Text)
	structural := safety.Validate(ticket.Text, o.Config.MaxInputLength)
	if len(structural) > 0 {
		risk.Issues = append(structural, risk.Issues...)
	}
	o.Metrics.ObserveRiskScore(risk.Score)

	if len(structural) == 0 && risk.Score < o.Config.RiskRejectThreshold {
		return risk, nil
	}

	detectors := make([]string, 0, len(risk.Issues))
	for _, issue := range risk.Issues {
		detectors = append(detectors, issue.Category+"/"+issue.PatternID)
	}
	logger.Warn("input validation failed",
		zap.Float64("risk_score", risk.Score),
		zap.Strings("issues", detectors),
	)
	o.Metrics.RecordOutcome(OutcomeValidationRejected)
	o.reject(ctx, ticket, domain.AuditActionValidationRejected, map[string]any{
		"risk_score": risk.Score,
		"issues":     detectors,
	}, events.TicketRejectedPayload{Reason: domain.AuditActionValidationRejected, RiskScore: risk.Score}, logger)
	return risk, apperrors.NewValidationRejected(risk.Issues, risk.Score)
}

// reject records the single audit entry for a refused request. A failed
// write is logged and the rejection still stands.
func (o *Orchestrator) reject(ctx context.Context, ticket domain.Ticket, action domain.AuditAction, detail map[string]any, payload events.TicketRejectedPayload, logger *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	entry := &domain.AuditLogEntry{
		ActorType:    domain.ActorTypeSystem,
		Actor:        "orchestrator",
		UserID:       requesterID(ticket),
		Action:       action,
		ResourceType: domain.ResourceTypeTicket,
		ResourceID:   ticket.ID,
		NewValue:     detail,
	}
	if err := o.Audit.Create(ctx, entry); err != nil {
		logger.Error("failed to audit rejection", zap.String("action", string(action)), zap.Error(err))
	}
	o.publish(ctx, events.EventTicketRejected, ticket, payload)
}

func (o *Orchestrator) respond(v Verdict) *Response {
	email := ""
	if v.Ticket.Requester != nil {
		email = v.Ticket.Requester.Email
	}
	message := o.Sanitizer.Sanitize(v.Message, v.Confidence, email)
	reasoning := o.Sanitizer.Sanitize(v.Reasoning, v.Confidence, email)

	return &Response{
		TicketID:            v.Ticket.ID,
		Status:              strings.ToLower(string(v.Status)),
		Message:             message.Text,
		Confidence:          v.Confidence,
		DiagnosticReasoning: reasoning.Text,
		ShouldEscalate:      v.Status == domain.TicketStatusEscalated || message.ShouldEscalate || reasoning.ShouldEscalate,
		Priority:            v.Ticket.Priority,
		Category:            v.Ticket.Intent.Category,
		Intent:              v.Ticket.Intent.Specific,
		Findings:            append(message.Findings, reasoning.Findings...),
	}
}

func (o *Orchestrator) record(ctx context.Context, v Verdict, logger *zap.Logger) {
	outcome, eventType := OutcomeEscalated, events.EventTicketEscalated
	if v.Status == domain.TicketStatusResolved {
		outcome, eventType = OutcomeResolved, events.EventTicketResolved
	}
	o.Metrics.RecordOutcome(outcome)
	o.Metrics.ObserveConfidence(outcome, v.Confidence)

	logger.Info("ticket decided",
		zap.String("status", string(v.Status)),
		zap.Float64("confidence", v.Confidence),
		zap.String("intent", v.Ticket.Intent.String()),
		zap.String("priority", string(v.Ticket.Priority)),
	)

	o.publish(context.WithoutCancel(ctx), eventType, v.Ticket, events.TicketDecidedPayload{
		UserEmail:  v.Ticket.UserEmail,
		Category:   v.Ticket.Intent.Category,
		Intent:     v.Ticket.Intent.Specific,
		Priority:   v.Ticket.Priority,
		Confidence: v.Confidence,
		Reasoning:  v.Reasoning,
	})
}

func (o *Orchestrator) publish(ctx context.Context, eventType events.EventType, ticket domain.Ticket, payload any) {
	if o.Events == nil {
		return
	}
	_ = o.Events.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticket.ID,
		Actor:     events.Actor{Type: domain.ActorTypeAgent, ID: "pipeline", UserID: requesterID(ticket)},
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

func (o *Orchestrator) fail(err error) error {
	o.Metrics.RecordOutcome(OutcomeFailed)
	return err
}

func requesterID(ticket domain.Ticket) *string {
	if ticket.Requester == nil {
		return nil
	}
	id := ticket.Requester.ID
	return &id
}
