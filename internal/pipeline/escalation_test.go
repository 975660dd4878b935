package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/domain"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

func retrieved(confidence float64) RetrievalResult {
	in := triaged(confidence, &domain.User{ID: "u-alice", Email: "alice@example.com"})
	return RetrievalResult{TriageResult: in, Confidence: confidence, Reasoning: "Rotate your API key."}
}

func TestStatusFor_ThresholdIsInclusive(t *testing.T) {
	assert.Equal(t, domain.TicketStatusResolved, StatusFor(0.75, 0.75))
	assert.Equal(t, domain.TicketStatusEscalated, StatusFor(0.74999, 0.75))
	assert.Equal(t, domain.TicketStatusResolved, StatusFor(1, 0.75))
	assert.Equal(t, domain.TicketStatusEscalated, StatusFor(0, 0.75))
}

func TestDecide_ResolvedWritesFeedbackAndAudit(t *testing.T) {
	store := &memStore{}
	e := NewEscalation(store, testPipelineConfig, zap.NewNop())

	v, err := e.Decide(context.Background(), retrieved(0.75))
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusResolved, v.Status)
	assert.Contains(t, v.Message, "Rotate your API key.")

	rows := store.feedbackRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "TKT-1", rows[0].TicketID)
	assert.Equal(t, domain.TicketStatusResolved, rows[0].Status)
	require.NotNil(t, rows[0].CustomerID)
	assert.Equal(t, "u-alice", *rows[0].CustomerID)

	audits := store.auditRows()
	require.Len(t, audits, 1)
	assert.Equal(t, domain.AuditActionTicketResolved, audits[0].Action)
	assert.Equal(t, domain.ActorTypeAgent, audits[0].ActorType)
	assert.Equal(t, "TKT-1", audits[0].ResourceID)
}

func TestDecide_BelowThresholdEscalates(t *testing.T) {
	store := &memStore{}
	e := NewEscalation(store, testPipelineConfig, zap.NewNop())

	v, err := e.Decide(context.Background(), retrieved(0.74999))
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusEscalated, v.Status)
	assert.Contains(t, v.Message, "investigate manually")
	assert.Contains(t, v.Message, "TKT-1")
	assert.Equal(t, domain.AuditActionTicketEscalated, store.auditRows()[0].Action)
}

func TestDecide_PersistenceFailureLeavesNothing(t *testing.T) {
	store := &memStore{failOn: "audit"}
	e := NewEscalation(store, testPipelineConfig, zap.NewNop())

	_, err := e.Decide(context.Background(), retrieved(0.9))

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePersistenceFailure))
	assert.Empty(t, store.feedbackRows())
	assert.Empty(t, store.auditRows())
}

func TestDecisionMessage_ResolvedAlwaysCarriesReasoning(t *testing.T) {
	tests := []struct {
		name      string
		reasoning string
	}{
		{name: "known issue fix", reasoning: "Rotate your API key."},
		{name: "no known issue", reasoning: NoKnownIssueMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := decisionMessage(domain.TicketStatusResolved, 0.8, tt.reasoning, "TKT-9")

			assert.Contains(t, msg, "0.80")
			assert.Contains(t, msg, "Diagnostic: "+tt.reasoning)
		})
	}
}

func TestDecisionMessage_EscalatedNamesLowConfidence(t *testing.T) {
	msg := decisionMessage(domain.TicketStatusEscalated, 0.5, NoKnownIssueMatch, "TKT-9")

	assert.Contains(t, msg, "low confidence (0.50)")
	assert.Contains(t, msg, "TKT-9")
}

func TestDecide_CallerCancelDoesNotAbortWrite(t *testing.T) {
	store := &memStore{}
	e := NewEscalation(store, testPipelineConfig, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Decide(ctx, retrieved(0.9))
	require.NoError(t, err)

	assert.Len(t, store.feedbackRows(), 1)
}
