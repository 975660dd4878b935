package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/supportdesk/triage-service/internal/classifier"
	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/repository"
)

type fakeUsers struct {
	users map[string]*domain.User
	err   error
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[strings.ToLower(email)]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeClassifier struct {
	result classifier.Classification
	err    error
}

func (f *fakeClassifier) Classify(context.Context, string) (classifier.Classification, error) {
	return f.result, f.err
}

type fakeDiagnoser struct {
	reasoning string
	err       error
}

func (f *fakeDiagnoser) Diagnose(context.Context, classifier.DiagnosisContext) (string, error) {
	return f.reasoning, f.err
}

type fakeIssues struct {
	issues map[string]*domain.KnownIssue
	err    error
	last   domain.Fingerprint
}

func (f *fakeIssues) Lookup(_ context.Context, fp domain.Fingerprint) (*domain.KnownIssue, error) {
	f.last = fp
	if f.err != nil {
		return nil, f.err
	}
	return f.issues[fp.Category+"/"+fp.Intent], nil
}

// memStore commits staged rows only when the unit of work succeeds.
type memStore struct {
	mu       sync.Mutex
	feedback []domain.FeedbackRecord
	audit    []domain.AuditLogEntry
	failOn   string
}

type stagedTx struct {
	store    *memStore
	feedback []domain.FeedbackRecord
	audit    []domain.AuditLogEntry
}

func (s *memStore) WithinTx(_ context.Context, fn func(repository.TxRepos) error) error {
	tx := &stagedTx{store: s}
	if err := fn(repository.TxRepos{Feedback: &memFeedback{tx: tx}, Audit: &memAudit{tx: tx}}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, tx.feedback...)
	s.audit = append(s.audit, tx.audit...)
	return nil
}

// Create writes an audit entry outside any unit of work.
func (s *memStore) Create(_ context.Context, entry *domain.AuditLogEntry) error {
	if s.failOn == "audit" {
		return errors.New("audit insert failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, *entry)
	return nil
}

func (s *memStore) feedbackRows() []domain.FeedbackRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.FeedbackRecord(nil), s.feedback...)
}

func (s *memStore) auditRows() []domain.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditLogEntry(nil), s.audit...)
}

type memFeedback struct{ tx *stagedTx }

func (m *memFeedback) Create(_ context.Context, record *domain.FeedbackRecord) error {
	if m.tx.store.failOn == "feedback" {
		return errors.New("feedback insert failed")
	}
	m.tx.feedback = append(m.tx.feedback, *record)
	return nil
}

func (m *memFeedback) GetByTicketID(context.Context, string) (*domain.FeedbackRecord, error) {
	return nil, pgx.ErrNoRows
}

func (m *memFeedback) LockByTicketID(context.Context, string) (*domain.FeedbackRecord, error) {
	return nil, pgx.ErrNoRows
}

func (m *memFeedback) UpdateStatus(context.Context, string, domain.TicketStatus) error {
	return pgx.ErrNoRows
}

type memAudit struct{ tx *stagedTx }

func (m *memAudit) Create(_ context.Context, entry *domain.AuditLogEntry) error {
	if m.tx.store.failOn == "audit" {
		return errors.New("audit insert failed")
	}
	m.tx.audit = append(m.tx.audit, *entry)
	return nil
}

func (m *memAudit) ListByResource(context.Context, string, string) ([]domain.AuditLogEntry, error) {
	return nil, nil
}
