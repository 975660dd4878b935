package domain

import "time"

// KnownIssue is immutable reference data matched against classified tickets.
type KnownIssue struct {
	ID              string
	IssueKey        string
	Title           string
	Category        string
	Intent          string
	Fix             string
	ConfidenceBoost float64
	CustomerID      *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Fingerprint is the lookup key for a KnownIssue.
type Fingerprint struct {
	Category   string
	Intent     string
	CustomerID *string
}
