package domain

import "time"

// OperatorRole enumerates roles for internal operators.
type OperatorRole string

const (
	OperatorRoleAdmin   OperatorRole = "ADMIN"
	OperatorRoleAnalyst OperatorRole = "ANALYST"
)

// Operator is an authenticated internal user of the admin endpoints.
type Operator struct {
	Email string
	Role  OperatorRole
}

// Token represents issued access token metadata.
type Token struct {
	Value     string
	Subject   string
	Role      OperatorRole
	ExpiresAt time.Time
}
