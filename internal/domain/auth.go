package domain

import "time"

// Token describes an issued access token.
type Token struct {
	Value     string
	SubjectID string
	Role      UserRole
	IssuedAt  time.Time
	ExpiresAt time.Time
}
