package models

import "time"

// Account roles
const (
	RoleParent   = "parent"
	RoleChild    = "child"
	RoleGuardian = "guardian"
)

// Profile is the application-owned row backing a provider account.
// A child profile must carry a non-empty ParentID referencing the
// parent's account id.
type Profile struct {
	AccountID           string
	FullName            string
	Role                string
	Age                 int
	Grade               string
	ParentID            string
	DiagnosticCompleted bool
	IsActive            bool
	PasscodeHash        string
	IdempotencyKey      string
	CreatedAt           time.Time
}

// IsChild reports whether the profile belongs to a child account
func (p *Profile) IsChild() bool {
	return p.Role == RoleChild
}

// OrphanAccount records a provider account whose rollback delete failed.
// The sweeper retries these until the delete succeeds.
type OrphanAccount struct {
	ID        int64
	AccountID string
	Reason    string
	Attempts  int
	CreatedAt time.Time
}
