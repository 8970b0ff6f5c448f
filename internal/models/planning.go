package models

import "time"

// TermPlan is the parent's study plan for a term, the target surface
// after a non-child account passes the consent gate.
type TermPlan struct {
	ID        int64
	AccountID string
	Term      string
	Subjects  string // JSON-encoded subject list
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Topic is a study topic attached to a child, either created directly
// or replayed from a locally saved onboarding draft.
type Topic struct {
	ID        int64
	ChildUID  string
	Name      string
	Status    string
	CreatedAt time.Time
}

// Search is one logged search query from the app surface
type Search struct {
	ID        int64
	AccountID string
	Query     string
	CreatedAt time.Time
}
