package models

import "time"

// GuardianLink ties a guardian email to a child account. A guardian
// email may have several rows, one per child.
type GuardianLink struct {
	ID            int64
	GuardianEmail string
	ChildUID      string
	WeeklyReport  bool
	MonthlyReport bool
	CreatedAt     time.Time
}

// ReportSettings is the toggleable slice of a guardian link
type ReportSettings struct {
	WeeklyReport  bool
	MonthlyReport bool
}
