package models

import "time"

// ConsentFlags carries the acknowledgements collected at the consent step
type ConsentFlags struct {
	PrivacyPolicyAccepted  bool `json:"privacyPolicyAccepted"`
	TermsOfServiceAccepted bool `json:"termsOfServiceAccepted"`
	MarketingCommunication bool `json:"marketingCommunication"`
	ChildDataUsage         bool `json:"childDataUsage"`
}

// RequiredAccepted reports whether both mandatory flags are set
func (f ConsentFlags) RequiredAccepted() bool {
	return f.PrivacyPolicyAccepted && f.TermsOfServiceAccepted
}

// ConsentRecord is the persisted consent state for one account
type ConsentRecord struct {
	AccountID string
	Flags     ConsentFlags
	CreatedAt time.Time
}
