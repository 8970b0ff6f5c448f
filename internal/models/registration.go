package models

// ChildDescriptor is a request to create one child account under a parent.
// Key is an optional client-generated idempotency key; replays with a key
// that already produced a profile are skipped as successes.
type ChildDescriptor struct {
	Nickname string `json:"nickname"`
	Age      int    `json:"age"`
	Grade    string `json:"grade"`
	Key      string `json:"key,omitempty"`
}

// ChildResult is one successfully registered child in a batch response
type ChildResult struct {
	ChildUID string `json:"child_uid"`
	Nickname string `json:"nickname"`
	Username string `json:"username,omitempty"`
	Passcode string `json:"passcode,omitempty"`
}

// ChildError is one failed item in a batch response
type ChildError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BatchResult reports the outcome of a registration batch. Items are
// attempted independently; Results and Errors together cover the batch.
type BatchResult struct {
	Results []ChildResult `json:"results"`
	Errors  []ChildError  `json:"errors"`
	Offline bool          `json:"offline,omitempty"`
}

// AllFailed reports whether no item in the batch succeeded
func (b *BatchResult) AllFailed() bool {
	return len(b.Results) == 0 && len(b.Errors) > 0
}
