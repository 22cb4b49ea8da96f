package models

// UserState tracks one user's in-flight action input session: which action is
// waiting for values, which input is expected next, what was collected so far.
type UserState struct {
	UserID   int64             `json:"user_id"`
	ActionID string            `json:"action_id"`
	Awaiting string            `json:"awaiting"`
	Inputs   map[string]string `json:"inputs,omitempty"`
}
