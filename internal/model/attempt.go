package model

import "time"

// AttemptRecord is one entry of a learner's attempt history.
type AttemptRecord struct {
	Concept   string    `json:"concept"`
	Success   bool      `json:"success"`
	Error     *string   `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorLabel returns the recorded misconception label, or "" when none was
// recorded.
func (r AttemptRecord) ErrorLabel() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// AttemptOutcome is the result of a single (simulated) learner attempt.
type AttemptOutcome struct {
	Success    bool   `json:"success"`
	ErrorLabel string `json:"error,omitempty"`
}
