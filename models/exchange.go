package models

import "time"

// Exchange is one completed question/answer turn in a session's history.
// Exchanges are appended, never mutated, and discarded with the session.
type Exchange struct {
	Question  string    `json:"query"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}
