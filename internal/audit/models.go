package audit

import "time"

// Event records one consent lifecycle change. It is transport-agnostic so the
// same value can be kept in memory or published to a broker.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	ConsentID   string    `json:"consentId"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	RequestID   string    `json:"requestId,omitempty"`
}
