package events

import (
	"time"
)

// NameUnauthorized is published whenever an envelope carries the 401 code.
const NameUnauthorized = "http.unauthorized"

// Event represents the payload broadcast in-process and published downstream.
type Event struct {
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	Code       int       `json:"code"`
	StatusCode int       `json:"status_code"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewUnauthorizedEvent constructs the unauthorized Event for the given envelope profile.
func NewUnauthorizedEvent(source string, statusCode int) Event {
	return Event{
		Name:       NameUnauthorized,
		Source:     source,
		Code:       401,
		StatusCode: statusCode,
		OccurredAt: time.Now().UTC(),
	}
}
