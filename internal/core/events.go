// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import "time"

// EventType discriminates the canonical webhook events the system understands.
type EventType string

const (
	EventPROpened  EventType = "pr.opened"
	EventPRUpdated EventType = "pr.updated"
	EventPRClosed  EventType = "pr.closed"
	EventPRComment EventType = "pr.comment"
)

// ReviewEvent is the canonical, forge-independent view of a webhook delivery.
// Provider adapters act as an anti-corruption layer: they translate their raw
// payloads into this shape before anything else touches the event.
type ReviewEvent struct {
	Type       EventType
	DeliveryID string
	Timestamp  time.Time
	Provider   string

	RepoOwner    string
	RepoName     string
	RepoFullName string

	PRNumber int
	PRTitle  string
	HeadSHA  string

	// Sender is the login of the user whose action produced the event.
	Sender string

	// Comment fields are populated only for EventPRComment deliveries.
	CommentBody   string
	CommentAction string
	Triggers      []string
}

// ShouldTriggerReview reports whether this event should start a review run.
// Comment events trigger only when a trigger token matched and the comment was
// newly created; edits and deletions never trigger.
func (e *ReviewEvent) ShouldTriggerReview() bool {
	switch e.Type {
	case EventPROpened, EventPRUpdated:
		return true
	case EventPRComment:
		return len(e.Triggers) > 0 && e.CommentAction == "created"
	default:
		return false
	}
}
