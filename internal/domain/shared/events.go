package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Every successful write publishes exactly one of these.
const (
	// Directory events
	EventCollegeCreated EventType = "college.created"
	EventCollegeUpdated EventType = "college.updated"
	EventCollegeDeleted EventType = "college.deleted"
	EventStudentCreated EventType = "student.created"
	EventStudentUpdated EventType = "student.updated"

	// Event lifecycle events
	EventEventCreated   EventType = "event.created"
	EventEventUpdated   EventType = "event.updated"
	EventEventCancelled EventType = "event.cancelled"
	EventEventCompleted EventType = "event.completed"

	// Registration engine events
	EventRegistrationCreated   EventType = "registration.created"
	EventRegistrationCancelled EventType = "registration.cancelled"
	EventRegistrationRejected  EventType = "registration.rejected"

	// Attendance events
	EventCheckedIn  EventType = "attendance.checked_in"
	EventCheckedOut EventType = "attendance.checked_out"

	// Feedback events
	EventFeedbackSubmitted EventType = "feedback.submitted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped at the given instant.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Entity change events
// ═══════════════════════════════════════════════════════════════════════════

// EntityChangedEvent covers plain CRUD writes on colleges, students and events.
type EntityChangedEvent struct {
	BaseEvent
	CollegeID string `json:"college_id"`
}

// Payload implements Event interface.
func (e EntityChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"college_id": e.CollegeID,
	}
}

// NewEntityChangedEvent creates a new EntityChangedEvent.
func NewEntityChangedEvent(eventType EventType, aggregateID, collegeID string, at time.Time) EntityChangedEvent {
	return EntityChangedEvent{
		BaseEvent: NewBaseEvent(eventType, aggregateID, at),
		CollegeID: collegeID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Registration events
// ═══════════════════════════════════════════════════════════════════════════

// RegistrationEvent is emitted when a registration is created or cancelled.
type RegistrationEvent struct {
	BaseEvent
	StudentID            string `json:"student_id"`
	EventID              string `json:"event_id"`
	CurrentRegistrations int    `json:"current_registrations"`
	MaxCapacity          int    `json:"max_capacity"`
	Attempts             int    `json:"attempts"`
}

// Payload implements Event interface.
func (e RegistrationEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":            e.StudentID,
		"event_id":              e.EventID,
		"current_registrations": e.CurrentRegistrations,
		"max_capacity":          e.MaxCapacity,
		"attempts":              e.Attempts,
	}
}

// NewRegistrationEvent creates a new RegistrationEvent.
func NewRegistrationEvent(eventType EventType, registrationID, studentID, eventID string, current, capacity, attempts int, at time.Time) RegistrationEvent {
	return RegistrationEvent{
		BaseEvent:            NewBaseEvent(eventType, registrationID, at),
		StudentID:            studentID,
		EventID:              eventID,
		CurrentRegistrations: current,
		MaxCapacity:          capacity,
		Attempts:             attempts,
	}
}

// RegistrationRejectedEvent is emitted when register fails a precondition.
// Reason is the error kind ("capacity_exceeded", "conflict", ...).
type RegistrationRejectedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// Payload implements Event interface.
func (e RegistrationRejectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"reason":     e.Reason,
	}
}

// NewRegistrationRejectedEvent creates a new RegistrationRejectedEvent keyed by event ID.
func NewRegistrationRejectedEvent(eventID, studentID, reason string, at time.Time) RegistrationRejectedEvent {
	return RegistrationRejectedEvent{
		BaseEvent: NewBaseEvent(EventRegistrationRejected, eventID, at),
		StudentID: studentID,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance & feedback events
// ═══════════════════════════════════════════════════════════════════════════

// AttendanceEvent is emitted on check-in and check-out.
type AttendanceEvent struct {
	BaseEvent
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// Payload implements Event interface.
func (e AttendanceEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"event_id": e.EventID,
		"status":   e.Status,
	}
}

// NewAttendanceEvent creates a new AttendanceEvent keyed by registration ID.
func NewAttendanceEvent(eventType EventType, registrationID, eventID, status string, at time.Time) AttendanceEvent {
	return AttendanceEvent{
		BaseEvent: NewBaseEvent(eventType, registrationID, at),
		EventID:   eventID,
		Status:    status,
	}
}

// FeedbackSubmittedEvent is emitted when feedback is admitted.
type FeedbackSubmittedEvent struct {
	BaseEvent
	EventID string `json:"event_id"`
	Rating  int    `json:"rating"`
}

// Payload implements Event interface.
func (e FeedbackSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"event_id": e.EventID,
		"rating":   e.Rating,
	}
}

// NewFeedbackSubmittedEvent creates a new FeedbackSubmittedEvent keyed by registration ID.
func NewFeedbackSubmittedEvent(registrationID, eventID string, rating int, at time.Time) FeedbackSubmittedEvent {
	return FeedbackSubmittedEvent{
		BaseEvent: NewBaseEvent(EventFeedbackSubmitted, registrationID, at),
		EventID:   eventID,
		Rating:    rating,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
