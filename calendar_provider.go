package main

import (
	"context"
	"time"
)

type CalendarProvider interface {
	CreateEvent(ctx context.Context, calendarID string, event *Event) (*CreatedEvent, error)
	// DeleteEvent succeeds when the event is already gone.
	DeleteEvent(ctx context.Context, calendarID string, eventID string) error
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*Event, error)
}

type Event struct {
	ID          string
	CalendarID  string
	Summary     string
	Description string
	Link        string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Status      string
	Creator     string
	Attendees   []Attendee
}

type Attendee struct {
	Email          string
	ResponseStatus string
}

type CreatedEvent struct {
	ID   string
	Link string
	End  time.Time
}

const (
	responseAccepted    = "accepted"
	responseNeedsAction = "needsAction"
	responseDeclined    = "declined"
	statusCancelled     = "cancelled"
)
