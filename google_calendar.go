package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const dateLayout = "2006-01-02"

type GoogleCalendarProvider struct {
	service  *calendar.Service
	timezone string
	loc      *time.Location
}

func NewGoogleCalendarProvider(ctx context.Context, client *http.Client, loc *time.Location, opts ...option.ClientOption) (*GoogleCalendarProvider, error) {
	service, err := calendar.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	// "Local" is not an IANA name, RFC3339 offsets are enough then.
	timezone := loc.String()
	if loc == time.Local {
		timezone = ""
	}
	return &GoogleCalendarProvider{
		service:  service,
		timezone: timezone,
		loc:      loc,
	}, nil
}

func (g *GoogleCalendarProvider) CreateEvent(ctx context.Context, calendarID string, event *Event) (*CreatedEvent, error) {
	googleEvent := &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start:       g.eventDateTime(event.Start, event.AllDay),
		End:         g.eventDateTime(event.End, event.AllDay),
	}
	for _, a := range event.Attendees {
		googleEvent.Attendees = append(googleEvent.Attendees, &calendar.EventAttendee{Email: a.Email})
	}

	createdEvent, err := g.service.Events.Insert(calendarID, googleEvent).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return &CreatedEvent{
		ID:   createdEvent.Id,
		Link: createdEvent.HtmlLink,
		End:  event.End,
	}, nil
}

func (g *GoogleCalendarProvider) eventDateTime(t time.Time, allDay bool) *calendar.EventDateTime {
	if allDay {
		return &calendar.EventDateTime{Date: t.Format(dateLayout)}
	}
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339), TimeZone: g.timezone}
}

func (g *GoogleCalendarProvider) DeleteEvent(ctx context.Context, calendarID string, eventID string) error {
	err := g.service.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			printVerbosely(3, "     ❗️ Event already deleted: %s\n", eventID)
			return nil
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (g *GoogleCalendarProvider) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*Event, error) {
	var result []*Event
	call := g.service.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339))
	if g.timezone != "" {
		call = call.TimeZone(g.timezone)
	}
	err := call.SingleEvents(true).
		OrderBy("startTime").
		Pages(ctx, func(events *calendar.Events) error {
			for _, item := range events.Items {
				event, err := g.fromGoogle(calendarID, item)
				if err != nil {
					return err
				}
				result = append(result, event)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return result, nil
}

func (g *GoogleCalendarProvider) fromGoogle(calendarID string, item *calendar.Event) (*Event, error) {
	event := &Event{
		ID:          item.Id,
		CalendarID:  calendarID,
		Summary:     item.Summary,
		Description: item.Description,
		Link:        item.HtmlLink,
		Status:      item.Status,
	}
	if item.Creator != nil {
		event.Creator = item.Creator.Email
	}
	for _, a := range item.Attendees {
		event.Attendees = append(event.Attendees, Attendee{Email: a.Email, ResponseStatus: a.ResponseStatus})
	}

	var err error
	if event.Start, event.AllDay, err = g.parseDateTime(item.Start); err != nil {
		return nil, fmt.Errorf("event %s start: %w", item.Id, err)
	}
	if event.End, _, err = g.parseDateTime(item.End); err != nil {
		return nil, fmt.Errorf("event %s end: %w", item.Id, err)
	}
	return event, nil
}

func (g *GoogleCalendarProvider) parseDateTime(edt *calendar.EventDateTime) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, nil
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(g.loc), false, nil
	}
	t, err := time.ParseInLocation(dateLayout, edt.Date, g.loc)
	return t, true, err
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusGone || gerr.Code == http.StatusNotFound
	}
	return false
}
