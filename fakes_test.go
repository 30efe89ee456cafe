package main

import (
	"context"
	"fmt"
	"time"
)

var testHeaders = map[string]int{
	colDate:      0,
	colCalendar:  1,
	colActivity:  2,
	colDetails:   3,
	colStart:     4,
	colStop:      5,
	colAttendees: 6,
	colAction:    7,
	colEventID:   8,
	colLink:      9,
	colProject:   10,
	colIssue:     11,
	colSpent:     12,
	colAddSpent:  13,
}

type cellWrite struct {
	Cell    string
	Value   string
	Formula bool
}

type fakeSheet struct {
	headers map[string]int
	rows    [][]interface{}
	values  map[string][][]interface{}
	columns map[string][]string

	updates  []cellWrite
	cleared  [][]string
	appended [][]interface{}
	// updateErrs are returned, in order, by the next cell updates or clears.
	updateErrs []error
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{
		headers: testHeaders,
		values:  make(map[string][][]interface{}),
		columns: make(map[string][]string),
	}
}

func (f *fakeSheet) Pages(ctx context.Context) ([]string, error) {
	return []string{"September 2026", "October 2026"}, nil
}

func (f *fakeSheet) HeaderIndex(ctx context.Context, page string) (map[string]int, error) {
	return f.headers, nil
}

func (f *fakeSheet) Rows(ctx context.Context, page string) ([][]interface{}, error) {
	return f.rows, nil
}

func (f *fakeSheet) ColumnValues(ctx context.Context, page string, column string) ([]string, error) {
	return f.columns[column], nil
}

func (f *fakeSheet) Values(ctx context.Context, page string, rng string) ([][]interface{}, error) {
	return f.values[page+"!"+rng], nil
}

func (f *fakeSheet) nextUpdateErr() error {
	if len(f.updateErrs) == 0 {
		return nil
	}
	err := f.updateErrs[0]
	f.updateErrs = f.updateErrs[1:]
	return err
}

func (f *fakeSheet) UpdateCell(ctx context.Context, page string, cell string, value string) error {
	if err := f.nextUpdateErr(); err != nil {
		return err
	}
	f.updates = append(f.updates, cellWrite{Cell: cell, Value: value})
	return nil
}

func (f *fakeSheet) UpdateFormula(ctx context.Context, page string, cell string, formula string) error {
	if err := f.nextUpdateErr(); err != nil {
		return err
	}
	f.updates = append(f.updates, cellWrite{Cell: cell, Value: formula, Formula: true})
	return nil
}

func (f *fakeSheet) BatchClear(ctx context.Context, page string, cells []string) error {
	if err := f.nextUpdateErr(); err != nil {
		return err
	}
	f.cleared = append(f.cleared, cells)
	return nil
}

func (f *fakeSheet) AppendRow(ctx context.Context, page string, values []interface{}) error {
	f.appended = append(f.appended, values)
	return nil
}

type createCall struct {
	CalendarID string
	Event      Event
}

type deleteCall struct {
	CalendarID string
	EventID    string
}

type fakeCalendar struct {
	created []createCall
	deleted []deleteCall
	listed  []string
	// events by calendar id, returned by ListEvents
	events map[string][]*Event
	// deleteErr is returned by every DeleteEvent
	deleteErr error
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, calendarID string, event *Event) (*CreatedEvent, error) {
	f.created = append(f.created, createCall{CalendarID: calendarID, Event: *event})
	n := len(f.created)
	return &CreatedEvent{
		ID:   fmt.Sprintf("ev%d", n),
		Link: fmt.Sprintf("https://calendar.example/ev%d", n),
		End:  event.End,
	}, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, calendarID string, eventID string) error {
	f.deleted = append(f.deleted, deleteCall{CalendarID: calendarID, EventID: eventID})
	return f.deleteErr
}

func (f *fakeCalendar) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*Event, error) {
	f.listed = append(f.listed, calendarID)
	var out []*Event
	for _, e := range f.events[calendarID] {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

type spentCall struct {
	ProjectID string
	IssueIID  int
	Hours     float64
}

type fakeTracker struct {
	calls   []spentCall
	missing map[int]bool
	err     error
}

func (f *fakeTracker) AddTimeSpent(ctx context.Context, projectID string, issueIID int, hours float64) (bool, error) {
	f.calls = append(f.calls, spentCall{ProjectID: projectID, IssueIID: issueIID, Hours: hours})
	if f.err != nil {
		return false, f.err
	}
	return !f.missing[issueIID], nil
}

// recordingSleep returns a sleep that records pauses instead of waiting.
func recordingSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}
