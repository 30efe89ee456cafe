package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

var extractHeaders = []string{colDate, colCalendar, colActivity, colAction, colEventID, colLink}

// extractEvents copies the user's events of a day to the month page.
func extractEvents(ctx context.Context, config *Config, day time.Time) error {
	if err := config.validate(true); err != nil {
		return err
	}
	db, err := openDB(dbFileName)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	factory, err := NewServiceFactory(config, db)
	if err != nil {
		return err
	}
	calendars, err := factory.Calendar(ctx)
	if err != nil {
		return err
	}
	sheet, err := factory.Spreadsheet(ctx)
	if err != nil {
		return err
	}

	page := config.monthPage(day)
	headers, err := sheet.HeaderIndex(ctx, page)
	if err != nil {
		return err
	}
	layout, err := newSheetLayout(headers, extractHeaders...)
	if err != nil {
		return fmt.Errorf("page %s: %w", page, err)
	}
	dir, err := loadCalendars(ctx, sheet, config.Sheet.CalendarsPage)
	if err != nil {
		return err
	}

	e := &extractor{
		sheet:     sheet,
		calendars: calendars,
		retry:     newRateLimitPolicy(),
		page:      page,
		layout:    layout,
		directory: dir,
		userEmail: config.Calendar.UserEmail,
		ownAlias:  config.Calendar.OwnAlias,
		loc:       factory.loc,
	}
	return e.run(ctx, day)
}

// extractor imports calendar events into a timesheet page.
type extractor struct {
	sheet     Spreadsheet
	calendars CalendarProvider
	retry     retryPolicy

	page      string
	layout    *sheetLayout
	directory calendarDirectory
	userEmail string
	ownAlias  string
	loc       *time.Location
}

func (e *extractor) run(ctx context.Context, day time.Time) error {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, e.loc)
	printVerbosely(1, "🔎 Checking your calendars at %s…\n", day.Format("02/01/2006"))

	events, err := e.collect(ctx, day)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		printVerbosely(1, "No events found.\n")
		return nil
	}

	// Events already in the page, to prevent adding the same event twice
	knownIDs, err := e.columnSet(ctx, colEventID)
	if err != nil {
		return err
	}
	knownLinks, err := e.columnSet(ctx, colLink)
	if err != nil {
		return err
	}

	entries := e.entries()
	printVerbosely(1, "📥 Start downloading events for day %s\n", day.Format("02/01/2006"))
	for _, event := range events {
		entry := entries[event.CalendarID]
		eventID := event.ID
		if entry.Linked {
			eventID = ""
		}
		if eventID != "" && knownIDs[eventID] {
			printVerbosely(3, "  ⚠️ Event %q already present in %s. Skipping…\n", event.Summary, e.page)
			continue
		}
		if event.Link != "" && knownLinks[event.Link] {
			printVerbosely(3, "  ⚠️ A link to event %q already present in %s (%s). Skipping…\n", event.Summary, e.page, event.Link)
			continue
		}

		line := e.layout.line(e.rowValues(event, entry, eventID))
		err := e.retry.do(ctx, func() error {
			return e.sheet.AppendRow(ctx, e.page, line)
		})
		if err != nil {
			return fmt.Errorf("error adding event %q: %w", event.Summary, err)
		}
		when := "full day"
		if !event.AllDay {
			when = "at " + event.Start.Format("15:04")
		}
		printVerbosely(2, "  ➕ Added new event %q (%s) %s to %s\n", event.Summary, entry.Alias, when, e.page)
		if eventID != "" {
			knownIDs[eventID] = true
		}
		if event.Link != "" {
			knownLinks[event.Link] = true
		}
	}

	fmt.Println("✅ Done!")
	return nil
}

// collect lists the user's events of the day on every configured calendar,
// each event once, sorted by start.
func (e *extractor) collect(ctx context.Context, day time.Time) ([]*Event, error) {
	timeMin := day
	timeMax := day.AddDate(0, 0, 1).Add(-time.Second)

	var all []*Event
	seen := make(map[string]bool)
	for _, calendarID := range e.calendarIDs() {
		events, err := e.calendars.ListEvents(ctx, calendarID, timeMin, timeMax)
		if err != nil {
			return nil, fmt.Errorf("error retrieving events of %s: %w", calendarID, err)
		}
		for _, event := range filterMyEvents(events, e.userEmail) {
			if seen[event.ID] {
				continue
			}
			seen[event.ID] = true
			event.CalendarID = calendarID
			all = append(all, event)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start.Before(all[j].Start)
	})
	return all, nil
}

// calendarIDs lists configured calendars in sheet order, then the user's own.
func (e *extractor) calendarIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, entry := range e.directory {
		if !seen[entry.ID] {
			seen[entry.ID] = true
			ids = append(ids, entry.ID)
		}
	}
	if !seen[e.userEmail] {
		ids = append(ids, e.userEmail)
	}
	return ids
}

// entries maps calendar ids to their alias. The user's own calendar always
// shows as the own alias.
func (e *extractor) entries() map[string]calendarEntry {
	entries := e.directory.byID()
	entries[e.userEmail] = calendarEntry{ID: e.userEmail, Alias: e.ownAlias}
	return entries
}

func (e *extractor) columnSet(ctx context.Context, column string) (map[string]bool, error) {
	values, err := e.sheet.ColumnValues(ctx, e.page, column)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if column == colLink {
			v = linkTarget(v)
		}
		if v != "" {
			set[v] = true
		}
	}
	return set, nil
}

func (e *extractor) rowValues(event *Event, entry calendarEntry, eventID string) map[string]interface{} {
	summary := event.Summary
	if summary == "" {
		summary = "No summary"
	}
	values := map[string]interface{}{
		colDate:     serialFromDate(event.Start),
		colCalendar: entry.Alias,
		colActivity: summary,
		colDetails:  event.Description,
		colEventID:  eventID,
		colLink:     event.Link,
		colAction:   actionImported,
	}
	if !event.AllDay {
		values[colStart] = fractionOfDay(event.Start)
		values[colStop] = fractionOfDay(event.End)
		values[colSpent] = event.End.Sub(event.Start).Hours()
	}
	// Rows from the user's own calendar keep a blank Action.
	if entry.Alias == e.ownAlias {
		values[colAction] = ""
	}
	return values
}

// filterMyEvents keeps events created by the user with no other attendees,
// and events the user attends without having declined.
func filterMyEvents(events []*Event, userEmail string) []*Event {
	var mine []*Event
	for _, event := range events {
		if event.Status == statusCancelled {
			continue
		}
		if strings.EqualFold(event.Creator, userEmail) && len(event.Attendees) == 0 {
			mine = append(mine, event)
			continue
		}
		for _, a := range event.Attendees {
			if !strings.EqualFold(a.Email, userEmail) {
				continue
			}
			if a.ResponseStatus == responseAccepted || a.ResponseStatus == responseNeedsAction {
				mine = append(mine, event)
			}
			break
		}
	}
	return mine
}
