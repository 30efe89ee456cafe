package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ServiceFactory creates the API clients of a run, all sharing one session.
type ServiceFactory struct {
	config  *Config
	session *session
	loc     *time.Location
}

// NewServiceFactory creates a new service factory instance
func NewServiceFactory(config *Config, db *sql.DB) (*ServiceFactory, error) {
	loc, err := config.location()
	if err != nil {
		return nil, err
	}
	return &ServiceFactory{
		config:  config,
		session: newSession(config, db),
		loc:     loc,
	}, nil
}

// Spreadsheet returns the client of the controller sheet
func (f *ServiceFactory) Spreadsheet(ctx context.Context) (*GoogleSheets, error) {
	client, err := f.session.client(ctx, sheetScopes)
	if err != nil {
		return nil, err
	}
	sheet, err := NewGoogleSheets(ctx, client, f.config.Sheet.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("error creating sheets client: %w", err)
	}
	return sheet, nil
}

// Calendar returns the Google Calendar provider
func (f *ServiceFactory) Calendar(ctx context.Context) (*GoogleCalendarProvider, error) {
	client, err := f.session.client(ctx, calendarScopes)
	if err != nil {
		return nil, err
	}
	provider, err := NewGoogleCalendarProvider(ctx, client, f.loc)
	if err != nil {
		return nil, fmt.Errorf("error creating Google calendar provider: %w", err)
	}
	return provider, nil
}

// IssueTracker returns nil when no GitLab token is configured.
func (f *ServiceFactory) IssueTracker() (IssueTracker, error) {
	if f.config.GitLab.Token == "" {
		return nil, nil
	}
	tracker, err := NewGitLabTracker(f.config.GitLab)
	if err != nil {
		return nil, err
	}
	return tracker, nil
}
