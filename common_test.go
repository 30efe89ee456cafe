package main

import (
	"errors"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	defer func(level int) { verbosityLevel = level }(verbosityLevel)

	config, err := parseConfig([]byte(`
[sheet]
document_id = "doc"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.VerbosityLevel != 3 {
		t.Errorf("expected verbosity 3, got %d", config.VerbosityLevel)
	}
	if config.Sheet.CalendarsPage != "config" || config.Sheet.ProjectsPage != "projects" {
		t.Errorf("unexpected pages %+v", config.Sheet)
	}
	if config.Calendar.StartTime != "09:00" || config.Calendar.OwnAlias != "???" {
		t.Errorf("unexpected calendar defaults %+v", config.Calendar)
	}
	if config.GitLab.MissingIssueMarker != "#noissue" {
		t.Errorf("unexpected marker %q", config.GitLab.MissingIssueMarker)
	}
	if got := config.monthPage(time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)); got != "October 2026" {
		t.Errorf("expected October 2026, got %s", got)
	}
	if err := config.validate(false); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseConfig(t *testing.T) {
	defer func(level int) { verbosityLevel = level }(verbosityLevel)

	config, err := parseConfig([]byte(`
verbosity_level = 0

[sheet]
document_id = "doc"
month_names = ["Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
  "Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre"]

[calendar]
user_email = "me@example.com"
timezone = "Europe/Rome"
start_time = "08:30"

[gitlab]
url = "https://gitlab.example.com"
token = "secret"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.VerbosityLevel != 0 || verbosityLevel != 0 {
		t.Errorf("expected verbosity 0, got %d", config.VerbosityLevel)
	}
	if got := config.monthPage(time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)); got != "Ottobre 2026" {
		t.Errorf("expected Ottobre 2026, got %s", got)
	}
	start, err := config.defaultStart()
	if err != nil || start != 8*time.Hour+30*time.Minute {
		t.Errorf("expected 8h30m, got %v (%v)", start, err)
	}
	if err := config.validate(true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if config.GitLab.Token != "secret" {
		t.Errorf("unexpected gitlab section %+v", config.GitLab)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		needUser bool
		missing  bool
	}{
		{name: "no document", config: Config{}, missing: true},
		{name: "no user", config: Config{Sheet: SheetConfig{DocumentID: "doc"}}, needUser: true, missing: true},
		{name: "bad timezone", config: Config{Sheet: SheetConfig{DocumentID: "doc"}, Calendar: CalendarConfig{Timezone: "Nowhere/City"}}},
		{name: "bad start", config: Config{Sheet: SheetConfig{DocumentID: "doc"}, Calendar: CalendarConfig{StartTime: "9 o'clock"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.applyDefaults()
			err := tt.config.validate(tt.needUser)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if errors.Is(err, errMissingSetting) != tt.missing {
				t.Errorf("unexpected error kind: %v", err)
			}
		})
	}
}

func TestParseConfigInvalid(t *testing.T) {
	if _, err := parseConfig([]byte("sheet = [")); err == nil {
		t.Fatalf("expected a parse error")
	}
}
