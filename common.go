package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configFileName = ".haunts.toml"
	dbFileName     = ".haunts.db"
)

type Config struct {
	ClientID        string `toml:"client_id"`
	ClientSecret    string `toml:"client_secret"`
	CredentialsFile string `toml:"credentials_file"`
	VerbosityLevel  int    `toml:"verbosity_level"`
	LogFile         string `toml:"log_file"`

	Sheet    SheetConfig    `toml:"sheet"`
	Calendar CalendarConfig `toml:"calendar"`
	GitLab   GitLabConfig   `toml:"gitlab"`
}

type SheetConfig struct {
	DocumentID    string   `toml:"document_id"`
	CalendarsPage string   `toml:"calendars_page"`
	ProjectsPage  string   `toml:"projects_page"`
	MonthNames    []string `toml:"month_names"`
}

type CalendarConfig struct {
	UserEmail    string `toml:"user_email"`
	Timezone     string `toml:"timezone"`
	StartTime    string `toml:"start_time"`
	OwnAlias     string `toml:"own_alias"`
	HolidayAlias string `toml:"holiday_alias"`
}

type GitLabConfig struct {
	URL                string `toml:"url"`
	Token              string `toml:"token"`
	MissingIssueMarker string `toml:"missing_issue_marker"`
}

var (
	configDir      string
	verbosityLevel int
	logOutput      io.Writer = os.Stdout
)

var errMissingSetting = errors.New("missing required setting")

func readConfig(filename string) (*Config, error) {
	// Try first current dir, then `$HOME/.config/haunts/`
	data, err := os.ReadFile(filename)
	if err != nil {
		home := filepath.Join(os.Getenv("HOME"), ".config", "haunts")
		data, err = os.ReadFile(filepath.Join(home, filename))
		if err != nil {
			return nil, err
		}
		configDir = home
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	var config Config
	md, err := toml.Decode(string(data), &config)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if !md.IsDefined("verbosity_level") {
		config.VerbosityLevel = 3
	}
	config.applyDefaults()
	verbosityLevel = config.VerbosityLevel
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Sheet.CalendarsPage == "" {
		c.Sheet.CalendarsPage = "config"
	}
	if c.Sheet.ProjectsPage == "" {
		c.Sheet.ProjectsPage = "projects"
	}
	if len(c.Sheet.MonthNames) != 12 {
		c.Sheet.MonthNames = nil
		for m := time.January; m <= time.December; m++ {
			c.Sheet.MonthNames = append(c.Sheet.MonthNames, m.String())
		}
	}
	if c.Calendar.StartTime == "" {
		c.Calendar.StartTime = "09:00"
	}
	if c.Calendar.OwnAlias == "" {
		c.Calendar.OwnAlias = "???"
	}
	if c.GitLab.MissingIssueMarker == "" {
		c.GitLab.MissingIssueMarker = "#noissue"
	}
}

// validate reports the first missing setting the given command needs.
func (c *Config) validate(needUser bool) error {
	if c.Sheet.DocumentID == "" {
		return fmt.Errorf("%w: a value for sheet.document_id is required but is not specified in %s", errMissingSetting, configFileName)
	}
	if needUser && c.Calendar.UserEmail == "" {
		return fmt.Errorf("%w: calendar.user_email", errMissingSetting)
	}
	if _, err := c.location(); err != nil {
		return err
	}
	if _, err := c.defaultStart(); err != nil {
		return err
	}
	return nil
}

func (c *Config) location() (*time.Location, error) {
	if c.Calendar.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar.timezone %q: %w", c.Calendar.Timezone, err)
	}
	return loc, nil
}

// defaultStart is the offset from midnight used for a day's first event
// when a row has no Start.
func (c *Config) defaultStart() (time.Duration, error) {
	t, err := time.Parse("15:04", c.Calendar.StartTime)
	if err != nil {
		return 0, fmt.Errorf("invalid calendar.start_time %q: %w", c.Calendar.StartTime, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// monthPage is the timesheet page title holding the given day.
func (c *Config) monthPage(day time.Time) string {
	return fmt.Sprintf("%s %d", c.Sheet.MonthNames[day.Month()-1], day.Year())
}

func setupLogging(config *Config) {
	if config.LogFile == "" {
		return
	}
	path := config.LogFile
	if !filepath.IsAbs(path) && configDir != "" {
		path = filepath.Join(configDir, path)
	}
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5,
		MaxBackups: 3,
		MaxAge:     90,
	}
	logOutput = io.MultiWriter(os.Stdout, rotated)
	log.SetOutput(io.MultiWriter(os.Stderr, rotated))
}

func openDB(filename string) (*sql.DB, error) {
	// Try first the same dir, where the config file was found
	db, err := sql.Open("sqlite3", filepath.Join(configDir, filename))
	if err != nil {
		// Try the current dir
		db, err = sql.Open("sqlite3", filename)
		if err != nil {
			return nil, err
		}
	}
	if err := dbInit(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func printVerbosely(verbosity int, format string, a ...interface{}) {
	// Print only if verbosity is lower or equal to verbosityLevel
	// 0 - no output, other than critical errors
	// 1 - pages and days being processed
	// 2 - events created/deleted/imported
	// 3 - rows skipped for a reason worth knowing
	// 4 - report on rows skipped silently
	// 5 - report everything
	if verbosity <= verbosityLevel {
		fmt.Fprintf(logOutput, format, a...)
	}
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
