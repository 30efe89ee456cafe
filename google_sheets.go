package main

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Spreadsheet reads and writes pages of the controller sheet.
type Spreadsheet interface {
	Pages(ctx context.Context) ([]string, error)
	HeaderIndex(ctx context.Context, page string) (map[string]int, error)
	// Rows returns the unformatted data rows below the header line.
	Rows(ctx context.Context, page string) ([][]interface{}, error)
	// ColumnValues returns the cells of a named column, formulas unrendered.
	ColumnValues(ctx context.Context, page string, column string) ([]string, error)
	Values(ctx context.Context, page string, rng string) ([][]interface{}, error)
	UpdateCell(ctx context.Context, page string, cell string, value string) error
	UpdateFormula(ctx context.Context, page string, cell string, formula string) error
	BatchClear(ctx context.Context, page string, cells []string) error
	AppendRow(ctx context.Context, page string, values []interface{}) error
}

type GoogleSheets struct {
	service    *sheets.Service
	documentID string
}

func NewGoogleSheets(ctx context.Context, client *http.Client, documentID string) (*GoogleSheets, error) {
	service, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &GoogleSheets{service: service, documentID: documentID}, nil
}

func a1(page, rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(page, "'", "''"), rng)
}

func (g *GoogleSheets) Pages(ctx context.Context) ([]string, error) {
	doc, err := g.service.Spreadsheets.Get(g.documentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	var pages []string
	for _, s := range doc.Sheets {
		if s.Properties != nil {
			pages = append(pages, s.Properties.Title)
		}
	}
	return pages, nil
}

func (g *GoogleSheets) HeaderIndex(ctx context.Context, page string) (map[string]int, error) {
	resp, err := g.service.Spreadsheets.Values.Get(g.documentID, a1(page, "A1:ZZ1")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read headers of %s: %w", page, err)
	}
	headers := make(map[string]int)
	if len(resp.Values) == 0 {
		return headers, nil
	}
	for i, v := range resp.Values[0] {
		name := cellText(v)
		if name == "" {
			continue
		}
		if _, dup := headers[name]; !dup {
			headers[name] = i
		}
	}
	return headers, nil
}

func (g *GoogleSheets) Rows(ctx context.Context, page string) ([][]interface{}, error) {
	resp, err := g.service.Spreadsheets.Values.Get(g.documentID, a1(page, "A2:ZZ")).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", page, err)
	}
	return resp.Values, nil
}

func (g *GoogleSheets) ColumnValues(ctx context.Context, page string, column string) ([]string, error) {
	headers, err := g.HeaderIndex(ctx, page)
	if err != nil {
		return nil, err
	}
	idx, ok := headers[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", errMissingHeader, column, page)
	}
	letter := columnLetter(idx)
	resp, err := g.service.Spreadsheets.Values.Get(g.documentID, a1(page, letter+"2:"+letter)).
		ValueRenderOption("FORMULA").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read column %s of %s: %w", column, page, err)
	}
	values := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			values = append(values, "")
			continue
		}
		values = append(values, cellText(row[0]))
	}
	return values, nil
}

func (g *GoogleSheets) Values(ctx context.Context, page string, rng string) ([][]interface{}, error) {
	resp, err := g.service.Spreadsheets.Values.Get(g.documentID, a1(page, rng)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s of %s: %w", rng, page, err)
	}
	return resp.Values, nil
}

func (g *GoogleSheets) update(ctx context.Context, page, cell string, value interface{}, inputOption string) error {
	body := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := g.service.Spreadsheets.Values.Update(g.documentID, a1(page, cell), body).
		ValueInputOption(inputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update %s of %s: %w", cell, page, err)
	}
	return nil
}

func (g *GoogleSheets) UpdateCell(ctx context.Context, page string, cell string, value string) error {
	return g.update(ctx, page, cell, value, "RAW")
}

func (g *GoogleSheets) UpdateFormula(ctx context.Context, page string, cell string, formula string) error {
	return g.update(ctx, page, cell, formula, "USER_ENTERED")
}

func (g *GoogleSheets) BatchClear(ctx context.Context, page string, cells []string) error {
	req := &sheets.BatchClearValuesRequest{}
	for _, c := range cells {
		req.Ranges = append(req.Ranges, a1(page, c))
	}
	_, err := g.service.Spreadsheets.Values.BatchClear(g.documentID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear cells of %s: %w", page, err)
	}
	return nil
}

func (g *GoogleSheets) AppendRow(ctx context.Context, page string, values []interface{}) error {
	body := &sheets.ValueRange{Values: [][]interface{}{values}}
	_, err := g.service.Spreadsheets.Values.Append(g.documentID, a1(page, "A1"), body).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", page, err)
	}
	return nil
}

var hyperlinkRe = regexp.MustCompile(`(?i)^=HYPERLINK\(\s*"([^"]*)"`)

func hyperlinkFormula(link string) string {
	return fmt.Sprintf(`=HYPERLINK("%s";"open")`, link)
}

// linkTarget returns the URL of a Link cell, unwrapping HYPERLINK formulas.
func linkTarget(cell string) string {
	if m := hyperlinkRe.FindStringSubmatch(cell); m != nil {
		return m[1]
	}
	return cell
}

// calendarEntry is one line of the calendars config page.
type calendarEntry struct {
	ID     string
	Alias  string
	Linked bool
}

type calendarDirectory []calendarEntry

// loadCalendars reads id, alias and linked flag from the calendars page.
func loadCalendars(ctx context.Context, sheet Spreadsheet, page string) (calendarDirectory, error) {
	values, err := sheet.Values(ctx, page, "A2:C")
	if err != nil {
		return nil, err
	}
	var dir calendarDirectory
	for _, row := range values {
		if len(row) < 2 {
			continue
		}
		entry := calendarEntry{ID: cellText(row[0]), Alias: cellText(row[1])}
		if entry.ID == "" || entry.Alias == "" {
			continue
		}
		if len(row) > 2 {
			entry.Linked = cellBool(row[2])
		}
		dir = append(dir, entry)
	}
	return dir, nil
}

// byAlias maps aliases to calendar ids; the first line wins.
func (d calendarDirectory) byAlias() map[string]string {
	m := make(map[string]string, len(d))
	for _, e := range d {
		if _, ok := m[e.Alias]; !ok {
			m[e.Alias] = e.ID
		}
	}
	return m
}

// byID maps calendar ids to their entry; the first line wins.
func (d calendarDirectory) byID() map[string]calendarEntry {
	m := make(map[string]calendarEntry, len(d))
	for _, e := range d {
		if _, ok := m[e.ID]; !ok {
			m[e.ID] = e
		}
	}
	return m
}

// loadProjects reads alias and GitLab project id from the projects page.
func loadProjects(ctx context.Context, sheet Spreadsheet, page string) (map[string]string, error) {
	values, err := sheet.Values(ctx, page, "A2:B")
	if err != nil {
		return nil, err
	}
	projects := make(map[string]string, len(values))
	for _, row := range values {
		if len(row) < 2 {
			continue
		}
		alias, id := cellText(row[0]), cellText(row[1])
		if alias != "" && id != "" {
			projects[alias] = id
		}
	}
	return projects, nil
}
