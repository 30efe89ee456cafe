package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/sheets/v4"
)

// scopeSet names a group of oauth scopes sharing one stored token.
type scopeSet struct {
	tokenName string
	scopes    []string
}

var (
	calendarScopes = scopeSet{tokenName: "calendars-token", scopes: []string{calendar.CalendarScope}}
	sheetScopes    = scopeSet{tokenName: "sheets-token", scopes: []string{sheets.SpreadsheetsScope}}
)

// session hands out authenticated HTTP clients for one run. Tokens live in
// the local database and are refreshed transparently.
type session struct {
	config *Config
	db     *sql.DB

	clients map[string]*http.Client
}

func newSession(config *Config, db *sql.DB) *session {
	return &session{config: config, db: db, clients: make(map[string]*http.Client)}
}

func (s *session) oauthConfig(scopes []string) (*oauth2.Config, error) {
	if s.config.CredentialsFile != "" {
		path := s.config.CredentialsFile
		if !filepath.IsAbs(path) && configDir != "" {
			path = filepath.Join(configDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return google.ConfigFromJSON(data, scopes...)
	}
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id/client_secret or credentials_file", errMissingSetting)
	}
	return &oauth2.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://localhost",
		Scopes:       scopes,
	}, nil
}

// client returns the HTTP client for a scope set, creating it at most once
// per session.
func (s *session) client(ctx context.Context, set scopeSet) (*http.Client, error) {
	if c, ok := s.clients[set.tokenName]; ok {
		return c, nil
	}
	oauthConfig, err := s.oauthConfig(set.scopes)
	if err != nil {
		return nil, err
	}

	token, err := s.loadToken(set)
	if err != nil {
		return nil, err
	}
	if token == nil {
		fmt.Printf("  ❗️ No token found for %s. Obtaining a new token.\n", set.tokenName)
		token, err = getTokenFromWeb(ctx, oauthConfig)
		if err != nil {
			return nil, err
		}
		if err := s.saveToken(set, token); err != nil {
			return nil, err
		}
	}

	src := &storedTokenSource{
		base:    oauthConfig.TokenSource(ctx, token),
		session: s,
		set:     set,
		last:    token.AccessToken,
	}
	if _, err := src.Token(); err != nil {
		if !isTokenRevoked(err) {
			return nil, fmt.Errorf("error retrieving token for %s: %w", set.tokenName, err)
		}
		fmt.Printf("  ❗️ Token expired or revoked for %s. Obtaining a new token.\n", set.tokenName)
		token, err = getTokenFromWeb(ctx, oauthConfig)
		if err != nil {
			return nil, err
		}
		if err := s.saveToken(set, token); err != nil {
			return nil, err
		}
		src.base = oauthConfig.TokenSource(ctx, token)
		src.last = token.AccessToken
	}

	c := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, src))
	s.clients[set.tokenName] = c
	return c, nil
}

// isTokenRevoked reports whether the authorization server refused the
// refresh token, so a new consent is needed.
func isTokenRevoked(err error) bool {
	var rerr *oauth2.RetrieveError
	return errors.As(err, &rerr) && rerr.ErrorCode == "invalid_grant"
}

func (s *session) loadToken(set scopeSet) (*oauth2.Token, error) {
	var tokenJSON []byte
	var scopes string
	err := s.db.QueryRow("SELECT token, scopes FROM tokens WHERE token_name = ?", set.tokenName).Scan(&tokenJSON, &scopes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving token from database: %w", err)
	}
	if scopes != strings.Join(set.scopes, " ") {
		// Scopes changed since the token was granted.
		return nil, nil
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("error unmarshaling token: %w", err)
	}
	return &token, nil
}

func (s *session) saveToken(set scopeSet, token *oauth2.Token) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("INSERT OR REPLACE INTO tokens (token_name, scopes, token) VALUES (?, ?, ?)",
		set.tokenName, strings.Join(set.scopes, " "), tokenJSON)
	if err != nil {
		return fmt.Errorf("error saving token: %w", err)
	}
	return nil
}

// storedTokenSource persists every refreshed token.
type storedTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	session *session
	set     scopeSet
	last    string
}

func (ts *storedTokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	token, err := ts.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != ts.last {
		printVerbosely(5, "Token refreshed for %s.\n", ts.set.tokenName)
		if err := ts.session.saveToken(ts.set, token); err != nil {
			return nil, err
		}
		ts.last = token.AccessToken
	}
	return token, nil
}

func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser, authorize the access, then type the "+
		"\"code\" parameter of the page you are redirected to: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}
