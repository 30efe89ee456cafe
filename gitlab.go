package main

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/xanzy/go-gitlab"
)

// IssueTracker logs time spent on an issue.
type IssueTracker interface {
	// AddTimeSpent reports found=false when the issue does not exist.
	AddTimeSpent(ctx context.Context, projectID string, issueIID int, hours float64) (found bool, err error)
}

type GitLabTracker struct {
	client *gitlab.Client
}

func NewGitLabTracker(config GitLabConfig) (*GitLabTracker, error) {
	var opts []gitlab.ClientOptionFunc
	if config.URL != "" {
		opts = append(opts, gitlab.WithBaseURL(config.URL))
	}
	client, err := gitlab.NewClient(config.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	return &GitLabTracker{client: client}, nil
}

// AddTimeSpent posts a "/spend" quick action note on the issue.
func (g *GitLabTracker) AddTimeSpent(ctx context.Context, projectID string, issueIID int, hours float64) (bool, error) {
	body := "/spend " + formatSpent(hours)
	_, resp, err := g.client.Notes.CreateIssueNote(projectID, issueIID, &gitlab.CreateIssueNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to add spent time on %s#%d: %w", projectID, issueIID, err)
	}
	return true, nil
}

// formatSpent renders hours as a GitLab duration, e.g. 1.5 → "1h30m".
func formatSpent(hours float64) string {
	minutes := int(math.Round(hours * 60))
	h, m := minutes/60, minutes%60
	switch {
	case m == 0:
		return fmt.Sprintf("%dh", h)
	case h == 0:
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}
