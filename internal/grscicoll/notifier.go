package grscicoll

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/grscicoll/ihsync/internal/sync"
)

const issueLabel = "ih-sync"

// IssueTracker submits sync conflicts to a GitHub issue tracker for manual
// review. It implements sync.IssueNotifier.
type IssueTracker struct {
	apiURL     string
	repository string
	token      string
	httpClient *http.Client
}

// NewIssueTracker creates a tracker client. repository is "owner/name";
// apiURL defaults to the public GitHub API when empty.
func NewIssueTracker(apiURL, repository, token string) *IssueTracker {
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}
	return &IssueTracker{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		repository: repository,
		token:      token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type issuePayload struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
}

// SubmitIssue files one issue. The entity keys and IRN are appended to the
// body so reviewers can find the affected records.
func (t *IssueTracker) SubmitIssue(ctx context.Context, issue sync.Issue) error {
	var b strings.Builder
	b.WriteString(issue.Description)
	if len(issue.EntityKeys) > 0 || issue.IRN != "" {
		b.WriteString("\n---\n")
	}
	for _, key := range issue.EntityKeys {
		fmt.Fprintf(&b, "Entity: %s\n", key)
	}
	if issue.IRN != "" {
		fmt.Fprintf(&b, "IH IRN: %s\n", issue.IRN)
	}
	fmt.Fprintf(&b, "Reported: %s\n", time.Now().UTC().Format(time.RFC3339))

	payload, err := json.Marshal(issuePayload{
		Title:  issue.Title,
		Body:   b.String(),
		Labels: []string{issueLabel},
	})
	if err != nil {
		return fmt.Errorf("failed to encode issue: %w", err)
	}

	u := fmt.Sprintf("%s/repos/%s/issues", t.apiURL, t.repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
