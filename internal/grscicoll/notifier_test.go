package grscicoll

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/grscicoll/ihsync/internal/sync"
)

func TestSubmitIssue(t *testing.T) {
	key := uuid.New()
	var got issuePayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/acme/registry-sync/issues" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer gh-token" {
			t.Errorf("missing token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tracker := NewIssueTracker(server.URL, "acme/registry-sync", "gh-token")
	err := tracker.SubmitIssue(context.Background(), sync.Issue{
		Title:       "Conflict for IH record 123",
		Description: "ambiguous match",
		EntityKeys:  []uuid.UUID{key},
		IRN:         "123",
	})
	if err != nil {
		t.Fatalf("SubmitIssue failed: %v", err)
	}

	if got.Title != "Conflict for IH record 123" {
		t.Errorf("unexpected title %q", got.Title)
	}
	if !strings.Contains(got.Body, key.String()) || !strings.Contains(got.Body, "IH IRN: 123") {
		t.Errorf("body must reference the entity and the IRN, got %q", got.Body)
	}
	if len(got.Labels) != 1 || got.Labels[0] != issueLabel {
		t.Errorf("unexpected labels %v", got.Labels)
	}
}

func TestSubmitIssue_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	tracker := NewIssueTracker(server.URL, "acme/registry-sync", "gh-token")
	if err := tracker.SubmitIssue(context.Background(), sync.Issue{Title: "x"}); err == nil {
		t.Fatal("expected error")
	}
}
