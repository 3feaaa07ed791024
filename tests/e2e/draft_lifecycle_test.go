package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"
)

const baseURL = "http://localhost:8080/api/v1"

type CreateDraftRequest struct {
	Topic    string   `json:"topic"`
	Text     string   `json:"text"`
	Author   string   `json:"author,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

type EditRequest struct {
	Text     string `json:"text"`
	Feedback string `json:"feedback,omitempty"`
}

type ScheduleRequest struct {
	Channels  []string `json:"channels,omitempty"`
	PublishAt string   `json:"publish_at,omitempty"`
	Offset    string   `json:"offset,omitempty"`
}

type Draft struct {
	ID        string   `json:"id"`
	Topic     string   `json:"topic"`
	Text      string   `json:"text"`
	Status    string   `json:"status"`
	Iteration int      `json:"iteration"`
	Channels  []string `json:"channels"`
}

type Entry struct {
	ID      string `json:"id"`
	DraftID string `json:"post_id"`
	Status  string `json:"status"`
}

type ListScheduleResponse struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}

type StatusResponse struct {
	BreakerOpen    bool     `json:"breaker_open"`
	BreakerStatus  string   `json:"breaker_status"`
	ActiveDrafts   int      `json:"active_drafts"`
	PendingEntries int      `json:"pending_entries"`
	Channels       []string `json:"channels"`
}

func postJSON(t *testing.T, path string, in, out interface{}, wantStatus int) {
	t.Helper()

	var body io.Reader
	if in != nil {
		b, _ := json.Marshal(in)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader([]byte("{}"))
	}

	resp, err := http.Post(baseURL+path, "application/json", body)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s: expected status %d, got %d: %s", path, wantStatus, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("POST %s: failed to decode response: %v", path, err)
		}
	}
}

func createTestDraft(t *testing.T, topic string) Draft {
	t.Helper()

	var d Draft
	postJSON(t, "/drafts", CreateDraftRequest{
		Topic:    topic,
		Text:     "Draft body for " + topic,
		Author:   "e2e",
		Channels: []string{"linkedin"},
	}, &d, http.StatusCreated)

	return d
}

// TestDraftLifecycle walks a draft through edit, approval and
// scheduling against a running server.
func TestDraftLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	t.Run("create and fetch", func(t *testing.T) {
		d := createTestDraft(t, "Lifecycle create #e2e")

		if d.ID == "" {
			t.Error("Expected ID to be set")
		}
		if d.Status != "pending" {
			t.Errorf("Expected status 'pending', got '%s'", d.Status)
		}

		resp, err := http.Get(fmt.Sprintf("%s/drafts/%s", baseURL, d.ID))
		if err != nil {
			t.Fatalf("Failed to fetch draft: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
	})

	t.Run("edit cap forces a decision", func(t *testing.T) {
		d := createTestDraft(t, "Lifecycle edit cap #e2e")

		// Drafts start at iteration 1 with a default cap of 3, so two
		// edits are allowed.
		for i := 1; i <= 2; i++ {
			var edited Draft
			postJSON(t, fmt.Sprintf("/drafts/%s/edit", d.ID), EditRequest{
				Text:     fmt.Sprintf("revision %d", i),
				Feedback: "tighten the opening",
			}, &edited, http.StatusOK)

			if edited.Iteration != i+1 {
				t.Errorf("Expected iteration %d, got %d", i+1, edited.Iteration)
			}
		}

		// The next edit must be refused.
		postJSON(t, fmt.Sprintf("/drafts/%s/edit", d.ID), EditRequest{
			Text: "one revision too many",
		}, nil, http.StatusConflict)

		// Approval is still legal at the cap.
		var approved Draft
		postJSON(t, fmt.Sprintf("/drafts/%s/approve", d.ID), nil, &approved, http.StatusOK)
		if approved.Status != "approved" {
			t.Errorf("Expected status 'approved', got '%s'", approved.Status)
		}
	})

	t.Run("schedule and cancel", func(t *testing.T) {
		d := createTestDraft(t, "Lifecycle schedule #e2e")

		var approved Draft
		postJSON(t, fmt.Sprintf("/drafts/%s/approve", d.ID), nil, &approved, http.StatusOK)

		publishAt := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
		var entry Entry
		postJSON(t, fmt.Sprintf("/drafts/%s/schedule", d.ID), ScheduleRequest{
			PublishAt: publishAt,
		}, &entry, http.StatusCreated)

		if entry.Status != "scheduled" {
			t.Errorf("Expected entry status 'scheduled', got '%s'", entry.Status)
		}
		if entry.DraftID != d.ID {
			t.Errorf("Expected entry for draft %s, got %s", d.ID, entry.DraftID)
		}

		resp, err := http.Get(baseURL + "/schedule")
		if err != nil {
			t.Fatalf("Failed to list schedule: %v", err)
		}
		defer resp.Body.Close()

		var list ListScheduleResponse
		if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
			t.Fatalf("Failed to decode schedule list: %v", err)
		}
		if list.Total == 0 {
			t.Error("Expected at least one pending entry")
		}

		req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/schedule/%s", baseURL, entry.ID), nil)
		delResp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Failed to cancel entry: %v", err)
		}
		defer delResp.Body.Close()

		if delResp.StatusCode != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", delResp.StatusCode)
		}
	})

	t.Run("scheduling an unapproved draft is refused", func(t *testing.T) {
		d := createTestDraft(t, "Lifecycle unapproved #e2e")

		postJSON(t, fmt.Sprintf("/drafts/%s/schedule", d.ID), ScheduleRequest{
			Offset: "1h",
		}, nil, http.StatusConflict)
	})
}

// TestStatusEndpoint verifies the operational snapshot and the manual
// breaker reset.
func TestStatusEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	resp, err := http.Get(baseURL + "/status")
	if err != nil {
		t.Fatalf("Failed to fetch status: %v", err)
	}
	defer resp.Body.Close()

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.BreakerStatus == "" {
		t.Error("Expected breaker_status to be set")
	}

	postJSON(t, "/breaker/reset", nil, nil, http.StatusOK)
}
