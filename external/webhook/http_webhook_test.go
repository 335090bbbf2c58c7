package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/webhook"
)

func testPayload() webhook.ReportWebhookPayload {
	return webhook.ReportWebhookPayload{
		SchemaVersion:  webhook.ReportWebhookSchemaVersion,
		SessionID:      "session-1",
		InterviewType:  "quick",
		Language:       "en",
		Status:         "completed",
		QuestionsAsked: 3,
		TargetTurns:    3,
		Transcript: []webhook.ReportWebhookEntry{
			{Index: 0, Role: "interviewer", Content: "Tell me about yourself."},
			{Index: 1, Role: "candidate", Content: "[SKIPPED]", Skipped: true},
		},
		Report: &feedback.Report{SessionID: "session-1", Scores: feedback.Scores{Overall: 78, Content: 80, Delivery: 74}},
	}
}

func TestSendReport_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendReport(context.Background(), testPayload()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendReport_Success(t *testing.T) {
	var got webhook.ReportWebhookPayload
	var gotVersion string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type: %s", ct)
		}
		gotVersion = r.Header.Get(schemaVersionHeader)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendReport(context.Background(), testPayload()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if gotVersion != webhook.ReportWebhookSchemaVersion {
		t.Fatalf("unexpected schema header: %q", gotVersion)
	}
	if got.SessionID != "session-1" || got.Report == nil || got.Report.Scores.Overall != 78 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if len(got.Transcript) != 2 || !got.Transcript[1].Skipped {
		t.Fatalf("unexpected transcript: %+v", got.Transcript)
	}
}

func TestSendReport_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	err := sender.SendReport(context.Background(), testPayload())
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "bad payload") {
		t.Fatalf("unexpected error: %v", err)
	}
}
