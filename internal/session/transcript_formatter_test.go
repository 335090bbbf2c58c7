package session

import (
	"strings"
	"testing"
	"time"

	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/metrics"
	"github.com/wouk1805/prepgenius/internal/repository"
	"github.com/wouk1805/prepgenius/internal/webhook"
)

func TestBuildTranscriptText(t *testing.T) {
	startedAt := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	endedAt := startedAt.Add(75 * time.Second)
	setup := Setup{
		Type:     interview.TypeBehavioral,
		Language: interview.LanguageEnglish,
		Personas: []interview.Persona{{Name: "maria o'brien"}, {Name: "tom mcallister"}},
	}
	transcript := []interview.Entry{
		{Role: interview.RoleInterviewer, Content: "Tell me about yourself.", Interviewer: 0},
		{Role: interview.RoleCandidate, Content: "I build backends."},
		{Role: interview.RoleInterviewer, Content: "Why this role?", Interviewer: 1},
		{Role: interview.RoleCandidate, Content: interview.SkippedContent},
	}

	body := string(buildTranscriptText(setup, startedAt, endedAt, transcript))

	for _, want := range []string{
		"Interview type: behavioral",
		"Period: 2026-02-28 12:00:00 ~ 2026-02-28 12:01:15 (UTC)",
		"Duration: 00:01:15",
		"Interviewers: Maria O'Brien, Tom McAllister",
		"Maria O'Brien: Tell me about yourself.",
		"Candidate: I build backends.",
		"Tom McAllister: Why this role?",
		"Candidate: [SKIPPED]",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("%q not found in body: %s", want, body)
		}
	}
}

func TestBuildReportWebhookPayload(t *testing.T) {
	startedAt := time.Date(2026, 2, 28, 19, 0, 0, 0, time.UTC)
	endedAt := startedAt.Add(10 * time.Minute)
	transcript := []interview.Entry{
		{Role: interview.RoleInterviewer, Content: "Hello! Tell me about yourself."},
		{Role: interview.RoleCandidate, Content: interview.SkippedContent},
	}
	report := &feedback.Report{SessionID: "session-1"}

	payload := buildReportWebhookPayload("session-1", Setup{
		Type:     interview.TypeQuick,
		Language: interview.LanguageFrench,
	}, StateAborted, startedAt, endedAt, 1, 3, transcript, report)

	if payload.SchemaVersion != webhook.ReportWebhookSchemaVersion {
		t.Fatalf("unexpected schema_version: %s", payload.SchemaVersion)
	}
	if payload.Status != string(repository.SessionStatusAborted) {
		t.Fatalf("unexpected status: %s", payload.Status)
	}
	if payload.InterviewType != "quick" || payload.Language != "fr" {
		t.Fatalf("unexpected setup fields: %s %s", payload.InterviewType, payload.Language)
	}
	if payload.DurationSeconds != 600 {
		t.Fatalf("unexpected duration: %d", payload.DurationSeconds)
	}
	if payload.StartAt != "2026-02-28T19:00:00Z" || payload.EndAt != "2026-02-28T19:10:00Z" {
		t.Fatalf("unexpected period: %s ~ %s", payload.StartAt, payload.EndAt)
	}
	if payload.QuestionsAsked != 1 || payload.TargetTurns != 3 {
		t.Fatalf("unexpected progress: %d/%d", payload.QuestionsAsked, payload.TargetTurns)
	}
	if len(payload.Transcript) != 2 {
		t.Fatalf("unexpected transcript length: %d", len(payload.Transcript))
	}
	if payload.Transcript[0].Skipped || !payload.Transcript[1].Skipped || payload.Transcript[1].Index != 1 {
		t.Fatalf("unexpected transcript entries: %+v", payload.Transcript)
	}
	if payload.Report != report {
		t.Fatal("report was not attached")
	}
}

func TestBuildReportWebhookPayload_ClampsNegativeDuration(t *testing.T) {
	startedAt := time.Date(2026, 2, 28, 19, 0, 0, 0, time.UTC)
	payload := buildReportWebhookPayload("s", Setup{}, StateComplete, startedAt, startedAt.Add(-time.Second), 0, 5, nil, nil)
	if payload.DurationSeconds != 0 {
		t.Fatalf("expected clamped duration, got %d", payload.DurationSeconds)
	}
	if payload.Status != string(repository.SessionStatusCompleted) {
		t.Fatalf("unexpected status: %s", payload.Status)
	}
}

func TestFormatElapsedHMS(t *testing.T) {
	cases := map[time.Duration]string{
		-time.Second:                  "00:00:00",
		59 * time.Second:              "00:00:59",
		time.Hour + 2*time.Minute + 3: "01:02:00",
	}
	for in, want := range cases {
		if got := formatElapsedHMS(in); got != want {
			t.Errorf("formatElapsedHMS(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildReportSummary_ListsTopFillers(t *testing.T) {
	report := &feedback.Report{
		Scores: feedback.Scores{Overall: 74, Content: 80, Delivery: 65},
		Metrics: metrics.DeliveryMetrics{
			FillerBreakdown: map[string]int{"um": 4, "like": 2, "uh": 2, "basically": 1},
		},
		Delivery: &metrics.DeliveryAnalysis{
			Pace:    metrics.PaceAnalysis{WPM: 142, Assessment: metrics.PaceExcellent},
			Fillers: metrics.FillerAnalysis{Count: 9},
		},
	}

	body := buildReportSummary(Setup{Type: interview.TypeTechnical, Language: interview.LanguageEnglish}, 5, 5, report)

	if !strings.Contains(body, "Overall **74** · Content 80 · Delivery 65") {
		t.Fatalf("score line not found in body: %s", body)
	}
	if !strings.Contains(body, "Pace 142 wpm (Excellent) · Fillers 9 (um ×4, like ×2, uh ×2)") {
		t.Fatalf("pace line not found in body: %s", body)
	}
	if strings.Contains(body, "basically") {
		t.Fatalf("expected only the top fillers: %s", body)
	}
}
