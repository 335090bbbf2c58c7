package webhook

import (
	"context"

	"github.com/wouk1805/prepgenius/internal/feedback"
)

const ReportWebhookSchemaVersion = "1"

type ReportWebhookEntry struct {
	Index   int    `json:"index"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Skipped bool   `json:"skipped"`
}

type ReportWebhookPayload struct {
	SchemaVersion   string               `json:"schema_version"`
	SessionID       string               `json:"session_id"`
	InterviewType   string               `json:"interview_type"`
	Language        string               `json:"language"`
	Status          string               `json:"status"`
	StartAt         string               `json:"start_at"`
	EndAt           string               `json:"end_at"`
	DurationSeconds int64                `json:"duration_seconds"`
	QuestionsAsked  int                  `json:"questions_asked"`
	TargetTurns     int                  `json:"target_turns"`
	Transcript      []ReportWebhookEntry `json:"transcript"`
	Report          *feedback.Report     `json:"report"`
}

type Sender interface {
	SendReport(ctx context.Context, payload ReportWebhookPayload) error
}
