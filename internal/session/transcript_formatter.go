package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/repository"
	"github.com/wouk1805/prepgenius/internal/webhook"
)

const transcriptTimeLayout = "2006-01-02 15:04:05"

func transcriptFilename(sessionID string) string {
	return fmt.Sprintf("interview-%s.txt", sessionID)
}

func buildTranscriptText(setup Setup, startedAt, endedAt time.Time, transcript []interview.Entry) []byte {
	lines := []string{
		fmt.Sprintf("Interview type: %s", setup.Type),
		fmt.Sprintf("Language: %s", setup.Language),
		fmt.Sprintf("Period: %s ~ %s (UTC)", startedAt.UTC().Format(transcriptTimeLayout), endedAt.UTC().Format(transcriptTimeLayout)),
		fmt.Sprintf("Duration: %s", formatElapsedHMS(endedAt.Sub(startedAt))),
		fmt.Sprintf("Interviewers: %s", strings.Join(interviewerNames(setup.Personas), ", ")),
		"",
	}
	for _, e := range transcript {
		lines = append(lines, fmt.Sprintf("%s: %s", speakerLabel(setup.Personas, e), e.Content))
	}
	return []byte(strings.Join(lines, "\n"))
}

func buildReportWebhookPayload(sessionID string, setup Setup, state State, startedAt, endedAt time.Time, asked, target int, transcript []interview.Entry, report *feedback.Report) webhook.ReportWebhookPayload {
	entries := make([]webhook.ReportWebhookEntry, 0, len(transcript))
	for i, e := range transcript {
		entries = append(entries, webhook.ReportWebhookEntry{
			Index:   i,
			Role:    string(e.Role),
			Content: e.Content,
			Skipped: e.Skipped(),
		})
	}
	durationSeconds := int64(endedAt.Sub(startedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return webhook.ReportWebhookPayload{
		SchemaVersion:   webhook.ReportWebhookSchemaVersion,
		SessionID:       sessionID,
		InterviewType:   string(setup.Type),
		Language:        string(setup.Language),
		Status:          string(archiveStatus(state)),
		StartAt:         startedAt.UTC().Format(time.RFC3339),
		EndAt:           endedAt.UTC().Format(time.RFC3339),
		DurationSeconds: durationSeconds,
		QuestionsAsked:  asked,
		TargetTurns:     target,
		Transcript:      entries,
		Report:          report,
	}
}

func archiveStatus(state State) repository.SessionStatus {
	switch state {
	case StateComplete:
		return repository.SessionStatusCompleted
	case StateAborted:
		return repository.SessionStatusAborted
	default:
		return repository.SessionStatusActive
	}
}

func interviewerNames(personas []interview.Persona) []string {
	names := make([]string, 0, len(personas))
	for _, p := range personas {
		names = append(names, p.DisplayName())
	}
	return names
}

func speakerLabel(personas []interview.Persona, e interview.Entry) string {
	if e.Role == interview.RoleCandidate {
		return "Candidate"
	}
	if e.Interviewer >= 0 && e.Interviewer < len(personas) {
		return personas[e.Interviewer].DisplayName()
	}
	return "Interviewer"
}

func formatElapsedHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
