package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wouk1805/prepgenius/internal/discord"
	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/repository"
	"github.com/wouk1805/prepgenius/internal/webhook"
)

// GenerateFeedback scores a finished session. The report is cached, so a
// second call returns the same report without asking the oracle again.
// Results that arrive after a reset are dropped.
func (m *Manager) GenerateFeedback(ctx context.Context, sessionID string, frames []feedback.FrameAnalysis) (*feedback.Report, error) {
	rs, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	if !rs.state.ended() {
		rs.mu.Unlock()
		return nil, fmt.Errorf("%w: feedback from %s", ErrInvalidState, rs.state)
	}
	if rs.report != nil {
		report := rs.report
		rs.mu.Unlock()
		return report, nil
	}
	if rs.feedbackPending {
		rs.mu.Unlock()
		return nil, ErrBusy
	}
	if !hasAnswers(rs.transcript) {
		rs.mu.Unlock()
		return nil, ErrNoAnswers
	}
	rs.feedbackRuns++
	rs.feedbackPending = true
	run, generation := rs.feedbackRuns, rs.generation
	elapsed := rs.endedAt.Sub(rs.startedAt)
	input := feedback.Input{
		SessionID:  rs.id,
		Transcript: append([]interview.Entry(nil), rs.transcript...),
		Metrics:    rs.metrics.Snapshot(elapsed),
		Elapsed:    elapsed,
		Frames:     frames,
		CV:         rs.setup.CV,
		Job:        rs.setup.Job,
	}
	rs.mu.Unlock()

	slog.Info("feedback generation started", "session_id", sessionID, "run", run)
	ctx, cancel := context.WithTimeout(ctx, m.cfg.OracleTimeout())
	defer cancel()
	defer m.settle(rs)
	report, err := m.aggregator.Aggregate(ctx, input)

	rs.mu.Lock()
	if rs.generation != generation || rs.feedbackRuns != run {
		rs.mu.Unlock()
		slog.Info("discarding stale feedback result", "session_id", sessionID, "run", run)
		return nil, context.Canceled
	}
	rs.feedbackPending = false
	if err != nil {
		rs.mu.Unlock()
		slog.Error("failed to generate feedback", "error", err, "session_id", sessionID)
		m.publish(rs, Event{Type: EventFeedbackFailed, Message: err.Error()})
		return nil, err
	}
	rs.report = report
	payload := buildReportWebhookPayload(rs.id, rs.setup, rs.state, rs.startedAt, rs.endedAt, rs.questionsAsked, rs.target, rs.transcript, report)
	summary := buildReportSummary(rs.setup, rs.questionsAsked, rs.target, report)
	transcriptBody := buildTranscriptText(rs.setup, rs.startedAt, rs.endedAt, rs.transcript)
	rs.mu.Unlock()

	m.publish(rs, Event{Type: EventFeedbackReady, Report: report})
	m.finalizeReport(rs.id, report, payload, summary, transcriptBody)
	return report, nil
}

// GetReport returns the cached report, falling back to the archive for
// sessions this process no longer holds.
func (m *Manager) GetReport(ctx context.Context, sessionID string) (*feedback.Report, error) {
	if rs, err := m.get(sessionID); err == nil {
		rs.mu.Lock()
		report := rs.report
		rs.mu.Unlock()
		if report != nil {
			return report, nil
		}
	}
	stored, err := m.repo.GetReport(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: no report for %s", ErrSessionNotFound, sessionID)
	}
	var report feedback.Report
	if err := json.Unmarshal(stored.ReportJSON, &report); err != nil {
		return nil, fmt.Errorf("decode stored report: %w", err)
	}
	return &report, nil
}

// finalizeReport archives the report and pushes it to the configured
// delivery channels. Delivery failures are logged only.
func (m *Manager) finalizeReport(sessionID string, report *feedback.Report, payload webhook.ReportWebhookPayload, summary string, transcriptBody []byte) {
	body, err := json.Marshal(report)
	if err != nil {
		slog.Error("failed to encode report", "error", err, "session_id", sessionID)
		return
	}
	m.persist("save_report", sessionID, func(ctx context.Context) error {
		return m.repo.SaveReport(ctx, repository.SaveReportInput{
			SessionID:     sessionID,
			OverallScore:  report.Scores.Overall,
			ContentScore:  report.Scores.Content,
			DeliveryScore: report.Scores.Delivery,
			VisualScore:   report.Scores.Visual,
			ReportJSON:    body,
			GeneratedAt:   report.GeneratedAt,
		})
	})
	m.persist("send_report_webhook", sessionID, func(ctx context.Context) error {
		return m.webhook.SendReport(ctx, payload)
	})
	if m.discord == nil || !m.discord.Enabled() {
		return
	}
	m.persist("post_report_discord", sessionID, func(ctx context.Context) error {
		return m.discord.SendChannelMessageWithFile(discord.FileMessage{
			ChannelID: m.cfg.DiscordReportChannelID,
			Content:   summary,
			Filename:  transcriptFilename(sessionID),
			FileBody:  transcriptBody,
		})
	})
}

func hasAnswers(transcript []interview.Entry) bool {
	for _, e := range transcript {
		if e.Role == interview.RoleCandidate {
			return true
		}
	}
	return false
}
