package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wouk1805/prepgenius/internal/capture"
	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/metrics"
	"github.com/wouk1805/prepgenius/internal/questioner"
	"github.com/wouk1805/prepgenius/internal/repository"
	"github.com/wouk1805/prepgenius/internal/transcriber"
)

// skipResponse is what the question oracle sees when the candidate skips.
const skipResponse = "[SKIP] Skip this question."

type answerSource int

const (
	answerTyped answerSource = iota
	answerSpoken
	answerSkipped
)

type candidateTurn struct {
	entry        interview.Entry
	lastResponse string
	source       answerSource
	speech       metrics.SpeechAnalysis
	submittedAt  time.Time
}

// SubmitText answers the current question with typed text.
func (m *Manager) SubmitText(ctx context.Context, sessionID, text string) (Snapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Snapshot{}, fmt.Errorf("%w: empty answer", ErrInvalidInput)
	}
	rs, op, err := m.beginTurn(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return m.advance(rs, op, candidateTurn{
		entry:        interview.Entry{Role: interview.RoleCandidate, Content: text},
		lastResponse: text,
		source:       answerTyped,
		submittedAt:  m.now(),
	})
}

// Skip records a skipped answer and moves to the next question.
func (m *Manager) Skip(ctx context.Context, sessionID string) (Snapshot, error) {
	rs, op, err := m.beginTurn(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return m.advance(rs, op, candidateTurn{
		entry:        interview.Entry{Role: interview.RoleCandidate, Content: interview.SkippedContent},
		lastResponse: skipResponse,
		source:       answerSkipped,
		submittedAt:  m.now(),
	})
}

// StartRecording silences the interviewer and opens the microphone.
func (m *Manager) StartRecording(sessionID string) error {
	rs, err := m.get(sessionID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	switch {
	case rs.recorder == nil:
		rs.mu.Unlock()
		return fmt.Errorf("%w: no microphone attached", ErrInvalidInput)
	case rs.state != StateActive:
		rs.mu.Unlock()
		return fmt.Errorf("%w: record from %s", ErrInvalidState, rs.state)
	case rs.busy:
		rs.mu.Unlock()
		return ErrBusy
	}
	rs.mu.Unlock()

	rs.facade.Stop()
	if err := rs.recorder.Start(rs.ctx); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	return nil
}

// SubmitRecording finishes the recording, transcribes it and answers the
// current question with the transcript. Rejected clips leave the session
// untouched. The turn is claimed before the microphone stops, so a session
// that cannot take an answer keeps recording.
func (m *Manager) SubmitRecording(ctx context.Context, sessionID string) (Snapshot, error) {
	rs, err := m.get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if rs.recorder == nil {
		return Snapshot{}, fmt.Errorf("%w: no microphone attached", ErrInvalidInput)
	}
	rs, op, err := m.beginTurn(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	clip, err := rs.recorder.Stop()
	if err != nil {
		rs.mu.Lock()
		rs.endOpLocked(op)
		rs.mu.Unlock()
		if errors.Is(err, capture.ErrNotRecording) {
			return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		return Snapshot{}, err
	}
	stoppedAt := m.now()

	result, err := m.transcriber.Transcribe(op.ctx, transcriber.Request{
		SessionID: sessionID,
		Audio:     clip.Audio,
		MIMEType:  clip.MIMEType,
		Language:  rs.setup.Language,
	})
	if err == nil {
		err = capture.AcceptTranscription(result)
	}
	if err != nil {
		rs.mu.Lock()
		stale := rs.staleLocked(op)
		rs.endOpLocked(op)
		rs.mu.Unlock()
		if stale {
			return Snapshot{}, context.Canceled
		}
		if errors.Is(err, capture.ErrNoSpeech) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("transcribe recording: %w", err)
	}
	slog.Info("recording transcribed", "session_id", sessionID, "duration_ms", clip.Duration.Milliseconds(), "words", result.Metrics.WordCount, "confidence", result.Confidence)

	return m.advance(rs, op, candidateTurn{
		entry:        interview.Entry{Role: interview.RoleCandidate, Content: result.Transcript},
		lastResponse: result.Transcript,
		source:       answerSpoken,
		speech:       result.Metrics,
		submittedAt:  stoppedAt,
	})
}

func (m *Manager) beginTurn(ctx context.Context, sessionID string) (*runningSession, *turnOp, error) {
	rs, err := m.get(sessionID)
	if err != nil {
		return nil, nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.state != StateActive {
		return nil, nil, fmt.Errorf("%w: answer from %s", ErrInvalidState, rs.state)
	}
	op, err := rs.beginOpLocked(ctx, m.cfg.OracleTimeout())
	if err != nil {
		return nil, nil, err
	}
	rs.facade.Stop()
	return rs, op, nil
}

// advance asks the oracle for the next line and commits the candidate answer
// together with it. Nothing is committed when the oracle fails or the
// session moved on while it was thinking.
func (m *Manager) advance(rs *runningSession, op *turnOp, turn candidateTurn) (Snapshot, error) {
	rs.mu.Lock()
	kind := questioner.KindFollowUp
	if rs.questionsAsked+1 >= rs.target {
		kind = questioner.KindClosing
	}
	history := make([]interview.Entry, 0, len(rs.transcript)+1)
	history = append(history, rs.transcript...)
	history = append(history, turn.entry)
	req := m.questionRequestLocked(rs, kind, history, turn.lastResponse)
	rs.mu.Unlock()

	resp, err := m.questions.Generate(op.ctx, req)

	rs.mu.Lock()
	if rs.staleLocked(op) {
		rs.mu.Unlock()
		slog.Info("discarding stale oracle result", "session_id", rs.id, "kind", kind)
		return Snapshot{}, context.Canceled
	}
	if err != nil {
		rs.endOpLocked(op)
		rs.mu.Unlock()
		slog.Error("failed to generate next line", "error", err, "session_id", rs.id, "kind", kind)
		return Snapshot{}, fmt.Errorf("generate %s line: %w", kind, err)
	}

	m.appendLocked(rs, turn.entry)
	switch turn.source {
	case answerTyped:
		rs.metrics.AddTyped(turn.entry.Content)
	case answerSpoken:
		rs.metrics.AddSpoken(turn.speech)
	}
	if turn.source != answerSkipped && !rs.lastLineAt.IsZero() {
		rs.metrics.AddLatency(turn.submittedAt.Sub(rs.lastLineAt))
	}
	if rs.questionsAsked < rs.target {
		rs.questionsAsked++
	}

	line := questioner.Line(kind, resp)
	entry := interview.Entry{Role: interview.RoleInterviewer, Content: line, Interviewer: rs.activeInterviewer}
	m.appendLocked(rs, entry)
	rs.lastLineAt = m.now()
	voiceParams := rs.voice
	if kind == questioner.KindClosing {
		rs.state = StateCompleting
	} else {
		rs.endOpLocked(op)
	}
	snap := rs.snapshotLocked()
	rs.mu.Unlock()

	slog.Info("turn committed", "session_id", rs.id, "questions_asked", snap.QuestionsAsked, "target_turns", snap.TargetTurns, "kind", kind)
	m.publish(rs, Event{Type: EventLine, Entry: &turn.entry})
	m.publish(rs, Event{Type: EventLine, Entry: &entry})
	if kind == questioner.KindClosing {
		m.publish(rs, Event{Type: EventState, Snapshot: &snap})
		go func() {
			m.speak(rs, line, voiceParams)
			m.complete(rs, op)
		}()
		return snap, nil
	}
	go m.speak(rs, line, voiceParams)
	return snap, nil
}

// complete finishes a session once the closing line has been spoken.
func (m *Manager) complete(rs *runningSession, op *turnOp) {
	rs.mu.Lock()
	if rs.staleLocked(op) || rs.state != StateCompleting {
		rs.mu.Unlock()
		return
	}
	rs.endOpLocked(op)
	rs.state = StateComplete
	rs.endedAt = m.now()
	m.scheduleRetireLocked(rs)
	snap := rs.snapshotLocked()
	asked, endedAt := rs.questionsAsked, rs.endedAt
	rs.mu.Unlock()

	slog.Info("session complete", "session_id", rs.id, "questions_asked", asked)
	m.persistEnd(rs.id, repository.SessionStatusCompleted, asked, endedAt)
	m.publish(rs, Event{Type: EventState, Snapshot: &snap})
}

// speak voices an interviewer line. Failures are reported to the candidate
// but never hold up the conversation.
func (m *Manager) speak(rs *runningSession, line string, params interview.VoiceParameters) {
	if !rs.setup.VoiceEnabled {
		return
	}
	res, err := rs.facade.SynthesizeAndSpeak(rs.ctx, line, params)
	if res.FallbackActivated {
		m.publish(rs, Event{Type: EventNotice, Notice: NoticeVoiceFallback, Message: noticeMessage(NoticeVoiceFallback, rs.setup.Language)})
	}
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	slog.Warn("failed to speak interviewer line", "error", err, "session_id", rs.id, "engine", res.Engine)
	m.publish(rs, Event{Type: EventNotice, Notice: NoticeSpeechFailed, Message: noticeMessage(NoticeSpeechFailed, rs.setup.Language)})
}

func (m *Manager) questionRequestLocked(rs *runningSession, kind questioner.Kind, history []interview.Entry, lastResponse string) questioner.Request {
	return questioner.Request{
		SessionID:    rs.id,
		Kind:         kind,
		Persona:      rs.personaLocked(),
		CV:           rs.setup.CV,
		Job:          rs.setup.Job,
		History:      history,
		LastResponse: lastResponse,
		TurnIndex:    rs.questionsAsked,
		TargetTurns:  rs.target,
		Style:        rs.setup.Style,
		Language:     rs.setup.Language,
		Type:         rs.setup.Type,
	}
}
