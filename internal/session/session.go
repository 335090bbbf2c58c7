package session

import (
	"errors"

	"github.com/wouk1805/prepgenius/internal/capture"
	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/voice"
)

type State string

const (
	StateIdle       State = "idle"
	StateActive     State = "active"
	StateCompleting State = "completing"
	StateComplete   State = "complete"
	StateAborted    State = "aborted"
)

func (s State) ended() bool {
	return s == StateComplete || s == StateAborted
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidState    = errors.New("operation not allowed in current state")
	ErrBusy            = errors.New("a turn is already in progress")
	ErrNoAnswers       = errors.New("no answers to evaluate")
	ErrShuttingDown    = errors.New("session manager is shutting down")
)

// Setup is fixed for the lifetime of a session.
type Setup struct {
	Type         interview.Type
	Style        interview.QuestionStyle
	Language     interview.Language
	Personas     []interview.Persona
	CV           string
	Job          string
	Engine       voice.Engine
	VoiceEnabled bool
}

// Devices are the candidate-side audio endpoints. Any of them may be nil:
// without a Sink the generative engine cannot play, without a Microphone
// only typed answers are accepted.
type Devices struct {
	Sink       voice.AudioSink
	Speaker    voice.LocalSpeaker
	Microphone capture.Microphone
}

type Snapshot struct {
	SessionID         string                    `json:"session_id"`
	State             State                     `json:"state"`
	InterviewType     interview.Type            `json:"interview_type"`
	Language          interview.Language        `json:"language"`
	Transcript        []interview.Entry         `json:"transcript"`
	QuestionsAsked    int                       `json:"questions_asked"`
	TargetTurns       int                       `json:"target_turns"`
	Complete          bool                      `json:"is_complete"`
	ActiveInterviewer int                       `json:"active_interviewer"`
	InterviewerName   string                    `json:"interviewer_name"`
	InterviewerRole   string                    `json:"interviewer_role,omitempty"`
	Voice             interview.VoiceParameters `json:"voice"`
	Engine            voice.Engine              `json:"engine"`
	UsingFallback     bool                      `json:"using_fallback"`
	Busy              bool                      `json:"busy"`
	Speaking          bool                      `json:"speaking"`
	Recording         bool                      `json:"recording"`
	FeedbackPending   bool                      `json:"feedback_pending"`
	HasReport         bool                      `json:"has_report"`
}

type EventType string

const (
	EventLine           EventType = "line"
	EventState          EventType = "state"
	EventNotice         EventType = "notice"
	EventFeedbackReady  EventType = "feedback_ready"
	EventFeedbackFailed EventType = "feedback_failed"
)

const (
	NoticeVoiceFallback = "voice_fallback"
	NoticeSpeechFailed  = "speech_failed"
)

type Event struct {
	Type      EventType        `json:"type"`
	SessionID string           `json:"session_id"`
	Entry     *interview.Entry `json:"entry,omitempty"`
	Snapshot  *Snapshot        `json:"snapshot,omitempty"`
	Notice    string           `json:"notice,omitempty"`
	Message   string           `json:"message,omitempty"`
	Report    *feedback.Report `json:"report,omitempty"`
}

// IsUserError reports whether err describes a request the caller can fix,
// as opposed to a failure of a collaborator.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrNoAnswers) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, capture.ErrTooShort) ||
		errors.Is(err, capture.ErrNoSpeech) ||
		errors.Is(err, capture.ErrAlreadyRecording)
}
