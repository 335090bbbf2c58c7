package transport

import (
	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/session"
	"github.com/wouk1805/prepgenius/internal/voice"
)

// Client command types.
const (
	cmdStart             = "start"
	cmdSubmitText        = "submit_text"
	cmdRecordStart       = "record_start"
	cmdRecordStop        = "record_stop"
	cmdSkip              = "skip"
	cmdEnd               = "end"
	cmdReset             = "reset"
	cmdSwitchInterviewer = "switch_interviewer"
	cmdFeedback          = "feedback"
	cmdProbeVoice        = "probe_voice"
	cmdSetEngine         = "set_engine"
	cmdVoices            = "voices"
	cmdPlaybackDone      = "playback_done"
	cmdSpeakDone         = "speak_done"
)

// Server message types.
const (
	msgResult       = "result"
	msgError        = "error"
	msgCancelled    = "cancelled"
	msgEvent        = "event"
	msgPlay         = "play"
	msgStopPlayback = "stop_playback"
	msgSpeak        = "speak"
	msgCancelSpeech = "cancel_speech"
)

const (
	errorCodeUser     = "user_error"
	errorCodeInternal = "internal_error"
)

type setupPayload struct {
	Type         string              `json:"type"`
	Style        string              `json:"style"`
	Language     string              `json:"language"`
	Personas     []interview.Persona `json:"personas"`
	CV           string              `json:"cv"`
	Job          string              `json:"job"`
	Engine       string              `json:"engine"`
	VoiceEnabled *bool               `json:"voice_enabled"`
}

func (p setupPayload) toSetup() session.Setup {
	voiceEnabled := true
	if p.VoiceEnabled != nil {
		voiceEnabled = *p.VoiceEnabled
	}
	s := session.Setup{
		Type:         interview.ParseType(p.Type),
		Style:        interview.ParseQuestionStyle(p.Style),
		Personas:     p.Personas,
		CV:           p.CV,
		Job:          p.Job,
		VoiceEnabled: voiceEnabled,
	}
	if p.Language != "" {
		s.Language = interview.ParseLanguage(p.Language)
	}
	if p.Engine != "" {
		s.Engine = voice.ParseEngine(p.Engine)
	}
	return s
}

type clientMessage struct {
	Type       string                   `json:"type"`
	RequestID  string                   `json:"request_id,omitempty"`
	Setup      *setupPayload            `json:"setup,omitempty"`
	Text       string                   `json:"text,omitempty"`
	Index      int                      `json:"index,omitempty"`
	Engine     string                   `json:"engine,omitempty"`
	Frames     []feedback.FrameAnalysis `json:"frames,omitempty"`
	Voices     []voice.LocalVoice       `json:"voices,omitempty"`
	PlaybackID string                   `json:"playback_id,omitempty"`
	SpeakID    string                   `json:"speak_id,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

type serverMessage struct {
	Type       string            `json:"type"`
	RequestID  string            `json:"request_id,omitempty"`
	Code       string            `json:"code,omitempty"`
	Message    string            `json:"message,omitempty"`
	Snapshot   *session.Snapshot `json:"snapshot,omitempty"`
	Report     *feedback.Report  `json:"report,omitempty"`
	Available  *bool             `json:"available,omitempty"`
	Event      *session.Event    `json:"event,omitempty"`
	PlaybackID string            `json:"playback_id,omitempty"`
	SampleRate int               `json:"sample_rate,omitempty"`
	Samples    int               `json:"samples,omitempty"`
	SpeakID    string            `json:"speak_id,omitempty"`
	Text       string            `json:"text,omitempty"`
	Voice      *voice.LocalVoice `json:"voice,omitempty"`
	Lang       string            `json:"lang,omitempty"`
}
