package transcriber

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/metrics"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type Request struct {
	SessionID string
	Audio     []byte
	MIMEType  string
	Language  interview.Language
}

type Result struct {
	Transcript string                 `json:"transcript"`
	IsEmpty    bool                   `json:"is_empty"`
	Confidence Confidence             `json:"confidence"`
	Metrics    metrics.SpeechAnalysis `json:"metrics"`
}

// ErrQuotaExhausted is returned when the speech service refuses work because
// of rate limits or quota.
var ErrQuotaExhausted = errors.New("transcription quota exhausted")

type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
}

var silenceMarkers = regexp.MustCompile(`(?i)\[(SILENCE|NO SPEECH|INAUDIBLE)\]`)

const emptyMarker = "[EMPTY]"

var quotePairs = [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"«", "»"}}

// CleanTranscript removes recognizer annotations. A transcript carrying the
// empty marker is reported as no speech at all.
func CleanTranscript(raw string) string {
	if strings.Contains(strings.ToUpper(raw), emptyMarker) {
		return ""
	}
	text := strings.TrimSpace(silenceMarkers.ReplaceAllString(raw, ""))
	for _, q := range quotePairs {
		if len(text) >= len(q[0])+len(q[1]) && strings.HasPrefix(text, q[0]) && strings.HasSuffix(text, q[1]) {
			text = strings.TrimSpace(text[len(q[0]) : len(text)-len(q[1])])
		}
	}
	return text
}

// BuildResult turns a cleaned transcript into a result, analyzing it with the
// spoken filler lexicon for the language.
func BuildResult(transcript string, lang interview.Language, confidence Confidence) *Result {
	if transcript == "" {
		return &Result{IsEmpty: true, Confidence: ConfidenceLow}
	}
	lexicon, ok := metrics.SpokenFillers[string(lang)]
	if !ok {
		lexicon = metrics.SpokenFillers[string(interview.LanguageEnglish)]
	}
	return &Result{
		Transcript: transcript,
		Confidence: confidence,
		Metrics:    metrics.AnalyzeText(transcript, lexicon),
	}
}
