package capture

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/wouk1805/prepgenius/internal/transcriber"
)

const minTranscriptRunes = 2

var ErrNoSpeech = errors.New("no speech detected")

// AcceptTranscription decides whether a transcription counts as an answer.
// Rejected results must not touch delivery metrics.
func AcceptTranscription(r *transcriber.Result) error {
	if r == nil || r.IsEmpty || r.Confidence == transcriber.ConfidenceLow {
		return ErrNoSpeech
	}
	if utf8.RuneCountInString(strings.Join(strings.Fields(r.Transcript), "")) < minTranscriptRunes {
		return ErrNoSpeech
	}
	return nil
}
