package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/voice"
	"google.golang.org/genai"
)

const defaultVoiceName = "Kore"

var prebuiltVoices = map[interview.VoiceParameters]string{
	{Gender: interview.GenderFemale, Style: interview.VoiceProfessional}: "Kore",
	{Gender: interview.GenderMale, Style: interview.VoiceProfessional}:   "Fenrir",
	{Gender: interview.GenderFemale, Style: interview.VoiceFriendly}:     "Leda",
	{Gender: interview.GenderMale, Style: interview.VoiceFriendly}:       "Puck",
}

var errNoAudio = errors.New("speech response carried no audio")

func prebuiltVoice(params interview.VoiceParameters) string {
	if name, ok := prebuiltVoices[params]; ok {
		return name
	}
	return defaultVoiceName
}

// Synthesize renders text with the TTS model and returns the raw PCM it
// answers with.
func (c *Client) Synthesize(ctx context.Context, text string, params interview.VoiceParameters) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("synthesize speech: empty text")
	}
	resp, err := c.generate(ctx, c.ttsModel, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: prebuiltVoice(params)},
			},
		},
	})
	if err != nil {
		if isQuotaError(err) {
			return nil, fmt.Errorf("%w: %v", voice.ErrQuotaExhausted, err)
		}
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	pcm := extractAudio(resp)
	if len(pcm) == 0 {
		return nil, errNoAudio
	}
	return pcm, nil
}
