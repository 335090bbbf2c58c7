package gemini

import (
	"context"
	"fmt"

	"github.com/wouk1805/prepgenius/internal/transcriber"
	"google.golang.org/genai"
)

const defaultAudioMIMEType = "audio/wav"

// Transcribe sends the clip inline with the transcription prompt. The flash
// model gives no confidence score, so every non-empty transcript is medium.
func (c *Client) Transcribe(ctx context.Context, req transcriber.Request) (*transcriber.Result, error) {
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = defaultAudioMIMEType
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Audio, mimeType),
			genai.NewPartFromText(transcriptionPrompt),
		}, genai.RoleUser),
	}
	resp, err := c.generate(ctx, c.flashModel, contents, nil)
	if err != nil {
		if isQuotaError(err) {
			return nil, fmt.Errorf("%w: %v", transcriber.ErrQuotaExhausted, err)
		}
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}
	return transcriber.BuildResult(transcriber.CleanTranscript(extractText(resp)), req.Language, transcriber.ConfidenceMedium), nil
}
