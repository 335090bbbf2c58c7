package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/interview"
	"google.golang.org/genai"
)

const feedbackMaxOutputTokens = 32768

type feedbackPayload struct {
	Scores *feedback.OracleScores `json:"scores"`
	EN     *feedback.Localized    `json:"en"`
	FR     *feedback.Localized    `json:"fr"`
}

// GenerateFeedback asks the pro model for scores and a bilingual analysis.
// A response that cannot be decoded yields an empty result, which the
// aggregator rejects as incomplete.
func (c *Client) GenerateFeedback(ctx context.Context, req feedback.Request) (*feedback.OracleResult, error) {
	prompt := feedbackPrompt(pairsJSON(req.Pairs), documentJSON(req.CV), documentJSON(req.Job))
	text, err := c.generateText(ctx, c.proModel, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  feedbackMaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate feedback: %w", err)
	}

	var payload feedbackPayload
	if err := extractJSON(text, &payload); err != nil {
		slog.Warn("feedback oracle returned malformed json", "error", err, "session_id", req.SessionID)
		return &feedback.OracleResult{}, nil
	}
	result := &feedback.OracleResult{
		Scores:   payload.Scores,
		Sections: make(map[interview.Language]feedback.Localized, 2),
	}
	if payload.EN != nil {
		result.Sections[interview.LanguageEnglish] = *payload.EN
	}
	if payload.FR != nil {
		result.Sections[interview.LanguageFrench] = *payload.FR
	}
	return result, nil
}
