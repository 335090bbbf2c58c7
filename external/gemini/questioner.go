package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wouk1805/prepgenius/internal/questioner"
)

type lineResponse struct {
	Message    string `json:"message"`
	IsComplete bool   `json:"is_complete"`
}

// Generate asks the flash model for the next interviewer line. The opening
// comes back as plain text, later lines as a JSON object.
func (c *Client) Generate(ctx context.Context, req questioner.Request) (*questioner.Response, error) {
	persona := mustJSON(req.Persona)
	cv := documentJSON(req.CV)
	job := documentJSON(req.Job)
	lang := languageInstruction(req.Language)

	var prompt string
	switch req.Kind {
	case questioner.KindOpening:
		prompt = openingPrompt(persona, cv, job, questionStyle(req.Style), lang, typeInstruction(req.Type))
	case questioner.KindClosing:
		prompt = closingPrompt(persona, historyJSON(req.History), req.LastResponse, req.TargetTurns, lang)
	default:
		prompt = followUpPrompt(persona, cv, job, historyJSON(req.History), req.LastResponse,
			req.TurnIndex+1, req.TargetTurns, followUpStyle(req.Style), lang, typeInstruction(req.Type))
	}

	text, err := c.generateText(ctx, c.flashModel, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("generate %s line: %w", req.Kind, err)
	}
	text = strings.TrimSpace(text)
	if req.Kind == questioner.KindOpening {
		return &questioner.Response{Message: text, Text: text}, nil
	}

	var parsed lineResponse
	if err := extractJSON(text, &parsed); err != nil {
		slog.Warn("question oracle returned malformed json", "error", err, "session_id", req.SessionID, "kind", req.Kind)
	}
	return &questioner.Response{Message: strings.TrimSpace(parsed.Message), Text: text}, nil
}
