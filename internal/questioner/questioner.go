package questioner

import (
	"context"
	"strings"

	"github.com/wouk1805/prepgenius/internal/interview"
)

type Kind string

const (
	KindOpening  Kind = "opening"
	KindFollowUp Kind = "follow_up"
	KindClosing  Kind = "closing"
)

const (
	FallbackOpening  = "Hello! Tell me about yourself."
	FallbackFollowUp = "That's interesting. Can you tell me more about your experience?"
	FallbackClosing  = "Thank you for your time. Best of luck!"
)

type Request struct {
	SessionID    string
	Kind         Kind
	Persona      interview.Persona
	CV           string
	Job          string
	History      []interview.Entry
	LastResponse string
	TurnIndex    int
	TargetTurns  int
	Style        interview.QuestionStyle
	Language     interview.Language
	Type         interview.Type
}

// Response carries the parsed message and the raw oracle text used when the
// message field is missing.
type Response struct {
	Message string
	Text    string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Line picks the interviewer line to append so the conversation never
// stalls on an empty answer.
func Line(kind Kind, resp *Response) string {
	if resp != nil {
		if msg := strings.TrimSpace(resp.Message); msg != "" {
			return msg
		}
		if text := strings.TrimSpace(resp.Text); text != "" {
			return text
		}
	}
	switch kind {
	case KindOpening:
		return FallbackOpening
	case KindClosing:
		return FallbackClosing
	default:
		return FallbackFollowUp
	}
}
