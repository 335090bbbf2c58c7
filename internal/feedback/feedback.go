package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/metrics"
)

// ErrIncompleteResult means the feedback oracle answered without the score
// structure a report needs. No report is produced.
var ErrIncompleteResult = errors.New("feedback generation returned incomplete data")

type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Skipped  bool   `json:"skipped"`
}

type Request struct {
	SessionID string
	Pairs     []QAPair
	CV        string
	Job       string
}

// OracleScores are nil when the oracle omitted them.
type OracleScores struct {
	Overall  *int `json:"overall"`
	Content  *int `json:"content"`
	Delivery *int `json:"delivery"`
}

type Improvement struct {
	Area       string `json:"area"`
	Priority   string `json:"priority"`
	Suggestion string `json:"suggestion"`
}

type QuestionFeedback struct {
	Question    string `json:"question"`
	YourAnswer  string `json:"your_answer"`
	Score       int    `json:"score"`
	Feedback    string `json:"feedback"`
	IdealAnswer string `json:"ideal_answer"`
}

type Localized struct {
	Summary          string             `json:"summary"`
	Strengths        []string           `json:"strengths"`
	Improvements     []Improvement      `json:"improvements"`
	NextSteps        []string           `json:"next_steps"`
	QuestionFeedback []QuestionFeedback `json:"question_feedback"`
}

type OracleResult struct {
	Scores   *OracleScores                    `json:"scores"`
	Sections map[interview.Language]Localized `json:"sections"`
}

type Generator interface {
	GenerateFeedback(ctx context.Context, req Request) (*OracleResult, error)
}

type Scores struct {
	Overall  int `json:"overall"`
	Content  int `json:"content"`
	Delivery int `json:"delivery"`
	Visual   int `json:"visual,omitempty"`
}

type Report struct {
	SessionID   string                           `json:"session_id"`
	Scores      Scores                           `json:"scores"`
	Sections    map[interview.Language]Localized `json:"sections"`
	Pairs       []QAPair                         `json:"qa_pairs"`
	Metrics     metrics.DeliveryMetrics          `json:"speech_metrics"`
	Delivery    *metrics.DeliveryAnalysis        `json:"delivery_analysis,omitempty"`
	Visual      *VisualSummary                   `json:"visual_analysis,omitempty"`
	GeneratedAt time.Time                        `json:"generated_at"`
}

// Localized returns the section for lang, falling back to English.
func (r *Report) Localized(lang interview.Language) Localized {
	if l, ok := r.Sections[lang]; ok {
		return l
	}
	return r.Sections[interview.LanguageEnglish]
}
