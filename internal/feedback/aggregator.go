package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/metrics"
)

// defaultOracleScore replaces a sub-score the oracle left out.
const defaultOracleScore = 70

// weights are percentages so the overall score is computed exactly.
type weights struct {
	content, delivery, visual int
}

var (
	weightsWithVisual    = weights{content: 50, delivery: 30, visual: 20}
	weightsWithoutVisual = weights{content: 60, delivery: 40}
)

type Input struct {
	SessionID  string
	Transcript []interview.Entry
	Metrics    metrics.DeliveryMetrics
	Elapsed    time.Duration
	Frames     []FrameAnalysis
	CV         string
	Job        string
}

type Aggregator struct {
	generator Generator
	now       func() time.Time
}

func NewAggregator(generator Generator) *Aggregator {
	return &Aggregator{generator: generator, now: time.Now}
}

// Aggregate produces the scored report for a finished session.
func (a *Aggregator) Aggregate(ctx context.Context, in Input) (*Report, error) {
	m := in.Metrics
	m.PaceWPM = metrics.Pace(m.WordCount, in.Elapsed)
	pairs := ExtractQAPairs(in.Transcript)

	result, err := a.generator.GenerateFeedback(ctx, Request{
		SessionID: in.SessionID,
		Pairs:     pairs,
		CV:        in.CV,
		Job:       in.Job,
	})
	if err != nil {
		return nil, fmt.Errorf("generate feedback: %w", err)
	}
	if result == nil || result.Scores == nil {
		slog.Warn("feedback oracle returned no scores", "session_id", in.SessionID)
		return nil, ErrIncompleteResult
	}

	report := &Report{
		SessionID:   in.SessionID,
		Sections:    result.Sections,
		Pairs:       pairs,
		Metrics:     m,
		GeneratedAt: a.now().UTC(),
	}
	report.Scores.Content = scoreOrDefault(result.Scores.Content)
	report.Scores.Delivery = scoreOrDefault(result.Scores.Delivery)

	delivery := metrics.Analyze(m)
	report.Delivery = &delivery
	if delivery.OverallScore != 0 {
		report.Scores.Delivery = int(math.Round(float64(report.Scores.Delivery+delivery.OverallScore) / 2))
	}

	if visual := AggregateVisual(in.Frames); visual != nil {
		report.Visual = visual
		report.Scores.Visual = visual.OverallScore
	}
	report.Scores.Overall = OverallScore(report.Scores)

	slog.Info("feedback aggregated", "session_id", in.SessionID, "overall", report.Scores.Overall, "pairs", len(pairs))
	return report, nil
}

// OverallScore weights content, delivery and, when present, visual scores.
func OverallScore(s Scores) int {
	w := weightsWithoutVisual
	if s.Visual > 0 {
		w = weightsWithVisual
	}
	total := s.Content*w.content + s.Delivery*w.delivery + s.Visual*w.visual
	return (total + 50) / 100
}

// ExtractQAPairs pairs each interviewer line with the candidate line that
// follows it. Interviewer lines without an answer are dropped.
func ExtractQAPairs(transcript []interview.Entry) []QAPair {
	pairs := make([]QAPair, 0, len(transcript)/2)
	var question *string
	for _, e := range transcript {
		switch e.Role {
		case interview.RoleInterviewer:
			q := e.Content
			question = &q
		case interview.RoleCandidate:
			if question == nil {
				continue
			}
			pairs = append(pairs, QAPair{Question: *question, Answer: e.Content, Skipped: e.Skipped()})
			question = nil
		}
	}
	return pairs
}

func scoreOrDefault(v *int) int {
	if v == nil {
		return defaultOracleScore
	}
	return *v
}
