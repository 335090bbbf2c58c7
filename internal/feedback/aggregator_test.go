package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/metrics"
)

type mockGenerator struct {
	result *OracleResult
	err    error
	req    Request
}

func (m *mockGenerator) GenerateFeedback(_ context.Context, req Request) (*OracleResult, error) {
	m.req = req
	return m.result, m.err
}

func intPtr(v int) *int { return &v }

func sampleTranscript() []interview.Entry {
	return []interview.Entry{
		{Role: interview.RoleInterviewer, Content: "Tell me about yourself."},
		{Role: interview.RoleCandidate, Content: "I build backends."},
		{Role: interview.RoleInterviewer, Content: "Describe a conflict."},
		{Role: interview.RoleCandidate, Content: interview.SkippedContent},
		{Role: interview.RoleInterviewer, Content: "Thanks, goodbye."},
	}
}

func TestExtractQAPairs(t *testing.T) {
	pairs := ExtractQAPairs(sampleTranscript())
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Question != "Tell me about yourself." || pairs[0].Answer != "I build backends." || pairs[0].Skipped {
		t.Fatalf("unexpected first pair: %+v", pairs[0])
	}
	if !pairs[1].Skipped || pairs[1].Answer != interview.SkippedContent {
		t.Fatalf("expected skipped second pair: %+v", pairs[1])
	}
}

func TestAggregate_BlendsDeliveryWithoutVisual(t *testing.T) {
	gen := &mockGenerator{result: &OracleResult{
		Scores: &OracleScores{Overall: intPtr(10), Content: intPtr(80), Delivery: intPtr(70)},
		Sections: map[interview.Language]Localized{
			interview.LanguageEnglish: {Summary: "Solid"},
			interview.LanguageFrench:  {Summary: "Solide"},
		},
	}}
	agg := NewAggregator(gen)
	agg.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	report, err := agg.Aggregate(context.Background(), Input{
		SessionID:  "s1",
		Transcript: sampleTranscript(),
		Metrics:    metrics.DeliveryMetrics{WordCount: 150, FillerCount: 6},
		Elapsed:    time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Metrics.PaceWPM != 150 {
		t.Fatalf("expected 150 wpm, got %d", report.Metrics.PaceWPM)
	}
	if report.Delivery.OverallScore != 78 {
		t.Fatalf("expected local delivery 78, got %d", report.Delivery.OverallScore)
	}
	// delivery = round((70+78)/2) = 74, overall = round(80*0.6 + 74*0.4) = 78
	if report.Scores.Delivery != 74 {
		t.Fatalf("expected blended delivery 74, got %d", report.Scores.Delivery)
	}
	if report.Scores.Overall != 78 {
		t.Fatalf("expected overall 78, got %d", report.Scores.Overall)
	}
	if report.Visual != nil || report.Scores.Visual != 0 {
		t.Fatal("expected no visual data")
	}
	if len(gen.req.Pairs) != 2 || gen.req.SessionID != "s1" {
		t.Fatalf("unexpected oracle request: %+v", gen.req)
	}
	if report.Localized(interview.LanguageFrench).Summary != "Solide" {
		t.Fatal("expected French section")
	}
	if !report.GeneratedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected generated_at: %v", report.GeneratedAt)
	}
}

func TestAggregate_WithVisualAndDefaults(t *testing.T) {
	gen := &mockGenerator{result: &OracleResult{Scores: &OracleScores{}}}
	report, err := NewAggregator(gen).Aggregate(context.Background(), Input{
		Transcript: sampleTranscript(),
		Metrics:    metrics.DeliveryMetrics{WordCount: 140, FillerCount: 0},
		Elapsed:    time.Minute,
		Frames: []FrameAnalysis{
			{EyeContactScore: intPtr(80), ConfidenceScore: intPtr(60), Posture: PostureGood},
			{EyeContactScore: intPtr(60), ConfidenceScore: intPtr(80), Posture: "slouching"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Scores.Content != 70 {
		t.Fatalf("expected default content 70, got %d", report.Scores.Content)
	}
	// local delivery = 100, blended = round((70+100)/2) = 85
	if report.Scores.Delivery != 85 {
		t.Fatalf("expected delivery 85, got %d", report.Scores.Delivery)
	}
	if report.Scores.Visual != 70 {
		t.Fatalf("expected visual 70, got %d", report.Scores.Visual)
	}
	// round(70*0.5 + 85*0.3 + 70*0.2) = round(74.5) = 75
	if report.Scores.Overall != 75 {
		t.Fatalf("expected overall 75, got %d", report.Scores.Overall)
	}
	if report.Visual.Posture != PostureGood {
		t.Fatalf("expected tie to count as good posture, got %s", report.Visual.Posture)
	}
}

func TestAggregate_MissingScoresFails(t *testing.T) {
	gen := &mockGenerator{result: &OracleResult{Sections: map[interview.Language]Localized{}}}
	report, err := NewAggregator(gen).Aggregate(context.Background(), Input{Transcript: sampleTranscript()})
	if !errors.Is(err, ErrIncompleteResult) {
		t.Fatalf("expected ErrIncompleteResult, got %v", err)
	}
	if report != nil {
		t.Fatal("no report may be produced")
	}
}

func TestAggregate_OracleErrorWrapped(t *testing.T) {
	cause := errors.New("network down")
	_, err := NewAggregator(&mockGenerator{err: cause}).Aggregate(context.Background(), Input{})
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestOverallScore(t *testing.T) {
	if got := OverallScore(Scores{Content: 90, Delivery: 60}); got != 78 {
		t.Fatalf("expected 78, got %d", got)
	}
	if got := OverallScore(Scores{Content: 90, Delivery: 60, Visual: 50}); got != 73 {
		t.Fatalf("expected 73, got %d", got)
	}
}

func TestAggregateVisual(t *testing.T) {
	if AggregateVisual(nil) != nil {
		t.Fatal("expected nil summary without frames")
	}
	s := AggregateVisual([]FrameAnalysis{{EyeContactScore: intPtr(50)}, {Posture: "slouching"}})
	if s.EyeContactAverage != 50 || s.ConfidenceAverage != 0 || s.OverallScore != 25 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Posture != PostureNeedsImprovement {
		t.Fatalf("unexpected posture: %s", s.Posture)
	}
	if len(s.Improvements[interview.LanguageEnglish]) != 2 || len(s.Improvements[interview.LanguageFrench]) != 2 {
		t.Fatalf("unexpected improvements: %v", s.Improvements)
	}
}
