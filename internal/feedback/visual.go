package feedback

import (
	"math"

	"github.com/wouk1805/prepgenius/internal/interview"
)

const (
	PostureGood             = "good"
	PostureNeedsImprovement = "needs_improvement"
	PostureNoData           = "no_data"

	visualStrengthThreshold = 70
)

// FrameAnalysis is one result from the video analysis collaborator.
type FrameAnalysis struct {
	EyeContactScore *int   `json:"eye_contact_score,omitempty"`
	ConfidenceScore *int   `json:"confidence_score,omitempty"`
	Posture         string `json:"posture,omitempty"`
}

type VisualSummary struct {
	FrameCount        int                             `json:"frame_count"`
	EyeContactAverage int                             `json:"eye_contact_average"`
	ConfidenceAverage int                             `json:"confidence_average"`
	Posture           string                          `json:"posture"`
	OverallScore      int                             `json:"overall_visual_score"`
	Strengths         map[interview.Language][]string `json:"strengths"`
	Improvements      map[interview.Language][]string `json:"improvements"`
}

// AggregateVisual summarizes frame results. It returns nil without frames.
func AggregateVisual(frames []FrameAnalysis) *VisualSummary {
	if len(frames) == 0 {
		return nil
	}
	var eye, conf []int
	var postures []string
	for _, f := range frames {
		if f.EyeContactScore != nil {
			eye = append(eye, *f.EyeContactScore)
		}
		if f.ConfidenceScore != nil {
			conf = append(conf, *f.ConfidenceScore)
		}
		if f.Posture != "" {
			postures = append(postures, f.Posture)
		}
	}
	s := &VisualSummary{
		FrameCount:        len(frames),
		EyeContactAverage: average(eye),
		ConfidenceAverage: average(conf),
		Posture:           assessPosture(postures),
		Strengths:         map[interview.Language][]string{},
		Improvements:      map[interview.Language][]string{},
	}
	s.OverallScore = int(math.Round(float64(s.EyeContactAverage+s.ConfidenceAverage) / 2))

	add := func(m map[interview.Language][]string, en, fr string) {
		m[interview.LanguageEnglish] = append(m[interview.LanguageEnglish], en)
		m[interview.LanguageFrench] = append(m[interview.LanguageFrench], fr)
	}
	if s.EyeContactAverage >= visualStrengthThreshold {
		add(s.Strengths, "Good eye contact", "Bon contact visuel")
	} else if s.EyeContactAverage > 0 {
		add(s.Improvements, "Look at the camera more often", "Regardez la caméra plus souvent")
	}
	if s.ConfidenceAverage >= visualStrengthThreshold {
		add(s.Strengths, "Confident presence", "Présence confiante")
	} else if s.ConfidenceAverage > 0 {
		add(s.Improvements, "Work on appearing more confident", "Travaillez sur votre confiance")
	}
	switch s.Posture {
	case PostureGood:
		add(s.Strengths, "Good posture", "Bonne posture")
	case PostureNeedsImprovement:
		add(s.Improvements, "Sit up straighter", "Tenez-vous plus droit")
	}
	return s
}

func average(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}

func assessPosture(postures []string) string {
	if len(postures) == 0 {
		return PostureNoData
	}
	good := 0
	for _, p := range postures {
		if p == PostureGood {
			good++
		}
	}
	if good*2 >= len(postures) {
		return PostureGood
	}
	return PostureNeedsImprovement
}
