package metrics

import "math"

const (
	PaceExcellent    = "Excellent"
	PaceGood         = "Good"
	PaceSlightlySlow = "Slightly slow"
	PaceSlightlyFast = "Slightly fast"
	PaceTooSlow      = "Too slow"
	PaceTooFast      = "Too fast"
	PaceNoData       = "No data"
)

type PaceAnalysis struct {
	WPM        int    `json:"wpm"`
	Score      int    `json:"score"`
	Assessment string `json:"assessment"`
}

type FillerAnalysis struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Score      int     `json:"score"`
}

type DeliveryAnalysis struct {
	Pace         PaceAnalysis   `json:"pace"`
	Fillers      FillerAnalysis `json:"filler_words"`
	OverallScore int            `json:"overall_score"`
}

// Analyze scores pace and filler usage and averages the two sub-scores.
func Analyze(m DeliveryMetrics) DeliveryAnalysis {
	words := m.WordCount
	if words < 1 {
		words = 1
	}
	paceScore, assessment := ScorePace(m.PaceWPM)
	fillerScore := ScoreFillers(m.FillerCount, words)
	return DeliveryAnalysis{
		Pace: PaceAnalysis{WPM: m.PaceWPM, Score: paceScore, Assessment: assessment},
		Fillers: FillerAnalysis{
			Count:      m.FillerCount,
			Percentage: math.Round(float64(m.FillerCount)/float64(words)*10000) / 100,
			Score:      fillerScore,
		},
		OverallScore: int(math.Round(float64(paceScore+fillerScore) / 2)),
	}
}

// ScorePace grades words per minute. Band upper bounds are exclusive, so
// 150 wpm is Good rather than Excellent.
func ScorePace(wpm int) (int, string) {
	switch {
	case wpm >= 130 && wpm < 150:
		return 100, PaceExcellent
	case wpm >= 120 && wpm < 160:
		return 85, PaceGood
	case wpm >= 100 && wpm < 180:
		if wpm < 120 {
			return 70, PaceSlightlySlow
		}
		return 70, PaceSlightlyFast
	case wpm > 0:
		if wpm < 100 {
			return 50, PaceTooSlow
		}
		return 50, PaceTooFast
	default:
		return 0, PaceNoData
	}
}

var fillerBands = []struct {
	maxPercent int
	score      int
}{
	{1, 100},
	{2, 85},
	{4, 70},
	{6, 55},
}

// ScoreFillers grades the filler ratio. Band limits are inclusive and
// compared in integer arithmetic: 6 fillers in 150 words is exactly 4%.
func ScoreFillers(fillers, words int) int {
	if words < 1 {
		words = 1
	}
	for _, b := range fillerBands {
		if fillers*100 <= b.maxPercent*words {
			return b.score
		}
	}
	return 40
}
