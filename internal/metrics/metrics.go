package metrics

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// defaultElapsed stands in for a missing session duration when deriving pace.
const defaultElapsed = 60 * time.Second

// TypedFillers is the lexicon scanned in typed responses.
var TypedFillers = []string{"um", "uh", "like", "you know", "basically", "actually"}

// SpokenFillers are the lexicons used when a transcriber does not report
// filler counts itself.
var SpokenFillers = map[string][]string{
	"en": {"um", "uh", "like", "you know", "basically", "actually", "literally", "so", "well", "i mean"},
	"fr": {"euh", "ben", "genre", "en fait", "voilà", "du coup", "quoi", "bah"},
}

// SpeechAnalysis is the per-response analysis added to the cumulative metrics.
type SpeechAnalysis struct {
	WordCount       int            `json:"word_count"`
	FillerCount     int            `json:"filler_count"`
	FillerBreakdown map[string]int `json:"filler_breakdown,omitempty"`
}

type DeliveryMetrics struct {
	WordCount       int            `json:"word_count"`
	FillerCount     int            `json:"filler_count"`
	FillerBreakdown map[string]int `json:"filler_breakdown"`
	ResponseTimes   []float64      `json:"response_times"`
	PaceWPM         int            `json:"pace_wpm"`
}

// Collector accumulates delivery metrics for one session. Turns are
// sequential so it is not safe for concurrent use.
type Collector struct {
	words     int
	fillers   int
	breakdown map[string]int
	latencies []float64
}

func NewCollector() *Collector {
	return &Collector{breakdown: make(map[string]int)}
}

func (c *Collector) AddSpoken(a SpeechAnalysis) {
	c.words += a.WordCount
	total := 0
	for term, n := range a.FillerBreakdown {
		if n <= 0 {
			continue
		}
		c.breakdown[term] += n
		total += n
	}
	if a.FillerCount > total {
		total = a.FillerCount
	}
	c.fillers += total
}

func (c *Collector) AddTyped(text string) {
	c.AddSpoken(AnalyzeText(text, TypedFillers))
}

func (c *Collector) AddLatency(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.latencies = append(c.latencies, math.Round(d.Seconds()*10)/10)
}

func (c *Collector) Snapshot(elapsed time.Duration) DeliveryMetrics {
	breakdown := make(map[string]int, len(c.breakdown))
	for k, v := range c.breakdown {
		breakdown[k] = v
	}
	return DeliveryMetrics{
		WordCount:       c.words,
		FillerCount:     c.fillers,
		FillerBreakdown: breakdown,
		ResponseTimes:   append([]float64(nil), c.latencies...),
		PaceWPM:         Pace(c.words, elapsed),
	}
}

// Pace derives words per minute. A zero elapsed time counts as one minute.
func Pace(words int, elapsed time.Duration) int {
	if elapsed <= 0 {
		elapsed = defaultElapsed
	}
	return int(math.Round(float64(words) / elapsed.Seconds() * 60))
}

// AnalyzeText counts whitespace-separated words and lexicon fillers matched
// on word boundaries.
func AnalyzeText(text string, lexicon []string) SpeechAnalysis {
	a := SpeechAnalysis{
		WordCount:       len(strings.Fields(text)),
		FillerBreakdown: CountFillers(text, lexicon),
	}
	for _, n := range a.FillerBreakdown {
		a.FillerCount += n
	}
	return a
}

func CountFillers(text string, lexicon []string) map[string]int {
	lower := strings.ToLower(text)
	out := make(map[string]int)
	for _, term := range lexicon {
		if n := countWord(lower, term); n > 0 {
			out[term] = n
		}
	}
	return out
}

// countWord counts occurrences of term bounded by non-word runes on both
// sides, with letters and digits judged by Unicode class.
func countWord(text, term string) int {
	if term == "" {
		return 0
	}
	n := 0
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			break
		}
		start := offset + i
		end := start + len(term)
		if isBoundary(text, start, end) {
			n++
			offset = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return n
}

func isBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// SortedFillers lists breakdown terms by descending count.
func SortedFillers(breakdown map[string]int) []string {
	terms := make([]string, 0, len(breakdown))
	for t := range breakdown {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if breakdown[terms[i]] != breakdown[terms[j]] {
			return breakdown[terms[i]] > breakdown[terms[j]]
		}
		return terms[i] < terms[j]
	})
	return terms
}
