package interview

import "strings"

type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// SkippedContent marks a candidate turn the user chose to skip.
const SkippedContent = "[SKIPPED]"

type Entry struct {
	Role        Role   `json:"role"`
	Content     string `json:"content"`
	Interviewer int    `json:"interviewer,omitempty"`
}

func (e Entry) Skipped() bool {
	return e.Role == RoleCandidate && e.Content == SkippedContent
}

type Type string

const (
	TypeFull       Type = "full"
	TypeBehavioral Type = "behavioral"
	TypeTechnical  Type = "technical"
	TypeQuick      Type = "quick"
)

var targetTurnsByType = map[Type]int{
	TypeFull:       8,
	TypeBehavioral: 5,
	TypeTechnical:  5,
	TypeQuick:      3,
}

// TargetTurns returns the number of questions asked for an interview type.
// Unknown types run as a full interview.
func (t Type) TargetTurns() int {
	if n, ok := targetTurnsByType[t]; ok {
		return n
	}
	return targetTurnsByType[TypeFull]
}

func ParseType(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := targetTurnsByType[t]; ok {
		return t
	}
	return TypeFull
}

type QuestionStyle string

const (
	StyleConcise  QuestionStyle = "concise"
	StyleBalanced QuestionStyle = "balanced"
	StyleDetailed QuestionStyle = "detailed"
)

func ParseQuestionStyle(s string) QuestionStyle {
	switch QuestionStyle(strings.ToLower(strings.TrimSpace(s))) {
	case StyleConcise:
		return StyleConcise
	case StyleDetailed:
		return StyleDetailed
	default:
		return StyleBalanced
	}
}

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
)

func ParseLanguage(s string) Language {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "fr") {
		return LanguageFrench
	}
	return LanguageEnglish
}

// Locale maps a language to the BCP 47 tag used by speech engines.
func (l Language) Locale() string {
	if l == LanguageFrench {
		return "fr-FR"
	}
	return "en-US"
}
