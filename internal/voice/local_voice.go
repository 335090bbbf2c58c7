package voice

import (
	"strings"

	"github.com/wouk1805/prepgenius/internal/interview"
)

var (
	maleVoiceHints   = []string{"male", "david", "james", "mark", "daniel", "thomas"}
	femaleVoiceHints = []string{"female", "zira", "susan", "hazel", "samantha", "kate", "victoria", "karen"}
)

// PickLocalVoice chooses the on-device voice that best fits the language and
// gender. Gender is guessed from voice names, so the result is a best effort.
func PickLocalVoice(voices []LocalVoice, lang string, gender interview.Gender) (LocalVoice, bool) {
	if len(voices) == 0 {
		return LocalVoice{}, false
	}
	prefix := strings.ToLower(strings.SplitN(lang, "-", 2)[0])
	best, bestScore := 0, -1<<31
	for i, v := range voices {
		score := scoreLocalVoice(v, prefix, gender)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return voices[best], true
}

func scoreLocalVoice(v LocalVoice, langPrefix string, gender interview.Gender) int {
	score := 0
	if langPrefix != "" && strings.HasPrefix(strings.ToLower(v.Lang), langPrefix) {
		score += 10
	}
	name := strings.ToLower(v.Name)
	isMale := nameHasHint(name, maleVoiceHints)
	isFemale := nameHasHint(name, femaleVoiceHints)
	switch gender {
	case interview.GenderMale:
		if isMale {
			score += 5
		}
		if isFemale {
			score -= 5
		}
	default:
		if isFemale {
			score += 5
		}
		if isMale {
			score -= 5
		}
	}
	if v.Local {
		score++
	}
	return score
}

// The bare "male" hint never matches inside "female".
func nameHasHint(name string, hints []string) bool {
	for _, h := range hints {
		if h == "male" && strings.Contains(name, "female") {
			continue
		}
		if strings.Contains(name, h) {
			return true
		}
	}
	return false
}
