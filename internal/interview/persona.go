package interview

import (
	"regexp"
	"strings"
)

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

type VoiceStyle string

const (
	VoiceProfessional VoiceStyle = "professional"
	VoiceFriendly     VoiceStyle = "friendly"
)

// VoiceParameters is locked at session start and when the active interviewer
// changes. Later edits to the persona do not reach it.
type VoiceParameters struct {
	Gender Gender     `json:"gender"`
	Style  VoiceStyle `json:"style"`
}

var DefaultVoice = VoiceParameters{Gender: GenderFemale, Style: VoiceProfessional}

// Persona is produced by the persona research collaborator.
type Persona struct {
	Name             string `json:"name"`
	Role             string `json:"role,omitempty"`
	Company          string `json:"company,omitempty"`
	Gender           string `json:"gender,omitempty"`
	Style            string `json:"style,omitempty"`
	OpeningStatement string `json:"opening_statement,omitempty"`
}

var personaStyleToVoice = map[string]VoiceStyle{
	"formal":     VoiceProfessional,
	"technical":  VoiceProfessional,
	"casual":     VoiceFriendly,
	"behavioral": VoiceFriendly,
}

func (p Persona) Voice() VoiceParameters {
	v := DefaultVoice
	if strings.EqualFold(strings.TrimSpace(p.Gender), string(GenderMale)) {
		v.Gender = GenderMale
	}
	if s, ok := personaStyleToVoice[strings.ToLower(strings.TrimSpace(p.Style))]; ok {
		v.Style = s
	}
	return v
}

func (p Persona) DisplayName() string {
	if name := FormatName(p.Name); name != "" {
		return name
	}
	return "Interviewer"
}

func (p Persona) RoleDisplay() string {
	switch {
	case p.Role != "" && p.Company != "":
		return p.Role + " · " + p.Company
	case p.Role != "":
		return p.Role
	default:
		return p.Company
	}
}

var (
	lowercaseNameParticles = map[string]struct{}{
		"van": {}, "von": {}, "de": {}, "del": {}, "della": {}, "di": {},
		"da": {}, "du": {}, "la": {}, "le": {}, "den": {}, "der": {},
	}
	apostrophePrefix = regexp.MustCompile(`^([oOdD])'([a-zA-Z]+)$`)
	scottishPrefix   = regexp.MustCompile(`(?i)^(mc|mac)([a-zA-Z]+)$`)
)

// FormatName normalizes the capitalization of a person's name, keeping
// nobiliary particles lowercase and handling hyphens, O'/D' and Mc/Mac.
func FormatName(name string) string {
	parts := strings.Fields(name)
	formatted := make([]string, 0, len(parts))
	for i, part := range parts {
		lower := strings.ToLower(part)
		if _, ok := lowercaseNameParticles[lower]; ok && i > 0 {
			formatted = append(formatted, lower)
			continue
		}
		if strings.Contains(part, "-") {
			pieces := strings.Split(part, "-")
			for j, p := range pieces {
				pieces[j] = capitalize(p)
			}
			formatted = append(formatted, strings.Join(pieces, "-"))
			continue
		}
		if m := apostrophePrefix.FindStringSubmatch(part); m != nil {
			formatted = append(formatted, strings.ToUpper(m[1])+"'"+capitalize(m[2]))
			continue
		}
		if m := scottishPrefix.FindStringSubmatch(part); m != nil {
			formatted = append(formatted, capitalize(m[1])+capitalize(m[2]))
			continue
		}
		formatted = append(formatted, capitalize(part))
	}
	return strings.Join(formatted, " ")
}

func capitalize(word string) string {
	if word == "" {
		return ""
	}
	r := []rune(strings.ToLower(word))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
