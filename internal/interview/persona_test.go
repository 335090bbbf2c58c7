package interview

import "testing"

func TestFormatName(t *testing.T) {
	cases := map[string]string{
		"  jean-PIERRE dupont ": "Jean-Pierre Dupont",
		"ludwig VAN beethoven":  "Ludwig van Beethoven",
		"seán o'brien":          "Seán O'Brien",
		"ANGUS MCDONALD":        "Angus McDonald",
		"mary macarthur":        "Mary MacArthur",
		"":                      "",
	}
	for in, want := range cases {
		if got := FormatName(in); got != want {
			t.Fatalf("FormatName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPersonaVoice(t *testing.T) {
	cases := []struct {
		persona Persona
		want    VoiceParameters
	}{
		{Persona{}, VoiceParameters{Gender: GenderFemale, Style: VoiceProfessional}},
		{Persona{Gender: "Male", Style: "casual"}, VoiceParameters{Gender: GenderMale, Style: VoiceFriendly}},
		{Persona{Gender: "female", Style: "technical"}, VoiceParameters{Gender: GenderFemale, Style: VoiceProfessional}},
		{Persona{Gender: "other", Style: "behavioral"}, VoiceParameters{Gender: GenderFemale, Style: VoiceFriendly}},
		{Persona{Style: "whimsical"}, DefaultVoice},
	}
	for _, tc := range cases {
		if got := tc.persona.Voice(); got != tc.want {
			t.Fatalf("Voice(%+v) = %+v, want %+v", tc.persona, got, tc.want)
		}
	}
}

func TestPersonaDisplay(t *testing.T) {
	p := Persona{Name: "ada lovelace", Role: "CTO", Company: "Analytical"}
	if p.DisplayName() != "Ada Lovelace" {
		t.Fatalf("unexpected display name: %s", p.DisplayName())
	}
	if p.RoleDisplay() != "CTO · Analytical" {
		t.Fatalf("unexpected role display: %s", p.RoleDisplay())
	}
	if (Persona{}).DisplayName() != "Interviewer" {
		t.Fatal("expected generic interviewer name")
	}
}

func TestTargetTurns(t *testing.T) {
	cases := map[string]int{"full": 8, "behavioral": 5, "technical": 5, "quick": 3, "unknown": 8}
	for in, want := range cases {
		if got := ParseType(in).TargetTurns(); got != want {
			t.Fatalf("TargetTurns(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestEntrySkipped(t *testing.T) {
	if !(Entry{Role: RoleCandidate, Content: SkippedContent}).Skipped() {
		t.Fatal("expected candidate skip entry to be skipped")
	}
	if (Entry{Role: RoleInterviewer, Content: SkippedContent}).Skipped() {
		t.Fatal("interviewer entries are never skips")
	}
}
