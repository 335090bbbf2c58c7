package session

import (
	"fmt"
	"strings"

	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/metrics"
)

const reportTopFillers = 3

const (
	messageReportTitle     = ":clipboard: **Interview feedback ready**"
	messageReportScoreLine = "Overall **%d** · Content %d · Delivery %d"
	messageReportVisual    = " · Visual %d"
	messageReportTurns     = "-# %s interview · %d/%d questions answered"
	messageReportPace      = "-# Pace %d wpm (%s) · Fillers %d"
	messageReportTopFiller = "%s ×%d"
	messagePoweredByLine   = "-# *Powered by PrepGenius*"
)

var noticeMessages = map[string]map[interview.Language]string{
	NoticeVoiceFallback: {
		interview.LanguageEnglish: "Premium voice limit reached. Continuing with your device voice.",
		interview.LanguageFrench:  "Limite de voix premium atteinte. La voix de votre appareil prend le relais.",
	},
	NoticeSpeechFailed: {
		interview.LanguageEnglish: "The interviewer's voice could not be played. The question is shown in the transcript.",
		interview.LanguageFrench:  "La voix du recruteur n'a pas pu être lue. La question est affichée dans la transcription.",
	},
}

func noticeMessage(notice string, lang interview.Language) string {
	byLang, ok := noticeMessages[notice]
	if !ok {
		return ""
	}
	if msg, ok := byLang[lang]; ok {
		return msg
	}
	return byLang[interview.LanguageEnglish]
}

func buildReportSummary(setup Setup, asked, target int, report *feedback.Report) string {
	score := fmt.Sprintf(messageReportScoreLine, report.Scores.Overall, report.Scores.Content, report.Scores.Delivery)
	if report.Scores.Visual > 0 {
		score += fmt.Sprintf(messageReportVisual, report.Scores.Visual)
	}
	lines := []string{
		messageReportTitle,
		score,
		fmt.Sprintf(messageReportTurns, setup.Type, asked, target),
	}
	if report.Delivery != nil {
		pace := fmt.Sprintf(messageReportPace, report.Delivery.Pace.WPM, report.Delivery.Pace.Assessment, report.Delivery.Fillers.Count)
		if top := topFillers(report.Metrics.FillerBreakdown); top != "" {
			pace += " (" + top + ")"
		}
		lines = append(lines, pace)
	}
	if summary := strings.TrimSpace(report.Localized(setup.Language).Summary); summary != "" {
		lines = append(lines, "", summary)
	}
	lines = append(lines, messagePoweredByLine)
	return strings.Join(lines, "\n")
}

func topFillers(breakdown map[string]int) string {
	terms := metrics.SortedFillers(breakdown)
	if len(terms) > reportTopFillers {
		terms = terms[:reportTopFillers]
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, fmt.Sprintf(messageReportTopFiller, t, breakdown[t]))
	}
	return strings.Join(parts, ", ")
}
