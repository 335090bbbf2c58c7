package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/interview"
)

var questionStyles = map[interview.QuestionStyle]string{
	interview.StyleConcise:  "Keep it brief (2 sentences max). Direct and to the point.",
	interview.StyleBalanced: "Natural and warm (2-3 sentences). Professional but friendly.",
	interview.StyleDetailed: "Detailed and contextual (3-4 sentences). Set the scene and expectations.",
}

var followUpStyles = map[interview.QuestionStyle]string{
	interview.StyleConcise:  "Ask brief, direct questions (1-2 sentences). No lengthy preambles.",
	interview.StyleBalanced: "Ask natural, conversational questions (2-3 sentences). Brief context if needed.",
	interview.StyleDetailed: "Set context before asking (3-4 sentences). Include scenarios and specifics.",
}

var typeInstructions = map[interview.Type]string{
	interview.TypeFull:       "Mix question types evenly: behavioral, technical, and situational. Vary the type from the previous question.",
	interview.TypeBehavioral: "Focus on BEHAVIORAL questions. Use the STAR format (Situation, Task, Action, Result). Ask about past experiences, teamwork, conflict resolution, leadership, and decision-making. Avoid purely technical or coding questions.",
	interview.TypeTechnical:  "Focus on TECHNICAL questions. Ask about specific technologies, tools, system design, problem-solving approaches, and domain expertise relevant to the job description. Avoid generic behavioral questions.",
	interview.TypeQuick:      "Ask focused, high-impact questions that cover the most critical job requirements. Prioritize the top skills and responsibilities from the job description.",
}

func questionStyle(s interview.QuestionStyle) string {
	if v, ok := questionStyles[s]; ok {
		return v
	}
	return questionStyles[interview.StyleBalanced]
}

func followUpStyle(s interview.QuestionStyle) string {
	if v, ok := followUpStyles[s]; ok {
		return v
	}
	return followUpStyles[interview.StyleBalanced]
}

func typeInstruction(t interview.Type) string {
	if v, ok := typeInstructions[t]; ok {
		return v
	}
	return typeInstructions[interview.TypeFull]
}

func languageInstruction(lang interview.Language) string {
	if lang == interview.LanguageFrench {
		return "IMPORTANT: Conduct the interview entirely in French."
	}
	return "IMPORTANT: Conduct the interview entirely in English."
}

func openingPrompt(persona, cv, job, style, lang, focus string) string {
	return fmt.Sprintf(`You are an interviewer starting a mock interview.
PERSONA: %s
CV: %s
JOB: %s
STYLE: %s
QUESTION FOCUS: %s
%s

CRITICAL RULES:
1. The JOB DESCRIPTION defines the interview scope. Your first question MUST be specifically about the requirements, responsibilities, or skills listed in the JOB DESCRIPTION, not a generic question about the candidate's background. Use the CV only to personalize your phrasing, NOT to choose the topic.
2. Your message MUST contain exactly TWO parts: a brief introduction (1-2 sentences) AND a specific interview question. The question is mandatory. Never send an introduction without a question.
3. If the persona includes an opening_statement, use it as inspiration for your greeting tone, but you MUST still append a specific interview question.

Generate the opening message now.
Return ONLY the message text, no JSON.`, persona, cv, job, style, focus, lang)
}

func followUpPrompt(persona, cv, job, history, last string, questionNum, target int, style, lang, focus string) string {
	return fmt.Sprintf(`You are conducting a mock interview. This is question %d of %d.
PERSONA: %s
CV: %s
JOB: %s
CONVERSATION SO FAR: %s
CANDIDATE'S LAST RESPONSE: %s
STYLE: %s
QUESTION FOCUS: %s
%s

CRITICAL RULES FOR QUESTION SELECTION:
1. Your questions must be DRIVEN BY THE JOB DESCRIPTION. Target its specific requirements, responsibilities, technical skills, and soft skills.
2. Use the CV to personalize follow-ups (reference the candidate's specific experience) but do NOT let the CV dominate topic choice.
3. NEVER repeat a topic or skill already covered in the conversation. Check the conversation history carefully.
4. Follow the QUESTION FOCUS instruction above for the type of questions to ask.
5. Each question must target a DIFFERENT requirement or responsibility from the JOB DESCRIPTION.

Generate a natural follow-up or new question.
You MUST ask exactly one new question. Do NOT end or wrap up the interview.
Return JSON:
{
    "message": "Your response and next question"
}
Return ONLY valid JSON.`, questionNum, target, persona, cv, job, history, last, style, focus, lang)
}

func closingPrompt(persona, history, last string, target int, lang string) string {
	return fmt.Sprintf(`You are wrapping up a mock interview. All %d questions have been asked.
PERSONA: %s
CONVERSATION SO FAR: %s
CANDIDATE'S LAST RESPONSE: %s
%s

Generate a SHORT closing statement (1-2 sentences max). Thank the candidate, say goodbye naturally.
Do NOT ask any new questions. Do NOT give feedback or evaluation.
Return JSON:
{
    "message": "Your brief closing statement",
    "is_complete": true
}
Return ONLY valid JSON.`, target, persona, history, last, lang)
}

const transcriptionPrompt = `You are a speech-to-text transcription system. Your ONLY job is to transcribe spoken words from this audio.

CRITICAL RULES:
1. ONLY transcribe actual human speech that you can clearly hear in the audio
2. If the audio is SILENT, contains only background noise, or has no clear speech, respond with EXACTLY: [EMPTY]
3. Do NOT generate, invent, or hallucinate any text that is not clearly spoken in the audio
4. Do NOT add greetings, sign-offs, or any text that wasn't actually spoken
5. Do NOT describe the audio (like "silence" or "no speech detected"), just return [EMPTY]
6. PRESERVE THE ORIGINAL LANGUAGE. Do NOT translate! If someone speaks French, transcribe in French. If someone speaks English, transcribe in English.
7. Do NOT wrap the transcription in quotation marks. Output the raw spoken words only.

If there is clear speech, transcribe it accurately IN THE SAME LANGUAGE IT WAS SPOKEN.
If there is NO clear speech, respond with ONLY: [EMPTY]

Your response must be ONLY the transcription OR [EMPTY]. No quotes, no formatting, nothing else.`

func feedbackPrompt(pairs, cv, job string) string {
	return fmt.Sprintf(`Analyze this interview and provide detailed feedback with ideal responses.
Generate ALL text content in BOTH English AND French.

QUESTION-ANSWER PAIRS: %s
CANDIDATE CV: %s
JOB REQUIREMENTS: %s

CRITICAL FORMATTING RULES:
- Use simple HTML tags for text formatting: <strong>text</strong> for bold, <em>text</em> for italics, <br> for line breaks
- NEVER use Markdown formatting (no **, no *, no #, no - lists)
- Use numbered lists as plain text: "1. First item 2. Second item"

CRITICAL LANGUAGE RULES:
- The interview transcript may be in English OR French. Regardless of the transcript language, you MUST produce COMPLETE output in BOTH languages.
- The "en" object must contain ALL text written ENTIRELY in English. The "fr" object must contain ALL text written ENTIRELY in French.
- NEVER mix languages within a single field. Translate questions and answers as needed for each section.

Return JSON with this EXACT structure:
{
    "scores": {
        "overall": 0-100,
        "content": 0-100,
        "delivery": 0-100
    },
    "en": {
        "summary": "2-3 sentence overall assessment in English",
        "strengths": ["strength 1", "strength 2"],
        "improvements": [
            {"area": "Area name", "priority": "high/medium/low", "suggestion": "Specific suggestion"}
        ],
        "next_steps": ["Action 1", "Action 2"],
        "question_feedback": [
            {
                "question": "The interviewer's question",
                "your_answer": "Summary of candidate's answer",
                "score": 0-100,
                "feedback": "What was good and what could be improved",
                "ideal_answer": "A model answer using STAR format"
            }
        ]
    },
    "fr": {
        "summary": "Évaluation globale de 2-3 phrases en français",
        "strengths": ["point fort 1", "point fort 2"],
        "improvements": [
            {"area": "Nom du domaine", "priority": "high/medium/low", "suggestion": "Suggestion spécifique"}
        ],
        "next_steps": ["Action 1", "Action 2"],
        "question_feedback": [
            {
                "question": "La question de l'intervieweur",
                "your_answer": "Résumé de la réponse du candidat",
                "score": 0-100,
                "feedback": "Ce qui était bien et ce qui pourrait être amélioré",
                "ideal_answer": "Réponse modèle au format STAR"
            }
        ]
    }
}

IMPORTANT:
- The "scores" object is shared (language-independent numbers)
- "question_feedback" arrays must have the same length and same "score" values in both languages
- Include ALL questions, even skipped ones. For skipped questions (where answer is "%s" or skipped=true): set "your_answer" to "%s", set "score" to 0, explain why the question matters, and still provide a complete ideal_answer
- Return ONLY valid JSON`, pairs, cv, job, interview.SkippedContent, interview.SkippedContent)
}

type historyLine struct {
	Role    interview.Role `json:"role"`
	Content string         `json:"content"`
}

func historyJSON(history []interview.Entry) string {
	lines := make([]historyLine, 0, len(history))
	for _, e := range history {
		lines = append(lines, historyLine{Role: e.Role, Content: e.Content})
	}
	return mustJSON(lines)
}

func pairsJSON(pairs []feedback.QAPair) string {
	return mustJSON(pairs)
}

// documentJSON passes free-form CV and job text to the prompt as a JSON
// string so quotes and newlines survive.
func documentJSON(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "{}"
	}
	return mustJSON(text)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
