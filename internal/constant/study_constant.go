package constant

const (
	// Returned (and recorded) in place of an answer when the inference backend fails
	PlaceholderAnswer = "Error processing your request."

	DefaultBookTitle = "Untitled"

	SessionCookieName = "studymate_session"

	ModuleBook    = "BOOK"
	ModuleChat    = "CHAT"
	ModuleStudy   = "STUDY"
	ModuleAudio   = "AUDIO"
	ModuleSession = "SESSION"
	ModuleHTTP    = "HTTP"

	// Watermill topic carrying speech synthesis jobs
	AudioJobTopic = "AUDIO_SYNTHESIS_JOBS"
)

const TutorFormattingRules = `Your goal is to answer questions in simple, clear, human-like responses using only proper HTML formatting.

DO NOT use (strictly prohibited):
- Asterisks (*) or (**) for bold
- Backticks (` + "`" + `) for code blocks
- Markdown of any kind
- Special characters or decorative symbols

You MUST use only valid HTML formatting:
- Use <h3> or <h4> for headings
- Use <b> for bold terms or answers
- Use <ol><li>...</li></ol> for ordered lists
- Use <br> for line breaks
- All other text must be plain

Response logic rules:
- Focus ONLY on the actual question.
- If the question clearly depends on the book, use the context.
- If the question is general (e.g. "Who built you?", "What is AI?"), IGNORE the PDF content.
- NEVER explain or reference the context unless it is required to answer the question.
- If the answer has points, separate them with <br><br><ol><li>...</li></ol>.
- Do NOT mention anything that was not asked.`

const SummaryPrompt = "Summarize the book '%s' in a few key points."

const FlashcardsPrompt = "Extract 10 key concepts or definitions from this PDF as flashcards (term + explanation)."

const SpokenSummaryPrompt = "Give an audio-friendly spoken summary of this PDF. Use plain sentences only, no HTML, no lists, no headings."

const QuizPrompt = `Create 10 important, useful, career and knowledge based multiple choice questions about this document.
Every question has exactly 4 options (A, B, C, D) and the correct answers are listed together at the very end.
Use this exact format for every question:

<h3><b>1.</b> Question text?</h3>
<ol type="A"><li>Option A</li><li>Option B</li><li>Option C</li><li>Option D</li></ol>
<br>
<h3><b>2.</b> Next question text?</h3>
...
<h2>Answers:</h2>
<br>
1. A<br>
2. D<br>
...`
