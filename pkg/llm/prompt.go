package llm

import (
	"strings"
)

const promptTemplate = `Context: {{context}}
Task: Generate a savage, funny, single-word response that relates to this context.
Requirements:
- Exactly one word
- No punctuation
- Witty and contextual
- Safe for work
`

// BuildPrompt renders the request for text. When context is non-empty it is
// placed before the text, separated by " - ".
func BuildPrompt(text, context string) string {
	text = strings.TrimSpace(text)
	context = strings.TrimSpace(context)
	joined := text
	if context != "" {
		joined = context + " - " + text
	}
	joined = strings.Join(strings.Fields(joined), " ")
	return strings.Replace(promptTemplate, "{{context}}", joined, 1)
}
