package planner

import (
	"fmt"
	"strings"
)

const analyzeSystemPrompt = `You are a presentation strategist. Read the user's text and answer with one JSON object only, no prose:
{
  "title": "deck title",
  "themes": ["at most 5 main themes"],
  "keyPoints": {"<theme>": ["short key points for that theme"]},
  "slideCount": <recommended number of slides>,
  "structure": "one sentence describing the narrative flow"
}
Key points are short phrases of at most 12 words. Write in the language of the text.`

const structureSystemPrompt = `You design slide decks. From the content analysis, produce one JSON object only, no prose:
{
  "totalSlides": <number of slides>,
  "slides": [
    {"slideNumber": 1, "type": "title|content|comparison|conclusion", "title": "slide title", "content": ["bullet", "bullet"], "notes": "speaker notes"}
  ]
}
Start with a title slide and end with a conclusion. Use 3 to 6 bullets per content slide. Write in the language of the analysis.`

func analyzeUserPrompt(text, guidance string) string {
	var sb strings.Builder
	if g := strings.TrimSpace(guidance); g != "" {
		fmt.Fprintf(&sb, "Guidance from the author: %s\n\n", g)
	}
	sb.WriteString("Text:\n")
	sb.WriteString(text)
	return sb.String()
}

func structureUserPrompt(analysisJSON, guidance string) string {
	var sb strings.Builder
	if g := strings.TrimSpace(guidance); g != "" {
		fmt.Fprintf(&sb, "Guidance from the author: %s\n\n", g)
	}
	sb.WriteString("Content analysis:\n")
	sb.WriteString(analysisJSON)
	return sb.String()
}
