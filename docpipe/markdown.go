// CLAUDE:SUMMARY Markdown and plain-text section parsing: ATX headings, list items, paragraphs, fenced blocks.
package docpipe

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	orderedItem = regexp.MustCompile(`^\d{1,3}[.)]\s+`)
	inlineMarks = strings.NewReplacer("**", "", "__", "", "`", "")
	mdLink      = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
)

// ParseMarkdown splits markdown into heading, list, and paragraph sections.
// The title is the first heading, or the first line when there is none.
func ParseMarkdown(text string) (string, []Section) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		sections []Section
		title    string
		para     []string
		fenced   bool
	)
	flush := func() {
		if s := strings.TrimSpace(strings.Join(para, " ")); s != "" {
			sections = append(sections, Section{Text: cleanInline(s), Type: SectionParagraph})
		}
		para = para[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			flush()
			fenced = !fenced
			continue
		}
		if fenced {
			if trimmed != "" {
				para = append(para, trimmed)
			}
			continue
		}

		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "#"):
			flush()
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			heading := strings.TrimSpace(strings.TrimRight(strings.TrimLeft(trimmed, "#"), "# "))
			if heading == "" || level > 6 {
				continue
			}
			heading = cleanInline(heading)
			if title == "" {
				title = heading
			}
			sections = append(sections, Section{Title: heading, Level: level, Text: heading, Type: SectionHeading})
		case isRule(trimmed):
			flush()
		default:
			if item, ok := listItem(trimmed); ok {
				flush()
				if item = cleanInline(item); item != "" {
					sections = append(sections, Section{Text: item, Type: SectionList})
				}
				continue
			}
			para = append(para, trimmed)
		}
	}
	flush()

	if title == "" && len(sections) > 0 {
		title = firstLine(sections[0].Text)
	}
	return title, sections
}

func listItem(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "+ ", "• "} {
		if strings.HasPrefix(line, marker) {
			item := strings.TrimSpace(strings.TrimPrefix(line, marker))
			item = strings.TrimPrefix(strings.TrimPrefix(item, "[ ] "), "[x] ")
			return item, true
		}
	}
	if loc := orderedItem.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:]), true
	}
	return "", false
}

func isRule(line string) bool {
	if len(line) < 3 {
		return false
	}
	c := line[0]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	for i := 0; i < len(line); i++ {
		if line[i] != c && line[i] != ' ' {
			return false
		}
	}
	return true
}

func cleanInline(s string) string {
	s = mdLink.ReplaceAllString(s, "$1")
	return strings.TrimSpace(inlineMarks.Replace(s))
}

// extractText treats blank-line separated blocks as paragraphs and keeps
// bullet-looking lines as list items.
func extractText(text string) (string, []Section) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var sections []Section
	for _, block := range strings.Split(text, "\n\n") {
		var para []string
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if item, ok := listItem(line); ok {
				if p := normalizeWhitespace(strings.Join(para, " ")); p != "" {
					sections = append(sections, Section{Text: p, Type: SectionParagraph})
				}
				para = nil
				sections = append(sections, Section{Text: normalizeWhitespace(item), Type: SectionList})
				continue
			}
			para = append(para, line)
		}
		if p := normalizeWhitespace(strings.Join(para, " ")); p != "" {
			sections = append(sections, Section{Text: p, Type: SectionParagraph})
		}
	}
	title := ""
	if len(sections) > 0 {
		title = firstLine(sections[0].Text)
	}
	return title, sections
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}
