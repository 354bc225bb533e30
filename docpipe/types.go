// CLAUDE:SUMMARY Defines Format, Section, and Document types for source-document extraction, plus markdown rendering.
package docpipe

import (
	"strings"
)

// Format identifies a source document type.
type Format string

const (
	FormatDocx Format = "docx"
	FormatODT  Format = "odt"
	FormatPPTX Format = "pptx"
	FormatPDF  Format = "pdf"
	FormatMD   Format = "md"
	FormatTXT  Format = "txt"
	FormatHTML Format = "html"
)

// Section types.
const (
	SectionHeading   = "heading"
	SectionParagraph = "paragraph"
	SectionList      = "list"
	SectionPage      = "page"
	SectionSlide     = "slide"
)

// Section is a structural unit of a document.
type Section struct {
	Title    string            `json:"title,omitempty"`
	Level    int               `json:"level"` // heading level 1-6, 0 for body
	Text     string            `json:"text"`
	Type     string            `json:"type"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Document is the result of extracting a source document.
type Document struct {
	Name     string    `json:"name"`
	Format   Format    `json:"format"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
	RawText  string    `json:"raw_text"` // markdown rendering of Sections
	Quality  *Quality  `json:"quality,omitempty"`
}

// Markdown renders sections as markdown: headings with '#', list items with
// "- ", everything else as paragraphs separated by blank lines.
func Markdown(sections []Section) string {
	var sb strings.Builder
	prevList := false
	for _, s := range sections {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		isList := s.Type == SectionList
		if sb.Len() > 0 {
			if isList && prevList {
				sb.WriteByte('\n')
			} else {
				sb.WriteString("\n\n")
			}
		}
		switch s.Type {
		case SectionHeading:
			level := s.Level
			if level < 1 {
				level = 1
			}
			if level > 6 {
				level = 6
			}
			sb.WriteString(strings.Repeat("#", level))
			sb.WriteByte(' ')
			sb.WriteString(text)
		case SectionList:
			sb.WriteString("- ")
			sb.WriteString(text)
		default:
			if s.Title != "" && s.Type != SectionParagraph {
				sb.WriteString("## ")
				sb.WriteString(s.Title)
				sb.WriteString("\n\n")
			}
			sb.WriteString(text)
		}
		prevList = isList
	}
	return sb.String()
}
