// CLAUDE:SUMMARY Core pipeline that turns uploaded source documents (docx, odt, pptx, pdf, md, txt, html) into sections and markdown text.
// Package docpipe extracts the text of source documents so it can be planned
// into slides.
//
// Supported formats:
//   - .docx  Microsoft Word (word/document.xml)
//   - .odt   OpenDocument Text (content.xml)
//   - .pptx  PowerPoint (ppt/slides/slideN.xml, one section per slide)
//   - .pdf   PDF page text via pdfcpu
//   - .md    Markdown (headings, list items, paragraphs)
//   - .txt   Plain text
//   - .html  HTML, sanitised then converted to markdown
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	doc, err := pipe.Extract(ctx, "notes.docx", data)
//	fmt.Println(doc.Title, len(doc.Sections), "sections")
package docpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for unknown file extensions.
	ErrUnsupportedFormat = errors.New("docpipe: unsupported format")
	// ErrTooLarge is returned when a document exceeds MaxFileSize.
	ErrTooLarge = errors.New("docpipe: document too large")
	// ErrEmpty is returned when a document yields no text.
	ErrEmpty = errors.New("docpipe: no text content")
)

// Pipeline extracts text from source documents.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{cfg: cfg, logger: cfg.Logger}
}

// Detect returns the format implied by a file name's extension.
func (p *Pipeline) Detect(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".docx":
		return FormatDocx, nil
	case ".odt":
		return FormatODT, nil
	case ".pptx", ".potx":
		return FormatPPTX, nil
	case ".pdf":
		return FormatPDF, nil
	case ".md", ".markdown":
		return FormatMD, nil
	case ".txt", ".text":
		return FormatTXT, nil
	case ".html", ".htm", ".xhtml":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// SupportedFormats returns all supported formats.
func SupportedFormats() []Format {
	return []Format{FormatDocx, FormatODT, FormatPPTX, FormatPDF, FormatMD, FormatTXT, FormatHTML}
}

// ExtractFile reads a document from disk and extracts it.
func (p *Pipeline) ExtractFile(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), p.cfg.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Extract(ctx, filepath.Base(path), data)
}

// Extract parses data, using name's extension to pick the parser.
func (p *Pipeline) Extract(ctx context.Context, name string, data []byte) (*Document, error) {
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), p.cfg.MaxFileSize)
	}
	format, err := p.Detect(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Debug("docpipe: extracting", "name", name, "format", format, "bytes", len(data))

	var (
		title    string
		sections []Section
		quality  *Quality
	)
	switch format {
	case FormatDocx:
		title, sections, err = extractDocx(data)
	case FormatODT:
		title, sections, err = extractODT(data)
	case FormatPPTX:
		title, sections, err = extractPPTX(data)
	case FormatPDF:
		title, sections, quality, err = extractPDF(data, p.cfg.MaxPages)
	case FormatMD:
		title, sections = ParseMarkdown(string(data))
	case FormatTXT:
		title, sections = extractText(string(data))
	case FormatHTML:
		title, sections, err = extractHTML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s (%s): %w", name, format, err)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("extract %s (%s): %w", name, format, ErrEmpty)
	}
	if title == "" {
		title = firstLine(sections[0].Text)
	}

	return &Document{
		Name:     name,
		Format:   format,
		Title:    title,
		Sections: sections,
		RawText:  Markdown(sections),
		Quality:  quality,
	}, nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > 200 {
		text = string(r[:200])
	}
	return text
}
