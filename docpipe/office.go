// CLAUDE:SUMMARY Extracts paragraphs from zip-based office documents (docx, odt, pptx) with the depth-limited XML decoder.
package docpipe

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/deckforge/opc"
)

// paragraph is one block of text with the style hint found on it.
type paragraph struct {
	text  string
	style string // docx pStyle, odt text:h outline level, pptx placeholder type
	level int
}

// walkParagraphs streams an XML part and returns its paragraphs. paraLocal
// names the paragraph element(s), textLocal the text-run element; tabs and
// breaks become spaces. styleOf inspects start elements inside a paragraph.
func walkParagraphs(data []byte, paraLocal map[string]bool, textLocal string, styleOf func(xml.StartElement, *paragraph)) ([]paragraph, error) {
	dec := opc.NewDecoder(bytes.NewReader(data))
	var (
		out     []paragraph
		cur     *paragraph
		buf     strings.Builder
		inText  bool
		depthAt int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if cur == nil && paraLocal[t.Name.Local] {
				cur = &paragraph{}
				buf.Reset()
				depthAt = dec.Depth()
			}
			if cur == nil {
				continue
			}
			switch t.Name.Local {
			case textLocal:
				inText = true
			case "tab", "br", "s", "line-break":
				buf.WriteByte(' ')
			}
			if styleOf != nil {
				styleOf(t, cur)
			}
		case xml.CharData:
			if cur != nil && (inText || textLocal == "") {
				buf.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == textLocal {
				inText = false
			}
			if cur != nil && dec.Depth() < depthAt {
				cur.text = normalizeWhitespace(buf.String())
				if cur.text != "" {
					out = append(out, *cur)
				}
				cur = nil
			}
		}
	}
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// --- docx ---

var docxHeading = regexp.MustCompile(`(?i)^(?:heading|titre|berschrift)\s*([1-6])$`)

func extractDocx(data []byte) (string, []Section, error) {
	pkg, err := opc.Open(data)
	if err != nil {
		return "", nil, err
	}
	body, err := pkg.ReadBytes("word/document.xml")
	if err != nil {
		return "", nil, err
	}
	paras, err := walkParagraphs(body, map[string]bool{"p": true}, "t", func(t xml.StartElement, p *paragraph) {
		if t.Name.Local == "pStyle" {
			p.style = attr(t, "val")
		}
		if t.Name.Local == "numPr" {
			p.level = -1
		}
	})
	if err != nil {
		return "", nil, fmt.Errorf("parse document.xml: %w", err)
	}

	var title string
	var sections []Section
	for _, p := range paras {
		style := strings.ReplaceAll(p.style, " ", "")
		switch {
		case strings.EqualFold(style, "Title"):
			if title == "" {
				title = p.text
			}
			sections = append(sections, Section{Title: p.text, Level: 1, Text: p.text, Type: SectionHeading})
		case docxHeading.MatchString(style):
			level, _ := strconv.Atoi(docxHeading.FindStringSubmatch(style)[1])
			if title == "" {
				title = p.text
			}
			sections = append(sections, Section{Title: p.text, Level: level, Text: p.text, Type: SectionHeading})
		case p.level < 0 || strings.HasPrefix(strings.ToLower(style), "list"):
			sections = append(sections, Section{Text: p.text, Type: SectionList})
		default:
			sections = append(sections, Section{Text: p.text, Type: SectionParagraph})
		}
	}
	return title, sections, nil
}

// --- odt ---

func extractODT(data []byte) (string, []Section, error) {
	pkg, err := opc.Open(data)
	if err != nil {
		return "", nil, err
	}
	content, err := pkg.ReadBytes("content.xml")
	if err != nil {
		return "", nil, err
	}
	paras, err := walkParagraphs(content, map[string]bool{"p": true, "h": true}, "", func(t xml.StartElement, p *paragraph) {
		if t.Name.Local == "h" {
			p.style = "h"
			p.level, _ = strconv.Atoi(attr(t, "outline-level"))
		}
	})
	if err != nil {
		return "", nil, fmt.Errorf("parse content.xml: %w", err)
	}

	var title string
	var sections []Section
	for _, p := range paras {
		if p.style == "h" {
			level := p.level
			if level <= 0 {
				level = 1
			}
			if title == "" {
				title = p.text
			}
			sections = append(sections, Section{Title: p.text, Level: level, Text: p.text, Type: SectionHeading})
			continue
		}
		sections = append(sections, Section{Text: p.text, Type: SectionParagraph})
	}
	return title, sections, nil
}

// --- pptx ---

var slideNumber = regexp.MustCompile(`slide(\d+)\.xml$`)

func extractPPTX(data []byte) (string, []Section, error) {
	pkg, err := opc.Open(data)
	if err != nil {
		return "", nil, err
	}
	var slides []string
	for _, name := range pkg.List("ppt/slides", ".xml") {
		if path.Dir(name) == "ppt/slides" && slideNumber.MatchString(name) {
			slides = append(slides, name)
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slideIndex(slides[i]) < slideIndex(slides[j]) })

	var title string
	var sections []Section
	for _, name := range slides {
		raw, err := pkg.ReadBytes(name)
		if err != nil {
			return "", nil, err
		}
		shapes, err := slideShapes(raw)
		if err != nil {
			return "", nil, fmt.Errorf("parse %s: %w", name, err)
		}

		var slideTitle string
		var body []string
		for _, sh := range shapes {
			if sh.style == "title" || sh.style == "ctrTitle" {
				if slideTitle == "" {
					slideTitle = sh.text
				}
				continue
			}
			body = append(body, sh.text)
		}
		if title == "" {
			title = slideTitle
		}
		n := slideIndex(name)
		if slideTitle != "" {
			sections = append(sections, Section{Title: slideTitle, Level: 2, Text: slideTitle, Type: SectionHeading,
				Metadata: map[string]string{"slide": strconv.Itoa(n)}})
		}
		for _, line := range body {
			sections = append(sections, Section{Text: line, Type: SectionList,
				Metadata: map[string]string{"slide": strconv.Itoa(n)}})
		}
	}
	return title, sections, nil
}

func slideIndex(name string) int {
	m := slideNumber.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// slideShapes returns one entry per text paragraph of each shape, tagged with
// the shape's placeholder type.
func slideShapes(raw []byte) ([]paragraph, error) {
	dec := opc.NewDecoder(bytes.NewReader(raw))
	var (
		out    []paragraph
		phType string
		inSp   bool
		inT    bool
		buf    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				inSp, phType = true, ""
			case "ph":
				if inSp {
					phType = attr(t, "type")
				}
			case "p":
				buf.Reset()
			case "t":
				inT = true
			case "br":
				buf.WriteByte(' ')
			}
		case xml.CharData:
			if inSp && inT {
				buf.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inT = false
			case "p":
				if !inSp {
					continue
				}
				text := strings.TrimSpace(strings.TrimLeft(normalizeWhitespace(buf.String()), "•·-–* "))
				if text != "" {
					out = append(out, paragraph{text: text, style: phType})
				}
			case "sp":
				inSp = false
			}
		}
	}
}
