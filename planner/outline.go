// CLAUDE:SUMMARY Offline planner: derives themes and key points from the text's markdown heading structure, no network.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/deckforge/deck"
	"github.com/hazyhaar/deckforge/docpipe"
)

const (
	outlineMaxPoints   = 6
	outlinePointLength = 120
)

type outlinePlanner struct {
	cfg Config
}

func newOutline(cfg Config) (Planner, error) {
	return &outlinePlanner{cfg: cfg}, nil
}

func (p *outlinePlanner) Provider() Provider { return Outline }
func (p *outlinePlanner) Model() string      { return p.cfg.Model }

// AnalyzeText uses the first heading as title and the shallowest remaining
// heading level as themes. Without headings, the text is split into at most
// five equal parts named after their first point.
func (p *outlinePlanner) AnalyzeText(ctx context.Context, text, guidance string) (*deck.ContentAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text = truncateRunes(text, p.cfg.MaxInputChars)
	title, sections := docpipe.ParseMarkdown(text)

	a := &deck.ContentAnalysis{Title: title, KeyPoints: map[string][]string{}}
	themeLevel := 0
	for _, s := range sections {
		if s.Type == docpipe.SectionHeading && s.Text != title {
			if themeLevel == 0 || s.Level < themeLevel {
				themeLevel = s.Level
			}
		}
	}

	if themeLevel > 0 {
		var current string
		for _, s := range sections {
			switch {
			case s.Type == docpipe.SectionHeading && s.Level == themeLevel && s.Text != title:
				current = s.Text
				if _, seen := a.KeyPoints[current]; !seen {
					a.Themes = append(a.Themes, current)
					a.KeyPoints[current] = nil
				}
			case s.Type != docpipe.SectionHeading && current != "":
				addPoint(a, current, s)
			}
		}
	} else {
		var body []docpipe.Section
		for _, s := range sections {
			if s.Type != docpipe.SectionHeading {
				body = append(body, s)
			}
		}
		parts := min(deck.MaxThemes, len(body))
		for i := 0; i < parts; i++ {
			chunk := body[i*len(body)/parts : (i+1)*len(body)/parts]
			theme := keyPoint(chunk[0].Text)
			if _, seen := a.KeyPoints[theme]; seen {
				theme = fmt.Sprintf("%s (%d)", theme, i+1)
			}
			a.Themes = append(a.Themes, theme)
			for _, s := range chunk {
				addPoint(a, theme, s)
			}
		}
	}

	if a.Title == "" {
		a.Title = "Presentation"
	}
	a.Normalize()
	a.SlideCount = len(a.Themes) + 2
	a.Structure = fmt.Sprintf("title slide, %d content slides, conclusion", len(a.Themes))
	return a, nil
}

func addPoint(a *deck.ContentAnalysis, theme string, s docpipe.Section) {
	if len(a.KeyPoints[theme]) >= outlineMaxPoints {
		return
	}
	if pt := keyPoint(s.Text); pt != "" {
		a.KeyPoints[theme] = append(a.KeyPoints[theme], pt)
	}
}

// keyPoint keeps the first sentence of a paragraph, cut at a word boundary.
func keyPoint(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, ". "); i > 0 {
		text = text[:i+1]
	}
	r := []rune(text)
	if len(r) <= outlinePointLength {
		return text
	}
	cut := string(r[:outlinePointLength])
	if i := strings.LastIndexByte(cut, ' '); i > outlinePointLength/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}

func (p *outlinePlanner) GenerateSlideStructure(ctx context.Context, a *deck.ContentAnalysis, guidance string) (*deck.SlideStructure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &ProviderError{Provider: Outline, Op: OpGenerate, Err: fmt.Errorf("nil analysis")}
	}

	s := &deck.SlideStructure{}
	add := func(typ deck.SlideType, title string, content deck.Content, notes string) {
		s.Slides = append(s.Slides, deck.Slide{
			SlideNumber: len(s.Slides) + 1,
			Type:        typ,
			Title:       title,
			Content:     content,
			Notes:       notes,
		})
	}

	add(deck.SlideTitle, a.Title, deck.Content{}, strings.TrimSpace(guidance))
	for _, theme := range a.Themes {
		points := a.KeyPoints[theme]
		if len(points) == 0 {
			points = []string{theme}
		}
		add(deck.SlideContent, theme, deck.Lines(points...), "")
	}
	if len(a.Themes) > 0 {
		add(deck.SlideConclusion, "Conclusion", deck.Lines(a.Themes...), "")
	}
	s.TotalSlides = len(s.Slides)
	return s, nil
}
