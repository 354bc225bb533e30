// CLAUDE:SUMMARY Shared deck data model: ContentAnalysis, SlideStructure, Slide, and the string-or-list Content type.
// Package deck holds the data exchanged between the content planner, the
// template analyzer, and the presentation builder.
package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoSlides is returned by Validate for a structure without slides.
var ErrNoSlides = errors.New("deck: structure has no slides")

// SlideType is the role a slide plays in the deck.
type SlideType string

const (
	SlideTitle      SlideType = "title"
	SlideContent    SlideType = "content"
	SlideComparison SlideType = "comparison"
	SlideConclusion SlideType = "conclusion"
)

// Valid reports whether t is one of the known slide types.
func (t SlideType) Valid() bool {
	switch t {
	case SlideTitle, SlideContent, SlideComparison, SlideConclusion:
		return true
	}
	return false
}

// BulletSeparator joins content lines inside a body shape.
const BulletSeparator = "\n• "

// BulletGlyph prefixes the first content line.
const BulletGlyph = "• "

// Content is a slide body. Planners answer with either a list of bullet
// lines or a single string; both decode into Content. A bare string is kept
// as one element with Raw set so it is rendered without bullet joining.
type Content struct {
	Lines []string
	Raw   bool
}

// Lines builds list content.
func Lines(lines ...string) Content { return Content{Lines: lines} }

// Text builds bare-string content.
func Text(s string) Content {
	if s == "" {
		return Content{Raw: true}
	}
	return Content{Lines: []string{s}, Raw: true}
}

// Empty reports whether there is nothing to render.
func (c Content) Empty() bool {
	for _, l := range c.Lines {
		if l != "" {
			return false
		}
	}
	return true
}

// Joined returns the body text without the leading bullet: list content is
// joined with BulletSeparator, bare-string content is returned as-is.
func (c Content) Joined() string {
	if c.Raw {
		return strings.Join(c.Lines, "\n")
	}
	return strings.Join(c.Lines, BulletSeparator)
}

// Bulleted returns the body text as rendered in a slide: BulletGlyph + Joined.
func (c Content) Bulleted() string {
	return BulletGlyph + c.Joined()
}

// MarshalJSON writes a string for bare content and an array otherwise.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Raw {
		return json.Marshal(strings.Join(c.Lines, "\n"))
	}
	if c.Lines == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Lines)
}

// UnmarshalJSON accepts a string, an array of strings, or null.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*c = Content{}
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
		return nil
	case strings.HasPrefix(trimmed, "["):
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		lines := make([]string, 0, len(raw))
		for _, v := range raw {
			switch x := v.(type) {
			case string:
				lines = append(lines, x)
			case nil:
			default:
				lines = append(lines, fmt.Sprint(x))
			}
		}
		*c = Content{Lines: lines}
		return nil
	}
	return fmt.Errorf("deck: content must be a string or an array, got %.20s", trimmed)
}

// Slide is one planned slide. SlideNumber is informational; builders place
// slides by their position in SlideStructure.Slides.
type Slide struct {
	SlideNumber int       `json:"slideNumber"`
	Type        SlideType `json:"type" validate:"omitempty,oneof=title content comparison conclusion"`
	Title       string    `json:"title"`
	Content     Content   `json:"content"`
	Notes       string    `json:"notes"`
}

// SlideStructure is the planned outline of a deck.
type SlideStructure struct {
	TotalSlides int     `json:"totalSlides"`
	Slides      []Slide `json:"slides" validate:"dive"`
}

// Validate reports structural problems that make a structure unusable for a
// request: no slides, or an unknown slide type.
func (s *SlideStructure) Validate() error {
	if s == nil || len(s.Slides) == 0 {
		return ErrNoSlides
	}
	for i, sl := range s.Slides {
		if sl.Type != "" && !sl.Type.Valid() {
			return fmt.Errorf("deck: slide %d: unknown type %q", i+1, sl.Type)
		}
	}
	return nil
}

// Title returns the first non-empty slide title, or "".
func (s *SlideStructure) Title() string {
	if s == nil {
		return ""
	}
	for _, sl := range s.Slides {
		if t := strings.TrimSpace(sl.Title); t != "" {
			return t
		}
	}
	return ""
}

// MaxThemes bounds ContentAnalysis.Themes.
const MaxThemes = 5

// ContentAnalysis is the planner's thematic reading of the source text.
type ContentAnalysis struct {
	Title      string              `json:"title"`
	Themes     []string            `json:"themes"`
	KeyPoints  map[string][]string `json:"keyPoints"`
	SlideCount int                 `json:"slideCount"`
	Structure  string              `json:"structure"`
}

// Normalize trims Themes to MaxThemes and drops blank entries.
func (a *ContentAnalysis) Normalize() {
	themes := a.Themes[:0]
	for _, t := range a.Themes {
		if t = strings.TrimSpace(t); t != "" {
			themes = append(themes, t)
		}
	}
	if len(themes) > MaxThemes {
		themes = themes[:MaxThemes]
	}
	a.Themes = themes
	if a.KeyPoints == nil {
		a.KeyPoints = map[string][]string{}
	}
}
