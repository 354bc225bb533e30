// CLAUDE:SUMMARY Presentation builder: synthesizes a complete .pptx package from a SlideStructure and a template analysis.
// Package deckbuild writes presentation packages.
//
// The package is generated from scratch: the content-types manifest, the
// relationship graphs, and the slide-id list are all derived from the number
// of slides on every build. Slide i (0-based) always gets slide id 256+i,
// relationship id rId{i+1}, and part ppt/slides/slide{i+1}.xml.
//
// The template's theme fonts and colours are applied to the generated slides
// and to the generated theme part. The template's own slides, masters, and
// media are not copied.
//
// Usage:
//
//	b := deckbuild.New(deckbuild.Config{})
//	data, err := b.Build(structure, analysis)
package deckbuild

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/deckforge/deck"
	"github.com/hazyhaar/deckforge/opc"
	"github.com/hazyhaar/deckforge/tmplscan"
)

// ContentType is the MIME type of a generated package.
const ContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// Config configures the builder.
type Config struct {
	// SlideWidth and SlideHeight in EMU (default: 9144000 x 6858000, 4:3).
	SlideWidth  int64 `json:"slide_width" yaml:"slide_width"`
	SlideHeight int64 `json:"slide_height" yaml:"slide_height"`

	// TitleSize and BodySize in hundredths of a point (default: 3200, 2000).
	TitleSize int `json:"title_size" yaml:"title_size"`
	BodySize  int `json:"body_size" yaml:"body_size"`

	// Language tag written on text runs (default: en-US).
	Language string `json:"language" yaml:"language"`

	// Application name written to docProps (default: deckforge).
	Application string `json:"application" yaml:"application"`

	// Logger for debug messages.
	Logger *slog.Logger `json:"-" yaml:"-"`

	now func() time.Time
}

func (c *Config) defaults() {
	if c.SlideWidth <= 0 {
		c.SlideWidth = 9144000
	}
	if c.SlideHeight <= 0 {
		c.SlideHeight = 6858000
	}
	if c.TitleSize <= 0 {
		c.TitleSize = 3200
	}
	if c.BodySize <= 0 {
		c.BodySize = 2000
	}
	if c.Language == "" {
		c.Language = "en-US"
	}
	if c.Application == "" {
		c.Application = "deckforge"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
}

// BuildError reports a failure to assemble or serialize the package.
type BuildError struct {
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("deckbuild: %s: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Builder creates presentation packages. It is stateless and safe for
// concurrent use.
type Builder struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Builder.
func New(cfg Config) *Builder {
	cfg.defaults()
	return &Builder{cfg: cfg, logger: cfg.Logger}
}

// Build renders s into a .pptx package styled with the theme of a. A nil
// analysis uses the default theme. A structure with no slides produces a
// package with empty slide lists.
func (b *Builder) Build(s *deck.SlideStructure, a *tmplscan.Analysis) ([]byte, error) {
	if s == nil {
		s = &deck.SlideStructure{}
	}
	theme := tmplscan.DefaultTheme()
	if a != nil {
		theme = a.Theme
	}
	st := newStyle(theme)
	n := len(s.Slides)

	if s.TotalSlides != n {
		b.logger.Debug("deckbuild: totalSlides differs from slide count", "total_slides", s.TotalSlides, "slides", n)
	}

	pkg := opc.New()
	steps := []struct {
		stage string
		fn    func() error
	}{
		{"content types", func() error { return pkg.WritePart(opc.ContentTypesPath, contentTypes(n)) }},
		{"root relationships", func() error { return pkg.WritePart(opc.RootRelsPath, rootRelationships()) }},
		{"presentation", func() error {
			pkg.WriteText(presentationPath, presentationXML(n, b.cfg.SlideWidth, b.cfg.SlideHeight))
			return nil
		}},
		{"presentation relationships", func() error {
			return pkg.WritePart(opc.RelsPathFor(presentationPath), presentationRelationships(n))
		}},
		{"slides", func() error {
			for i, sl := range s.Slides {
				if sl.SlideNumber != 0 && sl.SlideNumber != i+1 {
					b.logger.Debug("deckbuild: slideNumber ignored for placement", "position", i+1, "slide_number", sl.SlideNumber)
				}
				part := slidePath(i + 1)
				pkg.WriteText(part, b.slideXML(i+1, sl, st))
				if err := pkg.WritePart(opc.RelsPathFor(part), slideRelationships()); err != nil {
					return err
				}
			}
			return nil
		}},
		{"master", func() error { return b.writeMaster(pkg, st) }},
		{"properties", func() error { return b.writeProperties(pkg, s) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return nil, &BuildError{Stage: step.stage, Err: err}
		}
	}

	out, err := pkg.Serialize()
	if err != nil {
		return nil, &BuildError{Stage: "serialize", Err: err}
	}
	b.logger.Debug("deckbuild: package built", "slides", n, "bytes", len(out))
	return out, nil
}
