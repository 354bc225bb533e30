// CLAUDE:SUMMARY Template analyzer: reads layouts, theme, media, and app properties from a presentation template, defaulting every failed step.
// Package tmplscan inspects a presentation template archive (.pptx/.potx) and
// describes its layouts, colour/font theme, raster images, and properties.
//
// Analysis is advisory. Analyze never returns an error: each step that fails
// is replaced by its default, and an archive that cannot be opened at all
// yields Default(reason).
//
// Usage:
//
//	scan := tmplscan.New(tmplscan.Config{})
//	a := scan.Analyze(templateBytes)
//	fmt.Println(a.Theme.FontScheme.MajorFont, len(a.Layouts), "layouts")
package tmplscan

import (
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/hazyhaar/deckforge/opc"
)

// Package locations inside a presentation archive.
const (
	presentationPath = "ppt/presentation.xml"
	layoutsDir       = "ppt/slideLayouts"
	themeDir         = "ppt/theme"
	primaryTheme     = "ppt/theme/theme1.xml"
	mediaDir         = "ppt/media"
	slidesDir        = "ppt/slides"
	appPropsPath     = "docProps/app.xml"
	corePropsPath    = "docProps/core.xml"
)

// Layout classification markers, checked in this order.
const (
	markerTitle     = "ctrTitle"
	markerBody      = "body"
	markerTwoColumn = "twoColTx"
)

var imageExt = regexp.MustCompile(`(?i)\.(png|jpe?g|gif)$`)

// Config configures the analyzer.
type Config struct {
	// MaxLayouts is the number of layouts reported (default: 5).
	MaxLayouts int `json:"max_layouts" yaml:"max_layouts"`

	// Logger for debug messages about defaulted steps.
	Logger *slog.Logger `json:"-" yaml:"-"`

	now func() time.Time
}

func (c *Config) defaults() {
	if c.MaxLayouts <= 0 {
		c.MaxLayouts = 5
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
}

// Scanner analyzes templates. It holds no per-request state and is safe for
// concurrent use.
type Scanner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Scanner.
func New(cfg Config) *Scanner {
	cfg.defaults()
	return &Scanner{cfg: cfg, logger: cfg.Logger}
}

// Analyze describes the template held in data. It never fails.
func (s *Scanner) Analyze(data []byte) (a *Analysis) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("tmplscan: analysis panicked", "panic", r)
			a = Default(fmt.Sprintf("analysis failed: %v", r))
		}
	}()

	pkg, err := opc.Open(data)
	if err != nil {
		s.logger.Debug("tmplscan: open template", "error", err)
		return Default(err.Error())
	}

	a = &Analysis{
		Layouts: s.layouts(pkg),
		Theme:   s.theme(pkg),
		Images:  s.images(pkg),
	}
	a.Metadata = s.metadata(pkg, a)
	return a
}

func (s *Scanner) layouts(pkg *opc.Package) []Layout {
	var out []Layout
	for _, name := range pkg.List(layoutsDir, ".xml") {
		if len(out) >= s.cfg.MaxLayouts {
			break
		}
		// Nested entries (e.g. _rels) are not layouts.
		if path.Dir(name) != layoutsDir {
			continue
		}
		raw, err := pkg.ReadText(name)
		if err != nil {
			s.logger.Debug("tmplscan: read layout", "path", name, "error", err)
			continue
		}
		out = append(out, Layout{
			Name: layoutName(name, raw),
			Path: name,
			Type: Classify(raw),
		})
	}
	if len(out) == 0 {
		return DefaultLayouts()
	}
	return out
}

// Classify infers a layout type from raw layout XML by substring checks:
// title marker first, then body, then two-column, else basic.
func Classify(raw string) LayoutType {
	switch {
	case strings.Contains(raw, markerTitle):
		return LayoutTitle
	case strings.Contains(raw, markerBody):
		return LayoutContent
	case strings.Contains(raw, markerTwoColumn):
		return LayoutTwoColumn
	}
	return LayoutBasic
}

var cSldName = regexp.MustCompile(`<(?:\w+:)?cSld\b[^>]*\bname="([^"]*)"`)

// layoutName prefers the layout's display name and falls back to the file name.
func layoutName(entry, raw string) string {
	if m := cSldName.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		return unescapeAttr(m[1])
	}
	return strings.TrimSuffix(path.Base(entry), path.Ext(entry))
}

var attrUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeAttr(s string) string { return attrUnescaper.Replace(s) }

func (s *Scanner) images(pkg *opc.Package) []Image {
	out := []Image{}
	for _, name := range pkg.List(mediaDir) {
		if !imageExt.MatchString(name) {
			continue
		}
		out = append(out, Image{
			Name: path.Base(name),
			Path: name,
			Type: strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")),
		})
	}
	return out
}

func (s *Scanner) metadata(pkg *opc.Package, a *Analysis) map[string]any {
	md := map[string]any{
		"analyzed":    true,
		"timestamp":   s.cfg.now().UTC().Format(time.RFC3339),
		"entryCount":  pkg.Len(),
		"slideCount":  len(slideEntries(pkg)),
		"layoutCount": len(pkg.List(layoutsDir, ".xml")),
		"imageCount":  len(a.Images),
	}
	if app, err := readProperties(pkg, appPropsPath); err == nil {
		md["app"] = app
	} else {
		s.logger.Debug("tmplscan: app properties", "error", err)
		md["app"] = map[string]string{}
	}
	if core, err := readProperties(pkg, corePropsPath); err == nil && len(core) > 0 {
		md["core"] = core
	}
	return md
}

func slideEntries(pkg *opc.Package) []string {
	var out []string
	for _, name := range pkg.List(slidesDir, ".xml") {
		if path.Dir(name) == slidesDir {
			out = append(out, name)
		}
	}
	return out
}
