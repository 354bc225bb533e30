// CLAUDE:SUMMARY Defines Analysis, Layout, Theme, and Image types plus the fixed defaults substituted on parse failure.
package tmplscan

// LayoutType classifies a slide layout.
type LayoutType string

const (
	LayoutTitle     LayoutType = "title"
	LayoutContent   LayoutType = "content"
	LayoutTwoColumn LayoutType = "two-column"
	LayoutBasic     LayoutType = "basic"
)

// Layout is one slide layout found in the template.
type Layout struct {
	Name string     `json:"name"`
	Path string     `json:"path,omitempty"`
	Type LayoutType `json:"type"`
}

// ColorScheme is the subset of theme colours the builder uses, plus every
// named scheme colour found (dk1, lt1, accent1, ...).
type ColorScheme struct {
	Primary    string            `json:"primary"`
	Secondary  string            `json:"secondary"`
	Accent     string            `json:"accent"`
	Background string            `json:"background"`
	Named      map[string]string `json:"named,omitempty"`
}

// FontScheme holds the latin typefaces of the theme's major and minor fonts.
type FontScheme struct {
	MajorFont string `json:"majorFont"`
	MinorFont string `json:"minorFont"`
}

// Theme is the template's colour and font scheme.
type Theme struct {
	Name        string      `json:"name,omitempty"`
	Path        string      `json:"path,omitempty"`
	Extracted   bool        `json:"extracted"`
	ColorScheme ColorScheme `json:"colorScheme"`
	FontScheme  FontScheme  `json:"fontScheme"`
}

// Image is a raster media entry of the template.
type Image struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// Analysis is the advisory description of a template. It is built once per
// request and not modified afterwards.
type Analysis struct {
	Layouts  []Layout       `json:"slideLayouts"`
	Theme    Theme          `json:"theme"`
	Images   []Image        `json:"images"`
	Metadata map[string]any `json:"metadata"`
}

// Analyzed reports whether the template archive could be opened.
func (a *Analysis) Analyzed() bool {
	if a == nil {
		return false
	}
	ok, _ := a.Metadata["analyzed"].(bool)
	return ok
}

// Default colours and fonts.
const (
	DefaultPrimary    = "#1F4E79"
	DefaultSecondary  = "#2E75B6"
	DefaultAccent     = "#ED7D31"
	DefaultBackground = "#FFFFFF"
	DefaultFont       = "Calibri"
)

// DefaultTheme returns the fixed palette and Calibri font pair.
func DefaultTheme() Theme {
	return Theme{
		ColorScheme: ColorScheme{
			Primary:    DefaultPrimary,
			Secondary:  DefaultSecondary,
			Accent:     DefaultAccent,
			Background: DefaultBackground,
		},
		FontScheme: FontScheme{MajorFont: DefaultFont, MinorFont: DefaultFont},
	}
}

// DefaultLayouts returns the layout list used when a template has none.
func DefaultLayouts() []Layout {
	return []Layout{
		{Name: "Title Slide", Type: LayoutTitle},
		{Name: "Title and Content", Type: LayoutContent},
		{Name: "Two Content", Type: LayoutTwoColumn},
	}
}

// Default returns the analysis of an unreadable template.
func Default(reason string) *Analysis {
	return &Analysis{
		Layouts: []Layout{},
		Theme:   DefaultTheme(),
		Images:  []Image{},
		Metadata: map[string]any{
			"analyzed": false,
			"error":    reason,
		},
	}
}
