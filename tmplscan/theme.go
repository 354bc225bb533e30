// CLAUDE:SUMMARY Locates the primary theme part and extracts its colour scheme and major/minor latin fonts.
package tmplscan

import (
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/hazyhaar/deckforge/opc"
)

// Scheme colour slots mapped onto the builder's four colours.
const (
	slotPrimary    = "dk2"
	slotSecondary  = "accent1"
	slotAccent     = "accent2"
	slotBackground = "lt1"
)

type themeXML struct {
	Name     string `xml:"name,attr"`
	Elements struct {
		ClrScheme struct {
			Name   string     `xml:"name,attr"`
			Colors []colorXML `xml:",any"`
		} `xml:"clrScheme"`
		FontScheme struct {
			Name  string  `xml:"name,attr"`
			Major fontXML `xml:"majorFont"`
			Minor fontXML `xml:"minorFont"`
		} `xml:"fontScheme"`
	} `xml:"themeElements"`
}

type colorXML struct {
	XMLName xml.Name
	SRGB    *struct {
		Val string `xml:"val,attr"`
	} `xml:"srgbClr"`
	Sys *struct {
		Val     string `xml:"val,attr"`
		LastClr string `xml:"lastClr,attr"`
	} `xml:"sysClr"`
}

type typefaceXML struct {
	Typeface string `xml:"typeface,attr"`
}

type fontXML struct {
	Latin typefaceXML `xml:"latin"`
	EA    typefaceXML `xml:"ea"`
	CS    typefaceXML `xml:"cs"`
}

func (s *Scanner) theme(pkg *opc.Package) Theme {
	th := DefaultTheme()
	entry := locateTheme(pkg)
	if entry == "" {
		s.logger.Debug("tmplscan: no theme part")
		return th
	}
	th.Path = entry

	var doc themeXML
	if err := pkg.DecodeXML(entry, &doc); err != nil {
		s.logger.Debug("tmplscan: parse theme", "path", entry, "error", err)
		return th
	}
	th.Name = doc.Name

	named := make(map[string]string)
	for _, c := range doc.Elements.ClrScheme.Colors {
		if hex := c.hex(); hex != "" {
			named[c.XMLName.Local] = hex
		}
	}
	if len(named) > 0 {
		th.ColorScheme.Named = named
		th.Extracted = true
	}
	pick := func(slot, def string) string {
		if v, ok := named[slot]; ok {
			return v
		}
		return def
	}
	th.ColorScheme.Primary = pick(slotPrimary, DefaultPrimary)
	th.ColorScheme.Secondary = pick(slotSecondary, DefaultSecondary)
	th.ColorScheme.Accent = pick(slotAccent, DefaultAccent)
	th.ColorScheme.Background = pick(slotBackground, DefaultBackground)

	if f := usableTypeface(doc.Elements.FontScheme.Major.Latin.Typeface); f != "" {
		th.FontScheme.MajorFont = f
		th.Extracted = true
	}
	if f := usableTypeface(doc.Elements.FontScheme.Minor.Latin.Typeface); f != "" {
		th.FontScheme.MinorFont = f
		th.Extracted = true
	}
	return th
}

// locateTheme follows the presentation's theme relationship, then falls back
// to theme1.xml, then to the first theme part in the archive.
func locateTheme(pkg *opc.Package) string {
	if rels, err := pkg.ReadRelationships(presentationPath); err == nil {
		if rel, ok := rels.ByType("/theme"); ok {
			if target := opc.ResolveTarget(presentationPath, rel.Target); pkg.Has(target) {
				return target
			}
		}
	}
	if pkg.Has(primaryTheme) {
		return primaryTheme
	}
	if themes := pkg.List(themeDir, ".xml"); len(themes) > 0 {
		return themes[0]
	}
	return ""
}

var hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

func (c colorXML) hex() string {
	var v string
	switch {
	case c.SRGB != nil:
		v = c.SRGB.Val
	case c.Sys != nil:
		v = c.Sys.LastClr
	}
	if !hexColor.MatchString(v) {
		return ""
	}
	return "#" + strings.ToUpper(v)
}

// usableTypeface drops empty names and theme references such as "+mj-lt".
func usableTypeface(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "+") {
		return ""
	}
	return name
}
