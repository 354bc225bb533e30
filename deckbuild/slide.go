// CLAUDE:SUMMARY Slide part synthesis: title and body shapes bound to placeholders, themed fonts and colours, escaped text.
package deckbuild

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/deckforge/deck"
	"github.com/hazyhaar/deckforge/opc"
	"github.com/hazyhaar/deckforge/tmplscan"
)

// style is the resolved look applied to generated parts.
type style struct {
	theme      tmplscan.Theme
	titleFont  string
	bodyFont   string
	titleColor string // hex without '#'
	background string // hex without '#'
}

func newStyle(th tmplscan.Theme) style {
	def := tmplscan.DefaultTheme()
	pickFont := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	return style{
		theme:      th,
		titleFont:  pickFont(th.FontScheme.MajorFont, def.FontScheme.MajorFont),
		bodyFont:   pickFont(th.FontScheme.MinorFont, def.FontScheme.MinorFont),
		titleColor: hexOr(th.ColorScheme.Primary, def.ColorScheme.Primary),
		background: hexOr(th.ColorScheme.Background, def.ColorScheme.Background),
	}
}

// hexOr returns v as a six-digit upper-case hex string without '#', or the
// same form of def when v is not a colour.
func hexOr(v, def string) string {
	if h, ok := normalizeHex(v); ok {
		return h
	}
	h, _ := normalizeHex(def)
	return h
}

func normalizeHex(v string) (string, bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "#")
	if len(v) != 6 {
		return "", false
	}
	for _, r := range v {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "", false
		}
	}
	return strings.ToUpper(v), true
}

// Shape geometry in EMU for a 4:3 slide; scaled for other sizes.
type box struct{ x, y, cx, cy int64 }

func (b *Builder) scale(bx box) box {
	sx := func(v int64) int64 { return v * b.cfg.SlideWidth / 9144000 }
	sy := func(v int64) int64 { return v * b.cfg.SlideHeight / 6858000 }
	return box{sx(bx.x), sy(bx.y), sx(bx.cx), sy(bx.cy)}
}

var (
	titleBox      = box{457200, 274638, 8229600, 1143000}
	titleSlideBox = box{685800, 2130425, 7772400, 1470025}
	bodyBox       = box{457200, 1600200, 8229600, 4525963}
	subtitleBox   = box{1371600, 3886200, 6400800, 1752600}
)

// slideXML renders one slide. index is the 1-based output position.
func (b *Builder) slideXML(index int, sl deck.Slide, st style) string {
	title := sl.Title
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Slide %d", index)
	}

	tb, bb := titleBox, bodyBox
	if sl.Type == deck.SlideTitle {
		tb, bb = titleSlideBox, subtitleBox
	}

	var w strings.Builder
	w.WriteString(opc.Declaration)
	fmt.Fprintf(&w, `<p:sld %s>`, nsDecl)
	w.WriteString(`<p:cSld>`)
	fmt.Fprintf(&w, `<p:bg><p:bgPr><a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>`, st.background)
	w.WriteString(`<p:spTree>`)
	w.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`)
	w.WriteString(`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`)

	b.writeShape(&w, shape{
		id:      2,
		name:    "Title 1",
		phType:  "title",
		box:     b.scale(tb),
		text:    title,
		font:    st.titleFont,
		size:    b.cfg.TitleSize,
		bold:    true,
		color:   st.titleColor,
		anchor:  "ctr",
		centred: sl.Type == deck.SlideTitle,
	})
	if !sl.Content.Empty() {
		b.writeShape(&w, shape{
			id:     3,
			name:   "Content Placeholder 2",
			phType: "body",
			phIdx:  1,
			box:    b.scale(bb),
			text:   sl.Content.Bulleted(),
			font:   st.bodyFont,
			size:   b.cfg.BodySize,
		})
	}

	w.WriteString(`</p:spTree></p:cSld>`)
	w.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	w.WriteString(`</p:sld>`)
	return w.String()
}

type shape struct {
	id      int
	name    string
	phType  string
	phIdx   int
	box     box
	text    string
	font    string
	size    int
	bold    bool
	color   string
	anchor  string
	centred bool
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// writeShape emits a placeholder shape with one paragraph per text line.
func (b *Builder) writeShape(w *strings.Builder, s shape) {
	w.WriteString(`<p:sp><p:nvSpPr>`)
	fmt.Fprintf(w, `<p:cNvPr id="%d" name="%s"/>`, s.id, opc.Escape(s.name))
	w.WriteString(`<p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr>`)
	if s.phIdx > 0 {
		fmt.Fprintf(w, `<p:nvPr><p:ph type="%s" idx="%d"/></p:nvPr>`, s.phType, s.phIdx)
	} else {
		fmt.Fprintf(w, `<p:nvPr><p:ph type="%s"/></p:nvPr>`, s.phType)
	}
	w.WriteString(`</p:nvSpPr>`)
	fmt.Fprintf(w, `<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm></p:spPr>`,
		s.box.x, s.box.y, s.box.cx, s.box.cy)

	w.WriteString(`<p:txBody>`)
	if s.anchor != "" {
		fmt.Fprintf(w, `<a:bodyPr anchor="%s"><a:normAutofit/></a:bodyPr>`, s.anchor)
	} else {
		w.WriteString(`<a:bodyPr><a:normAutofit/></a:bodyPr>`)
	}
	w.WriteString(`<a:lstStyle/>`)

	algn := ""
	if s.centred {
		algn = ` algn="ctr"`
	}
	bold := ""
	if s.bold {
		bold = ` b="1"`
	}
	fill := ""
	if s.color != "" {
		fill = fmt.Sprintf(`<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, s.color)
	}
	font := opc.Escape(s.font)

	for _, line := range strings.Split(newlines.Replace(s.text), "\n") {
		fmt.Fprintf(w, `<a:p><a:pPr marL="0" indent="0"%s><a:buNone/></a:pPr>`, algn)
		fmt.Fprintf(w, `<a:r><a:rPr lang="%s" sz="%d"%s dirty="0">%s<a:latin typeface="%s"/><a:cs typeface="%s"/></a:rPr>`,
			opc.Escape(b.cfg.Language), s.size, bold, fill, font, font)
		fmt.Fprintf(w, `<a:t>%s</a:t></a:r></a:p>`, opc.Escape(line))
	}
	w.WriteString(`</p:txBody></p:sp>`)
}
