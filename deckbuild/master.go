// CLAUDE:SUMMARY Emits the single slide master, slide layout, and theme part that make a generated package openable.
package deckbuild

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/deckforge/opc"
	"github.com/hazyhaar/deckforge/tmplscan"
)

func (b *Builder) writeMaster(pkg *opc.Package, st style) error {
	pkg.WriteText(masterPath, masterXML(st, b.cfg.TitleSize, b.cfg.BodySize))
	mrels := opc.NewRelationships()
	mrels.Add("rId1", relSlideLayout, "../slideLayouts/slideLayout1.xml")
	mrels.Add("rId2", relTheme, "../theme/theme1.xml")
	if err := pkg.WritePart(opc.RelsPathFor(masterPath), mrels); err != nil {
		return err
	}

	pkg.WriteText(layoutPath, layoutXML())
	lrels := opc.NewRelationships()
	lrels.Add("rId1", relSlideMaster, "../slideMasters/slideMaster1.xml")
	if err := pkg.WritePart(opc.RelsPathFor(layoutPath), lrels); err != nil {
		return err
	}

	pkg.WriteText(themePath, themeXML(st))
	return nil
}

const emptyGroup = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

func masterXML(st style, titleSize, bodySize int) string {
	var w strings.Builder
	w.WriteString(opc.Declaration)
	fmt.Fprintf(&w, `<p:sldMaster %s>`, nsDecl)
	w.WriteString(`<p:cSld>`)
	fmt.Fprintf(&w, `<p:bg><p:bgPr><a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>`, st.background)
	w.WriteString(`<p:spTree>` + emptyGroup)
	w.WriteString(placeholder(2, "Title Placeholder 1", `<p:ph type="title"/>`, titleBox))
	w.WriteString(placeholder(3, "Text Placeholder 2", `<p:ph type="body" idx="1"/>`, bodyBox))
	w.WriteString(`</p:spTree></p:cSld>`)
	w.WriteString(`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`)
	fmt.Fprintf(&w, `<p:sldLayoutIdLst><p:sldLayoutId id="%d" r:id="rId1"/></p:sldLayoutIdLst>`, layoutID)
	w.WriteString(`<p:txStyles>`)
	fmt.Fprintf(&w, `<p:titleStyle><a:lvl1pPr><a:defRPr sz="%d" b="1"><a:solidFill><a:schemeClr val="tx2"/></a:solidFill><a:latin typeface="+mj-lt"/></a:defRPr></a:lvl1pPr></p:titleStyle>`, titleSize)
	fmt.Fprintf(&w, `<p:bodyStyle><a:lvl1pPr><a:defRPr sz="%d"><a:solidFill><a:schemeClr val="tx1"/></a:solidFill><a:latin typeface="+mn-lt"/></a:defRPr></a:lvl1pPr></p:bodyStyle>`, bodySize)
	w.WriteString(`<p:otherStyle><a:lvl1pPr><a:defRPr/></a:lvl1pPr></p:otherStyle>`)
	w.WriteString(`</p:txStyles>`)
	w.WriteString(`</p:sldMaster>`)
	return w.String()
}

func layoutXML() string {
	var w strings.Builder
	w.WriteString(opc.Declaration)
	fmt.Fprintf(&w, `<p:sldLayout %s type="obj" preserve="1">`, nsDecl)
	w.WriteString(`<p:cSld name="Title and Content"><p:spTree>` + emptyGroup)
	w.WriteString(placeholder(2, "Title 1", `<p:ph type="title"/>`, titleBox))
	w.WriteString(placeholder(3, "Content Placeholder 2", `<p:ph type="body" idx="1"/>`, bodyBox))
	w.WriteString(`</p:spTree></p:cSld>`)
	w.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	w.WriteString(`</p:sldLayout>`)
	return w.String()
}

func placeholder(id int, name, ph string, bx box) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr>%s</p:nvPr></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm></p:spPr>`+
		`<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:endParaRPr lang="en-US"/></a:p></p:txBody></p:sp>`,
		id, name, ph, bx.x, bx.y, bx.cx, bx.cy)
}

// schemeSlots lists the twelve theme colour slots in schema order with the
// fallback used when the analysed template does not name them.
var schemeSlots = []struct{ name, fallback string }{
	{"dk1", "000000"},
	{"lt1", ""},
	{"dk2", ""},
	{"lt2", "E7E6E6"},
	{"accent1", ""},
	{"accent2", ""},
	{"accent3", "A5A5A5"},
	{"accent4", "FFC000"},
	{"accent5", "5B9BD5"},
	{"accent6", "70AD47"},
	{"hlink", "0563C1"},
	{"folHlink", "954F72"},
}

// schemeColor resolves a slot: the analysed named colour, then the mapped
// builder colour, then the fixed fallback.
func schemeColor(th tmplscan.Theme, slot, fallback string) string {
	if h, ok := normalizeHex(th.ColorScheme.Named[slot]); ok {
		return h
	}
	def := tmplscan.DefaultTheme().ColorScheme
	switch slot {
	case "lt1":
		return hexOr(th.ColorScheme.Background, def.Background)
	case "dk2":
		return hexOr(th.ColorScheme.Primary, def.Primary)
	case "accent1":
		return hexOr(th.ColorScheme.Secondary, def.Secondary)
	case "accent2":
		return hexOr(th.ColorScheme.Accent, def.Accent)
	}
	return fallback
}

func themeXML(st style) string {
	name := st.theme.Name
	if name == "" {
		name = "Deck Theme"
	}
	var w strings.Builder
	w.WriteString(opc.Declaration)
	fmt.Fprintf(&w, `<a:theme xmlns:a="%s" name="%s">`, nsA, opc.Escape(name))
	w.WriteString(`<a:themeElements>`)

	fmt.Fprintf(&w, `<a:clrScheme name="%s">`, opc.Escape(name))
	for _, s := range schemeSlots {
		fmt.Fprintf(&w, `<a:%s><a:srgbClr val="%s"/></a:%s>`, s.name, schemeColor(st.theme, s.name, s.fallback), s.name)
	}
	w.WriteString(`</a:clrScheme>`)

	fmt.Fprintf(&w, `<a:fontScheme name="%s">`, opc.Escape(name))
	fmt.Fprintf(&w, `<a:majorFont><a:latin typeface="%s"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>`, opc.Escape(st.titleFont))
	fmt.Fprintf(&w, `<a:minorFont><a:latin typeface="%s"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>`, opc.Escape(st.bodyFont))
	w.WriteString(`</a:fontScheme>`)

	w.WriteString(`<a:fmtScheme name="Office">`)
	w.WriteString(`<a:fillStyleLst>` + strings.Repeat(`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`, 3) + `</a:fillStyleLst>`)
	w.WriteString(`<a:lnStyleLst>`)
	for _, wd := range []int{6350, 12700, 19050} {
		fmt.Fprintf(&w, `<a:ln w="%d" cap="flat" cmpd="sng" algn="ctr"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:prstDash val="solid"/><a:miter lim="800000"/></a:ln>`, wd)
	}
	w.WriteString(`</a:lnStyleLst>`)
	w.WriteString(`<a:effectStyleLst>` + strings.Repeat(`<a:effectStyle><a:effectLst/></a:effectStyle>`, 3) + `</a:effectStyleLst>`)
	w.WriteString(`<a:bgFillStyleLst>` + strings.Repeat(`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`, 3) + `</a:bgFillStyleLst>`)
	w.WriteString(`</a:fmtScheme>`)

	w.WriteString(`</a:themeElements><a:objectDefaults/><a:extraClrSchemeLst/></a:theme>`)
	return w.String()
}
