// CLAUDE:SUMMARY Structural parts derived from the slide count: content types, relationship graphs, presentation part, document properties.
package deckbuild

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/deckforge/deck"
	"github.com/hazyhaar/deckforge/opc"
)

const (
	presentationPath = "ppt/presentation.xml"
	masterPath       = "ppt/slideMasters/slideMaster1.xml"
	layoutPath       = "ppt/slideLayouts/slideLayout1.xml"
	themePath        = "ppt/theme/theme1.xml"
	corePropsPath    = "docProps/core.xml"
	appPropsPath     = "docProps/app.xml"

	// FirstSlideID is the lowest slide id the format allows.
	FirstSlideID = 256
	// masterID and layoutID live in the id space reserved above 2^31.
	masterID = 2147483648
	layoutID = 2147483649
)

// Content types of presentation parts.
const (
	typePresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	typeSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	typeSlideMaster  = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	typeSlideLayout  = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	typeTheme        = "application/vnd.openxmlformats-officedocument.theme+xml"
)

// Relationship types of presentation parts.
const (
	relSlide       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relSlideMaster = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	relSlideLayout = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relTheme       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
)

// XML namespaces used by generated parts.
const (
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"
)

const nsDecl = `xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"`

func slidePath(n int) string { return fmt.Sprintf("ppt/slides/slide%d.xml", n) }

func slideRelID(i int) string { return fmt.Sprintf("rId%d", i+1) }

func contentTypes(n int) *opc.ContentTypes {
	ct := opc.NewContentTypes()
	ct.AddOverride(presentationPath, typePresentation)
	for i := 1; i <= n; i++ {
		ct.AddOverride(slidePath(i), typeSlide)
	}
	ct.AddOverride(masterPath, typeSlideMaster)
	ct.AddOverride(layoutPath, typeSlideLayout)
	ct.AddOverride(themePath, typeTheme)
	ct.AddOverride(corePropsPath, opc.TypeCoreProperties)
	ct.AddOverride(appPropsPath, opc.TypeExtProperties)
	return ct
}

func rootRelationships() *opc.Relationships {
	rels := opc.NewRelationships()
	rels.Add("rId1", opc.RelTypeOfficeDocument, presentationPath)
	rels.Add("rId2", opc.RelTypeCoreProperties, corePropsPath)
	rels.Add("rId3", opc.RelTypeExtProperties, appPropsPath)
	return rels
}

// presentationRelationships binds rId1..rIdN to the slides in order; the
// master and theme take the two ids after the last slide.
func presentationRelationships(n int) *opc.Relationships {
	rels := opc.NewRelationships()
	for i := 0; i < n; i++ {
		rels.Add(slideRelID(i), relSlide, fmt.Sprintf("slides/slide%d.xml", i+1))
	}
	rels.Add(slideRelID(n), relSlideMaster, "slideMasters/slideMaster1.xml")
	rels.Add(slideRelID(n+1), relTheme, "theme/theme1.xml")
	return rels
}

func presentationXML(n int, cx, cy int64) string {
	var b strings.Builder
	b.WriteString(opc.Declaration)
	fmt.Fprintf(&b, `<p:presentation %s saveSubsetFonts="1">`, nsDecl)
	fmt.Fprintf(&b, `<p:sldMasterIdLst><p:sldMasterId id="%d" r:id="%s"/></p:sldMasterIdLst>`, masterID, slideRelID(n))
	b.WriteString(`<p:sldIdLst>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="%s"/>`, FirstSlideID+i, slideRelID(i))
	}
	b.WriteString(`</p:sldIdLst>`)
	sizeType := ""
	if cx*3 == cy*4 {
		sizeType = ` type="screen4x3"`
	}
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"%s/>`, cx, cy, sizeType)
	fmt.Fprintf(&b, `<p:notesSz cx="%d" cy="%d"/>`, cy, cx)
	b.WriteString(`<p:defaultTextStyle><a:defPPr><a:defRPr lang="en-US"/></a:defPPr></p:defaultTextStyle>`)
	b.WriteString(`</p:presentation>`)
	return b.String()
}

func slideRelationships() *opc.Relationships {
	rels := opc.NewRelationships()
	rels.Add("rId1", relSlideLayout, "../slideLayouts/slideLayout1.xml")
	return rels
}

type appProperties struct {
	XMLName            xml.Name `xml:"Properties"`
	Xmlns              string   `xml:"xmlns,attr"`
	Application        string   `xml:"Application"`
	PresentationFormat string   `xml:"PresentationFormat,omitempty"`
	Slides             int      `xml:"Slides"`
}

const nsExtProps = "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"

func (b *Builder) writeProperties(pkg *opc.Package, s *deck.SlideStructure) error {
	format := ""
	if b.cfg.SlideWidth*3 == b.cfg.SlideHeight*4 {
		format = "On-screen Show (4:3)"
	}
	app := appProperties{
		Xmlns:              nsExtProps,
		Application:        b.cfg.Application,
		PresentationFormat: format,
		Slides:             len(s.Slides),
	}
	if err := pkg.WritePart(appPropsPath, app); err != nil {
		return err
	}

	title := s.Title()
	if title == "" {
		title = "Presentation"
	}
	stamp := b.cfg.now().UTC().Format(time.RFC3339)
	var c strings.Builder
	c.WriteString(opc.Declaration)
	c.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	fmt.Fprintf(&c, `<dc:title>%s</dc:title>`, opc.Escape(title))
	fmt.Fprintf(&c, `<dc:creator>%s</dc:creator>`, opc.Escape(b.cfg.Application))
	fmt.Fprintf(&c, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, stamp)
	fmt.Fprintf(&c, `<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>`, stamp)
	c.WriteString(`</cp:coreProperties>`)
	pkg.WriteText(corePropsPath, c.String())
	return nil
}
