package tmplscan

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func quietScanner() *Scanner {
	return New(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
}

func buildZip(t *testing.T, files [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f[0])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(f[1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const themeXMLDoc = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Corporate">
  <a:themeElements>
    <a:clrScheme name="Corporate">
      <a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>
      <a:lt1><a:sysClr val="window" lastClr="fafafa"/></a:lt1>
      <a:dk2><a:srgbClr val="112233"/></a:dk2>
      <a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>
      <a:accent1><a:srgbClr val="4472C4"/></a:accent1>
      <a:accent2><a:srgbClr val="ED7D31"/></a:accent2>
      <a:accent3><a:srgbClr val="A5A5A5"/></a:accent3>
    </a:clrScheme>
    <a:fontScheme name="Corporate">
      <a:majorFont><a:latin typeface="Georgia"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>
      <a:minorFont><a:latin typeface="Verdana"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>
    </a:fontScheme>
  </a:themeElements>
</a:theme>`

func layoutXML(name, marker string) string {
	return fmt.Sprintf(`<p:sldLayout xmlns:p="p"><p:cSld name="%s"><p:spTree><p:sp><p:nvSpPr><p:nvPr><p:ph type="%s"/></p:nvPr></p:nvSpPr></p:sp></p:spTree></p:cSld></p:sldLayout>`, name, marker)
}

func TestAnalyze_NeverFails(t *testing.T) {
	s := quietScanner()
	inputs := map[string][]byte{
		"nil":     nil,
		"empty":   {},
		"garbage": []byte("\x00\x01definitely not a zip"),
		"truncated": func() []byte {
			d := buildZip(t, [][2]string{{"a.xml", "<a/>"}})
			return d[:len(d)/2]
		}(),
	}
	for name, in := range inputs {
		a := s.Analyze(in)
		if a == nil {
			t.Fatalf("%s: nil analysis", name)
		}
		if a.Layouts == nil || a.Images == nil || a.Metadata == nil {
			t.Errorf("%s: unpopulated fields %+v", name, a)
		}
		if len(a.Layouts) != 0 || len(a.Images) != 0 {
			t.Errorf("%s: want empty collections, got %+v", name, a)
		}
		if a.Analyzed() {
			t.Errorf("%s: analyzed = true", name)
		}
		if msg, _ := a.Metadata["error"].(string); msg == "" {
			t.Errorf("%s: no error message", name)
		}
		if a.Theme.FontScheme.MajorFont != DefaultFont || a.Theme.ColorScheme.Primary != DefaultPrimary {
			t.Errorf("%s: theme = %+v", name, a.Theme)
		}
	}
}

func TestAnalyze_EmptyZip(t *testing.T) {
	a := quietScanner().Analyze(buildZip(t, nil))
	if !a.Analyzed() {
		t.Fatalf("metadata = %v", a.Metadata)
	}
	if len(a.Layouts) != 3 {
		t.Fatalf("layouts = %+v", a.Layouts)
	}
	want := []LayoutType{LayoutTitle, LayoutContent, LayoutTwoColumn}
	for i, l := range a.Layouts {
		if l.Type != want[i] {
			t.Errorf("layout %d type = %s, want %s", i, l.Type, want[i])
		}
	}
	if a.Theme.Extracted || a.Theme.ColorScheme.Primary != DefaultPrimary || a.Theme.Path != "" {
		t.Errorf("theme = %+v", a.Theme)
	}
	if a.Images == nil || len(a.Images) != 0 {
		t.Errorf("images = %v", a.Images)
	}
	if a.Metadata["timestamp"] != "2026-01-02T03:04:05Z" {
		t.Errorf("timestamp = %v", a.Metadata["timestamp"])
	}
}

func TestAnalyze_LayoutCap(t *testing.T) {
	var files [][2]string
	for i := 1; i <= 8; i++ {
		files = append(files, [2]string{
			fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i),
			layoutXML(fmt.Sprintf("Layout %d", i), "obj"),
		})
	}
	a := quietScanner().Analyze(buildZip(t, files))
	if len(a.Layouts) != 5 {
		t.Fatalf("got %d layouts, want 5", len(a.Layouts))
	}
	for i, l := range a.Layouts {
		if want := fmt.Sprintf("Layout %d", i+1); l.Name != want {
			t.Errorf("layout %d name = %q, want %q", i, l.Name, want)
		}
	}
	if a.Metadata["layoutCount"] != 8 {
		t.Errorf("layoutCount = %v", a.Metadata["layoutCount"])
	}
}

func TestAnalyze_LayoutNativeOrder(t *testing.T) {
	a := quietScanner().Analyze(buildZip(t, [][2]string{
		{"ppt/slideLayouts/slideLayout10.xml", `<x/>`},
		{"ppt/slideLayouts/slideLayout2.xml", `<x/>`},
		{"ppt/slideLayouts/_rels/slideLayout2.xml.rels", `<Relationships/>`},
	}))
	if len(a.Layouts) != 2 || a.Layouts[0].Name != "slideLayout10" || a.Layouts[1].Name != "slideLayout2" {
		t.Errorf("layouts = %+v", a.Layouts)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want LayoutType
	}{
		{`<p:ph type="ctrTitle"/><p:ph type="body"/>`, LayoutTitle},
		{`<p:ph type="body"/><p:ph type="twoColTx"/>`, LayoutContent},
		{`<p:ph type="twoColTx"/>`, LayoutTwoColumn},
		{`<p:ph type="pic"/>`, LayoutBasic},
		{``, LayoutBasic},
	}
	for _, tt := range tests {
		if got := Classify(tt.raw); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestAnalyze_ThemeExtraction(t *testing.T) {
	a := quietScanner().Analyze(buildZip(t, [][2]string{
		{"ppt/theme/theme1.xml", themeXMLDoc},
	}))
	th := a.Theme
	if !th.Extracted || th.Name != "Corporate" || th.Path != "ppt/theme/theme1.xml" {
		t.Errorf("theme header = %+v", th)
	}
	cs := th.ColorScheme
	if cs.Primary != "#112233" || cs.Secondary != "#4472C4" || cs.Accent != "#ED7D31" || cs.Background != "#FAFAFA" {
		t.Errorf("colors = %+v", cs)
	}
	if cs.Named["dk1"] != "#000000" || cs.Named["accent3"] != "#A5A5A5" || len(cs.Named) != 7 {
		t.Errorf("named = %v", cs.Named)
	}
	if th.FontScheme.MajorFont != "Georgia" || th.FontScheme.MinorFont != "Verdana" {
		t.Errorf("fonts = %+v", th.FontScheme)
	}
}

func TestAnalyze_ThemeViaRelationship(t *testing.T) {
	rels := `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="theme/theme7.xml"/>
</Relationships>`
	partial := strings.Replace(themeXMLDoc, `<a:dk2><a:srgbClr val="112233"/></a:dk2>`, "", 1)
	a := quietScanner().Analyze(buildZip(t, [][2]string{
		{"ppt/theme/theme1.xml", `<broken`},
		{"ppt/_rels/presentation.xml.rels", rels},
		{"ppt/theme/theme7.xml", partial},
	}))
	if a.Theme.Path != "ppt/theme/theme7.xml" {
		t.Fatalf("path = %s", a.Theme.Path)
	}
	// dk2 missing: primary keeps its default, the rest come from the theme.
	if a.Theme.ColorScheme.Primary != DefaultPrimary || a.Theme.ColorScheme.Secondary != "#4472C4" {
		t.Errorf("colors = %+v", a.Theme.ColorScheme)
	}
}

func TestAnalyze_BrokenThemeDefaults(t *testing.T) {
	a := quietScanner().Analyze(buildZip(t, [][2]string{
		{"ppt/theme/theme1.xml", `<a:theme><a:themeElements>`},
		{"ppt/slideLayouts/slideLayout1.xml", layoutXML("Title Slide", "ctrTitle")},
	}))
	if a.Theme.Extracted || a.Theme.FontScheme.MajorFont != DefaultFont {
		t.Errorf("theme = %+v", a.Theme)
	}
	if len(a.Layouts) != 1 || a.Layouts[0].Type != LayoutTitle || a.Layouts[0].Name != "Title Slide" {
		t.Errorf("layouts = %+v", a.Layouts)
	}
}

func TestAnalyze_ThemeFontReferencesIgnored(t *testing.T) {
	doc := strings.Replace(themeXMLDoc, `typeface="Georgia"`, `typeface="+mn-lt"`, 1)
	a := quietScanner().Analyze(buildZip(t, [][2]string{{"ppt/theme/theme1.xml", doc}}))
	if a.Theme.FontScheme.MajorFont != DefaultFont || a.Theme.FontScheme.MinorFont != "Verdana" {
		t.Errorf("fonts = %+v", a.Theme.FontScheme)
	}
}

func TestAnalyze_Images(t *testing.T) {
	a := quietScanner().Analyze(buildZip(t, [][2]string{
		{"ppt/media/image1.png", "x"},
		{"ppt/media/image2.JPEG", "x"},
		{"ppt/media/image3.jpg", "x"},
		{"ppt/media/image4.gif", "x"},
		{"ppt/media/image5.emf", "x"},
		{"ppt/media/image1.png.bak", "x"},
		{"ppt/slides/media/image9.png", "x"},
	}))
	if len(a.Images) != 4 {
		t.Fatalf("images = %+v", a.Images)
	}
	first := a.Images[0]
	if first.Name != "image1.png" || first.Path != "ppt/media/image1.png" || first.Type != "png" {
		t.Errorf("first = %+v", first)
	}
	if a.Images[1].Type != "jpeg" {
		t.Errorf("second = %+v", a.Images[1])
	}
}

func TestAnalyze_Metadata(t *testing.T) {
	app := `<?xml version="1.0" encoding="UTF-8"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">
  <Application>Microsoft Office PowerPoint</Application>
  <Slides>3</Slides>
  <HeadingPairs><vt:vector xmlns:vt="v"><vt:variant><vt:lpstr>Theme</vt:lpstr></vt:variant></vt:vector></HeadingPairs>
  <Company></Company>
</Properties>`
	a := quietScanner().Analyze(buildZip(t, [][2]string{
		{"docProps/app.xml", app},
		{"ppt/slides/slide1.xml", "<p:sld/>"},
		{"ppt/slides/_rels/slide1.xml.rels", "<Relationships/>"},
	}))
	props, ok := a.Metadata["app"].(map[string]string)
	if !ok {
		t.Fatalf("app = %T", a.Metadata["app"])
	}
	if props["Application"] != "Microsoft Office PowerPoint" || props["Slides"] != "3" {
		t.Errorf("props = %v", props)
	}
	if _, ok := props["HeadingPairs"]; ok {
		t.Error("structured property kept")
	}
	if _, ok := props["Company"]; ok {
		t.Error("empty property kept")
	}
	if a.Metadata["slideCount"] != 1 {
		t.Errorf("slideCount = %v", a.Metadata["slideCount"])
	}
}

func TestAnalysis_JSONShape(t *testing.T) {
	out, err := json.Marshal(Default("boom"))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"slideLayouts", "theme", "images", "metadata"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing %s in %s", key, out)
		}
	}
	if layouts, _ := m["slideLayouts"].([]any); layouts == nil {
		t.Errorf("slideLayouts should be [] not null: %s", out)
	}
}
