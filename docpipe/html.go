// CLAUDE:SUMMARY HTML extraction: bluemonday strips scripts and hidden markup, html-to-markdown converts the rest, ParseMarkdown sections it.
package docpipe

import (
	"bytes"
	"regexp"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	htmlOnce   sync.Once
	htmlPolicy *bluemonday.Policy
	mdConv     *converter.Converter
)

func htmlTools() (*bluemonday.Policy, *converter.Converter) {
	htmlOnce.Do(func() {
		htmlPolicy = bluemonday.UGCPolicy()
		mdConv = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
	})
	return htmlPolicy, mdConv
}

var hiddenStyle = regexp.MustCompile(`(?i)display\s*:\s*none|visibility\s*:\s*hidden`)

func extractHTML(data []byte) (string, []Section, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", nil, err
	}
	title := htmlTitle(doc)
	dropHidden(doc)

	var cleaned bytes.Buffer
	if err := html.Render(&cleaned, doc); err != nil {
		return "", nil, err
	}

	policy, conv := htmlTools()
	safe := policy.SanitizeBytes(cleaned.Bytes())
	md, err := conv.ConvertString(string(safe))
	if err != nil {
		return "", nil, err
	}

	mdTitle, sections := ParseMarkdown(md)
	if title == "" {
		title = mdTitle
	}
	return title, sections, nil
}

func htmlTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title && n.FirstChild != nil {
		return normalizeWhitespace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := htmlTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// dropHidden removes head, navigation chrome, and inline-hidden elements.
func dropHidden(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && skipElement(c) {
			n.RemoveChild(c)
		} else {
			dropHidden(c)
		}
		c = next
	}
}

func skipElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Head, atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer, atom.Template:
		return true
	}
	for _, a := range n.Attr {
		if a.Key == "hidden" || (a.Key == "aria-hidden" && strings.EqualFold(a.Val, "true")) {
			return true
		}
		if a.Key == "style" && hiddenStyle.MatchString(a.Val) {
			return true
		}
	}
	return false
}
