// CLAUDE:SUMMARY Reads flat document-property parts (docProps/app.xml, docProps/core.xml) into string maps.
package tmplscan

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/hazyhaar/deckforge/opc"
)

// readProperties returns the text of every leaf child of the root element,
// keyed by local name. Structured children (vectors, variants) are skipped.
func readProperties(pkg *opc.Package, entry string) (map[string]string, error) {
	data, err := pkg.ReadBytes(entry)
	if err != nil {
		return nil, err
	}

	dec := opc.NewDecoder(bytes.NewReader(data))
	out := make(map[string]string)
	var (
		current string
		text    strings.Builder
		nested  bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch dec.Depth() {
			case 2:
				current = t.Name.Local
				text.Reset()
				nested = false
			default:
				if dec.Depth() > 2 {
					nested = true
				}
			}
		case xml.CharData:
			if dec.Depth() == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			if dec.Depth() == 1 && current != "" {
				if v := strings.TrimSpace(text.String()); v != "" && !nested {
					out[current] = v
				}
				current = ""
			}
		}
	}
}
