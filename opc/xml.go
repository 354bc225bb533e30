// CLAUDE:SUMMARY Depth-limited XML decoding with charset support, and the XML text escaper used for generated parts.
package opc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// MaxXMLDepth is the deepest element nesting accepted by Decoder.
const MaxXMLDepth = 256

// ErrXMLDepth is returned when a document nests elements deeper than the decoder allows.
var ErrXMLDepth = errors.New("opc: xml nesting depth exceeded")

// Decoder is an xml.Decoder that rejects documents nested deeper than MaxDepth
// and understands non-UTF-8 encodings declared in the prolog.
type Decoder struct {
	*xml.Decoder
	MaxDepth int
	depth    int
}

// NewDecoder returns a Decoder reading from r with MaxDepth set to MaxXMLDepth.
func NewDecoder(r io.Reader) *Decoder {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	return &Decoder{Decoder: d, MaxDepth: MaxXMLDepth}
}

// Token returns the next token, tracking element depth.
func (d *Decoder) Token() (xml.Token, error) {
	tok, err := d.Decoder.Token()
	if err != nil {
		return nil, err
	}
	switch tok.(type) {
	case xml.StartElement:
		d.depth++
		if d.depth > d.MaxDepth {
			return nil, fmt.Errorf("%w: nesting depth %d > %d", ErrXMLDepth, d.depth, d.MaxDepth)
		}
	case xml.EndElement:
		d.depth--
	}
	return tok, nil
}

// Depth returns the current element depth.
func (d *Decoder) Depth() int { return d.depth }

// CheckDepth scans data and returns ErrXMLDepth if any element nests past MaxXMLDepth.
// Malformed documents are reported with the underlying syntax error.
func CheckDepth(data []byte) error {
	d := NewDecoder(bytes.NewReader(data))
	for {
		_, err := d.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Unmarshal decodes an XML document into v after checking its nesting depth.
func Unmarshal(data []byte, v any) error {
	if err := CheckDepth(data); err != nil {
		return err
	}
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	return d.Decode(v)
}

// DecodeXML reads the named entry and unmarshals it into v.
func (p *Package) DecodeXML(name string, v any) error {
	data, err := p.ReadBytes(name)
	if err != nil {
		return err
	}
	if err := Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", Clean(name), err)
	}
	return nil
}

// MarshalPart renders v as a standalone XML part with the UTF-8 declaration.
func MarshalPart(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(Declaration)+len(body))
	out = append(out, Declaration...)
	return append(out, body...), nil
}

// Declaration is the XML prolog written at the top of generated parts.
const Declaration = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape escapes the five XML metacharacters in s in a single pass, so the
// ampersands it introduces are never escaped a second time. Runes that XML 1.0
// cannot carry are dropped.
func Escape(s string) string {
	return escaper.Replace(stripInvalid(s))
}

func stripInvalid(s string) string {
	clean := true
	for _, r := range s {
		if !validXMLRune(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if validXMLRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validXMLRune(r rune) bool {
	switch {
	case r == utf8.RuneError:
		return false
	case r == '\t', r == '\n', r == '\r':
		return true
	case r < 0x20:
		return false
	case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
		return false
	}
	return true
}
