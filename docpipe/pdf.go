// CLAUDE:SUMMARY PDF page text via pdfcpu: content-stream text operators are scanned per page and scored for extraction quality.
package docpipe

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Quality describes how much usable text a PDF yielded. Scanned documents
// show a low CharsPerPage with HasImages set.
type Quality struct {
	PageCount      int     `json:"page_count"`
	PagesRead      int     `json:"pages_read"`
	CharsPerPage   float64 `json:"chars_per_page"`
	PrintableRatio float64 `json:"printable_ratio"`
	HasImages      bool    `json:"has_images"`
}

// LowText reports whether the extraction is likely a scan without a text layer.
func (q *Quality) LowText() bool {
	return q != nil && q.CharsPerPage < 50
}

func extractPDF(data []byte, maxPages int) (string, []Section, *Quality, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", nil, nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := ctx.PageCount
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var (
		title    string
		sections []Section
		all      strings.Builder
	)
	for nr := 1; nr <= pages; nr++ {
		text := pageText(ctx, nr)
		if text == "" {
			continue
		}
		if title == "" {
			title = firstLine(text)
		}
		sections = append(sections, Section{
			Text:     text,
			Type:     SectionPage,
			Metadata: map[string]string{"page": strconv.Itoa(nr)},
		})
		all.WriteString(text)
	}

	q := &Quality{
		PageCount:      ctx.PageCount,
		PagesRead:      pages,
		PrintableRatio: printableRatio(all.String()),
		HasImages:      hasImages(ctx, pages),
	}
	if pages > 0 {
		q.CharsPerPage = float64(len([]rune(all.String()))) / float64(pages)
	}
	return title, sections, q, nil
}

func pageText(ctx *model.Context, nr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, nr)
	if err != nil || r == nil {
		return ""
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return showText(raw)
}

func hasImages(ctx *model.Context, pages int) bool {
	for nr := 1; nr <= pages; nr++ {
		if len(pdfcpu.ImageObjNrs(ctx, nr)) > 0 {
			return true
		}
	}
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if v, found := sd.Find("Subtype"); found {
			if name, ok := v.(types.Name); ok && name == "Image" {
				return true
			}
		}
	}
	return false
}

// showText scans a content stream and returns the operands of the text
// showing operators (Tj, TJ, ' and "). Line moves (Td, TD, T*, ') become
// newlines; large negative TJ kerning becomes a space.
func showText(stream []byte) string {
	var (
		out      strings.Builder
		operands []string
		inArray  bool
	)
	newline := func() {
		if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
			out.WriteByte('\n')
		}
	}

	for i := 0; i < len(stream); {
		c := stream[i]
		switch {
		case c == '(':
			s, n := literalString(stream[i:])
			operands = append(operands, s)
			i += n
		case c == '<' && i+1 < len(stream) && stream[i+1] != '<':
			s, n := hexString(stream[i:])
			operands = append(operands, s)
			i += n
		case c == '[':
			inArray = true
			operands = operands[:0]
			i++
		case c == ']':
			inArray = false
			i++
		case c == '%':
			for i < len(stream) && stream[i] != '\n' && stream[i] != '\r' {
				i++
			}
		case isPDFSpace(c):
			i++
		default:
			j := i
			for j < len(stream) && !isPDFSpace(stream[j]) && !bytes.ContainsRune([]byte("()<>[]%/"), rune(stream[j])) {
				j++
			}
			if j == i {
				// names and dictionary brackets carry no text
				j = i + 1
				for j < len(stream) && !isPDFSpace(stream[j]) && !bytes.ContainsRune([]byte("()<>[]%/"), rune(stream[j])) {
					j++
				}
				i = j
				continue
			}
			word := string(stream[i:j])
			i = j
			if inArray {
				if k, err := strconv.ParseFloat(word, 64); err == nil && k < -200 {
					operands = append(operands, " ")
				}
				continue
			}
			switch word {
			case "Tj", "TJ":
				out.WriteString(strings.Join(operands, ""))
			case "'", `"`:
				newline()
				if len(operands) > 0 {
					out.WriteString(operands[len(operands)-1])
				}
			case "Td", "TD", "T*":
				newline()
			case "ET":
				newline()
			}
			if _, err := strconv.ParseFloat(word, 64); err != nil {
				operands = operands[:0]
			}
		}
	}
	return cleanPageText(out.String())
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

// literalString decodes a balanced (...) string starting at b[0] and returns
// it with the number of bytes consumed.
func literalString(b []byte) (string, int) {
	var sb strings.Builder
	depth := 0
	i := 0
	for ; i < len(b); i++ {
		c := b[i]
		switch c {
		case '(':
			depth++
			if depth == 1 {
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
		case '\\':
			if i+1 >= len(b) {
				continue
			}
			i++
			switch e := b[i]; e {
			case 'n':
				sb.WriteByte('\n')
			case 'r', 't', 'b', 'f':
				sb.WriteByte(' ')
			case '\n', '\r':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && i+1 < len(b) && b[i+1] >= '0' && b[i+1] <= '7'; k++ {
						i++
						v = v*8 + int(b[i]-'0')
					}
					sb.WriteByte(byte(v))
					continue
				}
				sb.WriteByte(e)
			}
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String(), i
}

// hexString decodes <48656C6C6F>. Two-byte glyph codes are not mapped
// through the font's ToUnicode table, so only single-byte text survives.
func hexString(b []byte) (string, int) {
	end := bytes.IndexByte(b, '>')
	if end < 0 {
		return "", len(b)
	}
	var digits []byte
	for _, c := range b[1:end] {
		if !isPDFSpace(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	var sb strings.Builder
	for k := 0; k+1 < len(digits); k += 2 {
		v, err := strconv.ParseUint(string(digits[k:k+2]), 16, 8)
		if err != nil {
			return "", end + 1
		}
		sb.WriteByte(byte(v))
	}
	return sb.String(), end + 1
}

// cleanPageText drops unprintable runes and collapses runs of blanks while
// keeping line breaks.
func cleanPageText(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Map(func(r rune) rune {
			if unicode.IsPrint(r) || r == '\t' {
				return r
			}
			return -1
		}, line)
		if line = normalizeWhitespace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func printableRatio(text string) float64 {
	total, printable := 0, 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(printable) / float64(total)
}
