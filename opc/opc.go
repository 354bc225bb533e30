// CLAUDE:SUMMARY In-memory zip package codec: open from bytes, list/read/write entries, serialize back to a zip stream.
// Package opc gives read/write access to zip-structured packages (Open
// Packaging Conventions containers such as .pptx, .docx, .odt).
//
// A Package is held in memory. Entries opened from an existing archive stay
// compressed until they are read; entries written by the caller are kept as
// plain bytes. Serialize copies untouched entries without recompressing them.
//
// Usage:
//
//	pkg, err := opc.Open(data)
//	xml, err := pkg.ReadText("ppt/presentation.xml")
//	pkg.WriteText("ppt/slides/slide1.xml", body)
//	out, err := pkg.Serialize()
package opc

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// DefaultMaxEntrySize caps the decompressed size of a single entry read.
const DefaultMaxEntrySize = 64 << 20

var (
	// ErrNotFound is returned when a named entry does not exist.
	ErrNotFound = errors.New("opc: entry not found")
	// ErrNotZip is returned when the input bytes are not a readable zip archive.
	ErrNotZip = errors.New("opc: not a zip archive")
	// ErrEntryTooLarge is returned when an entry decompresses past MaxEntrySize.
	ErrEntryTooLarge = errors.New("opc: entry too large")
)

type entry struct {
	file *zip.File // set for entries read from the source archive and not rewritten
	data []byte    // set for entries written through WriteBytes/WriteText
}

// Package is an in-memory zip package. The zero value is not usable; call New or Open.
// A Package is not safe for concurrent mutation.
type Package struct {
	order   []string
	entries map[string]*entry

	// MaxEntrySize bounds a single entry read. Zero means DefaultMaxEntrySize.
	MaxEntrySize int64
}

// New returns an empty package.
func New() *Package {
	return &Package{entries: make(map[string]*entry)}
}

// Open parses a zip archive held in memory. Directory entries are skipped.
// Entry order follows the archive's central directory.
func Open(data []byte) (*Package, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrNotZip)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotZip, err)
	}

	p := New()
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		name := Clean(f.Name)
		if name == "" {
			continue
		}
		if _, dup := p.entries[name]; !dup {
			p.order = append(p.order, name)
		}
		p.entries[name] = &entry{file: f}
	}
	return p, nil
}

// Clean normalizes an entry name: forward slashes, no leading slash, no dot segments.
func Clean(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return ""
	}
	name = path.Clean(name)
	if name == "." || strings.HasPrefix(name, "../") || name == ".." {
		return ""
	}
	return name
}

// Entries returns the entry names in native order: archive order for opened
// entries, followed by newly written entries in write order.
func (p *Package) Entries() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of entries.
func (p *Package) Len() int { return len(p.order) }

// Has reports whether the entry exists.
func (p *Package) Has(name string) bool {
	_, ok := p.entries[Clean(name)]
	return ok
}

// ReadBytes returns the decompressed content of an entry.
func (p *Package) ReadBytes(name string) ([]byte, error) {
	name = Clean(name)
	e, ok := p.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if e.file == nil {
		out := make([]byte, len(e.data))
		copy(out, e.data)
		return out, nil
	}

	limit := p.MaxEntrySize
	if limit <= 0 {
		limit = DefaultMaxEntrySize
	}
	rc, err := e.file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrEntryTooLarge, name, limit)
	}
	return data, nil
}

// ReadText returns the content of an entry as a string.
func (p *Package) ReadText(name string) (string, error) {
	data, err := p.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteBytes creates or replaces an entry. Replacing keeps the entry's position.
func (p *Package) WriteBytes(name string, data []byte) {
	name = Clean(name)
	if name == "" {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	if _, ok := p.entries[name]; !ok {
		p.order = append(p.order, name)
	}
	p.entries[name] = &entry{data: buf}
}

// WriteText creates or replaces a text entry.
func (p *Package) WriteText(name, content string) {
	p.WriteBytes(name, []byte(content))
}

// Remove deletes an entry and reports whether it existed.
func (p *Package) Remove(name string) bool {
	name = Clean(name)
	if _, ok := p.entries[name]; !ok {
		return false
	}
	delete(p.entries, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns entries directly or indirectly under dir whose extension matches
// one of exts (case-insensitive, with leading dot). No exts matches everything.
// Results keep native order.
func (p *Package) List(dir string, exts ...string) []string {
	prefix := Clean(dir)
	if prefix != "" {
		prefix += "/"
	}
	var out []string
	for _, name := range p.order {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if len(exts) > 0 && !hasExt(name, exts) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Serialize writes every entry into a new zip stream. [Content_Types].xml is
// always written first when present; the remaining entries keep native order.
func (p *Package) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := p.Entries()
	sort.SliceStable(names, func(i, j int) bool {
		return names[i] == ContentTypesPath && names[j] != ContentTypesPath
	})

	for _, name := range names {
		e := p.entries[name]
		if e.file != nil && e.file.Name == name {
			if err := zw.Copy(e.file); err != nil {
				return nil, fmt.Errorf("copy %s: %w", name, err)
			}
			continue
		}
		data := e.data
		if e.file != nil {
			var err error
			if data, err = p.ReadBytes(name); err != nil {
				return nil, err
			}
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
