// CLAUDE:SUMMARY Package-level parts shared by every OPC container: the content-types manifest and relationship files.
package opc

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

// Well-known package paths and namespaces.
const (
	ContentTypesPath = "[Content_Types].xml"
	RootRelsPath     = "_rels/.rels"

	NSContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	NSRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"

	RelTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelTypeCoreProperties = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	RelTypeExtProperties  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"

	TypeRelationships  = "application/vnd.openxmlformats-package.relationships+xml"
	TypeXML            = "application/xml"
	TypeCoreProperties = "application/vnd.openxmlformats-package.core-properties+xml"
	TypeExtProperties  = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
)

// ContentTypes is the [Content_Types].xml manifest.
type ContentTypes struct {
	XMLName   xml.Name       `xml:"Types"`
	Xmlns     string         `xml:"xmlns,attr"`
	Defaults  []DefaultType  `xml:"Default"`
	Overrides []OverrideType `xml:"Override"`
}

// DefaultType maps a file extension to a content type.
type DefaultType struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// OverrideType declares the content type of one part.
type OverrideType struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// NewContentTypes returns a manifest with the rels and xml defaults declared.
func NewContentTypes() *ContentTypes {
	return &ContentTypes{
		Xmlns: NSContentTypes,
		Defaults: []DefaultType{
			{Extension: "rels", ContentType: TypeRelationships},
			{Extension: "xml", ContentType: TypeXML},
		},
	}
}

// AddDefault declares a content type for an extension, once.
func (c *ContentTypes) AddDefault(ext, contentType string) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, d := range c.Defaults {
		if d.Extension == ext {
			return
		}
	}
	c.Defaults = append(c.Defaults, DefaultType{Extension: ext, ContentType: contentType})
}

// AddOverride declares the content type of a part. partPath may omit the leading slash.
func (c *ContentTypes) AddOverride(partPath, contentType string) {
	c.Overrides = append(c.Overrides, OverrideType{PartName: "/" + Clean(partPath), ContentType: contentType})
}

// Lookup returns the declared content type of a part, overrides first.
func (c *ContentTypes) Lookup(partPath string) (string, bool) {
	want := "/" + Clean(partPath)
	for _, o := range c.Overrides {
		if strings.EqualFold(o.PartName, want) {
			return o.ContentType, true
		}
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(want)), ".")
	for _, d := range c.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType, true
		}
	}
	return "", false
}

// Relationships is a .rels part.
type Relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Xmlns         string         `xml:"xmlns,attr"`
	Relationships []Relationship `xml:"Relationship"`
}

// Relationship is one edge of the package relationship graph.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// NewRelationships returns an empty relationships part.
func NewRelationships() *Relationships {
	return &Relationships{Xmlns: NSRelationships}
}

// Add appends a relationship. Callers own id uniqueness.
func (r *Relationships) Add(id, relType, target string) {
	r.Relationships = append(r.Relationships, Relationship{ID: id, Type: relType, Target: target})
}

// ByType returns the first relationship whose type ends with suffix.
func (r *Relationships) ByType(suffix string) (Relationship, bool) {
	for _, rel := range r.Relationships {
		if strings.HasSuffix(rel.Type, suffix) {
			return rel, true
		}
	}
	return Relationship{}, false
}

// RelsPathFor returns the relationships part that belongs to partPath,
// e.g. "ppt/presentation.xml" -> "ppt/_rels/presentation.xml.rels".
func RelsPathFor(partPath string) string {
	partPath = Clean(partPath)
	dir, file := path.Split(partPath)
	return dir + "_rels/" + file + ".rels"
}

// ResolveTarget resolves a relative relationship target against the source part.
func ResolveTarget(sourcePart, target string) string {
	if strings.HasPrefix(target, "/") {
		return Clean(target)
	}
	return Clean(path.Join(path.Dir(Clean(sourcePart)), target))
}

// ReadRelationships decodes the relationships part attached to partPath.
func (p *Package) ReadRelationships(partPath string) (*Relationships, error) {
	rels := NewRelationships()
	if err := p.DecodeXML(RelsPathFor(partPath), rels); err != nil {
		return nil, err
	}
	return rels, nil
}

// ReadContentTypes decodes the package manifest.
func (p *Package) ReadContentTypes() (*ContentTypes, error) {
	ct := NewContentTypes()
	ct.Defaults = nil
	if err := p.DecodeXML(ContentTypesPath, ct); err != nil {
		return nil, err
	}
	return ct, nil
}

// WritePart marshals v and stores it under name.
func (p *Package) WritePart(name string, v any) error {
	data, err := MarshalPart(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", Clean(name), err)
	}
	p.WriteBytes(name, data)
	return nil
}
