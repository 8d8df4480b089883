package wuprotocol

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Name is a namespace-qualified element or attribute name. An empty Space
// produces an unqualified name.
type Name struct {
	Space string
	Local string
}

// Attr is a single attribute of an Element
type Attr struct {
	Name  Name
	Value string
}

// Element is a node of an XML tree tagged by (namespace, local name).
// It carries no prefixes; those are assigned when the tree is serialized.
type Element struct {
	Name     Name
	Attrs    []Attr
	Children []*Element
	Text     string
}

// NewElement creates a detached element
func NewElement(space, local string) *Element {
	return &Element{Name: Name{Space: space, Local: local}}
}

// SetAttr sets (or replaces) an attribute and returns the element for chaining
func (e *Element) SetAttr(space, local, value string) *Element {
	name := Name{Space: space, Local: local}
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return e
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
	return e
}

// SetText sets the character data of the element
func (e *Element) SetText(text string) *Element {
	e.Text = text
	return e
}

// AddChild creates a new child element and returns it
func (e *Element) AddChild(space, local string) *Element {
	child := NewElement(space, local)
	e.Children = append(e.Children, child)
	return child
}

// Append attaches an existing element as the last child
func (e *Element) Append(child *Element) *Element {
	e.Children = append(e.Children, child)
	return e
}

// Namespace binds a preferred prefix to a namespace URI
type Namespace struct {
	Prefix string
	URI    string
}

// prefixer assigns prefixes to namespace URIs. Known URIs keep their
// preferred prefix; anything else gets a generated nsN prefix.
type prefixer struct {
	preferred map[string]string
	assigned  map[string]string
	order     []Namespace
}

func newPrefixer(known []Namespace) *prefixer {
	p := &prefixer{
		preferred: make(map[string]string, len(known)),
		assigned:  make(map[string]string),
	}
	for _, ns := range known {
		p.preferred[ns.URI] = ns.Prefix
	}
	return p
}

func (p *prefixer) prefixFor(uri string) string {
	if prefix, ok := p.assigned[uri]; ok {
		return prefix
	}
	prefix, ok := p.preferred[uri]
	if !ok {
		prefix = fmt.Sprintf("ns%d", len(p.order))
	}
	p.assigned[uri] = prefix
	p.order = append(p.order, Namespace{Prefix: prefix, URI: uri})
	return prefix
}

func (p *prefixer) collect(e *Element) {
	if e.Name.Space != "" {
		p.prefixFor(e.Name.Space)
	}
	for _, attr := range e.Attrs {
		if attr.Name.Space != "" {
			p.prefixFor(attr.Name.Space)
		}
	}
	for _, child := range e.Children {
		p.collect(child)
	}
}

func (p *prefixer) qualify(name Name) string {
	if name.Space == "" {
		return name.Local
	}
	return p.assigned[name.Space] + ":" + name.Local
}

// Serialize renders the tree rooted at e. Every namespace used in the tree is
// declared once on the root element, using the prefixes in known where given.
func (e *Element) Serialize(known []Namespace) string {
	p := newPrefixer(known)
	p.collect(e)

	var buf bytes.Buffer
	e.write(&buf, p, true)
	return buf.String()
}

func (e *Element) write(buf *bytes.Buffer, p *prefixer, root bool) {
	tag := p.qualify(e.Name)

	buf.WriteByte('<')
	buf.WriteString(tag)
	if root {
		for _, ns := range p.order {
			buf.WriteString(" xmlns:")
			buf.WriteString(ns.Prefix)
			buf.WriteString(`="`)
			escape(buf, ns.URI)
			buf.WriteByte('"')
		}
	}
	for _, attr := range e.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(p.qualify(attr.Name))
		buf.WriteString(`="`)
		escape(buf, attr.Value)
		buf.WriteByte('"')
	}

	if e.Text == "" && len(e.Children) == 0 {
		buf.WriteString("/>")
		return
	}

	buf.WriteByte('>')
	escape(buf, e.Text)
	for _, child := range e.Children {
		child.write(buf, p, false)
	}
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteByte('>')
}

// escape writes s with XML special characters replaced. Writes to a
// bytes.Buffer cannot fail.
func escape(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}
