package dom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Location is a 0-based position in the document source.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

// Attr is a single element attribute.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element wraps an element node of a Document.
type Element struct {
	node *html.Node
	doc  *Document
}

// TagName returns the lower-cased tag name.
func (e *Element) TagName() string { return strings.ToLower(e.node.Data) }

// Attribute returns the value of the named attribute.
func (e *Element) Attribute(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// Attributes returns a copy of the element's attributes in source order.
func (e *Element) Attributes() []Attr {
	out := make([]Attr, 0, len(e.node.Attr))
	for _, a := range e.node.Attr {
		out = append(out, Attr{Name: a.Key, Value: a.Val})
	}
	return out
}

// Parent returns the enclosing element, or nil at the root.
func (e *Element) Parent() *Element {
	for p := e.node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return e.doc.wrap(p)
		}
	}
	return nil
}

// Children returns the direct element children.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// TextContent concatenates all descendant text nodes.
func (e *Element) TextContent() string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(e.node)
	return sb.String()
}

// OuterHTML renders the element and its subtree.
func (e *Element) OuterHTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.node); err != nil {
		return ""
	}
	return buf.String()
}

// QuerySelectorAll matches a CSS selector against the element's subtree.
func (e *Element) QuerySelectorAll(selector string) ([]*Element, error) {
	return e.doc.query(e.node, selector)
}

// Location reports where the element's start tag sits in the source. The
// second result is false for elements the parser inferred.
func (e *Element) Location() (Location, bool) {
	off, ok := e.doc.locations[e.node]
	if !ok {
		return Location{Line: -1, Column: -1, Offset: -1}, false
	}
	return e.doc.location(off), true
}

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }
