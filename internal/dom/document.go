package dom

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document is a parsed HTML document plus the source text it came from.
type Document struct {
	root      *html.Node
	source    string
	lines     []int // byte offset of each line start
	locations map[*html.Node]int
	elements  map[*html.Node]*Element
}

// Parse builds a Document from HTML source. Element start tags are mapped
// back to their byte offsets so problems can point at source positions.
func Parse(source string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	d := &Document{
		root:      root,
		source:    source,
		lines:     lineStarts(source),
		locations: make(map[*html.Node]int),
		elements:  make(map[*html.Node]*Element),
	}
	d.indexLocations()
	return d, nil
}

// DocumentElement returns the root <html> element, or nil for an empty tree.
func (d *Document) DocumentElement() *Element {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.wrap(c)
		}
	}
	return nil
}

// Elements returns every element in document order.
func (d *Document) Elements() []*Element {
	var out []*Element
	walk(d.root, func(n *html.Node) {
		out = append(out, d.wrap(n))
	})
	return out
}

// QuerySelectorAll returns the elements matching a CSS selector in document order.
func (d *Document) QuerySelectorAll(selector string) ([]*Element, error) {
	return d.query(d.root, selector)
}

func (d *Document) query(from *html.Node, selector string) ([]*Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	nodes := sel.MatchAll(from)
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.wrap(n))
	}
	return out, nil
}

func (d *Document) wrap(n *html.Node) *Element {
	if e, ok := d.elements[n]; ok {
		return e
	}
	e := &Element{node: n, doc: d}
	d.elements[n] = e
	return e
}

// location converts a byte offset into a 0-based line/column pair.
func (d *Document) location(offset int) Location {
	lo, hi := 0, len(d.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.lines[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Location{Line: lo, Column: offset - d.lines[lo], Offset: offset}
}

type startTag struct {
	name   string
	offset int
}

// lookahead bounds how far the matcher skips over start tags the tree
// builder discarded (stray <html>, misnested tags).
const lookahead = 4

// indexLocations pairs tree elements with tokenizer start tags. Elements the
// parser synthesized (implied <head>, <tbody>, ...) get no location.
func (d *Document) indexLocations() {
	tags := scanStartTags(d.source)
	i := 0
	walk(d.root, func(n *html.Node) {
		for j := i; j < len(tags) && j < i+lookahead; j++ {
			if tags[j].name == n.Data {
				d.locations[n] = tags[j].offset
				i = j + 1
				return
			}
		}
	})
}

func scanStartTags(source string) []startTag {
	var tags []startTag
	z := html.NewTokenizer(strings.NewReader(source))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a tokenizer failure; either way the tags so far stand.
			return tags
		}
		raw := len(z.Raw())
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			name, _ := z.TagName()
			tags = append(tags, startTag{name: string(name), offset: offset})
		}
		offset += raw
	}
}

func lineStarts(s string) []int {
	starts := []int{0}
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// walk visits element nodes below n in document order.
func walk(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			fn(c)
		}
		walk(c, fn)
	}
}
