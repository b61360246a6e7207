// Package scrape locates statement tables inside decoded EDINET documents
// and reads their captions and values.
package scrape

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseFile parses an XHTML document from disk.
func parseFile(path string) (*html.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: open %s", path)
	}
	defer func() { _ = f.Close() }()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: parse %s", path)
	}
	return doc, nil
}

// elementsByName returns the elements whose name attribute equals value, in
// document order.
func elementsByName(root *html.Node, value string) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		for _, a := range n.Attr {
			if a.Key == "name" && a.Val == value {
				out = append(out, n)
				return
			}
		}
	})
	return out
}

// selectAll collects elements of the given tag below each root, root
// included, without duplicates.
func selectAll(roots []*html.Node, tag atom.Atom) []*html.Node {
	seen := make(map[*html.Node]struct{})
	var out []*html.Node
	for _, r := range roots {
		walk(r, func(n *html.Node) {
			if n.Type != html.ElementNode || n.DataAtom != tag {
				return
			}
			if _, ok := seen[n]; ok {
				return
			}
			seen[n] = struct{}{}
			out = append(out, n)
		})
	}
	return out
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// blockElements break text runs when an element's text is flattened.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Tr: true, atom.Td: true,
	atom.Th: true, atom.Li: true, atom.Table: true,
}

// text flattens the visible text below n, collapsing whitespace runs into a
// single space. The ideographic space is content, not whitespace.
func text(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			if blockElements[n.DataAtom] {
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return normalizeSpace(b.String())
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\u00a0':
		return true
	}
	return false
}

func normalizeSpace(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if isSpace(r) {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// rowCells returns the flattened text of every td below each tr.
func rowCells(rows []*html.Node) [][]string {
	out := make([][]string, 0, len(rows))
	for _, tr := range rows {
		cells := selectAll([]*html.Node{tr}, atom.Td)
		texts := make([]string, 0, len(cells))
		for _, td := range cells {
			texts = append(texts, text(td))
		}
		out = append(out, texts)
	}
	return out
}
