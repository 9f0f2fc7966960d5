// internal/browser/htmldoc/render.go
package htmldoc

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockAtoms start and end a line when rendered, approximating innerText.
var blockAtoms = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Fieldset: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true, atom.Li: true,
	atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true, atom.Section: true,
	atom.Table: true, atom.Tr: true, atom.Ul: true, atom.Caption: true, atom.Tbody: true,
	atom.Thead: true, atom.Tfoot: true, atom.Pre: true,
}

// neverRendered holds elements whose content is not part of the visible text.
var neverRendered = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Template: true,
	atom.Noscript: true, atom.Title: true, atom.Iframe: true, atom.Frame: true,
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := attrValue(n, key)
	return v
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attrValue(n, key)
	return ok
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// selfHidden reports whether the element itself suppresses rendering.
func selfHidden(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if neverRendered[n.DataAtom] && n.DataAtom != atom.Iframe && n.DataAtom != atom.Frame {
		return true
	}
	if hasAttr(n, "hidden") {
		return true
	}
	if n.DataAtom == atom.Input && strings.EqualFold(attr(n, "type"), "hidden") {
		return true
	}
	style := compactStyle(attr(n, "style"))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// rendered reports whether neither the node nor any ancestor is hidden.
func rendered(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if selfHidden(p) {
			return false
		}
	}
	return true
}

func compactStyle(style string) string {
	return strings.ToLower(strings.Join(strings.Fields(style), ""))
}

// showStyle removes the declarations that hide an element.
func showStyle(style string) string {
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		c := compactStyle(decl)
		if c == "" || c == "display:none" || c == "visibility:hidden" {
			continue
		}
		kept = append(kept, strings.TrimSpace(decl))
	}
	return strings.Join(kept, "; ")
}

// renderText returns the visible text below n, one rendered line per line,
// with whitespace collapsed and blank lines dropped.
func renderText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if selfHidden(n) || neverRendered[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Br {
				b.WriteByte('\n')
				return
			}
			block := blockAtoms[n.DataAtom]
			if block {
				b.WriteByte('\n')
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			if block {
				b.WriteByte('\n')
			}
			if n.DataAtom == atom.Td || n.DataAtom == atom.Th {
				b.WriteByte(' ')
			}
		case html.DocumentNode:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// describe renders a short human-readable identity for a node, e.g. "button#input_Id3".
func describe(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if id := attr(n, "id"); id != "" {
		return n.Data + "#" + id
	}
	if class := strings.Fields(attr(n, "class")); len(class) > 0 {
		return n.Data + "." + class[0]
	}
	if name := attr(n, "name"); name != "" {
		return n.Data + "[name=" + name + "]"
	}
	return n.Data
}

func ancestor(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == a {
			return p
		}
	}
	return nil
}
