// File: internal/surface/htmltext.go
package surface

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags end a line when flattening markup to text.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"br": true, "hr": true, "tr": true, "table": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// skipTags hold no user-visible text.
var skipTags = map[string]bool{
	"script": true, "style": true, "template": true,
}

// lineBreak separates block-level segments while text-node whitespace is
// still being collapsed. It cannot be "\n": literal newlines inside a text
// node are ordinary whitespace, not block boundaries.
const lineBreak = "\x00"

// flattenHTML reduces a markup fragment to readable text: block elements
// become line breaks, inline markup collapses into the surrounding line, and
// runs of whitespace shrink to single spaces. Dialog bodies and inline error
// decorations arrive as HTML; the engine wants prose.
func flattenHTML(fragment string) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
			if blockTags[n.Data] {
				b.WriteString(lineBreak)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			b.WriteString(lineBreak)
		}
	}
	walk(root)

	var lines []string
	for _, line := range strings.Split(b.String(), lineBreak) {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
