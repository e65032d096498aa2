// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// maxRenderDepth bounds tree recursion. Documents nested past this
// depth are treated as malformed and fall back to the blunt strip.
const maxRenderDepth = 200

var errMarkupTooDeep = errors.New("markup nesting exceeds render depth limit")

// render walks the parsed document and produces plain text preserving
// reading order: headings and paragraphs become blank-line-separated
// blocks, list items get bullet or ordinal prefixes, table rows render
// cells separated by " | ", and code blocks keep their verbatim text.
func render(doc *goquery.Document) (string, error) {
	renderer := &textRenderer{}
	for _, node := range doc.Selection.Nodes {
		if err := renderer.walk(node, 0); err != nil {
			return "", err
		}
	}
	return renderer.builder.String(), nil
}

type textRenderer struct {
	builder strings.Builder
}

func (r *textRenderer) walk(node *html.Node, depth int) error {
	if depth > maxRenderDepth {
		return errMarkupTooDeep
	}

	switch node.Type {
	case html.TextNode:
		r.builder.WriteString(node.Data)
		return nil
	case html.CommentNode, html.DoctypeNode:
		return nil
	case html.ElementNode:
		return r.element(node, depth)
	default:
		return r.children(node, depth)
	}
}

func (r *textRenderer) element(node *html.Node, depth int) error {
	switch node.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6", "p", "div", "section", "article", "blockquote":
		r.blockBreak()
		if err := r.children(node, depth); err != nil {
			return err
		}
		r.blockBreak()
		return nil

	case "br":
		r.builder.WriteString("\n")
		return nil

	case "hr":
		r.blockBreak()
		return nil

	case "ul", "ol":
		return r.list(node, depth)

	case "table":
		return r.table(node, depth)

	case "pre":
		r.blockBreak()
		r.builder.WriteString(textContent(node))
		r.blockBreak()
		return nil

	default:
		return r.children(node, depth)
	}
}

// list renders ul/ol children: one line per item, bullet or ordinal
// prefix, blank line around the whole list. Nested lists recurse
// through the item's children.
func (r *textRenderer) list(node *html.Node, depth int) error {
	r.blockBreak()
	ordinal := 0
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || child.Data != "li" {
			continue
		}
		ordinal++
		if node.Data == "ol" {
			fmt.Fprintf(&r.builder, "%d. ", ordinal)
		} else {
			r.builder.WriteString("- ")
		}
		if err := r.children(child, depth+1); err != nil {
			return err
		}
		r.builder.WriteString("\n")
	}
	r.blockBreak()
	return nil
}

// table renders each row as its cell texts joined with " | ". Header
// and body cells are treated alike; visual table styling is dropped.
func (r *textRenderer) table(node *html.Node, depth int) error {
	if depth > maxRenderDepth {
		return errMarkupTooDeep
	}
	r.blockBreak()

	var rows []*html.Node
	collectRows(node, &rows)
	for _, row := range rows {
		first := true
		for cell := row.FirstChild; cell != nil; cell = cell.NextSibling {
			if cell.Type != html.ElementNode || (cell.Data != "td" && cell.Data != "th") {
				continue
			}
			if !first {
				r.builder.WriteString(" | ")
			}
			first = false
			if err := r.children(cell, depth+1); err != nil {
				return err
			}
		}
		r.builder.WriteString("\n")
	}

	r.blockBreak()
	return nil
}

// collectRows gathers tr elements under a table, looking through
// thead/tbody/tfoot wrappers but not into nested tables (those render
// when their own element is walked — as a cell's children).
func collectRows(node *html.Node, rows *[]*html.Node) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		switch child.Data {
		case "tr":
			*rows = append(*rows, child)
		case "thead", "tbody", "tfoot":
			collectRows(child, rows)
		}
	}
}

func (r *textRenderer) children(node *html.Node, depth int) error {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if err := r.walk(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// blockBreak separates block elements with a blank line. Redundant
// breaks collapse in the whitespace pass.
func (r *textRenderer) blockBreak() {
	r.builder.WriteString("\n\n")
}

// textContent concatenates the text nodes under node, used for
// verbatim code blocks.
func textContent(node *html.Node) string {
	var builder strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			builder.WriteString(n.Data)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(node)
	return builder.String()
}
