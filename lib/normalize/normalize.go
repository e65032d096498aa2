// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package normalize reduces rich-markup documents (wiki storage
// format, tracker rendered fields) to bounded plain text.
//
// Normalization is an ordered pipeline over a parsed document tree,
// each pass consuming the previous pass's output:
//
//  1. Domain-macro extraction: embedded issue macros, timestamp
//     elements, and hyperlinks become short bracketed markers carrying
//     their essential value. This must run before generic rendering,
//     since rendering discards the structured attributes this pass
//     reads.
//  2. Noise removal: styling, scripts, metadata, navigation chrome,
//     and embedded media are removed including their text content.
//  3. Structural rendering: headings, lists, tables, paragraphs, and
//     code blocks are rendered to plain text preserving reading order
//     and list semantics.
//  4. Whitespace normalization: whitespace runs collapse, consecutive
//     blank lines cap at one, ends are trimmed.
//  5. Bounded summarization: text over the cap is cut at a sentence
//     boundary and marked truncated.
//
// The pipeline never fails: if structural rendering chokes on
// malformed markup, a blunt strip-all-markup pass produces the result
// instead.
package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelector matches elements that carry no informational value for
// a text rendition. Matched elements are removed with their content.
const noiseSelector = "script, style, meta, link, nav, header, footer, aside, iframe, img, svg, picture, video, audio, object, embed, canvas"

// tagPattern strips anything tag-shaped. Only the blunt fallback uses
// it; the primary path works on the parsed tree.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Document is the bounded plain-text rendition of a rich document.
type Document struct {
	// PlainText is the normalized text, at most MaxLength characters.
	PlainText string

	// Truncated reports whether the source exceeded the cap and was
	// cut at a sentence boundary. Truncated text ends with the
	// truncation marker.
	Truncated bool
}

// HTML normalizes a rich-markup document to bounded plain text. It
// always returns a Document; malformed markup degrades to the blunt
// fallback rather than failing.
func HTML(markup string) Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return stripAll(markup)
	}

	extractMacros(doc)
	doc.Find(noiseSelector).Remove()

	rendered, err := render(doc)
	if err != nil {
		return stripAll(markup)
	}

	return summarize(collapseWhitespace(rendered))
}

// Plain normalizes already-plain text: whitespace cleanup and bounded
// summarization only. Used for backend fields that arrive without
// markup.
func Plain(text string) Document {
	return summarize(collapseWhitespace(text))
}

// stripAll is the fallback for markup the structural renderer cannot
// handle: delete everything tag-shaped and normalize what remains. It
// loses structure but guarantees a result.
func stripAll(markup string) Document {
	text := tagPattern.ReplaceAllString(markup, " ")
	return summarize(collapseWhitespace(html.UnescapeString(text)))
}

// extractMacros replaces structured embedded references with short
// bracketed markers carrying their essential value:
//
//   - issue macros (<ac:structured-macro ac:name="jira"> with a "key"
//     parameter) become "[issue: KEY]"
//   - wiki page links (<ac:link><ri:page ri:content-title="T">) become
//     "[link: T]"
//   - timestamp elements (<time datetime="...">) become "[date: ...]"
//   - hyperlinks (<a href>) become "[link: title]"
func extractMacros(doc *goquery.Document) {
	doc.Find("*").Each(func(_ int, selection *goquery.Selection) {
		switch goquery.NodeName(selection) {
		case "ac:structured-macro":
			if name, _ := selection.Attr("ac:name"); name != "jira" {
				return
			}
			key := ""
			selection.Find("ac\\:parameter").EachWithBreak(func(_ int, param *goquery.Selection) bool {
				if name, _ := param.Attr("ac:name"); name == "key" {
					key = strings.TrimSpace(param.Text())
					return false
				}
				return true
			})
			if key == "" {
				selection.Remove()
				return
			}
			replaceWithMarker(selection, "[issue: "+key+"]")

		case "ac:link":
			title := ""
			if page := selection.Find("ri\\:page").First(); page.Length() > 0 {
				title, _ = page.Attr("ri:content-title")
			}
			if title == "" {
				title = strings.TrimSpace(selection.Text())
			}
			if title == "" {
				selection.Remove()
				return
			}
			replaceWithMarker(selection, "[link: "+title+"]")

		case "time":
			value, ok := selection.Attr("datetime")
			if !ok || value == "" {
				value = strings.TrimSpace(selection.Text())
			}
			replaceWithMarker(selection, "[date: "+value+"]")

		case "a":
			title := strings.TrimSpace(selection.Text())
			if title == "" {
				title, _ = selection.Attr("href")
			}
			if title == "" {
				selection.Remove()
				return
			}
			replaceWithMarker(selection, "[link: "+title+"]")
		}
	})
}

// replaceWithMarker swaps an element for a plain text marker.
func replaceWithMarker(selection *goquery.Selection, marker string) {
	selection.ReplaceWithHtml(html.EscapeString(marker))
}
