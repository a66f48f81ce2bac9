// Package markdown reduces Markdown formatted CMS text to plain prose.
// Long-form CMS fields are often authored in Markdown; the markup carries
// no meaning for embeddings and would otherwise leak into the content hash.
package markdown

import (
	"regexp"
	"strings"
)

var (
	codeBlock    = regexp.MustCompile("(?s)```[^\\n]*\\n(.*?)```")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	starEmphasis = regexp.MustCompile(`(\*\*|\*)([^*\n]+?)(\*\*|\*)`)
	underscores  = regexp.MustCompile(`(^|\W)(__|_)([^_\n]+?)(__|_)(\W|$)`)
	blockquote   = regexp.MustCompile(`(?m)^>\s?`)
	hr           = regexp.MustCompile(`(?m)^\s*[-*_]{3,}\s*$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// Strip removes common Markdown formatting and returns the text content.
// Code block bodies and link texts are kept; images and rules are dropped.
func Strip(content string) string {
	if !looksLikeMarkdown(content) {
		return content
	}

	content = codeBlock.ReplaceAllString(content, "$1")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = starEmphasis.ReplaceAllString(content, "$2")
	content = underscores.ReplaceAllString(content, "${1}${3}${5}")
	content = blockquote.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = multiNewline.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}

// looksLikeMarkdown is a cheap pre-check so plain prose is returned untouched.
func looksLikeMarkdown(s string) bool {
	return strings.ContainsAny(s, "#*_`[>") ||
		listMarkers.MatchString(s) ||
		numberedList.MatchString(s)
}
