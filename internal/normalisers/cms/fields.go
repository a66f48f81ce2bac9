package cms

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/portfolio-rag/internal/normalisers/markdown"
)

var (
	blankLine  = regexp.MustCompile(`\n\s*\n`)
	whitespace = regexp.MustCompile(`\s+`)
)

// fields is the raw CMS field map of one document or nested object.
type fields map[string]any

// first returns the value of the first key present with a non-nil value.
func (f fields) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := f[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// text returns the first key's value as clean paragraphs joined by a blank line.
func (f fields) text(keys ...string) string {
	return strings.Join(paragraphs(f.first(keys...)), "\n\n")
}

// list returns the first key's value as a list of clean single-line items.
func (f fields) list(keys ...string) []string {
	var out []string
	switch v := f.first(keys...).(type) {
	case []any:
		for _, item := range v {
			if s := collapse(itemLabel(item)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range v {
			if s := collapse(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if s := collapse(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// objects returns the first key's value as nested field maps.
func (f fields) objects(keys ...string) []fields {
	items, ok := f.first(keys...).([]any)
	if !ok {
		return nil
	}
	var out []fields
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, fields(m))
		}
	}
	return out
}

// period renders a date range from "period" or "startDate"/"endDate".
func (f fields) period() string {
	if p := f.text("period", "dates"); p != "" {
		return p
	}
	start := f.text("startDate", "start")
	end := f.text("endDate", "end")
	if end == "" {
		if current, _ := f["current"].(bool); current {
			end = "present"
		}
	}
	switch {
	case start != "" && end != "":
		return start + " - " + end
	case start != "":
		return start
	default:
		return end
	}
}

// itemLabel picks the display text of a list element. Referenced documents
// and objects carry it under one of a few conventional keys.
func itemLabel(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]any:
		for _, k := range []string{"name", "title", "label", "value", "text"} {
			if s, ok := v[k].(string); ok && s != "" {
				return s
			}
		}
	case float64, int, int64, bool:
		return fmt.Sprint(v)
	}
	return ""
}

// paragraphs flattens a CMS value into whitespace-normalised paragraphs.
// Strings may contain Markdown; arrays may be Portable Text or plain strings.
func paragraphs(v any) []string {
	switch val := v.(type) {
	case string:
		return splitParagraphs(markdown.Strip(val))
	case []any:
		if isPortableText(val) {
			return portableText(val)
		}
		var out []string
		for _, item := range val {
			out = append(out, paragraphs(item)...)
		}
		return out
	case map[string]any:
		// A single block, or an object wrapping text.
		if val["_type"] == "block" {
			return portableText([]any{val})
		}
		if s, ok := val["text"]; ok {
			return paragraphs(s)
		}
		return nil
	case float64, int, int64:
		return []string{fmt.Sprint(val)}
	default:
		return nil
	}
}

func isPortableText(items []any) bool {
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if _, has := m["_type"]; has {
				return true
			}
		}
	}
	return false
}

// portableText renders Sanity Portable Text blocks, one paragraph per block.
// Non-text blocks (images, embeds) are skipped.
func portableText(blocks []any) []string {
	var out []string
	for _, b := range blocks {
		block, ok := b.(map[string]any)
		if !ok || block["_type"] != "block" {
			continue
		}
		children, _ := block["children"].([]any)
		var sb strings.Builder
		for _, c := range children {
			if span, ok := c.(map[string]any); ok {
				if t, ok := span["text"].(string); ok {
					sb.WriteString(t)
				}
			}
		}
		text := collapse(sb.String())
		if text == "" {
			continue
		}
		if _, isList := block["listItem"]; isList {
			text = "- " + text
		}
		out = append(out, text)
	}
	return out
}

func splitParagraphs(s string) []string {
	var out []string
	for _, p := range blankLine.Split(s, -1) {
		if p = collapse(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// collapse trims s and replaces every whitespace run with one space.
func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
