package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict is a cached bluemonday policy that removes all HTML tags and attributes.
// It's safe for concurrent use as bluemonday.Policy is read-only after build.
// Never call mutating helpers (AddAttr, AllowElements) on it after initialization.
var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true) // Prevents word concatenation
	return p
}()

// plain strips markup and returns unescaped text with non-breaking spaces
// normalised to regular spaces.
func plain(s string) string {
	out := strict.Sanitize(s)
	out = html.UnescapeString(out)
	return strings.ReplaceAll(out, "\u00a0", " ")
}

// Content cleans note content before it is stored locally or pushed upstream.
// Markup is stripped and runs of spaces collapse, but line breaks survive so
// the note keeps its layout.
//
// Examples:
//   - "<p>hi</p>" -> "hi"
//   - "  # Heading\n**bold** text  " -> "# Heading\n**bold** text"
//   - "Tom &amp; Jerry" -> "Tom & Jerry"
func Content(s string) string {
	cleaned := strings.TrimSpace(plain(s))

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// Title cleans a note title: markup stripped and all whitespace, line breaks
// included, collapsed to single spaces.
func Title(s string) string {
	return strings.Join(strings.Fields(plain(s)), " ")
}
