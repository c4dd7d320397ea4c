// Package snippet produces HTML-highlighted excerpts and best-effort
// line numbers for search results (C6). A regex or fuzzy query is not
// directly usable by a term highlighter, so the generator first derives
// a separate "highlighting query" — a flat set of clean terms — from
// the matching query.
package snippet

import (
	"html"
	"regexp"
	"strings"

	"github.com/kraklabs/codesearchcore/internal/querybuilder"
)

const windowSize = 300
const fallbackSize = 400

var wordRunPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// HighlightTerms derives the flat term set used for highlighting,
// given the active mode and the original query text or regex pattern.
//
//   - plain: the highlighting query is the plain-mode parse of the
//     query text — its clean word runs.
//   - fuzzy: fuzzy expansion is dropped; exact term matches still
//     light up, same extraction as plain mode.
//   - regex: extract the alphanumeric/underscore runs of length >= 3
//     from the pattern. If none survive, highlighting is disabled
//     (the caller falls back to the first 400 characters).
func HighlightTerms(mode querybuilder.Mode, queryText, regexPattern string) []string {
	switch mode {
	case querybuilder.ModeRegex:
		return dedupeLower(runsAtLeast(regexPattern, 3))
	default:
		return dedupeLower(wordRunPattern.FindAllString(queryText, -1))
	}
}

func runsAtLeast(s string, minLen int) []string {
	var out []string
	for _, run := range wordRunPattern.FindAllString(s, -1) {
		if len(run) >= minLen {
			out = append(out, run)
		}
	}
	return out
}

func dedupeLower(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		l := strings.ToLower(s)
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Generate produces (snippet_html, line_number?) for one result's
// stored content given the highlighting terms.
func Generate(content string, terms []string) (string, *int) {
	if len(terms) == 0 {
		return fallback(content), nil
	}

	lower := strings.ToLower(content)
	bestPos := -1
	for _, term := range terms {
		if idx := strings.Index(lower, term); idx != -1 {
			if bestPos == -1 || idx < bestPos {
				bestPos = idx
			}
		}
	}
	if bestPos == -1 {
		return fallback(content), nil
	}

	line := lineNumberAt(content, bestPos)
	start, end := window(content, bestPos, windowSize)
	segment := content[start:end]

	highlighted := highlight(segment, terms)
	if highlighted == "" {
		return fallback(content), nil
	}
	return highlighted, &line
}

// fallback returns the first 400 characters, HTML-escaped, suffixed
// with an ellipsis.
func fallback(content string) string {
	runes := []rune(content)
	if len(runes) > fallbackSize {
		runes = runes[:fallbackSize]
	}
	return html.EscapeString(string(runes)) + "…"
}

// window centers a windowSize-character span around pos, clamped to
// content's bounds.
func window(content string, pos, size int) (int, int) {
	half := size / 2
	start := pos - half
	if start < 0 {
		start = 0
	}
	end := start + size
	if end > len(content) {
		end = len(content)
		start = end - size
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// highlight escapes segment outside matches and wraps case-insensitive
// term matches in a <mark> element. Returns "" if no term matched
// inside this window, signaling the caller to use the fallback.
func highlight(segment string, terms []string) string {
	pattern := combinedPattern(terms)
	if pattern == nil {
		return ""
	}
	spans := pattern.FindAllStringIndex(segment, -1)
	if len(spans) == 0 {
		return ""
	}

	var b strings.Builder
	prev := 0
	for _, span := range spans {
		b.WriteString(html.EscapeString(segment[prev:span[0]]))
		b.WriteString("<mark>")
		b.WriteString(html.EscapeString(segment[span[0]:span[1]]))
		b.WriteString("</mark>")
		prev = span[1]
	}
	b.WriteString(html.EscapeString(segment[prev:]))
	return b.String()
}

func combinedPattern(terms []string) *regexp.Regexp {
	if len(terms) == 0 {
		return nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re, err := regexp.Compile("(?i)" + strings.Join(quoted, "|"))
	if err != nil {
		return nil
	}
	return re
}

// lineNumberAt counts the newlines before pos (the offset of the first
// term match, found by Generate) and returns a 1-based line number.
func lineNumberAt(content string, pos int) int {
	if pos > len(content) {
		pos = len(content)
	}
	return strings.Count(content[:pos], "\n") + 1
}
