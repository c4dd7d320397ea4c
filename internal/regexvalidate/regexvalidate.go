// Package regexvalidate rejects regex patterns that exceed size/nesting
// limits or contain known catastrophic-backtracking shapes (C8). It is
// a defense-in-depth layer against pathological patterns; the regex
// engine itself performs the final syntactic check downstream. Grounded
// on original_source/klask-rs/src/api/regex_validator.rs — no library
// in the retrieved pack performs this kind of static shape analysis on
// regex source text, so it is implemented directly against the
// standard library's string/rune facilities.
package regexvalidate

import (
	"strings"

	"github.com/kraklabs/codesearchcore/internal/errs"
)

const maxPatternLength = 500
const maxNestingDepth = 3

// dangerousShapes are substrings that indicate a nested-quantifier
// shape prone to catastrophic backtracking.
var dangerousShapes = []string{
	"(+)+",
	"(*)*",
	"({)?{",
	"(|)*",
	"(|)+",
}

// Validate returns a descriptive error if pattern should be rejected,
// or nil if it passes this layer's checks.
func Validate(pattern string) error {
	if len(pattern) == 0 {
		return errs.New(errs.KindInvalidRegex, "pattern must not be empty")
	}
	if len(pattern) > maxPatternLength {
		return errs.New(errs.KindInvalidRegex, "pattern exceeds maximum length of 500 characters")
	}

	for _, shape := range dangerousShapes {
		if strings.Contains(pattern, shape) {
			return errs.New(errs.KindInvalidRegex, "pattern contains a known catastrophic-backtracking shape: "+shape)
		}
	}

	depth, maxDepth, balanced := groupDepths(pattern)
	if !balanced {
		return errs.New(errs.KindInvalidRegex, "pattern has unbalanced parentheses")
	}
	if maxDepth > maxNestingDepth {
		return errs.New(errs.KindInvalidRegex, "pattern exceeds maximum group nesting depth of 3")
	}

	if hasDeepQuantifiedGroup(pattern, depth) {
		return errs.New(errs.KindInvalidRegex, "pattern quantifies a deeply nested group while overall nesting also exceeds depth 2")
	}

	return nil
}

// groupDepths walks the pattern tracking parenthesis nesting, ignoring
// escaped parens. It returns the per-position depth trace, the maximum
// depth reached, and whether parens balanced out to zero.
func groupDepths(pattern string) (trace []int, maxDepth int, balanced bool) {
	depth := 0
	escaped := false
	trace = make([]int, 0, len(pattern))
	for _, r := range pattern {
		trace = append(trace, depth)
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '(':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')':
			depth--
			if depth < 0 {
				return trace, maxDepth, false
			}
		}
	}
	return trace, maxDepth, depth == 0
}

// hasDeepQuantifiedGroup reports whether a closing paren at depth > 2
// is immediately followed by a quantifier, while the pattern's overall
// nesting also exceeds depth 2.
func hasDeepQuantifiedGroup(pattern string, depthTrace []int) bool {
	overallMax := 0
	for _, d := range depthTrace {
		if d > overallMax {
			overallMax = d
		}
	}
	if overallMax <= 2 {
		return false
	}

	runes := []rune(pattern)
	escaped := false
	depth := 0
	for i, r := range runes {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
			continue
		case '(':
			depth++
			continue
		case ')':
			closingDepth := depth
			depth--
			if closingDepth > 2 && i+1 < len(runes) {
				next := runes[i+1]
				if next == '+' || next == '*' {
					return true
				}
				if next == '{' {
					return true
				}
			}
		}
	}
	return false
}
