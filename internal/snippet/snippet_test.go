package snippet

import (
	"strings"
	"testing"

	"github.com/kraklabs/codesearchcore/internal/querybuilder"
)

func TestHighlightTermsPlainMode(t *testing.T) {
	terms := HighlightTerms(querybuilder.ModePlain, "foo Bar_baz 42", "")
	want := []string{"foo", "bar_baz", "42"}
	if !equalStrings(terms, want) {
		t.Errorf("HighlightTerms(plain) = %v, want %v", terms, want)
	}
}

func TestHighlightTermsFuzzyModeFallsBackToPlainExtraction(t *testing.T) {
	plain := HighlightTerms(querybuilder.ModePlain, "fooo", "")
	fuzzy := HighlightTerms(querybuilder.ModeFuzzy, "fooo", "")
	if !equalStrings(plain, fuzzy) {
		t.Errorf("fuzzy-mode extraction %v should match plain-mode extraction %v", fuzzy, plain)
	}
}

func TestHighlightTermsRegexModeDropsShortRuns(t *testing.T) {
	terms := HighlightTerms(querybuilder.ModeRegex, "", `ab|function\s+main`)
	for _, term := range terms {
		if len(term) < 3 {
			t.Errorf("regex-mode term %q shorter than 3 runes leaked through", term)
		}
	}
	if !contains(terms, "function") || !contains(terms, "main") {
		t.Errorf("expected 'function' and 'main' to survive extraction, got %v", terms)
	}
	if contains(terms, "ab") {
		t.Errorf("expected short run 'ab' to be dropped, got %v", terms)
	}
}

func TestHighlightTermsRegexModeNoSurvivingRuns(t *testing.T) {
	terms := HighlightTerms(querybuilder.ModeRegex, "", `^.{1,2}$`)
	if len(terms) != 0 {
		t.Errorf("expected no surviving terms, got %v", terms)
	}
}

func TestHighlightTermsDedupesCaseInsensitively(t *testing.T) {
	terms := HighlightTerms(querybuilder.ModePlain, "Foo foo FOO", "")
	if len(terms) != 1 || terms[0] != "foo" {
		t.Errorf("expected deduped [\"foo\"], got %v", terms)
	}
}

func TestGenerateNoTermsReturnsFallback(t *testing.T) {
	content := strings.Repeat("x", fallbackSize+100)
	html, line := Generate(content, nil)
	if line != nil {
		t.Errorf("expected nil line number for fallback, got %v", *line)
	}
	if !strings.HasSuffix(html, "…") {
		t.Errorf("expected fallback to end with ellipsis, got suffix %q", html[len(html)-10:])
	}
}

func TestGenerateHighlightsMatchAndReportsLineNumber(t *testing.T) {
	content := "line one\nline two\nhere is the needle term in context\nline four"
	html, line := Generate(content, []string{"needle"})
	if line == nil || *line != 3 {
		t.Fatalf("expected line number 3, got %v", line)
	}
	if !strings.Contains(html, "<mark>needle</mark>") {
		t.Errorf("expected highlighted needle in %q", html)
	}
}

func TestGenerateNoMatchFallsBack(t *testing.T) {
	content := "nothing relevant here"
	html, line := Generate(content, []string{"absent"})
	if line != nil {
		t.Errorf("expected nil line number when no term matches, got %v", *line)
	}
	if !strings.HasSuffix(html, "…") {
		t.Errorf("expected fallback ellipsis, got %q", html)
	}
}

func TestGenerateEscapesHTML(t *testing.T) {
	content := "<script>alert(1)</script> needle here"
	html, _ := Generate(content, []string{"needle"})
	if strings.Contains(html, "<script>") {
		t.Errorf("expected HTML to be escaped, got %q", html)
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Errorf("expected escaped script tag, got %q", html)
	}
}

func TestGenerateWindowIsClampedToContentBounds(t *testing.T) {
	content := "needle " + strings.Repeat("a", 10)
	html, _ := Generate(content, []string{"needle"})
	if !strings.Contains(html, "<mark>needle</mark>") {
		t.Errorf("expected match near start of short content to still highlight, got %q", html)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
