package querybuilder

import (
	"testing"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kraklabs/codesearchcore/internal/errs"
	"github.com/kraklabs/codesearchcore/internal/schema"
	"github.com/kraklabs/codesearchcore/pkg/models"
)

func TestModeOfPrecedence(t *testing.T) {
	tests := []struct {
		name string
		req  models.SearchRequest
		want Mode
	}{
		{"plain by default", models.SearchRequest{}, ModePlain},
		{"fuzzy when set", models.SearchRequest{FuzzySearch: true}, ModeFuzzy},
		{"regex when set", models.SearchRequest{RegexSearch: true}, ModeRegex},
		{"regex beats fuzzy", models.SearchRequest{RegexSearch: true, FuzzySearch: true}, ModeRegex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ModeOf(tt.req); got != tt.want {
				t.Errorf("ModeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildPlainNoFiltersReturnsBareLeaf(t *testing.T) {
	q, err := Build(models.SearchRequest{Query: "hello"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, ok := q.(*query.QueryStringQuery); !ok {
		t.Errorf("expected a bare QueryStringQuery leaf, got %T", q)
	}
}

func TestBuildEmptyQueryIsMatchAll(t *testing.T) {
	q, err := Build(models.SearchRequest{Query: ""})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, ok := q.(*query.MatchAllQuery); !ok {
		t.Errorf("expected MatchAllQuery for empty query text, got %T", q)
	}
}

func TestBuildWithFiltersWrapsInConjunction(t *testing.T) {
	q, err := Build(models.SearchRequest{Query: "hello", RepositoryFilter: "core"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, ok := q.(*query.ConjunctionQuery); !ok {
		t.Errorf("expected ConjunctionQuery when a filter is present, got %T", q)
	}
}

func TestBuildRejectsInvalidRegex(t *testing.T) {
	_, err := Build(models.SearchRequest{Query: "(a(b(c(d))))", RegexSearch: true})
	if err == nil || !errs.Is(err, errs.KindInvalidRegex) {
		t.Errorf("Build() with over-nested regex = %v, want KindInvalidRegex", err)
	}
}

func TestFuzzyLeafExpandsPerFieldPerTerm(t *testing.T) {
	q := fuzzyLeaf("foo bar")
	disj, ok := q.(*query.DisjunctionQuery)
	if !ok {
		t.Fatalf("expected DisjunctionQuery, got %T", q)
	}
	want := 2 * len(schema.TextFields)
	if len(disj.Disjuncts) != want {
		t.Errorf("expected %d clauses (terms x fields), got %d", want, len(disj.Disjuncts))
	}
}

func TestFuzzyLeafEmptyQueryIsMatchAll(t *testing.T) {
	q := fuzzyLeaf("")
	if _, ok := q.(*query.MatchAllQuery); !ok {
		t.Errorf("expected MatchAllQuery for empty fuzzy query, got %T", q)
	}
}

func TestRegexLeafAppliesFlags(t *testing.T) {
	q, err := regexLeaf("foo", "i")
	if err != nil {
		t.Fatalf("regexLeaf() error = %v", err)
	}
	disj, ok := q.(*query.DisjunctionQuery)
	if !ok {
		t.Fatalf("expected DisjunctionQuery, got %T", q)
	}
	if len(disj.Disjuncts) != len(schema.TextFields) {
		t.Errorf("expected one clause per text field, got %d", len(disj.Disjuncts))
	}
	rq, ok := disj.Disjuncts[0].(*query.RegexpQuery)
	if !ok {
		t.Fatalf("expected RegexpQuery, got %T", disj.Disjuncts[0])
	}
	if rq.Regexp != "(?i)foo" {
		t.Errorf("Regexp = %q, want %q", rq.Regexp, "(?i)foo")
	}
}

func TestApplyFlagsCombinesRecognizedFlags(t *testing.T) {
	got := applyFlags("pat", "imsux")
	if got != "(?ims)pat" {
		t.Errorf("applyFlags() = %q, want %q", got, "(?ims)pat")
	}
}

func TestApplyFlagsNoFlagsReturnsPatternUnchanged(t *testing.T) {
	if got := applyFlags("pat", ""); got != "pat" {
		t.Errorf("applyFlags() = %q, want unchanged pattern", got)
	}
}

func TestSplitFilterValuesTrimsAndDropsEmpty(t *testing.T) {
	got := SplitFilterValues(" a, b ,,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("SplitFilterValues() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitFilterValues()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDimensionFilterSingleValueIsBareTermQuery(t *testing.T) {
	q := dimensionFilter(schema.FieldRepository, "core")
	if _, ok := q.(*query.TermQuery); !ok {
		t.Errorf("expected bare TermQuery for single value, got %T", q)
	}
}

func TestDimensionFilterMultiValueIsDisjunction(t *testing.T) {
	q := dimensionFilter(schema.FieldRepository, "core,extra")
	if _, ok := q.(*query.DisjunctionQuery); !ok {
		t.Errorf("expected DisjunctionQuery for multiple values, got %T", q)
	}
}

func TestDimensionFilterEmptyIsNil(t *testing.T) {
	if q := dimensionFilter(schema.FieldRepository, ""); q != nil {
		t.Errorf("expected nil filter for empty raw value, got %v", q)
	}
}

func TestSizeRangeFilterBothBoundsNilReturnsNil(t *testing.T) {
	if q := sizeRangeFilter(nil, nil); q != nil {
		t.Errorf("expected nil size filter when both bounds are nil, got %v", q)
	}
}

func TestSizeRangeFilterOneBoundSet(t *testing.T) {
	min := int64(100)
	q := sizeRangeFilter(&min, nil)
	if _, ok := q.(*query.NumericRangeQuery); !ok {
		t.Errorf("expected NumericRangeQuery, got %T", q)
	}
}

func TestFiltersExceptOmitsNamedDimension(t *testing.T) {
	req := models.SearchRequest{
		Query:            "x",
		RepositoryFilter: "core",
		ProjectFilter:    "proj",
	}
	all := filterClauses(req)
	except := FiltersExcept(req, schema.FieldRepository)
	if len(except) != len(all)-1 {
		t.Fatalf("FiltersExcept(exclude repository) has %d clauses, want %d", len(except), len(all)-1)
	}
}

func TestFiltersExceptSizeAlwaysOmitsSizeFilter(t *testing.T) {
	min := int64(10)
	req := models.SearchRequest{Query: "x", MinSize: &min}
	except := FiltersExcept(req, schema.FieldSize)
	if len(except) != 0 {
		t.Errorf("expected size filter to be omitted, got %d clauses", len(except))
	}

	// omitting any other field keeps the size filter.
	exceptOther := FiltersExcept(req, schema.FieldRepository)
	if len(exceptOther) != 1 {
		t.Errorf("expected only size filter retained before self-exclusion logic, got %d", len(exceptOther))
	}
}

func TestBuildExceptWithNoFiltersReturnsBareLeaf(t *testing.T) {
	q, err := BuildExcept(models.SearchRequest{Query: "hello", RepositoryFilter: "core"}, schema.FieldRepository)
	if err != nil {
		t.Fatalf("BuildExcept() error = %v", err)
	}
	if _, ok := q.(*query.QueryStringQuery); !ok {
		t.Errorf("expected bare leaf once the only filter is excluded, got %T", q)
	}
}
