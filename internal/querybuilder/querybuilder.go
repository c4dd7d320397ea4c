// Package querybuilder translates a models.SearchRequest into a
// composite bleve query tree (C4): a text leaf in one of three
// mutually exclusive modes, conjoined with per-dimension filters and a
// size range.
package querybuilder

import (
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kraklabs/codesearchcore/internal/errs"
	"github.com/kraklabs/codesearchcore/internal/regexvalidate"
	"github.com/kraklabs/codesearchcore/internal/schema"
	"github.com/kraklabs/codesearchcore/pkg/models"
)

// Mode is the active text-query mode. Precedence is regex > fuzzy > plain.
type Mode string

const (
	ModePlain Mode = "plain"
	ModeFuzzy Mode = "fuzzy"
	ModeRegex Mode = "regex"
)

// ModeOf resolves the request's mode under regex > fuzzy > plain precedence.
func ModeOf(req models.SearchRequest) Mode {
	switch {
	case req.RegexSearch:
		return ModeRegex
	case req.FuzzySearch:
		return ModeFuzzy
	default:
		return ModePlain
	}
}

// Build composes the final query: the text leaf conjoined with every
// non-empty filter from the per-dimension and size-range layers. If no
// filters are present, the text leaf stands alone.
func Build(req models.SearchRequest) (query.Query, error) {
	leaf, err := TextLeaf(req)
	if err != nil {
		return nil, err
	}

	filters := filterClauses(req)
	if len(filters) == 0 {
		return leaf, nil
	}

	conj := bleve.NewConjunctionQuery(leaf)
	conj.AddQuery(filters...)
	return conj, nil
}

// TextLeaf builds layer 1 — the mode-specific text query — without any
// filters applied.
func TextLeaf(req models.SearchRequest) (query.Query, error) {
	q := strings.TrimSpace(req.Query)
	switch ModeOf(req) {
	case ModeRegex:
		return regexLeaf(q, req.RegexFlags)
	case ModeFuzzy:
		return fuzzyLeaf(q), nil
	default:
		return plainLeaf(q), nil
	}
}

// plainLeaf tokenizes query against the standard analyzer over the
// composite _all field, which aggregates content/file_name/file_path
// (the only fields with IncludeInAll set). Boolean operators, phrases,
// and explicit field prefixes follow bleve's query-string grammar.
func plainLeaf(q string) query.Query {
	if q == "" || q == "*" {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewQueryStringQuery(q)
}

// fuzzyLeaf expands each whitespace-separated term of q with edit
// distance 1 (bleve's Levenshtein fuzziness counts a transposition as
// one edit), applied per searchable field individually, then ORs every
// per-field, per-term match together.
func fuzzyLeaf(q string) query.Query {
	terms := strings.Fields(q)
	if len(terms) == 0 {
		return bleve.NewMatchAllQuery()
	}

	var clauses []query.Query
	for _, term := range terms {
		for _, field := range schema.TextFields {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetField(field)
			fq.SetFuzziness(1)
			fq.SetPrefix(1)
			clauses = append(clauses, fq)
		}
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

// regexLeaf validates pattern via C8, applies the flags, and checks once
// that Go's regexp package compiles the result; a compile failure is an
// InvalidRegex error. It then builds one RegexpQuery per searchable
// field's untokenized shadow field, all with the same compiled pattern,
// and ORs them. No field is skipped.
func regexLeaf(pattern string, flags string) (query.Query, error) {
	if err := regexvalidate.Validate(pattern); err != nil {
		return nil, err
	}

	compiled := applyFlags(pattern, flags)
	if _, err := regexp.Compile(compiled); err != nil {
		return nil, errs.Wrap(errs.KindInvalidRegex, "engine rejected compiled pattern on every field", err)
	}

	clauses := make([]query.Query, 0, len(schema.TextFields))
	for _, field := range schema.TextFields {
		rq := bleve.NewRegexpQuery(compiled)
		rq.SetField(schema.RawField(field))
		clauses = append(clauses, rq)
	}
	return bleve.NewDisjunctionQuery(clauses...), nil
}

// applyFlags prepends a Go regexp inline-flag group for the subset of
// modifiers this system recognizes (i, m, s, u, x), combined into a
// single group so multiple flags compose (e.g. "im" -> "(?im)"). Only
// i, m and s are emitted; u and x are accepted and add nothing.
func applyFlags(pattern, flags string) string {
	var kept strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			kept.WriteRune(f)
		case 'u':
			// unicode mode is already Go regexp's default; nothing to add.
		case 'x':
			// Go regexp has no extended (verbose) mode; "(?x)" would not compile.
		}
	}
	if kept.Len() == 0 {
		return pattern
	}
	return "(?" + kept.String() + ")" + pattern
}

// filterClauses builds layers 2 and 3: the four per-dimension exact
// filters and the size range, each as an independent non-empty clause.
func filterClauses(req models.SearchRequest) []query.Query {
	var clauses []query.Query

	if c := dimensionFilter(schema.FieldRepository, req.RepositoryFilter); c != nil {
		clauses = append(clauses, c)
	}
	if c := dimensionFilter(schema.FieldProject, req.ProjectFilter); c != nil {
		clauses = append(clauses, c)
	}
	if c := dimensionFilter(schema.FieldVersion, req.VersionFilter); c != nil {
		clauses = append(clauses, c)
	}
	if c := dimensionFilter(schema.FieldExtension, req.ExtensionFilter); c != nil {
		clauses = append(clauses, c)
	}
	if c := sizeRangeFilter(req.MinSize, req.MaxSize); c != nil {
		clauses = append(clauses, c)
	}

	return clauses
}

// FiltersExcept builds the same per-dimension and size-range clauses as
// filterClauses, omitting whichever one matches exclude. The facet
// aggregator (C7) uses this to rebuild "all filters except self" for
// each dimension, and to always omit the size filter when computing
// size-bucket counts.
func FiltersExcept(req models.SearchRequest, exclude string) []query.Query {
	var clauses []query.Query

	add := func(field, raw string) {
		if field == exclude {
			return
		}
		if c := dimensionFilter(field, raw); c != nil {
			clauses = append(clauses, c)
		}
	}
	add(schema.FieldRepository, req.RepositoryFilter)
	add(schema.FieldProject, req.ProjectFilter)
	add(schema.FieldVersion, req.VersionFilter)
	add(schema.FieldExtension, req.ExtensionFilter)

	if exclude != schema.FieldSize {
		if c := sizeRangeFilter(req.MinSize, req.MaxSize); c != nil {
			clauses = append(clauses, c)
		}
	}

	return clauses
}

// BuildExcept composes the text leaf with FiltersExcept(req, exclude),
// the query the facet aggregator runs a terms/range aggregation over.
func BuildExcept(req models.SearchRequest, exclude string) (query.Query, error) {
	leaf, err := TextLeaf(req)
	if err != nil {
		return nil, err
	}
	filters := FiltersExcept(req, exclude)
	if len(filters) == 0 {
		return leaf, nil
	}
	conj := bleve.NewConjunctionQuery(leaf)
	conj.AddQuery(filters...)
	return conj, nil
}

// SplitFilterValues splits a comma-separated filter value, trims
// whitespace, and drops empties. Shared with the facet aggregator so
// "all filters except self" rebuilds stay consistent with the builder.
func SplitFilterValues(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// dimensionFilter builds an OR of term queries for one exact-match
// dimension. A single surviving value collapses to a bare term query.
func dimensionFilter(field, raw string) query.Query {
	values := SplitFilterValues(raw)
	if len(values) == 0 {
		return nil
	}
	if len(values) == 1 {
		tq := bleve.NewTermQuery(values[0])
		tq.SetField(field)
		return tq
	}
	clauses := make([]query.Query, 0, len(values))
	for _, v := range values {
		tq := bleve.NewTermQuery(v)
		tq.SetField(field)
		clauses = append(clauses, tq)
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

// sizeRangeFilter adds an inclusive-min / exclusive-max range query on
// the size field if either bound is set.
func sizeRangeFilter(min, max *int64) query.Query {
	if min == nil && max == nil {
		return nil
	}
	var minF, maxF *float64
	minInclusive := true
	maxInclusive := false
	if min != nil {
		v := float64(*min)
		minF = &v
	}
	if max != nil {
		v := float64(*max)
		maxF = &v
	}
	nq := bleve.NewNumericRangeInclusiveQuery(minF, maxF, &minInclusive, &maxInclusive)
	nq.SetField(schema.FieldSize)
	return nq
}
