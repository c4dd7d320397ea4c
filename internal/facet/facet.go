// Package facet computes the five parallel facet dimensions of a search
// (C7): counts for repository/project/version/extension under "all
// filters except this dimension's own", and six fixed byte-size buckets
// under "all filters except size". Each dimension's query is rebuilt
// independently via querybuilder.BuildExcept so a dimension's own filter
// never suppresses its own facet counts (spec invariant 4).
package facet

import (
	"sort"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"

	"github.com/kraklabs/codesearchcore/internal/errs"
	"github.com/kraklabs/codesearchcore/internal/querybuilder"
	"github.com/kraklabs/codesearchcore/internal/schema"
	"github.com/kraklabs/codesearchcore/pkg/models"
)

// keyword dimension facet bucket capacities. Repository cardinality is
// assumed low relative to project/version/extension.
const (
	repositoryFacetSize = 1000
	otherFacetSize      = 10000
)

// sizeBoundaries are the six fixed byte-size ranges, in display order.
// Bounds are nil-terminated on the open ends (< 1 KB has no lower
// bound, > 10 MB has no upper bound).
type sizeBoundary struct {
	label string
	min   *float64
	max   *float64
}

func f(v float64) *float64 { return &v }

var sizeBoundaries = []sizeBoundary{
	{"< 1 KB", nil, f(1024)},
	{"1 KB - 10 KB", f(1024), f(10 * 1024)},
	{"10 KB - 100 KB", f(10 * 1024), f(100 * 1024)},
	{"100 KB - 1 MB", f(100 * 1024), f(1024 * 1024)},
	{"1 MB - 10 MB", f(1024 * 1024), f(10 * 1024 * 1024)},
	{"> 10 MB", f(10 * 1024 * 1024), nil},
}

// Compute builds the full FacetBundle for req against idx, one
// independent search per dimension plus one for size buckets.
func Compute(idx bleve.Index, req models.SearchRequest) (*models.FacetBundle, error) {
	repos, err := keywordFacet(idx, req, schema.FieldRepository, repositoryFacetSize)
	if err != nil {
		return nil, err
	}
	projects, err := keywordFacet(idx, req, schema.FieldProject, otherFacetSize)
	if err != nil {
		return nil, err
	}
	versions, err := keywordFacet(idx, req, schema.FieldVersion, otherFacetSize)
	if err != nil {
		return nil, err
	}
	extensions, err := keywordFacet(idx, req, schema.FieldExtension, otherFacetSize)
	if err != nil {
		return nil, err
	}
	sizes, err := sizeFacet(idx, req)
	if err != nil {
		return nil, err
	}

	return &models.FacetBundle{
		Repositories: repos,
		Projects:     projects,
		Versions:     versions,
		Extensions:   extensions,
		SizeBuckets:  sizes,
	}, nil
}

// keywordFacet rebuilds the query with field's own filter omitted, runs
// a bleve terms facet over field with the given bucket capacity, and
// converts the result to Buckets sorted by descending count then
// ascending value.
func keywordFacet(idx bleve.Index, req models.SearchRequest, field string, size int) ([]models.Bucket, error) {
	q, err := querybuilder.BuildExcept(req, field)
	if err != nil {
		return nil, err
	}

	sreq := bleve.NewSearchRequestOptions(q, 0, 0, false)
	sreq.AddFacet(field, bleve.NewFacetRequest(field, size))

	res, err := idx.Search(sreq)
	if err != nil {
		return nil, errs.Wrap(errs.KindIndexIO, "facet search for "+field, err)
	}

	fr := res.Facets[field]
	if fr == nil || fr.Terms == nil {
		return []models.Bucket{}, nil
	}
	return termsToBuckets(*fr.Terms), nil
}

func termsToBuckets(terms bsearch.TermFacets) []models.Bucket {
	out := make([]models.Bucket, 0, len(terms))
	for _, t := range terms {
		out = append(out, models.Bucket{Value: t.Term, Count: t.Count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// sizeFacet rebuilds the query with the size filter always omitted
// (spec invariant 5: size-bucket counts are invariant to min_size /
// max_size), runs a bleve numeric-range facet over the six fixed
// boundaries, and always emits all six in fixed order even when a
// bucket's count is zero.
func sizeFacet(idx bleve.Index, req models.SearchRequest) ([]models.SizeBucket, error) {
	q, err := querybuilder.BuildExcept(req, schema.FieldSize)
	if err != nil {
		return nil, err
	}

	sreq := bleve.NewSearchRequestOptions(q, 0, 0, false)
	fr := bleve.NewFacetRequest(schema.FieldSize, len(sizeBoundaries))
	for _, b := range sizeBoundaries {
		fr.AddNumericRange(b.label, b.min, b.max)
	}
	sreq.AddFacet(schema.FieldSize, fr)

	res, err := idx.Search(sreq)
	if err != nil {
		return nil, errs.Wrap(errs.KindIndexIO, "size facet search", err)
	}

	counts := make(map[string]int, len(sizeBoundaries))
	if facetResult := res.Facets[schema.FieldSize]; facetResult != nil {
		for _, nr := range facetResult.NumericRanges {
			counts[nr.Name] = nr.Count
		}
	}

	out := make([]models.SizeBucket, 0, len(sizeBoundaries))
	for _, b := range sizeBoundaries {
		out = append(out, models.SizeBucket{Label: b.label, Count: counts[b.label]})
	}
	return out, nil
}
