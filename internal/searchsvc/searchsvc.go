// Package searchsvc implements the search executor (C5): it turns a
// models.SearchRequest into hits by delegating query construction to
// querybuilder, runs it against a fresh reader snapshot of the index
// store, and synthesizes each hit's snippet and locator. It also serves
// the two direct-lookup operations (lookup_by_id, lookup_by_locator)
// used by result-detail views and permalinks.
package searchsvc

import (
	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"

	"github.com/kraklabs/codesearchcore/internal/errs"
	"github.com/kraklabs/codesearchcore/internal/facet"
	"github.com/kraklabs/codesearchcore/internal/indexstore"
	"github.com/kraklabs/codesearchcore/internal/querybuilder"
	"github.com/kraklabs/codesearchcore/internal/schema"
	"github.com/kraklabs/codesearchcore/internal/snippet"
	"github.com/kraklabs/codesearchcore/pkg/models"
)

// DefaultLimit is the page size callers at the HTTP boundary should
// substitute when a caller omits limit entirely. The engine itself
// never applies this default: limit == 0 is a legal, literal request
// for "counts-only" (spec §4.4 step 4, §8 boundary behavior), so
// Search must not conflate "unset" with "zero".
const DefaultLimit = 20
const maxLimit = 200

// Service executes searches and lookups against one index store.
type Service struct {
	store *indexstore.Store
}

// New builds a Service bound to store.
func New(store *indexstore.Store) *Service {
	return &Service{store: store}
}

// Search builds the composite query (C4), runs it against a fresh
// snapshot, synthesizes each result's snippet and locator (C6), and
// attaches facets (C7) when requested.
func (s *Service) Search(req models.SearchRequest) (*models.SearchResponse, error) {
	// limit == 0 is a literal, legal request for counts-only results, not
	// an "unset" sentinel; only a negative limit (not representable as a
	// page size) is clamped. Callers that want a default page size when
	// the caller didn't specify one apply DefaultLimit before calling in.
	limit := req.Limit
	if limit < 0 {
		limit = 0
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	q, err := querybuilder.Build(req)
	if err != nil {
		return nil, err
	}

	snap := s.store.Snapshot()
	idx := snap.Index()

	sreq := bleve.NewSearchRequestOptions(q, limit, offset, false)
	sreq.Fields = []string{"*"}
	res, err := idx.Search(sreq)
	if err != nil {
		return nil, errs.Wrap(errs.KindIndexIO, "execute search", err)
	}

	mode := querybuilder.ModeOf(req)
	terms := snippet.HighlightTerms(mode, req.Query, req.Query)

	results := make([]models.SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, s.synthesize(hit, terms))
	}

	resp := &models.SearchResponse{
		Results: results,
		Total:   res.Total,
	}

	if req.IncludeFacets {
		bundle, err := facet.Compute(idx, req)
		if err != nil {
			return nil, err
		}
		resp.Facets = bundle
	}

	return resp, nil
}

// synthesize turns one bleve hit into a SearchResult: stored fields,
// a highlighted snippet derived from terms, and the locator this
// writer instance assigned the document at upsert time.
func (s *Service) synthesize(hit *bsearch.DocumentMatch, terms []string) models.SearchResult {
	doc := docFromHit(hit)
	html, line := snippet.Generate(doc.Content, terms)
	ordinal, docID, _ := s.store.LocatorFor(doc.FileID)
	return models.SearchResult{
		FileID:      doc.FileID,
		Locator:     models.Locator{SegmentOrdinal: ordinal, DocID: docID},
		FileName:    doc.FileName,
		FilePath:    doc.FilePath,
		Repository:  doc.Repository,
		Project:     doc.Project,
		Version:     doc.Version,
		Extension:   doc.Extension,
		Size:        doc.Size,
		SnippetHTML: html,
		LineNumber:  line,
		Score:       hit.Score,
	}
}

// LookupByID returns the full result for an exact file_id. Absence is
// reported as found=false, not an error — not-found is a normal
// outcome of a lookup, not a fault.
func (s *Service) LookupByID(fileID string) (*models.SearchResult, bool, error) {
	snap := s.store.Snapshot()
	idx := snap.Index()

	tq := bleve.NewTermQuery(fileID)
	tq.SetField(schema.FieldFileID)
	sreq := bleve.NewSearchRequestOptions(tq, 1, 0, false)
	sreq.Fields = []string{"*"}

	res, err := idx.Search(sreq)
	if err != nil {
		return nil, false, errs.Wrap(errs.KindIndexIO, "lookup by id", err)
	}
	if len(res.Hits) == 0 {
		return nil, false, nil
	}

	result := s.synthesize(res.Hits[0], nil)
	return &result, true, nil
}

// LookupByLocator resolves a "segment:doc" wire-format locator (C2) to
// the file_id it was assigned, then delegates to LookupByID. An
// unparseable locator is a KindInvalidLocator error; a well-formed but
// unknown locator (merged away or never committed) is found=false.
func (s *Service) LookupByLocator(locator string) (*models.SearchResult, bool, error) {
	ordinal, docID, err := indexstore.DecodeLocator(locator)
	if err != nil {
		return nil, false, err
	}
	fileID, ok := s.store.LookupLocator(ordinal, docID)
	if !ok {
		return nil, false, nil
	}
	return s.LookupByID(fileID)
}

func docFromHit(hit *bsearch.DocumentMatch) models.Document {
	str := func(k string) string {
		if v, ok := hit.Fields[k].(string); ok {
			return v
		}
		return ""
	}
	num := func(k string) int64 {
		if v, ok := hit.Fields[k].(float64); ok {
			return int64(v)
		}
		return 0
	}
	return models.Document{
		FileID:     hit.ID,
		FileName:   str(schema.FieldFileName),
		FilePath:   str(schema.FieldFilePath),
		Content:    str(schema.FieldContent),
		Repository: str(schema.FieldRepository),
		Project:    str(schema.FieldProject),
		Version:    str(schema.FieldVersion),
		Extension:  str(schema.FieldExtension),
		Size:       num(schema.FieldSize),
	}
}
