// Package models holds the wire-level types shared across the index
// store, query, search, facet, and metrics packages and the HTTP layer.
package models

// Document is a single file-version record. FileID is the upsert key.
type Document struct {
	FileID     string `json:"file_id"`
	FileName   string `json:"file_name"`
	FilePath   string `json:"file_path"`
	Content    string `json:"content"`
	Repository string `json:"repository"`
	Project    string `json:"project"`
	Version    string `json:"version"`
	Extension  string `json:"extension"`
	Size       int64  `json:"size"`
}

// SearchRequest is the input to the query builder and search executor.
type SearchRequest struct {
	Query       string `json:"query"`
	RegexSearch bool   `json:"regex_search"`
	FuzzySearch bool   `json:"fuzzy_search"`
	RegexFlags  string `json:"regex_flags"`

	RepositoryFilter string `json:"repository_filter"`
	ProjectFilter    string `json:"project_filter"`
	VersionFilter    string `json:"version_filter"`
	ExtensionFilter  string `json:"extension_filter"`

	MinSize *int64 `json:"min_size,omitempty"`
	MaxSize *int64 `json:"max_size,omitempty"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`

	IncludeFacets bool `json:"include_facets"`
}

// Locator identifies one document within one snapshot: (segment ordinal,
// doc-id). DocID is a store-wide number assigned at upsert time, not an
// offset within the segment. Not stable across merges.
type Locator struct {
	SegmentOrdinal int `json:"segment_ordinal"`
	DocID          int `json:"doc_id"`
}

// SearchResult is one hit returned from search.
type SearchResult struct {
	FileID      string  `json:"file_id"`
	Locator     Locator `json:"locator"`
	FileName    string  `json:"file_name"`
	FilePath    string  `json:"file_path"`
	Repository  string  `json:"repository"`
	Project     string  `json:"project"`
	Version     string  `json:"version"`
	Extension   string  `json:"extension"`
	Size        int64   `json:"size"`
	SnippetHTML string  `json:"snippet_html"`
	LineNumber  *int    `json:"line_number,omitempty"`
	Score       float64 `json:"score"`
}

// SearchResponse is the output of a search call.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   uint64         `json:"total"`
	Facets  *FacetBundle   `json:"facets,omitempty"`
}

// Bucket is a single (value, count) facet entry.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SizeBucket is one of the six fixed byte-size ranges.
type SizeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FacetBundle holds the five parallel facet dimensions of a search.
type FacetBundle struct {
	Repositories []Bucket     `json:"repositories"`
	Projects     []Bucket     `json:"projects"`
	Versions     []Bucket     `json:"versions"`
	Extensions   []Bucket     `json:"extensions"`
	SizeBuckets  []SizeBucket `json:"size_buckets"`
}

// SegmentStats describes one immutable on-disk segment.
type SegmentStats struct {
	Ordinal     int            `json:"ordinal"`
	DocCount    int            `json:"doc_count"`
	MaxDocID    int            `json:"max_doc_id"`
	DeletedDocs int            `json:"deleted_docs"`
	Bytes       int64          `json:"bytes"`
	SpaceBreak  SpaceBreakdown `json:"space_breakdown"`
}

// SpaceBreakdown splits a segment's byte size across storage concerns.
type SpaceBreakdown struct {
	Postings    int64 `json:"postings"`
	StoredField int64 `json:"stored_fields"`
	FastField   int64 `json:"fast_fields"`
	Positions   int64 `json:"positions"`
	Other       int64 `json:"other"`
}

// CacheStats summarizes the reader's decoded-segment cache.
type CacheStats struct {
	Entries  int     `json:"entries"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// HealthStatus is the overall classification of the index.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthDegraded HealthStatus = "degraded"
)

// Severity of a single health issue or recommendation.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Recommendation is a single tuning suggestion, most-impactful first.
type Recommendation struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Impact           Severity `json:"impact"`
	TuningParameter  string   `json:"tuning_parameter,omitempty"`
	CurrentValue     string   `json:"current_value,omitempty"`
	RecommendedValue string   `json:"recommended_value,omitempty"`
	Rationale        string   `json:"rationale"`
}

// IndexStats is the snapshot exposed by collect_metrics.
type IndexStats struct {
	TotalDocuments  uint64           `json:"total_documents"`
	TotalBytes      int64            `json:"total_bytes"`
	Segments        []SegmentStats   `json:"segments"`
	Cache           CacheStats       `json:"cache"`
	Status          HealthStatus     `json:"status"`
	Recommendations []Recommendation `json:"recommendations"`
}

// OptimizeReport is the result of a merge operation.
type OptimizeReport struct {
	SegmentsBefore       int     `json:"segments_before"`
	SegmentsAfter        int     `json:"segments_after"`
	SizeBeforeBytes      int64   `json:"size_before_bytes"`
	SizeAfterBytes       int64   `json:"size_after_bytes"`
	SizeReductionPercent float64 `json:"size_reduction_percent"`
	DurationMS           int64   `json:"duration_ms"`
}
