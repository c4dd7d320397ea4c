// Package schema declares the indexed fields of a code-search document
// and their indexing modes, and builds the bleve.IndexMapping that the
// index store opens against.
package schema

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names as they appear in the index and in stored/fast-field
// lookups. These are the only field names the rest of the codebase
// should hardcode.
const (
	FieldFileID     = "file_id"
	FieldFileName   = "file_name"
	FieldFilePath   = "file_path"
	FieldContent    = "content"
	FieldRepository = "repository"
	FieldProject    = "project"
	FieldVersion    = "version"
	FieldExtension  = "extension"
	FieldSize       = "size"
)

// TextFields are tokenized with the standard analyzer and are the
// targets of plain/fuzzy text queries and highlighting.
var TextFields = []string{FieldContent, FieldFileName, FieldFilePath}

// KeywordFields are indexed without tokenization: filter equality must
// match exactly, including case and punctuation (spec invariant 3).
var KeywordFields = []string{FieldRepository, FieldProject, FieldVersion, FieldExtension}

// RawField returns the name of the whole-value (untokenized) shadow
// field that backs regex queries for one of TextFields. bleve's
// RegexpQuery tests its automaton against whole indexed terms; against
// a tokenized field that means "does any single token match", which
// cannot express patterns that span token boundaries (e.g. a filename
// regex matching both the basename and the extension). Indexing a
// second, keyword-analyzed copy of the same value gives the regex
// query a single term equal to the whole field value to match against,
// the same trick tantivy-style raw string fields use for this purpose.
func RawField(field string) string { return field + "_raw" }

// Build constructs the index mapping used by every opened index.
func Build() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = "standard"

	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"
	text.Store = true
	text.IncludeTermVectors = true

	raw := bleve.NewTextFieldMapping()
	raw.Analyzer = keyword.Name
	raw.Store = false
	raw.IncludeInAll = false

	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	kw.Store = true
	kw.IncludeInAll = false

	fileID := bleve.NewTextFieldMapping()
	fileID.Analyzer = keyword.Name
	fileID.Store = true
	fileID.IncludeInAll = false

	size := bleve.NewNumericFieldMapping()
	size.Store = true
	size.IncludeInAll = false

	doc.AddFieldMappingsAt(FieldFileID, fileID)
	for _, f := range TextFields {
		doc.AddFieldMappingsAt(f, text)
		doc.AddFieldMappingsAt(RawField(f), raw)
	}
	for _, f := range KeywordFields {
		doc.AddFieldMappingsAt(f, kw)
	}
	doc.AddFieldMappingsAt(FieldSize, size)

	im.DefaultMapping = doc
	return im
}
