package indexstore

import (
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/kraklabs/codesearchcore/internal/errs"
	"github.com/kraklabs/codesearchcore/internal/schema"
	"github.com/kraklabs/codesearchcore/pkg/models"
)

// toBleveDoc is the single place a models.Document becomes index
// fields, so every write path (upsert and rename) normalizes extension
// to lowercase without a leading dot the same way.
func toBleveDoc(d models.Document) map[string]interface{} {
	return map[string]interface{}{
		schema.FieldFileID:                    d.FileID,
		schema.FieldFileName:                  d.FileName,
		schema.FieldFilePath:                  d.FilePath,
		schema.FieldContent:                   d.Content,
		schema.RawField(schema.FieldFileName): d.FileName,
		schema.RawField(schema.FieldFilePath): d.FilePath,
		schema.RawField(schema.FieldContent):  d.Content,
		schema.FieldRepository:                d.Repository,
		schema.FieldProject:                   d.Project,
		schema.FieldVersion:                   d.Version,
		schema.FieldExtension:                 strings.ToLower(strings.TrimPrefix(d.Extension, ".")),
		schema.FieldSize:                      float64(d.Size),
	}
}

// Upsert queues a delete-then-add for doc.FileID in the current batch.
// Because bleve.Batch.Index replaces any existing document with the
// same id in a single transaction, this already gives the "old and new
// both survive pre-commit, only new survives post-commit" contract
// without a separate delete-by-term step.
func (s *Store) Upsert(doc models.Document) error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	if err := s.ensureWritable(); err != nil {
		return err
	}
	if doc.FileID == "" {
		return errs.New(errs.KindInvalidQuery, "document file_id must not be empty")
	}

	if err := s.batch.Index(doc.FileID, toBleveDoc(doc)); err != nil {
		return errs.Wrap(errs.KindIndexIO, "queue upsert", err)
	}
	s.batchAdds++
	s.dirty = true

	s.segMu.Lock()
	id := s.nextDocID
	s.nextDocID++
	s.locatorToID[id] = doc.FileID
	s.pendingDocIDs = append(s.pendingDocIDs, id)
	s.segMu.Unlock()

	return nil
}

// ClearAll queues a delete for every live document. A commit is
// required for the clear to become visible.
func (s *Store) ClearAll() error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	if err := s.ensureWritable(); err != nil {
		return err
	}

	ids, err := s.allLiveIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.batch.Delete(id)
	}
	if len(ids) > 0 {
		s.dirty = true
	}
	return nil
}

// DeleteByRepository queues a delete for every document whose
// repository field equals name, returning the number queued. A commit
// is required for the deletion to become visible.
func (s *Store) DeleteByRepository(name string) (int, error) {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	if err := s.ensureWritable(); err != nil {
		return 0, err
	}

	ids, err := s.idsMatchingTerm(schema.FieldRepository, name)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.batch.Delete(id)
	}
	if len(ids) > 0 {
		s.dirty = true
	}
	return len(ids), nil
}

// RenameProject reindexes every document whose project field equals
// old with new, keyed by the same file_id (stored fields are
// immutable, so each match is re-added with the rewritten project
// value; because the id is unchanged this collapses to a single
// Index call per document within the batch). A commit is required for
// the rename to become visible.
func (s *Store) RenameProject(old, newName string) (int, error) {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	if err := s.ensureWritable(); err != nil {
		return 0, err
	}

	docs, err := s.fetchMatchingTerm(schema.FieldProject, old)
	if err != nil {
		return 0, err
	}
	for _, d := range docs {
		d.Project = newName
		if err := s.batch.Index(d.FileID, toBleveDoc(d)); err != nil {
			return 0, errs.Wrap(errs.KindIndexIO, "queue rename", err)
		}
	}
	if len(docs) > 0 {
		s.dirty = true
	}
	return len(docs), nil
}

// allLiveIDs returns every file_id currently visible to the writer's
// own index handle (the committed state).
func (s *Store) allLiveIDs() ([]string, error) {
	total, err := s.idx.DocCount()
	if err != nil {
		return nil, errs.Wrap(errs.KindIndexIO, "doc count", err)
	}
	if total == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(total)
	req.Fields = nil
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindIndexIO, "enumerate documents", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func (s *Store) idsMatchingTerm(field, value string) ([]string, error) {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	req := bleve.NewSearchRequest(q)
	req.Size = 1_000_000
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindIndexIO, "match term", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func (s *Store) fetchMatchingTerm(field, value string) ([]models.Document, error) {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	req := bleve.NewSearchRequest(q)
	req.Size = 1_000_000
	req.Fields = []string{"*"}
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindIndexIO, "match term", err)
	}
	docs := make([]models.Document, 0, len(res.Hits))
	for _, h := range res.Hits {
		docs = append(docs, docFromFields(h.ID, h.Fields))
	}
	return docs, nil
}

func docFromFields(id string, fields map[string]interface{}) models.Document {
	str := func(k string) string {
		if v, ok := fields[k].(string); ok {
			return v
		}
		return ""
	}
	num := func(k string) int64 {
		if v, ok := fields[k].(float64); ok {
			return int64(v)
		}
		return 0
	}
	return models.Document{
		FileID:     id,
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
