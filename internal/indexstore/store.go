// Package indexstore owns the on-disk segmented inverted index: a
// single writer guarded by an exclusive lock, and a reader view backed
// directly by the underlying bleve index (C2). Document upsert,
// deletion, and rename (C3) live alongside it because they are writer
// operations on the same resource.
package indexstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kraklabs/codesearchcore/internal/errs"
	"github.com/kraklabs/codesearchcore/internal/schema"
)

// Config carries the tuning knobs read by the config loader (C11).
type Config struct {
	WriterMemoryMB int
	ThreadCount    int // 0 means auto-detect
}

// Store is the single-writer, many-reader owner of one index directory.
// Every write operation (upsert, delete, clear, rename, reset, merge
// commit) must hold writerMu; readers never take it.
type Store struct {
	dir    string
	cfg    Config
	logger zerolog.Logger

	writerMu sync.Mutex
	idx      bleve.Index
	poisoned bool

	batch     *bleve.Batch
	batchAdds int
	dirty     bool // true once any mutation (upsert, clear, delete, rename) is queued

	segMu   sync.Mutex
	segments []segmentRecord
	nextOrdinal int
	nextDocID   int
	locatorToID map[int]string // global doc id -> file_id
	locatorSeg  map[int]int    // global doc id -> segment ordinal
	pendingDocIDs []int        // doc ids queued in the current batch
}

type segmentRecord struct {
	ordinal  int
	docCount int
	maxDocID int
}

// Open creates the directory if missing, opens or creates the index
// with the fixed schema, and sets up the store's writer batch. cfg is
// recorded, logged, and returned by Config; it is not passed to bleve,
// so it does not limit the writer's memory or threads.
func Open(dir string, cfg Config) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindIndexIO, "create index directory", err)
	}

	var idx bleve.Index
	metaPath := filepath.Join(dir, "index_meta.json")
	if _, err := os.Stat(metaPath); err == nil {
		idx, err = bleve.Open(dir)
		if err != nil {
			return nil, errs.Wrap(errs.KindIndexIO, "open existing index", err)
		}
	} else {
		idx, err = bleve.New(dir, schema.Build())
		if err != nil {
			return nil, errs.Wrap(errs.KindIndexIO, "create index", err)
		}
	}

	s := &Store{
		dir:         dir,
		cfg:         cfg,
		logger:      log.With().Str("component", "indexstore").Logger(),
		idx:         idx,
		batch:       idx.NewBatch(),
		nextOrdinal: 1,
		nextDocID:   1,
		locatorToID: make(map[int]string),
		locatorSeg:  make(map[int]int),
	}
	s.logger.Info().Str("dir", dir).Int("writer_memory_mb", cfg.WriterMemoryMB).Int("thread_count", cfg.ThreadCount).Msg("index store opened")
	return s, nil
}

// Close releases the underlying index handle.
func (s *Store) Close() error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	if s.idx == nil {
		return nil
	}
	err := s.idx.Close()
	s.idx = nil
	if err != nil {
		return errs.Wrap(errs.KindIndexIO, "close index", err)
	}
	return nil
}

// Dir returns the index's on-disk directory.
func (s *Store) Dir() string { return s.dir }

// Config returns the writer tuning knobs this store was opened with.
func (s *Store) Config() Config { return s.cfg }

// Index exposes the underlying bleve.Index for query execution (C4/C5)
// and facet aggregation (C7). Callers must not write through it; all
// mutation goes through Store's writer operations.
func (s *Store) Index() bleve.Index { return s.idx }

// ensureWritable returns a poisoned-writer error if a prior commit
// failed irrecoverably.
func (s *Store) ensureWritable() error {
	if s.poisoned {
		return errs.New(errs.KindWriterPoisoned, "writer must be re-initialized after a failed commit")
	}
	return nil
}

// Commit flushes the pending batch to the index and advances the
// reader to the new snapshot. After return, all new searches observe
// the new state. A failed commit poisons the writer: callers must
// re-open the store.
func (s *Store) Commit() error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	if err := s.ensureWritable(); err != nil {
		return err
	}

	if !s.dirty {
		return nil
	}

	if err := s.idx.Batch(s.batch); err != nil {
		s.poisoned = true
		return errs.Wrap(errs.KindWriterPoisoned, "commit failed, writer poisoned", err)
	}

	s.segMu.Lock()
	ord := s.nextOrdinal
	s.nextOrdinal++
	maxDoc := 0
	for _, id := range s.pendingDocIDs {
		if id > maxDoc {
			maxDoc = id
		}
		s.locatorSeg[id] = ord
	}
	s.segments = append(s.segments, segmentRecord{
		ordinal:  ord,
		docCount: s.batchAdds,
		maxDocID: maxDoc,
	})
	s.pendingDocIDs = nil
	s.segMu.Unlock()

	s.batch = s.idx.NewBatch()
	s.batchAdds = 0
	s.dirty = false
	s.logger.Info().Int("segment_ordinal", ord).Msg("commit")
	return nil
}

// Reset removes all documents and commits, preserving the schema.
func (s *Store) Reset() error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	if err := s.ensureWritable(); err != nil {
		return err
	}

	if s.idx != nil {
		_ = s.idx.Close()
	}
	if err := os.RemoveAll(s.dir); err != nil {
		s.poisoned = true
		return errs.Wrap(errs.KindIndexIO, "remove index directory on reset", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.poisoned = true
		return errs.Wrap(errs.KindIndexIO, "recreate index directory on reset", err)
	}
	idx, err := bleve.New(s.dir, schema.Build())
	if err != nil {
		s.poisoned = true
		return errs.Wrap(errs.KindIndexIO, "recreate index on reset", err)
	}

	s.idx = idx
	s.batch = idx.NewBatch()
	s.batchAdds = 0
	s.dirty = false

	s.segMu.Lock()
	s.segments = nil
	s.nextOrdinal = 1
	s.nextDocID = 1
	s.locatorToID = make(map[int]string)
	s.locatorSeg = make(map[int]int)
	s.pendingDocIDs = nil
	s.segMu.Unlock()

	s.logger.Info().Msg("index reset")
	return nil
}

// Reader is a cheap view of the index. Writes only become visible to
// idx at Commit time (they sit in an in-memory batch until then), so a
// Reader never observes uncommitted work. A Reader shares the store's
// live index handle and is not pinned to a point in time: a query run
// through it after a commit observes that commit, even if the Reader
// was obtained before it.
type Reader struct {
	idx bleve.Index
}

// Snapshot returns a reader view over the store's index; each query run
// through it sees the work committed at the time that query runs.
func (s *Store) Snapshot() *Reader {
	return &Reader{idx: s.idx}
}

// Index exposes the bleve index for building and running queries.
func (r *Reader) Index() bleve.Index { return r.idx }

// DocCount returns the number of live documents visible to this
// snapshot.
func (r *Reader) DocCount() (uint64, error) {
	n, err := r.idx.DocCount()
	if err != nil {
		return 0, errs.Wrap(errs.KindIndexIO, "doc count", err)
	}
	return n, nil
}
