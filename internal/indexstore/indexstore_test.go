package indexstore

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/kraklabs/codesearchcore/pkg/models"
)

func init() {
	// quiet during tests; the store logs at info level on every commit.
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), Config{WriterMemoryMB: 200, ThreadCount: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func doc(id, repo, project string) models.Document {
	return models.Document{
		FileID:     id,
		FileName:   "main.go",
		FilePath:   "cmd/main.go",
		Content:    "package main\n\nfunc main() {}\n",
		Repository: repo,
		Project:    project,
		Version:    "v1",
		Extension:  "go",
		Size:       30,
	}
}

func TestUpsertNotVisibleUntilCommit(t *testing.T) {
	s := openTestStore(t)

	if err := s.Upsert(doc("f1", "repo-a", "proj")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	count, err := s.Snapshot().DocCount()
	if err != nil {
		t.Fatalf("DocCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 docs before commit, got %d", count)
	}

	if err := s.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	count, err = s.Snapshot().DocCount()
	if err != nil {
		t.Fatalf("DocCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 doc after commit, got %d", count)
	}
}

func TestUpsertRejectsEmptyFileID(t *testing.T) {
	s := openTestStore(t)
	err := s.Upsert(doc("", "repo-a", "proj"))
	if err == nil {
		t.Error("expected error for empty file_id, got nil")
	}
}

func TestCommitWithNothingPendingIsNoop(t *testing.T) {
	s := openTestStore(t)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit() with nothing pending should be a no-op, got error: %v", err)
	}
	if s.SegmentCount() != 0 {
		t.Errorf("expected 0 segments for a no-op commit, got %d", s.SegmentCount())
	}
}

func TestCommitAdvancesSegmentCount(t *testing.T) {
	s := openTestStore(t)
	_ = s.Upsert(doc("f1", "repo-a", "proj"))
	_ = s.Commit()
	_ = s.Upsert(doc("f2", "repo-a", "proj"))
	_ = s.Commit()

	if got := s.SegmentCount(); got != 2 {
		t.Errorf("SegmentCount() = %d, want 2", got)
	}
}

func TestLocatorForRoundTrips(t *testing.T) {
	s := openTestStore(t)
	_ = s.Upsert(doc("f1", "repo-a", "proj"))
	_ = s.Commit()

	ordinal, docID, ok := s.LocatorFor("f1")
	if !ok {
		t.Fatal("expected LocatorFor to find f1")
	}

	fileID, ok := s.LookupLocator(ordinal, docID)
	if !ok || fileID != "f1" {
		t.Errorf("LookupLocator(%d, %d) = (%q, %v), want (\"f1\", true)", ordinal, docID, fileID, ok)
	}
}

func TestLookupLocatorUnknownIsNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, ok := s.LookupLocator(99, 99); ok {
		t.Error("expected unknown locator to report ok=false")
	}
}

func TestEncodeDecodeLocatorRoundTrip(t *testing.T) {
	enc := EncodeLocator(3, 42)
	if enc != "3:42" {
		t.Errorf("EncodeLocator(3, 42) = %q, want \"3:42\"", enc)
	}
	ord, id, err := DecodeLocator(enc)
	if err != nil {
		t.Fatalf("DecodeLocator() error = %v", err)
	}
	if ord != 3 || id != 42 {
		t.Errorf("DecodeLocator() = (%d, %d), want (3, 42)", ord, id)
	}
}

func TestDecodeLocatorRejectsMalformed(t *testing.T) {
	bad := []string{"", "abc", "1:2:3", "1", "1:", ":1", "1 :2", "1: 2"}
	for _, b := range bad {
		if _, _, err := DecodeLocator(b); err == nil {
			t.Errorf("DecodeLocator(%q) expected error, got nil", b)
		}
	}
}

func TestDeleteByRepositoryQueuesAndCommits(t *testing.T) {
	s := openTestStore(t)
	_ = s.Upsert(doc("f1", "repo-a", "proj"))
	_ = s.Upsert(doc("f2", "repo-b", "proj"))
	_ = s.Commit()

	n, err := s.DeleteByRepository("repo-a")
	if err != nil {
		t.Fatalf("DeleteByRepository() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteByRepository() queued %d deletes, want 1", n)
	}

	if err := s.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	count, _ := s.Snapshot().DocCount()
	if count != 1 {
		t.Errorf("expected 1 remaining doc after delete, got %d", count)
	}
}

func TestRenameProjectReindexesMatchingDocs(t *testing.T) {
	s := openTestStore(t)
	_ = s.Upsert(doc("f1", "repo-a", "old-project"))
	_ = s.Commit()

	n, err := s.RenameProject("old-project", "new-project")
	if err != nil {
		t.Fatalf("RenameProject() error = %v", err)
	}
	if n != 1 {
		t.Errorf("RenameProject() reindexed %d docs, want 1", n)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	docs, err := s.fetchMatchingTerm("project", "new-project")
	if err != nil {
		t.Fatalf("fetchMatchingTerm() error = %v", err)
	}
	if len(docs) != 1 || docs[0].FileID != "f1" {
		t.Errorf("expected f1 under new-project, got %+v", docs)
	}
}

func TestClearAllRemovesEveryDocument(t *testing.T) {
	s := openTestStore(t)
	_ = s.Upsert(doc("f1", "repo-a", "proj"))
	_ = s.Upsert(doc("f2", "repo-b", "proj"))
	_ = s.Commit()

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	count, _ := s.Snapshot().DocCount()
	if count != 0 {
		t.Errorf("expected 0 docs after ClearAll, got %d", count)
	}
}

func TestResetClearsSegmentsAndDocs(t *testing.T) {
	s := openTestStore(t)
	_ = s.Upsert(doc("f1", "repo-a", "proj"))
	_ = s.Commit()

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	count, _ := s.Snapshot().DocCount()
	if count != 0 {
		t.Errorf("expected 0 docs after Reset, got %d", count)
	}
	if s.SegmentCount() != 0 {
		t.Errorf("expected 0 segments after Reset, got %d", s.SegmentCount())
	}
}

func TestCollapseSegmentsReducesCountButKeepsDocs(t *testing.T) {
	s := openTestStore(t)
	_ = s.Upsert(doc("f1", "repo-a", "proj"))
	_ = s.Commit()
	_ = s.Upsert(doc("f2", "repo-a", "proj"))
	_ = s.Commit()

	if s.SegmentCount() != 2 {
		t.Fatalf("precondition: expected 2 segments, got %d", s.SegmentCount())
	}

	s.CollapseSegments()

	if s.SegmentCount() != 1 {
		t.Errorf("CollapseSegments() left %d segments, want 1", s.SegmentCount())
	}

	count, _ := s.Snapshot().DocCount()
	if count != 2 {
		t.Errorf("expected document count unaffected by collapse, got %d", count)
	}
}

func TestDirBytesNonNegative(t *testing.T) {
	s := openTestStore(t)
	_ = s.Upsert(doc("f1", "repo-a", "proj"))
	_ = s.Commit()

	n, err := s.DirBytes()
	if err != nil {
		t.Fatalf("DirBytes() error = %v", err)
	}
	if n <= 0 {
		t.Errorf("DirBytes() = %d, want > 0 after a commit", n)
	}
}

func TestSegmentsSnapshotReflectsDocCounts(t *testing.T) {
	s := openTestStore(t)
	_ = s.Upsert(doc("f1", "repo-a", "proj"))
	_ = s.Commit()
	_ = s.Upsert(doc("f2", "repo-a", "proj"))
	_ = s.Upsert(doc("f3", "repo-a", "proj"))
	_ = s.Commit()

	segs, err := s.SegmentsSnapshot()
	if err != nil {
		t.Fatalf("SegmentsSnapshot() error = %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].DocCount != 1 || segs[1].DocCount != 2 {
		t.Errorf("unexpected doc counts: %+v", segs)
	}
}
