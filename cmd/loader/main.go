// Command loader bulk-ingests a local directory tree into a code-search
// index: it walks the tree with a worker pool, upserts every file it
// can read as a models.Document, and commits once at the end. This is
// local filesystem ingestion only — no git or GitHub traversal.
package main

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/kraklabs/codesearchcore/internal/config"
	"github.com/kraklabs/codesearchcore/internal/indexstore"
	"github.com/kraklabs/codesearchcore/pkg/models"
)

func main() {
	fs := pflag.NewFlagSet("codesearch-loader", pflag.ExitOnError)
	fs.String("repository", "", "Repository label to stamp on every loaded document")
	fs.String("project", "", "Project label to stamp on every loaded document")
	fs.String("version", "", "Version label to stamp on every loaded document")
	fs.String("root", ".", "Local directory to walk")

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid log level %q: %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("component", "loader").Logger()

	root, _ := fs.GetString("root")
	repository, _ := fs.GetString("repository")
	project, _ := fs.GetString("project")
	version, _ := fs.GetString("version")
	if repository == "" {
		repository = filepath.Base(strings.TrimRight(root, string(os.PathSeparator)))
	}

	store, err := indexstore.Open(cfg.IndexDir, indexstore.Config{
		WriterMemoryMB: cfg.WriterMemoryMB,
		ThreadCount:    cfg.ThreadCount,
	})
	if err != nil {
		log.Fatalf("failed to open index: %v", err)
	}
	defer store.Close()

	logger.Info().Str("root", root).Str("repository", repository).Msg("starting bulk load")

	if err := run(store, root, repository, project, version, logger); err != nil {
		log.Fatalf("load failed: %v", err)
	}

	if err := store.Commit(); err != nil {
		log.Fatalf("final commit failed: %v", err)
	}

	logger.Info().Msg("bulk load complete")
}

type workItem struct {
	path    string
	content []byte
}

// run walks root with a worker pool, mirroring the concurrency shape of
// a segmented-writer bulk loader: many goroutines read and build
// documents, one Upsert call per document against the single shared
// writer (Upsert itself serializes on the writer lock).
func run(store *indexstore.Store, root, repository, project, version string, logger zerolog.Logger) error {
	numWorkers := runtime.NumCPU()
	if numWorkers > 8 {
		numWorkers = 8
	}

	workChan := make(chan workItem, numWorkers*2)
	errorChan := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workChan {
				if err := upsertFile(store, root, repository, project, version, item); err != nil {
					select {
					case errorChan <- err:
					default:
						logger.Error().Err(err).Str("path", item.path).Msg("upsert failed")
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(errorChan)
	}()

	walkErr := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de != nil && de.IsDir() {
				return nil
			}
			if shouldSkip(path) {
				return nil
			}
			content, err := os.ReadFile(path)
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("failed to read file")
				return nil
			}
			workChan <- workItem{path: path, content: content}
			return nil
		},
	})

	close(workChan)
	wg.Wait()

	select {
	case err := <-errorChan:
		if err != nil {
			return err
		}
	default:
	}

	return walkErr
}

func upsertFile(store *indexstore.Store, root, repository, project, version string, item workItem) error {
	relPath := rel(root, item.path)
	doc := models.Document{
		FileID:     uuid.NewString(),
		FileName:   filepath.Base(relPath),
		FilePath:   relPath,
		Content:    string(item.content),
		Repository: repository,
		Project:    project,
		Version:    version,
		Extension:  strings.TrimPrefix(filepath.Ext(relPath), "."),
		Size:       int64(len(item.content)),
	}
	return store.Upsert(doc)
}

func rel(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return r
}

// shouldSkip excludes build artifacts, dependency trees, and binary
// formats that make poor full-text search candidates.
func shouldSkip(path string) bool {
	p := strings.ToLower(path)
	for _, dir := range []string{
		"/vendor/", "/.git/", "/node_modules/", "/target/",
		"/build/", "/dist/", "/out/", "/bin/", "/obj/",
		"/.venv/", "/venv/", "/__pycache__/", "/.idea/", "/.cache/",
	} {
		if strings.Contains(p, dir) {
			return true
		}
	}
	switch filepath.Ext(p) {
	case ".png", ".jpg", ".jpeg", ".gif", ".pdf", ".webp", ".zip", ".exe", ".dll":
		return true
	}
	return false
}
