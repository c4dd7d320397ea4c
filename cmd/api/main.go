// Command api serves the code-search HTTP API: GET /search, GET
// /lookup/id/{file_id}, GET /lookup/locator/{locator}, POST /merge, GET
// /metrics (Prometheus), and GET /healthz.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/pflag"

	"github.com/kraklabs/codesearchcore/internal/config"
	"github.com/kraklabs/codesearchcore/internal/errs"
	"github.com/kraklabs/codesearchcore/internal/indexstore"
	"github.com/kraklabs/codesearchcore/internal/merge"
	"github.com/kraklabs/codesearchcore/internal/metrics"
	"github.com/kraklabs/codesearchcore/internal/searchsvc"
	"github.com/kraklabs/codesearchcore/pkg/models"
)

func main() {
	fs := pflag.NewFlagSet("codesearch-api", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid log level %q: %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	logger.Info().Str("index_dir", cfg.IndexDir).Int("writer_memory_mb", cfg.WriterMemoryMB).Msg("starting codesearch api")

	store, err := indexstore.Open(cfg.IndexDir, indexstore.Config{
		WriterMemoryMB: cfg.WriterMemoryMB,
		ThreadCount:    cfg.ThreadCount,
	})
	if err != nil {
		log.Fatalf("failed to open index: %v", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.New(store, registry)
	svc := searchsvc.New(store)
	mergeCtl := merge.New(store)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		req := parseSearchRequest(r)
		resp, err := svc.Search(req)
		writeResult(w, resp, err)
	})

	mux.HandleFunc("/lookup/id/", func(w http.ResponseWriter, r *http.Request) {
		fileID := strings.TrimPrefix(r.URL.Path, "/lookup/id/")
		result, found, err := svc.LookupByID(fileID)
		writeLookup(w, result, found, err)
	})

	mux.HandleFunc("/lookup/locator/", func(w http.ResponseWriter, r *http.Request) {
		locator := strings.TrimPrefix(r.URL.Path, "/lookup/locator/")
		result, found, err := svc.LookupByLocator(locator)
		writeLookup(w, result, found, err)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := collector.Collect()
		writeResult(w, stats, err)
	})

	mux.HandleFunc("/merge", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		report, err := mergeCtl.Run()
		writeResult(w, report, err)
	})

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(mux),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
}

func parseSearchRequest(r *http.Request) models.SearchRequest {
	q := r.URL.Query()

	req := models.SearchRequest{
		Query:            q.Get("q"),
		RegexSearch:      q.Get("regex") == "true",
		FuzzySearch:      q.Get("fuzzy") == "true",
		RegexFlags:       q.Get("regex_flags"),
		RepositoryFilter: q.Get("repository"),
		ProjectFilter:    q.Get("project"),
		VersionFilter:    q.Get("version"),
		ExtensionFilter:  q.Get("extension"),
		IncludeFacets:    q.Get("facets") == "true",
		// limit=0 is a literal, meaningful request (counts-only); only
		// default to a page size when the caller omits limit entirely.
		Limit: searchsvc.DefaultLimit,
	}

	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		req.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		req.Offset = v
	}
	if v, err := strconv.ParseInt(q.Get("min_size"), 10, 64); err == nil {
		req.MinSize = &v
	}
	if v, err := strconv.ParseInt(q.Get("max_size"), 10, 64); err == nil {
		req.MaxSize = &v
	}

	return req
}

func writeResult(w http.ResponseWriter, payload interface{}, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if encErr := json.NewEncoder(w).Encode(payload); encErr != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeLookup(w http.ResponseWriter, result *models.SearchResult, found bool, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if encErr := json.NewEncoder(w).Encode(result); encErr != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.Is(err, errs.KindInvalidQuery), errs.Is(err, errs.KindInvalidRegex), errs.Is(err, errs.KindInvalidLocator):
		status = http.StatusBadRequest
	case errs.Is(err, errs.KindWriterPoisoned):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}
