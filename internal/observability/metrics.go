package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks counters for a scrape run.
type Metrics struct {
	// Navigation
	LinksVisited     atomic.Int64
	NavigateFailures atomic.Int64

	// Extraction
	RecordsExtracted atomic.Int64
	ExtractFailures  atomic.Int64

	// Sink
	RecordsStored  atomic.Int64
	RecordsSkipped atomic.Int64
	StoreConflicts atomic.Int64
	StoreErrors    atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type sample struct {
	name  string
	help  string
	value int64
}

func (m *Metrics) samples() []sample {
	return []sample{
		{"chapterwatch_links_visited_total", "Links the session navigated to", m.LinksVisited.Load()},
		{"chapterwatch_navigate_failures_total", "Links that failed to load", m.NavigateFailures.Load()},
		{"chapterwatch_records_extracted_total", "Book records extracted", m.RecordsExtracted.Load()},
		{"chapterwatch_extract_failures_total", "Pages the adapter could not read", m.ExtractFailures.Load()},
		{"chapterwatch_records_stored_total", "Records written to the sink", m.RecordsStored.Load()},
		{"chapterwatch_records_skipped_total", "Links skipped after a failure", m.RecordsSkipped.Load()},
		{"chapterwatch_store_conflicts_total", "Writes that hit an existing title", m.StoreConflicts.Load()},
		{"chapterwatch_store_errors_total", "Sink writes that failed", m.StoreErrors.Load()},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, s := range m.samples() {
		fmt.Fprintf(w, "# HELP %s %s\n", s.name, s.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", s.name)
		fmt.Fprintf(w, "%s %d\n", s.name, s.value)
	}
}

// Handler returns the mux served by StartServer.
func (m *Metrics) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

// StartServer serves the metrics endpoint in the background until ctx is
// cancelled.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           m.Handler(path),
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	return srv
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"links_visited":     m.LinksVisited.Load(),
		"navigate_failures": m.NavigateFailures.Load(),
		"records_extracted": m.RecordsExtracted.Load(),
		"extract_failures":  m.ExtractFailures.Load(),
		"records_stored":    m.RecordsStored.Load(),
		"records_skipped":   m.RecordsSkipped.Load(),
		"store_conflicts":   m.StoreConflicts.Load(),
		"store_errors":      m.StoreErrors.Load(),
	}
}
