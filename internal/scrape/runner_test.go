package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/IshaanNene/ChapterWatch/internal/adapter"
	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/dom"
	"github.com/IshaanNene/ChapterWatch/internal/observability"
	"github.com/IshaanNene/ChapterWatch/internal/storage"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeOpener serves canned pages keyed by URL.
type fakeOpener struct {
	pages  map[string]string
	opened []string
}

func (f *fakeOpener) Open(ctx context.Context, url string) (dom.Page, error) {
	f.opened = append(f.opened, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, &types.NavigateError{URL: url, Err: errors.New("404 Not Found")}
	}
	return dom.NewStaticPage(url, body)
}

func genzPage(title string, chapter int) string {
	return fmt.Sprintf(`<html><body>
<h1 class="entry-title" itemprop="name">%s</h1>
<div class="lastend"><span class="inepcx"><a href="/c/chapter-1/">1</a></span><span class="inepcx"><a href="/c/chapter-%d/">%d</a></span></div>
</body></html>`, title, chapter, chapter)
}

func asuraPage(title string, chapter int) string {
	return fmt.Sprintf(`<html><body>
<div class="desc"><span class="t">%s</span></div>
<div class="chapters"><a href="https://asura.example/%s/chapters/%d">latest</a></div>
</body></html>`, title, title, chapter)
}

const brokenPage = `<html><body><p>maintenance</p></body></html>`

func newAdapter(t *testing.T, site string) adapter.Adapter {
	t.Helper()
	cfg := config.SiteConfig{Name: site}
	if site == "asura" {
		cfg.Selectors = map[string]string{
			adapter.KeyBookDesc:    "div.desc",
			adapter.KeyBookTitle:   "span.t",
			adapter.KeyChapterLink: "div.chapters",
		}
	}
	a, err := adapter.New(cfg, testLogger)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return a
}

func newRunner(t *testing.T, site string, opener Opener, sink storage.Sink, m *observability.Metrics) *Runner {
	t.Helper()
	prof, ok := adapter.ProfileFor(adapter.Site(site))
	if !ok {
		t.Fatalf("no profile for %s", site)
	}
	return NewRunner(opener, newAdapter(t, site), sink, prof.OnError, m, testLogger)
}

func TestRunAllLinks(t *testing.T) {
	opener := &fakeOpener{pages: map[string]string{
		"https://genz.example/a/": genzPage("Alpha", 10),
		"https://genz.example/b/": genzPage("Beta", 20),
	}}
	links := []string{"https://genz.example/a/", "https://genz.example/b/"}

	var progress []int
	r := NewRunner(opener, newAdapter(t, "genz"), nil, adapter.PolicySkip, nil, testLogger)
	r.OnProgress(func(done, total int) { progress = append(progress, done) })

	report, err := r.Run(context.Background(), links)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Total != 2 || report.Visited != 2 || report.Extracted != 2 || report.Skipped != 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if len(progress) != 2 || progress[1] != 2 {
		t.Errorf("unexpected progress calls %v", progress)
	}
	if report.Records[1].Title != "Beta" || report.Records[1].ChapterNumber != "20" {
		t.Errorf("unexpected second record %+v", report.Records[1])
	}
	if report.Records[0].Link != "https://genz.example/a/" {
		t.Errorf("record should keep the listed link, got %q", report.Records[0].Link)
	}
}

func TestAsuraAbortsOnMissingSelector(t *testing.T) {
	opener := &fakeOpener{pages: map[string]string{
		"https://asura.example/one":   asuraPage("one", 5),
		"https://asura.example/two":   brokenPage,
		"https://asura.example/three": asuraPage("three", 7),
	}}
	links := []string{"https://asura.example/one", "https://asura.example/two", "https://asura.example/three"}

	r := newRunner(t, "asura", opener, nil, nil)
	report, err := r.Run(context.Background(), links)
	if !errors.Is(err, types.ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
	var extErr *types.ExtractError
	if !errors.As(err, &extErr) {
		t.Errorf("expected ExtractError in chain, got %v", err)
	}
	if len(opener.opened) != 2 {
		t.Errorf("abort should stop before the third link, opened %v", opener.opened)
	}
	if report.Extracted != 1 {
		t.Errorf("expected one extracted record before abort, got %d", report.Extracted)
	}
}

func TestGenZSkipsMissingSelector(t *testing.T) {
	opener := &fakeOpener{pages: map[string]string{
		"https://genz.example/one/":   genzPage("One", 1),
		"https://genz.example/two/":   brokenPage,
		"https://genz.example/three/": genzPage("Three", 3),
	}}
	links := []string{"https://genz.example/one/", "https://genz.example/two/", "https://genz.example/missing/", "https://genz.example/three/"}

	m := observability.NewMetrics(testLogger)
	r := newRunner(t, "genz", opener, nil, m)
	report, err := r.Run(context.Background(), links)
	if err != nil {
		t.Fatalf("skip policy should not fail the run: %v", err)
	}
	if report.Extracted != 2 || report.Skipped != 2 || len(report.Failures) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if f := report.Failures[0]; f.Index != 1 || f.Stage != StageExtract || !errors.Is(f.Err, types.ErrElementNotFound) {
		t.Errorf("unexpected first failure %+v", f)
	}
	if f := report.Failures[1]; f.Stage != StageNavigate {
		t.Errorf("expected navigate failure, got %+v", f)
	}
	if m.ExtractFailures.Load() != 1 || m.NavigateFailures.Load() != 1 || m.RecordsSkipped.Load() != 2 {
		t.Errorf("unexpected metrics %v", m.Snapshot())
	}
}

func TestInvalidLink(t *testing.T) {
	opener := &fakeOpener{pages: map[string]string{}}
	r := NewRunner(opener, newAdapter(t, "genz"), nil, adapter.PolicySkip, nil, testLogger)

	report, err := r.Run(context.Background(), []string{"", "ftp://genz.example/x", "  https://genz.example/a"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Skipped != 3 {
		t.Fatalf("expected every link skipped, got %+v", report)
	}
	for _, f := range report.Failures {
		if f.Stage != StageValidate || !errors.Is(f.Err, types.ErrInvalidURL) {
			t.Errorf("unexpected failure %+v", f)
		}
	}
	if len(opener.opened) != 0 {
		t.Errorf("invalid links should not be opened: %v", opener.opened)
	}
}

func TestRunWithSink(t *testing.T) {
	ctx := context.Background()
	sink, err := storage.NewJSONStore(filepath.Join(t.TempDir(), "books.json"), storage.ConflictError, testLogger)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	defer sink.Close()

	opener := &fakeOpener{pages: map[string]string{
		"https://genz.example/a/": genzPage("Alpha", 10),
	}}
	links := []string{"https://genz.example/a/", "https://genz.example/a/"}

	m := observability.NewMetrics(testLogger)
	r := NewRunner(opener, newAdapter(t, "genz"), sink, adapter.PolicySkip, m, testLogger)
	report, err := r.Run(ctx, links)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Stored != 1 || report.Skipped != 1 {
		t.Fatalf("expected one stored and one duplicate, got %+v", report)
	}
	if !errors.Is(report.Failures[0].Err, types.ErrDuplicateBook) || report.Failures[0].Stage != StageStore {
		t.Errorf("unexpected failure %+v", report.Failures[0])
	}
	if m.StoreConflicts.Load() != 1 || m.RecordsStored.Load() != 1 {
		t.Errorf("unexpected metrics %v", m.Snapshot())
	}

	recs, _ := sink.Find(ctx, storage.Filter{Title: "Alpha"})
	if len(recs) != 1 || recs[0].Link != "https://genz.example/a/" {
		t.Errorf("unexpected stored records %+v", recs)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opener := &fakeOpener{pages: map[string]string{}}
	r := NewRunner(opener, newAdapter(t, "genz"), nil, adapter.PolicySkip, nil, testLogger)
	_, err := r.Run(ctx, []string{"https://genz.example/a/"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(opener.opened) != 0 {
		t.Errorf("cancelled run should not open links")
	}
}

func TestEmptyLinks(t *testing.T) {
	r := NewRunner(&fakeOpener{}, newAdapter(t, "genz"), nil, "", nil, testLogger)
	report, err := r.Run(context.Background(), []string{})
	if err != nil || report.Total != 0 || len(report.Records) != 0 {
		t.Errorf("unexpected result for empty list: %+v, %v", report, err)
	}
}
