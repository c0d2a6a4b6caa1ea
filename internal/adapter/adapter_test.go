package adapter

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/dom"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const asuraHTML = `<html><body>
<div class="book-desc"><h3 class="title">  Solo Leveling
  Ragnarok </h3></div>
<div class="chapter-box"><a href="https://asura.example/series/solo/chapters/42">Chapter 42</a></div>
</body></html>`

const genzHTML = `<html><body>
<h1 class="entry-title" itemprop="name">Time-Limited Genius Dark Knight</h1>
<div class="lastend">
  <span class="inepcx"><a href="/series/dark-knight/chapter-1/">First</a></span>
  <span class="inepcx"><a href="/series/dark-knight/chapter-87/">Latest</a></span>
</div>
</body></html>`

func asuraConfig() config.SiteConfig {
	return config.SiteConfig{
		Name: "asura",
		Selectors: map[string]string{
			KeyBookDesc:    "div.book-desc",
			KeyBookTitle:   "h3.title",
			KeyChapterLink: "div.chapter-box",
		},
	}
}

func page(t *testing.T, url, body string) dom.Page {
	t.Helper()
	p, err := dom.NewStaticPage(url, body)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	return p
}

func TestDescriptionAdapterExtract(t *testing.T) {
	a, err := New(asuraConfig(), testLogger)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if a.Site() != SiteAsura {
		t.Errorf("expected asura, got %s", a.Site())
	}

	link := "https://asura.example/series/solo"
	rec, err := a.Extract(context.Background(), page(t, link, asuraHTML))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.Title != "Solo Leveling Ragnarok" {
		t.Errorf("unexpected title %q", rec.Title)
	}
	if rec.Link != link {
		t.Errorf("unexpected link %q", rec.Link)
	}
	if rec.LatestChapter != "https://asura.example/series/solo/chapters/42" {
		t.Errorf("unexpected chapter link %q", rec.LatestChapter)
	}
	if rec.ChapterNumber != "42" {
		t.Errorf("expected chapter number 42, got %q", rec.ChapterNumber)
	}
	if rec.Site != "asura" {
		t.Errorf("expected site asura, got %q", rec.Site)
	}
}

func TestEntryTitleAdapterDefaults(t *testing.T) {
	a, err := New(config.SiteConfig{Name: "genz"}, testLogger)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	rec, err := a.Extract(context.Background(), page(t, "https://genz.example/series/dark-knight/", genzHTML))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.Title != "Time-Limited Genius Dark Knight" {
		t.Errorf("unexpected title %q", rec.Title)
	}
	if rec.LatestChapter != "https://genz.example/series/dark-knight/chapter-87" {
		t.Errorf("unexpected chapter link %q", rec.LatestChapter)
	}
	if rec.ChapterNumber != "87" {
		t.Errorf("expected chapter number 87, got %q", rec.ChapterNumber)
	}
}

func TestEntryTitleAdapterXPathOverride(t *testing.T) {
	cfg := config.SiteConfig{
		Name: "genz",
		Selectors: map[string]string{
			KeyBookTitle: "xpath://h1[@itemprop='name']",
		},
	}
	a, err := New(cfg, testLogger)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	rec, err := a.Extract(context.Background(), page(t, "https://genz.example/series/dark-knight/", genzHTML))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.Title != "Time-Limited Genius Dark Knight" {
		t.Errorf("unexpected title %q", rec.Title)
	}
}

func TestExtractMissingElement(t *testing.T) {
	a, err := New(asuraConfig(), testLogger)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	body := `<html><body><div class="book-desc"><h3 class="title">Orphan</h3></div></body></html>`
	_, err = a.Extract(context.Background(), page(t, "https://asura.example/series/orphan", body))
	if !errors.Is(err, types.ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
	var extErr *types.ExtractError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractError, got %T", err)
	}
	if extErr.Field != "chapter_link" || extErr.Site != "asura" {
		t.Errorf("unexpected error fields: %+v", extErr)
	}
	if extErr.URL != "https://asura.example/series/orphan" {
		t.Errorf("unexpected URL %q", extErr.URL)
	}
}

func TestExtractMissingHref(t *testing.T) {
	a, err := New(config.SiteConfig{Name: "genz"}, testLogger)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	body := `<html><body><h1 class="entry-title" itemprop="name">X</h1>
<div class="lastend"><span class="inepcx"><a>no link</a></span></div></body></html>`
	_, err = a.Extract(context.Background(), page(t, "https://genz.example/x", body))
	if !errors.Is(err, types.ErrNoAttribute) {
		t.Errorf("expected ErrNoAttribute, got %v", err)
	}
}

func TestUnknownSite(t *testing.T) {
	for _, name := range []string{"", "ASURA", "Genz", " asura", "foo"} {
		_, err := New(config.SiteConfig{Name: name}, testLogger)
		if !errors.Is(err, types.ErrUnknownSite) {
			t.Errorf("site %q: expected ErrUnknownSite, got %v", name, err)
		}
	}
}

func TestMissingRequiredSelector(t *testing.T) {
	cfg := asuraConfig()
	delete(cfg.Selectors, KeyChapterLink)
	if _, err := New(cfg, testLogger); !errors.Is(err, types.ErrMissingSelector) {
		t.Errorf("expected ErrMissingSelector, got %v", err)
	}

	cfg = config.SiteConfig{Name: "asura"}
	if _, err := New(cfg, testLogger); !errors.Is(err, types.ErrMissingSelector) {
		t.Errorf("expected ErrMissingSelector for bare asura config, got %v", err)
	}
}

func TestResolveOverrides(t *testing.T) {
	cfg := config.SiteConfig{
		Name:             "genz",
		ChapterDelimiter: "_",
		WaitTimeout:      3 * time.Second,
		OnError:          "abort",
		Selectors: map[string]string{
			KeyLatestChapter: "css:.chapters a",
			KeyBookTitle:     "",
		},
	}
	s, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.ChapterDelimiter != "_" || s.WaitTimeout != 3*time.Second || s.OnError != PolicyAbort {
		t.Errorf("overrides not applied: %+v", s)
	}
	if got := s.Selectors[KeyLatestChapter]; got != dom.CSSSelector(".chapters a") {
		t.Errorf("unexpected latest selector %v", got)
	}
	if got := s.Selectors[KeyBookTitle]; got.Expr != `h1.entry-title[itemprop="name"]` {
		t.Errorf("empty override should keep default, got %v", got)
	}

	cfg.OnError = "retry"
	if _, err := Resolve(cfg); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestPolicyDefaults(t *testing.T) {
	asura, err := Resolve(asuraConfig())
	if err != nil {
		t.Fatalf("resolve asura: %v", err)
	}
	if asura.OnError != PolicyAbort {
		t.Errorf("asura should abort by default, got %s", asura.OnError)
	}
	genz, err := Resolve(config.SiteConfig{Name: "genz"})
	if err != nil {
		t.Fatalf("resolve genz: %v", err)
	}
	if genz.OnError != PolicySkip {
		t.Errorf("genz should skip by default, got %s", genz.OnError)
	}
}

func TestKnownSites(t *testing.T) {
	sites := KnownSites()
	if len(sites) != 2 || sites[0] != SiteAsura || sites[1] != SiteGenZ {
		t.Errorf("unexpected known sites %v", sites)
	}
	for _, s := range sites {
		if _, ok := ProfileFor(s); !ok {
			t.Errorf("missing profile for %s", s)
		}
	}
}

// waitRecorder wraps a page and records the timeout of every WaitElement call.
type waitRecorder struct {
	dom.Page
	waits []time.Duration
}

func (w *waitRecorder) WaitElement(ctx context.Context, sel dom.Selector, timeout time.Duration) (dom.Element, error) {
	w.waits = append(w.waits, timeout)
	return w.Page.WaitElement(ctx, sel, timeout)
}

func TestExtractWaitTimeouts(t *testing.T) {
	genzOverride := config.SiteConfig{Name: "genz", WaitTimeout: 2 * time.Second}

	tests := []struct {
		name string
		cfg  config.SiteConfig
		url  string
		body string
		want time.Duration
	}{
		{"asura default", asuraConfig(), "https://asura.example/series/solo", asuraHTML, 5 * time.Second},
		{"genz default", config.SiteConfig{Name: "genz"}, "https://genz.example/series/dark-knight/", genzHTML, 10 * time.Second},
		{"genz override", genzOverride, "https://genz.example/series/dark-knight/", genzHTML, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg, testLogger)
			if err != nil {
				t.Fatalf("new adapter: %v", err)
			}
			rec := &waitRecorder{Page: page(t, tt.url, tt.body)}
			if _, err := a.Extract(context.Background(), rec); err != nil {
				t.Fatalf("extract: %v", err)
			}
			if len(rec.waits) != 2 {
				t.Fatalf("expected 2 waits, got %v", rec.waits)
			}
			for _, w := range rec.waits {
				if w != tt.want {
					t.Errorf("waited %s, want %s", w, tt.want)
				}
			}
		})
	}
}
