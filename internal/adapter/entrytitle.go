package adapter

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/ChapterWatch/internal/dom"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// entryTitleAdapter reads a page-level title heading and a directly
// selected latest-chapter anchor. Everything comes from the page it is
// given.
type entryTitleAdapter struct {
	settings *Settings
	logger   *slog.Logger
}

func newEntryTitleAdapter(s *Settings, logger *slog.Logger) *entryTitleAdapter {
	return &entryTitleAdapter{
		settings: s,
		logger:   logger.With("component", "adapter", "site", string(s.Site)),
	}
}

func (a *entryTitleAdapter) Site() Site { return a.settings.Site }

func (a *entryTitleAdapter) Extract(ctx context.Context, page dom.Page) (*types.BookRecord, error) {
	sel := a.settings.Selectors
	wait := a.settings.WaitTimeout

	if a.logger.Enabled(ctx, slog.LevelDebug) {
		if src, err := page.HTML(); err == nil {
			a.logger.Debug("page source", "url", page.URL(), "size", len(src))
		}
	}

	titleEl, err := page.WaitElement(ctx, sel[KeyBookTitle], wait)
	if err != nil {
		return nil, a.fail(page, "title", sel[KeyBookTitle], err)
	}
	title, err := titleEl.Text()
	if err != nil {
		return nil, a.fail(page, "title", sel[KeyBookTitle], err)
	}

	anchor, err := page.WaitElement(ctx, sel[KeyLatestChapter], wait)
	if err != nil {
		return nil, a.fail(page, "latest_chapter", sel[KeyLatestChapter], err)
	}
	href, err := anchor.Attr("href")
	if err != nil {
		return nil, a.fail(page, "latest_chapter", sel[KeyLatestChapter], err)
	}

	rec := types.NewBookRecord(title, page.URL(), href, a.settings.ChapterDelimiter)
	rec.Site = string(a.settings.Site)
	return rec, nil
}

func (a *entryTitleAdapter) fail(page dom.Page, field string, sel dom.Selector, err error) error {
	return &types.ExtractError{
		URL:      page.URL(),
		Site:     string(a.settings.Site),
		Field:    field,
		Selector: sel.String(),
		Err:      err,
	}
}
