package adapter

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/ChapterWatch/internal/dom"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// descriptionAdapter reads the title from inside a description block and
// the latest chapter from an anchor inside a chapter container.
type descriptionAdapter struct {
	settings *Settings
	logger   *slog.Logger
}

func newDescriptionAdapter(s *Settings, logger *slog.Logger) *descriptionAdapter {
	return &descriptionAdapter{
		settings: s,
		logger:   logger.With("component", "adapter", "site", string(s.Site)),
	}
}

func (a *descriptionAdapter) Site() Site { return a.settings.Site }

func (a *descriptionAdapter) Extract(ctx context.Context, page dom.Page) (*types.BookRecord, error) {
	sel := a.settings.Selectors
	wait := a.settings.WaitTimeout

	desc, err := page.WaitElement(ctx, sel[KeyBookDesc], wait)
	if err != nil {
		return nil, a.fail(page, "description", sel[KeyBookDesc], err)
	}
	titleEl, err := desc.Find(sel[KeyBookTitle])
	if err != nil {
		return nil, a.fail(page, "title", sel[KeyBookTitle], err)
	}
	title, err := titleEl.Text()
	if err != nil {
		return nil, a.fail(page, "title", sel[KeyBookTitle], err)
	}

	box, err := page.WaitElement(ctx, sel[KeyChapterLink], wait)
	if err != nil {
		return nil, a.fail(page, "chapter_link", sel[KeyChapterLink], err)
	}
	anchor, err := box.Find(sel[KeyChapterAnchor])
	if err != nil {
		return nil, a.fail(page, "chapter_link", sel[KeyChapterAnchor], err)
	}
	href, err := anchor.Attr("href")
	if err != nil {
		return nil, a.fail(page, "chapter_link", sel[KeyChapterAnchor], err)
	}

	rec := types.NewBookRecord(title, page.URL(), href, a.settings.ChapterDelimiter)
	rec.Site = string(a.settings.Site)
	return rec, nil
}

func (a *descriptionAdapter) fail(page dom.Page, field string, sel dom.Selector, err error) error {
	return &types.ExtractError{
		URL:      page.URL(),
		Site:     string(a.settings.Site),
		Field:    field,
		Selector: sel.String(),
		Err:      err,
	}
}
