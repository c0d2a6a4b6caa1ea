// Package scrape runs the sequential visit loop: every link is opened in the
// session, read by the site adapter and optionally saved to a sink.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/ChapterWatch/internal/adapter"
	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/dom"
	"github.com/IshaanNene/ChapterWatch/internal/observability"
	"github.com/IshaanNene/ChapterWatch/internal/storage"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// Opener loads a link into a page.
type Opener interface {
	Open(ctx context.Context, url string) (dom.Page, error)
}

// Runner visits links one at a time.
type Runner struct {
	opener    Opener
	extractor adapter.Adapter
	sink      storage.Sink
	policy    adapter.FailurePolicy
	metrics   *observability.Metrics
	progress  func(done, total int)
	logger    *slog.Logger
}

// NewRunner creates a runner. sink may be nil to only log the records.
func NewRunner(opener Opener, extractor adapter.Adapter, sink storage.Sink, policy adapter.FailurePolicy, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	if policy == "" {
		policy = adapter.PolicyAbort
	}
	return &Runner{
		opener:    opener,
		extractor: extractor,
		sink:      sink,
		policy:    policy,
		metrics:   metrics,
		logger:    logger.With("component", "scrape", "site", string(extractor.Site())),
	}
}

// OnProgress registers fn to be called after every link.
func (r *Runner) OnProgress(fn func(done, total int)) {
	r.progress = fn
}

// Run visits links in order. Under the abort policy the first failure ends
// the run and is returned; under skip it is recorded in the report and the
// next link is visited. A cancelled ctx stops the run between links.
func (r *Runner) Run(ctx context.Context, links []string) (*Report, error) {
	start := time.Now()
	report := &Report{Total: len(links)}
	defer func() { report.Elapsed = time.Since(start) }()

	r.logger.Info("scrape started", "links", len(links), "on_error", r.policy, "sink", r.sinkName())

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("scrape cancelled", "done", i, "total", len(links))
			return report, err
		}

		stage, err := r.visit(ctx, link, report)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			if r.policy == adapter.PolicyAbort {
				r.logger.Error("scrape aborted", "index", i, "link", link, "stage", stage, "error", err)
				return report, fmt.Errorf("link %d (%s): %w", i+1, link, err)
			}
			report.Skipped++
			report.Failures = append(report.Failures, Failure{Index: i, Link: link, Stage: stage, Err: err})
			r.metrics.RecordsSkipped.Add(1)
			r.logger.Warn("link skipped", "index", i, "link", link, "stage", stage, "error", err)
		}

		if r.progress != nil {
			r.progress(i+1, len(links))
		}
	}

	r.logger.Info("scrape finished",
		"visited", report.Visited,
		"extracted", report.Extracted,
		"stored", report.Stored,
		"skipped", report.Skipped,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return report, nil
}

func (r *Runner) visit(ctx context.Context, link string, report *Report) (Stage, error) {
	if err := config.ValidateURL(link); err != nil {
		return StageValidate, &types.NavigateError{URL: link, Err: fmt.Errorf("%w: %v", types.ErrInvalidURL, err)}
	}

	page, err := r.opener.Open(ctx, link)
	if err != nil {
		r.metrics.NavigateFailures.Add(1)
		return StageNavigate, err
	}
	report.Visited++
	r.metrics.LinksVisited.Add(1)

	rec, err := r.extractor.Extract(ctx, page)
	if err != nil {
		r.metrics.ExtractFailures.Add(1)
		return StageExtract, err
	}
	// Keep the link as listed; the page may have been redirected.
	rec.Link = link
	report.Extracted++
	report.Records = append(report.Records, rec)
	r.metrics.RecordsExtracted.Add(1)

	r.logger.Info("book extracted",
		"title", rec.Title,
		"chapter_link", rec.LatestChapter,
		"chapter_number", rec.ChapterNumber,
	)

	if r.sink == nil {
		return "", nil
	}

	outcome, err := r.sink.Save(ctx, rec)
	if err != nil {
		if errors.Is(err, types.ErrDuplicateBook) {
			r.metrics.StoreConflicts.Add(1)
		} else {
			r.metrics.StoreErrors.Add(1)
		}
		return StageStore, err
	}

	switch outcome {
	case storage.OutcomeSkipped:
		report.Kept++
		r.metrics.StoreConflicts.Add(1)
	default:
		report.Stored++
		r.metrics.RecordsStored.Add(1)
	}
	r.logger.Debug("book saved", "title", rec.Title, "outcome", outcome)
	return "", nil
}

func (r *Runner) sinkName() string {
	if r.sink == nil {
		return "none"
	}
	return r.sink.Name()
}
