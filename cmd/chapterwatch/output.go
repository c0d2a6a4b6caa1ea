package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/IshaanNene/ChapterWatch/internal/scrape"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	return t
}

func renderRecords(recs []*types.BookRecord) {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Title", "Chapter", "Latest chapter link"})
	for i, r := range recs {
		t.AppendRow(table.Row{i + 1, r.Title, r.ChapterNumber, r.LatestChapter})
	}
	t.Render()
}

func renderFailures(failures []scrape.Failure) {
	t := newTable()
	t.AppendHeader(table.Row{"Line", "Link", "Stage", "Error"})
	for _, f := range failures {
		t.AppendRow(table.Row{f.Index + 1, f.Link, f.Stage, f.Err.Error()})
	}
	t.Render()
}

func selectorSummary(sel map[string]string) string {
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+" = "+sel[k])
	}
	return strings.Join(lines, "\n")
}

// progressBar renders scrape progress on stderr.
type progressBar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgressBar(ctx context.Context, name string, total int) *progressBar {
	start := time.Now()
	p := mpb.NewWithContext(ctx,
		mpb.WithWidth(52),
		mpb.WithOutput(os.Stderr),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	bar := p.New(
		int64(total),
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(name+"  "),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d links", decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				return fmt.Sprintf(" | %ds", int(time.Since(start).Seconds()))
			}),
		),
	)
	return &progressBar{p: p, bar: bar}
}

func (b *progressBar) Update(done, total int) {
	b.bar.SetCurrent(int64(done))
}

// Wait drops an unfinished bar and waits for the final render.
func (b *progressBar) Wait() {
	if !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.p.Wait()
}
