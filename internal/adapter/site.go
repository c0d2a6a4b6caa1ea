// Package adapter holds the per-site extraction logic. Each supported site
// is a Site value with a Profile of defaults; New turns a site config into
// the Adapter that reads a BookRecord off a loaded page.
package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/IshaanNene/ChapterWatch/internal/dom"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// Site identifies a supported aggregator.
type Site string

const (
	SiteAsura Site = "asura"
	SiteGenZ  Site = "genz"
)

// Selector keys read from site.selectors.
const (
	KeyBookDesc      = "book_desc_css"
	KeyBookTitle     = "book_title_css"
	KeyChapterLink   = "chapter_link_css"
	KeyChapterAnchor = "chapter_anchor_css"
	KeyLatestChapter = "latest_chapter_css"
)

// FailurePolicy decides what the scrape loop does when a link fails.
type FailurePolicy string

const (
	// PolicyAbort stops the run at the first failed link.
	PolicyAbort FailurePolicy = "abort"
	// PolicySkip records the failure and moves on to the next link.
	PolicySkip FailurePolicy = "skip"
)

// Adapter extracts a book record from the page currently loaded.
type Adapter interface {
	Site() Site
	Extract(ctx context.Context, page dom.Page) (*types.BookRecord, error)
}

// Profile is the set of defaults for a site.
type Profile struct {
	Site             Site
	Description      string
	Selectors        map[string]string
	Required         []string
	ChapterDelimiter string
	WaitTimeout      time.Duration
	OnError          FailurePolicy
}

var profiles = map[Site]Profile{
	SiteAsura: {
		Site:        SiteAsura,
		Description: "title inside a description block, latest chapter anchor inside a chapter container",
		Selectors: map[string]string{
			KeyChapterAnchor: "a",
		},
		Required:         []string{KeyBookDesc, KeyBookTitle, KeyChapterLink, KeyChapterAnchor},
		ChapterDelimiter: "/",
		WaitTimeout:      5 * time.Second,
		OnError:          PolicyAbort,
	},
	SiteGenZ: {
		Site:        SiteGenZ,
		Description: "WordPress manga theme: entry-title heading and last item of the chapter list",
		Selectors: map[string]string{
			KeyBookTitle:     `h1.entry-title[itemprop="name"]`,
			KeyLatestChapter: ".lastend .inepcx:last-child a",
		},
		Required:         []string{KeyBookTitle, KeyLatestChapter},
		ChapterDelimiter: "-",
		WaitTimeout:      10 * time.Second,
		OnError:          PolicySkip,
	},
}

// KnownSites returns every supported site in name order.
func KnownSites() []Site {
	out := make([]Site, 0, len(profiles))
	for s := range profiles {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseSite resolves a configured site name.
func ParseSite(name string) (Site, error) {
	s := Site(name)
	if _, ok := profiles[s]; ok {
		return s, nil
	}
	known := make([]string, 0, len(profiles))
	for _, k := range KnownSites() {
		known = append(known, string(k))
	}
	return "", fmt.Errorf("%w: %q (known: %s)", types.ErrUnknownSite, name, strings.Join(known, ", "))
}

// ProfileFor returns the defaults for s.
func ProfileFor(s Site) (Profile, bool) {
	p, ok := profiles[s]
	return p, ok
}

// ParsePolicy resolves a configured failure policy name.
func ParsePolicy(name string) (FailurePolicy, error) {
	switch FailurePolicy(name) {
	case PolicyAbort, PolicySkip:
		return FailurePolicy(name), nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (valid: abort, skip)", name)
	}
}
