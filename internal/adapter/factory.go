package adapter

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/dom"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// Settings is a site config merged over its profile.
type Settings struct {
	Site             Site
	Selectors        map[string]dom.Selector
	ChapterDelimiter string
	WaitTimeout      time.Duration
	OnError          FailurePolicy
}

// Resolve merges cfg over the profile of its site. It fails on an unknown
// site, a bad failure policy, or a required selector left empty.
func Resolve(cfg config.SiteConfig) (*Settings, error) {
	site, err := ParseSite(cfg.Name)
	if err != nil {
		return nil, err
	}
	prof := profiles[site]

	s := &Settings{
		Site:             site,
		Selectors:        make(map[string]dom.Selector, len(prof.Selectors)+len(cfg.Selectors)),
		ChapterDelimiter: prof.ChapterDelimiter,
		WaitTimeout:      prof.WaitTimeout,
		OnError:          prof.OnError,
	}

	for k, v := range prof.Selectors {
		s.Selectors[k] = dom.ParseSelector(v)
	}
	for k, v := range cfg.Selectors {
		if v != "" {
			s.Selectors[k] = dom.ParseSelector(v)
		}
	}
	for _, key := range prof.Required {
		if s.Selectors[key].IsZero() {
			return nil, fmt.Errorf("%w: site %s requires site.selectors.%s", types.ErrMissingSelector, site, key)
		}
	}

	if cfg.ChapterDelimiter != "" {
		s.ChapterDelimiter = cfg.ChapterDelimiter
	}
	if cfg.WaitTimeout > 0 {
		s.WaitTimeout = cfg.WaitTimeout
	}
	if cfg.OnError != "" {
		policy, err := ParsePolicy(cfg.OnError)
		if err != nil {
			return nil, err
		}
		s.OnError = policy
	}

	return s, nil
}

// New builds the adapter for cfg.Name.
func New(cfg config.SiteConfig, logger *slog.Logger) (Adapter, error) {
	s, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return FromSettings(s, logger)
}

// FromSettings builds the adapter for already-resolved settings.
func FromSettings(s *Settings, logger *slog.Logger) (Adapter, error) {
	switch s.Site {
	case SiteAsura:
		return newDescriptionAdapter(s, logger), nil
	case SiteGenZ:
		return newEntryTitleAdapter(s, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownSite, s.Site)
	}
}
