// Package browser bootstraps the session that loads book pages.
package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/dom"
)

// DefaultUserAgent is sent when browser.user_agent is empty.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Session loads pages one at a time. A Session owns a single page and is
// not safe for concurrent use.
type Session interface {
	// Open navigates to url and returns the loaded page. The returned page
	// is valid until the next call to Open or Close.
	Open(ctx context.Context, url string) (dom.Page, error)

	// Close releases the browser or connection resources.
	Close() error

	// Type returns the session mode identifier.
	Type() string
}

// New creates the session selected by cfg.Mode.
func New(cfg *config.BrowserConfig, logger *slog.Logger) (Session, error) {
	switch cfg.Mode {
	case "rod":
		return NewRodSession(cfg, logger)
	case "static":
		return NewHTTPSession(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported browser mode: %s", cfg.Mode)
	}
}
