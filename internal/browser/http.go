package browser

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/dom"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// maxBodySize bounds a single downloaded page.
const maxBodySize = 10 * 1024 * 1024

// HTTPSession loads pages with plain HTTP and parses them without running
// scripts. It suits sites whose book pages are server-rendered.
type HTTPSession struct {
	client *http.Client
	cfg    *config.BrowserConfig
	logger *slog.Logger
	closed bool
}

// NewHTTPSession creates a static-mode session.
func NewHTTPSession(cfg *config.BrowserConfig, logger *slog.Logger) *HTTPSession {
	jar, _ := cookiejar.New(nil)

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decoded below, including brotli
	}

	client := &http.Client{
		Transport: cloudflarebp.AddCloudFlareByPass(transport),
		Jar:       jar,
		Timeout:   cfg.NavigateTimeout,
	}

	return &HTTPSession{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "http_session"),
	}
}

// Open implements Session.
func (s *HTTPSession) Open(ctx context.Context, url string) (dom.Page, error) {
	if s.closed {
		return nil, types.ErrNoSession
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.NavigateError{URL: url, Err: err}
	}

	ua := s.cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &types.NavigateError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &types.NavigateError{URL: url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	reader, err := decompressReader(resp.Header.Get("Content-Encoding"), io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &types.NavigateError{URL: url, Err: err}
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.NavigateError{URL: url, Err: err}
	}

	finalURL := resp.Request.URL.String()
	page, err := dom.NewStaticPage(finalURL, string(body))
	if err != nil {
		return nil, &types.NavigateError{URL: url, Err: err}
	}

	s.logger.Debug("page fetched",
		"url", url,
		"final_url", finalURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", time.Since(start),
	)
	return page, nil
}

// Close implements Session.
func (s *HTTPSession) Close() error {
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}

// Type implements Session.
func (s *HTTPSession) Type() string { return "static" }

// decompressReader wraps a reader with the decoder for encoding.
func decompressReader(encoding string, reader io.Reader) (io.Reader, error) {
	switch encoding {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
