package dom

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// StaticPage is a Page over an already-fetched HTML document. The DOM never
// changes, so WaitElement answers immediately.
type StaticPage struct {
	url  string
	base *url.URL
	raw  string
	root *html.Node
}

// NewStaticPage parses body as the document loaded from pageURL.
func NewStaticPage(pageURL, body string) (*StaticPage, error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	return &StaticPage{url: pageURL, base: base, raw: body, root: root}, nil
}

// URL implements Page.
func (p *StaticPage) URL() string { return p.url }

// HTML implements Page.
func (p *StaticPage) HTML() (string, error) { return p.raw, nil }

// WaitElement implements Page.
func (p *StaticPage) WaitElement(ctx context.Context, sel Selector, _ time.Duration) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return findFirst(p.root, sel, p.base)
}

// staticElement wraps a parsed node.
type staticElement struct {
	node *html.Node
	base *url.URL
}

func (e *staticElement) Text() (string, error) {
	return NormalizeText(htmlquery.InnerText(e.node)), nil
}

func (e *staticElement) Attr(name string) (string, error) {
	for _, a := range e.node.Attr {
		if !strings.EqualFold(a.Key, name) {
			continue
		}
		val := strings.TrimSpace(a.Val)
		if isURLAttr(name) {
			return resolve(e.base, val), nil
		}
		return a.Val, nil
	}
	return "", fmt.Errorf("%w: %s", types.ErrNoAttribute, name)
}

func (e *staticElement) Find(sel Selector) (Element, error) {
	return findFirst(e.node, sel, e.base)
}

// findFirst returns the first descendant of node matching sel.
func findFirst(node *html.Node, sel Selector, base *url.URL) (Element, error) {
	if sel.IsZero() {
		return nil, NotFound(sel)
	}

	var match *html.Node
	switch sel.Kind {
	case XPath:
		n, err := htmlquery.Query(node, sel.Expr)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", sel.Expr, err)
		}
		match = n
	default:
		s := goquery.NewDocumentFromNode(node).Find(sel.Expr).First()
		if s.Length() > 0 {
			match = s.Get(0)
		}
	}

	if match == nil {
		return nil, NotFound(sel)
	}
	return &staticElement{node: match, base: base}, nil
}

func isURLAttr(name string) bool {
	switch strings.ToLower(name) {
	case "href", "src":
		return true
	}
	return false
}

// resolve makes ref absolute against base, returning ref unchanged when
// either side cannot be parsed.
func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
