// Package dom defines the page model site adapters read from. A Page is a
// loaded document that can be waited on; an Element is a node inside it.
// Implementations exist for a live rod browser page (package browser) and
// for a static HTML document (StaticPage).
package dom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// Page is a loaded document.
type Page interface {
	// URL returns the address of the loaded document.
	URL() string

	// WaitElement blocks until an element matching sel is present or the
	// timeout expires. A miss returns an error wrapping
	// types.ErrElementNotFound.
	WaitElement(ctx context.Context, sel Selector, timeout time.Duration) (Element, error)

	// HTML returns the current document markup.
	HTML() (string, error)
}

// Element is a single node of a Page.
type Element interface {
	// Text returns the visible text with whitespace collapsed.
	Text() (string, error)

	// Attr returns the value of an attribute. href and src are resolved
	// against the page URL. A missing attribute returns an error wrapping
	// types.ErrNoAttribute.
	Attr(name string) (string, error)

	// Find returns the first descendant matching sel without waiting.
	Find(sel Selector) (Element, error)
}

// Kind is the selector language.
type Kind int

const (
	CSS Kind = iota
	XPath
)

func (k Kind) String() string {
	switch k {
	case CSS:
		return "css"
	case XPath:
		return "xpath"
	default:
		return "unknown"
	}
}

const (
	xpathPrefix = "xpath:"
	cssPrefix   = "css:"
)

// Selector locates elements in a Page.
type Selector struct {
	Kind Kind
	Expr string
}

// ParseSelector reads a configured selector string. "xpath:" selects XPath,
// an optional "css:" prefix is stripped, anything else is CSS.
func ParseSelector(s string) Selector {
	switch {
	case strings.HasPrefix(s, xpathPrefix):
		return Selector{Kind: XPath, Expr: strings.TrimSpace(strings.TrimPrefix(s, xpathPrefix))}
	case strings.HasPrefix(s, cssPrefix):
		return Selector{Kind: CSS, Expr: strings.TrimSpace(strings.TrimPrefix(s, cssPrefix))}
	default:
		return Selector{Kind: CSS, Expr: s}
	}
}

// CSSSelector returns a CSS selector.
func CSSSelector(expr string) Selector { return Selector{Kind: CSS, Expr: expr} }

// XPathSelector returns an XPath selector.
func XPathSelector(expr string) Selector { return Selector{Kind: XPath, Expr: expr} }

// String renders the selector in the form ParseSelector accepts.
func (s Selector) String() string {
	if s.Kind == XPath {
		return xpathPrefix + s.Expr
	}
	return s.Expr
}

// IsZero reports whether the selector has no expression.
func (s Selector) IsZero() bool { return s.Expr == "" }

// NotFound returns the error for a selector that matched nothing.
func NotFound(sel Selector) error {
	return fmt.Errorf("%w: %s", types.ErrElementNotFound, sel)
}

// NormalizeText collapses runs of whitespace into single spaces and trims
// the ends, approximating a browser's rendered text.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
