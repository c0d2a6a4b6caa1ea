package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrElementNotFound = errors.New("element not found")
	ErrNoAttribute     = errors.New("attribute not present")
	ErrUnknownSite     = errors.New("unknown site")
	ErrMissingSelector = errors.New("missing selector")
	ErrDuplicateBook   = errors.New("book already stored")
	ErrInvalidURL      = errors.New("invalid URL")
	ErrNoSession       = errors.New("browser session is closed")
)

// NavigateError wraps errors that occur while loading a link.
type NavigateError struct {
	URL string
	Err error
}

func (e *NavigateError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigateError) Unwrap() error { return e.Err }

// ExtractError wraps errors that occur while reading fields off a page.
type ExtractError struct {
	URL      string
	Site     string
	Field    string
	Selector string
	Err      error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s from %s (site=%s, selector=%q): %v", e.Field, e.URL, e.Site, e.Selector, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur in a result sink.
type StorageError struct {
	Backend string
	Key     string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error (%s, key=%q): %v", e.Backend, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
