package types

import (
	"strings"
)

// BookRecord is the set of fields extracted for one book page.
type BookRecord struct {
	// Title is the book title. Sinks use it as the record key.
	Title string `json:"title"`

	// Link is the book page URL the record was scraped from.
	Link string `json:"book_link"`

	// LatestChapter is the newest chapter URL, without a trailing slash.
	LatestChapter string `json:"latest_chapter"`

	// ChapterNumber is the last delimiter-separated token of LatestChapter.
	// It is not guaranteed to be numeric.
	ChapterNumber string `json:"chapter_number"`

	// Site identifies the adapter that produced the record.
	Site string `json:"site,omitempty"`
}

// NewBookRecord builds a record from raw page values. chapterURL has its
// trailing slashes stripped and the chapter number is taken as the final
// token after splitting on delim.
func NewBookRecord(title, link, chapterURL, delim string) *BookRecord {
	latest := strings.TrimRight(chapterURL, "/")
	return &BookRecord{
		Title:         title,
		Link:          link,
		LatestChapter: latest,
		ChapterNumber: LastToken(latest, delim),
	}
}

// LastToken returns the part of s after the final occurrence of delim.
// An empty delimiter returns s unchanged.
func LastToken(s, delim string) string {
	if delim == "" {
		return s
	}
	if i := strings.LastIndex(s, delim); i >= 0 {
		return s[i+len(delim):]
	}
	return s
}

// Key returns the value a sink stores the record under.
func (b *BookRecord) Key() string {
	return b.Title
}

// Clone returns a copy of the record.
func (b *BookRecord) Clone() *BookRecord {
	c := *b
	return &c
}
