// Package links loads the list of book pages to visit.
package links

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single line of the link file.
const maxLineSize = 1 << 20

// Read loads a newline-delimited link file. Lines are returned in file
// order exactly as written: nothing is trimmed, deduplicated, or dropped.
func Read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open link file: %w", err)
	}
	defer f.Close()

	out, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read link file %s: %w", path, err)
	}
	return out, nil
}

// Parse splits r into lines. A final newline does not add an empty entry
// and "\r\n" endings are treated like "\n".
func Parse(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	out := make([]string, 0)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
