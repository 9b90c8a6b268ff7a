// Package roster reads the two-column handle/external-id rosters that a run
// audits.
package roster

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
)

// HeaderField is the first cell of an optional header row.
const HeaderField = "handle"

// Entry is one roster row.
type Entry struct {
	Handle     string
	ExternalID string
}

// FormatError reports a data line with fewer than two columns.
type FormatError struct {
	Path string
	Line int
	Text string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("expect two or more columns (line %d)", e.Line)
	}
	return fmt.Sprintf("expect two or more columns in '%s' (line %d)", e.Path, e.Line)
}

// Reader yields entries lazily from an underlying reader. It makes a single
// pass and cannot be restarted.
type Reader struct {
	scanner  *bufio.Scanner
	path     string
	line     int
	seenData bool
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next entry, or io.EOF once the input is exhausted.
func (r *Reader) Next() (Entry, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		columns := strings.Split(text, ",")
		if len(columns) < 2 {
			return Entry{}, &FormatError{Path: r.path, Line: r.line, Text: text}
		}

		first := !r.seenData
		r.seenData = true
		if first && columns[0] == HeaderField {
			continue
		}

		return Entry{
			Handle:     strings.TrimSpace(columns[0]),
			ExternalID: strings.TrimSpace(columns[1]),
		}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Entry{}, fmt.Errorf("read roster: %w", err)
	}
	return Entry{}, io.EOF
}

// ReadAll drains r. A format error anywhere in the input fails the whole read.
func ReadAll(r *Reader) ([]Entry, error) {
	var entries []Entry
	for {
		entry, err := r.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}

// Load fetches the roster at location (a local path or any afs URL) and
// parses it completely.
func Load(ctx context.Context, location string) ([]Entry, error) {
	source := location
	if !strings.Contains(location, "://") {
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, fmt.Errorf("resolve roster path %s: %w", location, err)
		}
		source = "file://" + filepath.ToSlash(abs)
	}

	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load roster %s: %w", location, err)
	}
	r := NewReader(bytes.NewReader(data))
	r.path = location
	return ReadAll(r)
}
