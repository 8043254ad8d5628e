package manifest

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
)

const bom = "\uFEFF"

// maxLineLength bounds a single manifest line.
const maxLineLength = 1 << 20

// Document is a manifest split into comment lines and raw data lines.
// Data lines are not decoded here; verification decodes them positionally.
type Document struct {
	// Header holds every comment line, marker included, in file order.
	Header []string

	// Lines holds the data lines in file order.
	Lines []string

	// LineNumbers holds the 1-based file line number of each data line.
	LineNumbers []int
}

// Len returns the number of data lines.
func (d *Document) Len() int {
	return len(d.Lines)
}

// Directive returns the algorithm announced in the header. When several
// directives resolve, the last one wins.
func (d *Document) Directive(f Format) (hasher.Algorithm, bool) {
	var (
		found hasher.Algorithm
		ok    bool
	)
	for _, line := range d.Header {
		if alg, resolved := f.AlgorithmDirective(line); resolved {
			found, ok = alg, true
		}
	}
	return found, ok
}

// Entries decodes every data line. Lines that do not decode are skipped.
func (d *Document) Entries(f Format) []Entry {
	out := make([]Entry, 0, len(d.Lines))
	for _, line := range d.Lines {
		if e, ok := f.Decode(line); ok {
			out = append(out, e)
		}
	}
	return out
}

// Parse reads a manifest. A UTF-8 byte order mark and CR line endings are
// tolerated and blank lines are ignored.
func Parse(r io.Reader, f Format) (*Document, error) {
	doc := &Document{}
	marker := f.CommentMarker()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineLength)

	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if n == 1 {
			line = strings.TrimPrefix(line, bom)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] == marker {
			doc.Header = append(doc.Header, line)
			continue
		}
		doc.Lines = append(doc.Lines, line)
		doc.LineNumbers = append(doc.LineNumbers, n)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return doc, nil
}

// BuildHeader returns the comment bodies written at the top of every
// generated manifest. The comment marker is added by Write.
func BuildHeader(producer, version, osDescription string, timestamp time.Time) []string {
	return []string{
		fmt.Sprintf("Generated by %s %s", producer, version),
		"Platform: " + osDescription,
		"Date: " + timestamp.UTC().Format(time.RFC3339),
	}
}

// Write renders a manifest. Each header body is prefixed with the format's
// comment marker; entries are encoded in order. Lines end in '\n'.
func Write(w io.Writer, f Format, header []string, entries []Entry) error {
	bw := bufio.NewWriter(w)
	marker := string(f.CommentMarker())

	for _, h := range header {
		line := marker
		if h != "" {
			line += " " + h
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if _, err := bw.WriteString(f.Encode(e) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
