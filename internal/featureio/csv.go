// Package featureio reads interleaved sensor rows and writes feature rows as
// comma-separated text.
package featureio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/sensor.features/internal/features"
)

// Reader yields raw rows from comma-separated input. Records may have any
// number of fields. A blank line is returned as an empty record so that every
// physical input line maps to exactly one row.
type Reader struct {
	csv  *csv.Reader
	src  *lineCounter
	rows int

	lastLine int      // last physical line consumed by a returned record
	blanks   int      // blank lines pending before held
	held     []string // record read ahead of pending blank lines
	eof      bool
}

// NewReader wraps r. Quoting is parsed leniently so that stray quotes inside
// sensor exports do not abort a run.
func NewReader(r io.Reader) *Reader {
	src := &lineCounter{r: r}
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &Reader{csv: cr, src: src}
}

// Read returns the next raw row, or io.EOF after the last one.
func (r *Reader) Read() ([]string, error) {
	for r.blanks == 0 && r.held == nil && !r.eof {
		rec, err := r.csv.Read()
		if err == io.EOF {
			r.eof = true
			r.blanks = max(r.src.lines()-r.lastLine, 0)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input row %d: %w", r.rows+1, err)
		}
		// encoding/csv skips empty lines; recover them from the gap between
		// this record's first line and the previous record's last line.
		start, _ := r.csv.FieldPos(0)
		last := len(rec) - 1
		end, _ := r.csv.FieldPos(last)
		end += strings.Count(rec[last], "\n")

		r.blanks = max(start-r.lastLine-1, 0)
		r.lastLine = end
		r.held = rec
	}

	switch {
	case r.blanks > 0:
		r.blanks--
		r.rows++
		return []string{}, nil
	case r.held != nil:
		rec := r.held
		r.held = nil
		r.rows++
		return rec, nil
	}
	return nil, io.EOF
}

// Rows returns the number of rows read so far.
func (r *Reader) Rows() int { return r.rows }

// lineCounter counts the physical lines of everything read through it. A
// final line without a terminating newline still counts.
type lineCounter struct {
	r        io.Reader
	newlines int
	unended  bool
}

func (c *lineCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.newlines += bytes.Count(p[:n], []byte{'\n'})
		c.unended = p[n-1] != '\n'
	}
	return n, err
}

func (c *lineCounter) lines() int {
	if c.unended {
		return c.newlines + 1
	}
	return c.newlines
}

// Writer writes the feature header and feature rows. Records end in CRLF.
type Writer struct {
	csv  *csv.Writer
	rows uint64
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return &Writer{csv: cw}
}

// WriteHeader writes the fixed column header.
func (w *Writer) WriteHeader() error {
	if err := w.csv.Write(features.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// WriteRow appends one feature row.
func (w *Writer) WriteRow(row features.Row) error {
	if err := w.csv.Write(FormatRow(row)); err != nil {
		return fmt.Errorf("write row %d: %w", w.rows+1, err)
	}
	w.rows++
	return nil
}

// Flush pushes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// Rows returns the number of data rows written (excludes header).
func (w *Writer) Rows() uint64 { return w.rows }
