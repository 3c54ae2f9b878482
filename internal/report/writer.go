// Package report writes CSV reports with every field quoted.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Sternrassler/xmatters-sync/internal/charset"
)

// Options controls the written file.
type Options struct {
	// Encoding of the file (default "utf-8").
	Encoding string
}

// Writer writes a header row followed by records. Every field is enclosed in
// double quotes, embedded quotes are doubled, and lines end with CRLF.
type Writer struct {
	file    *os.File
	encoded io.WriteCloser
	buf     *bufio.Writer
	columns int
	records int
}

// Create truncates or creates path and writes header.
func Create(path string, header []string, opts Options) (*Writer, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("create %s: empty header", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	encoded, err := charset.NewWriter(f, opts.Encoding)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	w := &Writer{
		file:    f,
		encoded: encoded,
		buf:     bufio.NewWriter(encoded),
		columns: len(header),
	}
	if err := w.writeLine(header); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// Write appends one record. It must have as many fields as the header.
func (w *Writer) Write(record []string) error {
	if len(record) != w.columns {
		return fmt.Errorf("record has %d fields, header has %d", len(record), w.columns)
	}
	if err := w.writeLine(record); err != nil {
		return err
	}
	w.records++
	return nil
}

// Records returns the number of records written after the header.
func (w *Writer) Records() int {
	return w.records
}

// Close flushes buffered output and closes the file.
func (w *Writer) Close() error {
	return errors.Join(w.buf.Flush(), w.encoded.Close(), w.file.Close())
}

func (w *Writer) writeLine(fields []string) error {
	for i, field := range fields {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.buf.WriteByte('"')
		w.buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.buf.WriteByte('"')
	}
	_, err := w.buf.WriteString("\r\n")
	return err
}

// WriteFile writes header and records to path in one go.
func WriteFile(path string, header []string, records [][]string, opts Options) error {
	w, err := Create(path, header, opts)
	if err != nil {
		return err
	}
	for i, record := range records {
		if err := w.Write(record); err != nil {
			w.Close()
			return fmt.Errorf("write %s record %d: %w", path, i+1, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Bool renders b the way the downstream reports expect ("True"/"False").
func Bool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
