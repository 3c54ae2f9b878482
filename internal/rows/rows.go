// Package rows reads CSV files with a header row into ordered rows and selects
// column subsets, filtered and de-duplicated.
package rows

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Sternrassler/xmatters-sync/internal/charset"
	"github.com/elliotchance/orderedmap/v2"
)

// Row maps column names to values in header order.
type Row = *orderedmap.OrderedMap[string, string]

// Options controls how a file is parsed.
type Options struct {
	// Delimiter separates fields (default ',').
	Delimiter rune
	// Encoding of the file (default "utf-8").
	Encoding string
}

// Table is a parsed CSV file.
type Table struct {
	header []string
	rows   []Row
}

// Open reads the CSV file at path.
func Open(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. The first record is the header; header cells are trimmed.
func Read(r io.Reader, opts Options) (*Table, error) {
	decoded, err := charset.NewReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{header: header}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := orderedmap.NewOrderedMap[string, string]()
		for i, name := range header {
			if i < len(record) {
				row.Set(name, record[i])
			} else {
				row.Set(name, "")
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// Header returns the column names in file order.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Selection describes which rows and columns Select returns.
type Selection struct {
	// Columns to keep, in this order. Empty keeps every column.
	Columns []string
	// Where keeps rows whose columns equal the given values.
	Where map[string]string
	// DistinctBy drops rows whose values for these columns were already seen.
	// The first occurrence wins.
	DistinctBy []string
}

// Select returns the rows matching sel in file order.
func (t *Table) Select(sel Selection) ([]Row, error) {
	if err := t.checkColumns(sel); err != nil {
		return nil, err
	}

	columns := sel.Columns
	if len(columns) == 0 {
		columns = t.header
	}

	seen := make(map[string]struct{})
	var out []Row
	for _, row := range t.rows {
		if !matches(row, sel.Where) {
			continue
		}
		if len(sel.DistinctBy) > 0 {
			key := distinctKey(row, sel.DistinctBy)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}

		selected := orderedmap.NewOrderedMap[string, string]()
		for _, c := range columns {
			v, _ := row.Get(c)
			selected.Set(c, v)
		}
		out = append(out, selected)
	}
	return out, nil
}

func (t *Table) checkColumns(sel Selection) error {
	known := make(map[string]bool, len(t.header))
	for _, h := range t.header {
		known[h] = true
	}

	var missing []string
	check := func(c string) {
		if !known[c] {
			missing = append(missing, c)
		}
	}
	for _, c := range sel.Columns {
		check(c)
	}
	for c := range sel.Where {
		check(c)
	}
	for _, c := range sel.DistinctBy {
		check(c)
	}
	if len(missing) > 0 {
		return fmt.Errorf("unknown columns %v (have %v)", missing, t.header)
	}
	return nil
}

func matches(row Row, where map[string]string) bool {
	for c, want := range where {
		if got, _ := row.Get(c); got != want {
			return false
		}
	}
	return true
}

func distinctKey(row Row, columns []string) string {
	var b strings.Builder
	for _, c := range columns {
		v, _ := row.Get(c)
		b.WriteString(v)
		b.WriteByte(0)
	}
	return b.String()
}

// Value returns the value of column in row, or "" when absent.
func Value(row Row, column string) string {
	v, _ := row.Get(column)
	return v
}
