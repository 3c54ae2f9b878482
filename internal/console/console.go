// Package console prints progress lines and summary tables for operators.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// Printer writes human-oriented output. Safe for sequential use only.
type Printer struct {
	w       io.Writer
	colored bool
}

// New returns a printer writing to w. colored enables ANSI styling.
func New(w io.Writer, colored bool) *Printer {
	return &Printer{w: w, colored: colored}
}

// Discard returns a printer that prints nothing.
func Discard() *Printer {
	return New(io.Discard, false)
}

func (p *Printer) style(s color.Style, text string) string {
	if !p.colored {
		return text
	}
	return s.Sprint(text)
}

// Infof prints a plain progress line.
func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Successf prints a green line.
func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(color.New(color.FgGreen), fmt.Sprintf(format, args...)))
}

// Warnf prints a yellow line.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(color.New(color.FgYellow), fmt.Sprintf(format, args...)))
}

// Errorf prints a bold red line.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(color.New(color.FgRed, color.OpBold), fmt.Sprintf(format, args...)))
}

// maxCell caps the display width of a table cell.
const maxCell = 48

// Table prints rows under header with columns aligned by display width,
// so wide (CJK) characters line up.
func (p *Printer) Table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	measure := func(row []string) {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := runewidth.StringWidth(cell(row[i])); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}

	line := func(row []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			var v string
			if i < len(row) {
				v = cell(row[i])
			}
			parts[i] = runewidth.FillRight(v, widths[i])
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	fmt.Fprintln(p.w, p.style(color.New(color.OpBold), line(header)))
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	fmt.Fprintln(p.w, strings.Join(sep, "  "))
	for _, row := range rows {
		fmt.Fprintln(p.w, line(row))
	}
}

func cell(s string) string {
	return runewidth.Truncate(s, maxCell, "…")
}
