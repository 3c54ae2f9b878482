// Package charset resolves text encoding names as used in config files
// ("utf-8", "utf-8-sig", "latin1", "cp1252", ...) to x/text encodings.
package charset

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Lookup returns the encoding for name. An empty name means UTF-8.
func Lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "utf-8-sig", "utf8-sig":
		return unicode.UTF8BOM, nil
	}

	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", name)
}

// NewReader decodes r from the named encoding to UTF-8.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(r), nil
}

// NewWriter encodes UTF-8 written to the result into the named encoding on w.
// Close flushes pending output but leaves w open. Characters the encoding
// cannot represent fail the write.
func NewWriter(w io.Writer, name string) (io.WriteCloser, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	ew := enc.NewEncoder().Writer(w)
	if wc, ok := ew.(io.WriteCloser); ok {
		return wc, nil
	}
	return nopCloser{ew}, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
