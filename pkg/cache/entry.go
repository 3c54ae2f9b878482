package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Entry is a stored xMatters GET response. Only the parts the JSON decoders
// look at are kept.
type Entry struct {
	Body        []byte    `json:"body"`
	StatusCode  int       `json:"status"`
	ContentType string    `json:"content_type,omitempty"`
	StoredAt    time.Time `json:"stored_at"`
}

// newEntry reads resp into an Entry and hands the body back to resp so the
// caller can still decode it.
func newEntry(resp *http.Response, now time.Time) (*Entry, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("response has no body")
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &Entry{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		StoredAt:    now,
	}, nil
}

// Age is how long ago the entry was stored, never negative.
func (e *Entry) Age(now time.Time) time.Duration {
	if age := now.Sub(e.StoredAt); age > 0 {
		return age
	}
	return 0
}

// Response replays the entry as a response to req. X-Cache is set to HIT and
// Age carries the entry age in whole seconds.
func (e *Entry) Response(req *http.Request, now time.Time) *http.Response {
	header := http.Header{}
	if e.ContentType != "" {
		header.Set("Content-Type", e.ContentType)
	}
	header.Set("X-Cache", "HIT")
	header.Set("Age", strconv.Itoa(int(e.Age(now)/time.Second)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)),
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
