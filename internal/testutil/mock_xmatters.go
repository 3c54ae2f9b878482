// Package testutil provides a fake xMatters REST API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
)

const apiPrefix = "/api/xm/1"

// MockResponse defines a canned response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// pageFailure is a canned failure for one page. remaining < 0 never runs out.
type pageFailure struct {
	resp      MockResponse
	remaining int
}

// Post is a captured POST request.
type Post struct {
	Path string
	Body map[string]any
}

// MockXMatters is an in-memory xMatters instance serving people, devices, events
// and user deliveries with offset/limit paging.
type MockXMatters struct {
	server *httptest.Server
	mu     sync.RWMutex

	people     []xmatters.Person
	devices    []xmatters.Device
	events     []xmatters.Event
	deliveries map[string][]xmatters.Delivery

	// path (without prefix) + offset -> canned failure
	failures map[string]*pageFailure
	// id or targetName of a POST body -> canned failure
	postFailures map[string]MockResponse

	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	Requests     []string
	Posts        []Post
}

// NewMockXMatters starts a fake xMatters server.
func NewMockXMatters() *MockXMatters {
	mock := &MockXMatters{
		deliveries:   make(map[string][]xmatters.Delivery),
		failures:     make(map[string]*pageFailure),
		postFailures: make(map[string]MockResponse),
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, r.Method+" "+r.URL.RequestURI())
		handler, exists := mock.handlers[strings.TrimPrefix(r.URL.Path, apiPrefix)]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.serve(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockXMatters) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockXMatters) Close() {
	m.server.Close()
}

// AddPeople adds people to the instance.
func (m *MockXMatters) AddPeople(people ...xmatters.Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people = append(m.people, people...)
}

// AddDevices adds devices to the instance.
func (m *MockXMatters) AddDevices(devices ...xmatters.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append(m.devices, devices...)
}

// AddEvent adds an event and its user deliveries.
func (m *MockXMatters) AddEvent(event xmatters.Event, deliveries ...xmatters.Delivery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.deliveries[event.ID] = append(m.deliveries[event.ID], deliveries...)
}

// FailPage makes GET path (e.g. "/people") at offset answer with resp.
func (m *MockXMatters) FailPage(path string, offset int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path+"@"+strconv.Itoa(offset)] = &pageFailure{resp: resp, remaining: -1}
}

// FailPageTimes is FailPage for the next n requests only; later requests succeed.
func (m *MockXMatters) FailPageTimes(path string, offset, n int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path+"@"+strconv.Itoa(offset)] = &pageFailure{resp: resp, remaining: n}
}

// FailPost makes POSTs whose body id or targetName equals key answer with resp.
// Failed POSTs are not captured.
func (m *MockXMatters) FailPost(key string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postFailures[key] = resp
}

// SetHandler overrides the handler for a path (without the API prefix).
func (m *MockXMatters) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// GetPosts returns the captured POST requests.
func (m *MockXMatters) GetPosts() []Post {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Post(nil), m.Posts...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockXMatters) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

func (r MockResponse) write(w http.ResponseWriter, _ *http.Request) {
	if r.Delay > 0 {
		time.Sleep(r.Delay)
	}
	for key, value := range r.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(r.StatusCode)
	if r.Body != "" {
		w.Write([]byte(r.Body))
	}
}

func (m *MockXMatters) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	if r.Method == http.MethodPost {
		m.capturePost(w, r, path)
		return
	}

	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	if failure, failing := m.takeFailure(path + "@" + strconv.Itoa(offset)); failing {
		failure.write(w, r)
		return
	}

	switch {
	case path == "/people":
		people := m.filterPeople(q.Get("status"), strings.Contains(q.Get("embed"), "devices"))
		writePage(w, people, offset, limit)
	case strings.HasPrefix(path, "/people/"):
		m.servePerson(w, strings.TrimPrefix(path, "/people/"))
	case path == "/devices":
		writePage(w, m.filterDevices(q.Get("deviceStatus"), q.Get("deviceType")), offset, limit)
	case path == "/events":
		m.mu.RLock()
		events := append([]xmatters.Event(nil), m.events...)
		m.mu.RUnlock()
		writePage(w, events, offset, limit)
	case strings.HasPrefix(path, "/events/") && strings.HasSuffix(path, "/user-deliveries"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/events/"), "/user-deliveries")
		m.mu.RLock()
		deliveries := append([]xmatters.Delivery(nil), m.deliveries[id]...)
		m.mu.RUnlock()
		writePage(w, deliveries, offset, limit)
	default:
		writeError(w, http.StatusNotFound, "Not Found", "Unknown path "+path)
	}
}

func (m *MockXMatters) takeFailure(key string) (MockResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.failures[key]
	if !ok {
		return MockResponse{}, false
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(m.failures, key)
		}
	}
	return f.resp, true
}

func (m *MockXMatters) servePerson(w http.ResponseWriter, id string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.people {
		if p.ID == id || p.TargetName == id {
			p.Devices = nil
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Not Found", "Could not find person "+id)
}

func (m *MockXMatters) filterPeople(status string, embedDevices bool) []xmatters.Person {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]xmatters.Person, 0, len(m.people))
	for _, p := range m.people {
		if status != "" && p.Status != status {
			continue
		}
		if !embedDevices {
			p.Devices = nil
		}
		out = append(out, p)
	}
	return out
}

func (m *MockXMatters) filterDevices(status, deviceType string) []xmatters.Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]xmatters.Device, 0, len(m.devices))
	for _, d := range m.devices {
		if status != "" && d.Status != status {
			continue
		}
		if deviceType != "" && d.DeviceType != deviceType {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (m *MockXMatters) capturePost(w http.ResponseWriter, r *http.Request, path string) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON")
		return
	}

	m.mu.RLock()
	failure, failing := m.postFailures[fmt.Sprint(body["id"])]
	if !failing {
		failure, failing = m.postFailures[fmt.Sprint(body["targetName"])]
	}
	m.mu.RUnlock()
	if failing {
		failure.write(w, r)
		return
	}

	m.mu.Lock()
	m.Posts = append(m.Posts, Post{Path: path, Body: body})
	n := len(m.Posts)
	m.mu.Unlock()

	status := http.StatusOK
	if _, ok := body["id"]; !ok {
		body["id"] = fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
		status = http.StatusCreated
	}
	writeJSON(w, status, body)
}

func writePage[T any](w http.ResponseWriter, all []T, offset, limit int) {
	page := xmatters.Page[T]{Total: len(all), Data: []T{}}
	if offset < len(all) {
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		page.Data = all[offset:end]
	}
	page.Count = len(page.Data)
	writeJSON(w, http.StatusOK, page)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, map[string]any{"code": status, "reason": reason, "message": message})
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"code": 429, "reason": "Too Many Requests", "message": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfter),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"code": 500, "reason": "Internal Server Error", "message": "Unexpected error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse(message string) MockResponse {
	body, _ := json.Marshal(map[string]any{"code": 400, "reason": "Bad Request", "message": message})
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
