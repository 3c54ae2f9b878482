package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestPush_EmptyURLIsNoop(t *testing.T) {
	if err := Push(context.Background(), "", "xmsync", nil); err != nil {
		t.Errorf("Push() error = %v, want nil", err)
	}
}

func TestPush_RequiresJob(t *testing.T) {
	if err := Push(context.Background(), "http://localhost:9091", "", nil); err == nil {
		t.Error("Push() without job should fail")
	}
}

func TestPush_SendsGroup(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xmsync_test_pushed_total",
		Help: "Test counter",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	orig := Gatherer
	Gatherer = reg
	t.Cleanup(func() { Gatherer = orig })

	var method, path, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := Push(context.Background(), server.URL, "xmsync", map[string]string{"command": "responses"})
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if path != "/metrics/job/xmsync/command/responses" {
		t.Errorf("path = %q", path)
	}
	if !strings.Contains(body, "xmsync_test_pushed_total") {
		t.Error("pushed body should contain the test counter")
	}
}

func TestPush_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	orig := Gatherer
	Gatherer = reg
	t.Cleanup(func() { Gatherer = orig })

	if err := Push(context.Background(), server.URL, "xmsync", nil); err == nil {
		t.Error("Push() should fail on a 500 from the gateway")
	}
}
