package jobs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/xmatters-sync/internal/console"
	"github.com/Sternrassler/xmatters-sync/internal/testutil"
	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
	"github.com/Sternrassler/xmatters-sync/pkg/client"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 4, 15, 9, 30, 0, 0, time.UTC)

type harness struct {
	mock *testutil.MockXMatters
	deps Deps
	out  *bytes.Buffer
	dir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mock := testutil.NewMockXMatters()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig(mock.URL(), "user", "pass")
	cfg.InitialBackoff = time.Millisecond
	c, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	out := &bytes.Buffer{}
	return &harness{
		mock: mock,
		out:  out,
		dir:  t.TempDir(),
		deps: Deps{
			Service: xmatters.NewService(c),
			Logger:  zerolog.Nop(),
			Console: console.New(out, false),
			Now:     func() time.Time { return fixedNow },
		},
	}
}

func (h *harness) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (h *harness) read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func postsTo(posts []testutil.Post, path string) []testutil.Post {
	var out []testutil.Post
	for _, p := range posts {
		if p.Path == path {
			out = append(out, p)
		}
	}
	return out
}

func devices(ds ...xmatters.Device) *xmatters.Page[xmatters.Device] {
	return &xmatters.Page[xmatters.Device]{Count: len(ds), Total: len(ds), Data: ds}
}
