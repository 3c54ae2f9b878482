package jobs

import (
	"context"
	"net/http"
	"testing"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importConfig(path string) config.ImportUsersConfig {
	cfg := config.DefaultConfig().ImportUsers
	cfg.FileName = path
	cfg.Site = "16f36c72-b00b-456b-b492-4a0757352960"
	cfg.Supervisors = []string{"65145f9a-aca2-4e61-96e2-84baf5e0bf42"}
	return cfg
}

func TestImportUsers_CreatesDistinctPeople(t *testing.T) {
	h := newHarness(t)
	path := h.file(t, "users.csv", "id,email\njdoe,j@x\nasmith,a@x\njdoe,other@x\n ,blank@x\nbwayne,b@x\n")

	rep, err := NewImportUsers(importConfig(path), h.deps).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Fetched)
	assert.Equal(t, 3, rep.Count(ActionCreate))
	require.Len(t, rep.Failed(), 1)
	assert.Equal(t, "row 3", rep.Failed()[0].Key)

	posts := postsTo(h.mock.GetPosts(), "/people")
	require.Len(t, posts, 3)

	byName := map[string]map[string]any{}
	for _, p := range posts {
		byName[p.Body["targetName"].(string)] = p.Body
	}
	require.Contains(t, byName, "jdoe")
	body := byName["jdoe"]
	assert.Equal(t, "jdoe", body["firstName"])
	assert.Equal(t, "jdoe", body["lastName"])
	assert.Equal(t, "jdoe", body["webLogin"])
	assert.Equal(t, "PERSON", body["recipientType"])
	assert.Equal(t, "ACTIVE", body["status"])
	assert.Equal(t, "en", body["language"])
	assert.Equal(t, "US/Pacific", body["timezone"])
	assert.Equal(t, []any{"Standard User"}, body["roles"])
	assert.Equal(t, "16f36c72-b00b-456b-b492-4a0757352960", body["site"])
	assert.Equal(t, []any{"65145f9a-aca2-4e61-96e2-84baf5e0bf42"}, body["supervisors"])
}

func TestImportUsers_CreateFailureContinues(t *testing.T) {
	h := newHarness(t)
	path := h.file(t, "users.csv", "id\nalpha\nbeta\ngamma\n")
	h.mock.FailPost("beta", testutil.NewBadRequestResponse("duplicate targetName"))

	rep, err := NewImportUsers(importConfig(path), h.deps).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Count(ActionCreate))
	failed := rep.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "beta", failed[0].Key)
	assert.Contains(t, failed[0].Err.Error(), "duplicate targetName")
}

func TestImportUsers_ExistingPerson(t *testing.T) {
	h := newHarness(t)
	path := h.file(t, "users.csv", "id\nalpha\nbeta\n")
	h.mock.FailPost("alpha", testutil.MockResponse{
		StatusCode: http.StatusConflict,
		Body:       `{"code": 409, "reason": "Conflict", "message": "targetName already in use"}`,
	})

	rep, err := NewImportUsers(importConfig(path), h.deps).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Count(ActionCreate))
	failed := rep.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "alpha", failed[0].Key)
	assert.Contains(t, failed[0].Err.Error(), "person already exists")
}

func TestImportUsers_SetupErrors(t *testing.T) {
	h := newHarness(t)

	_, err := NewImportUsers(importConfig(h.dir+"/missing.csv"), h.deps).Run(context.Background())
	assert.Error(t, err)

	path := h.file(t, "users.csv", "email\nj@x\n")
	_, err = NewImportUsers(importConfig(path), h.deps).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown columns")
}
