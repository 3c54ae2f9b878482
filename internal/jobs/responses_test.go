package jobs

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/testutil"
	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responsesConfig(dir string) config.ResponsesConfig {
	cfg := config.DefaultConfig().Responses
	cfg.PageSize = 2
	cfg.ThreadCount = 2
	cfg.FileName = filepath.Join(dir, "responses.csv")
	cfg.DetailFileName = filepath.Join(dir, "responses_detail.csv")
	return cfg
}

func incidentEvent() xmatters.Event {
	return xmatters.Event{
		ID:      "uuid-1",
		EventID: "101",
		Created: "2024-04-15T08:00:00.000+0000",
		Plan:    xmatters.Reference{Name: "Incident"},
		Form:    xmatters.Reference{Name: "Notify"},
		Recipients: &xmatters.Page[xmatters.Recipient]{Count: 3, Total: 3, Data: []xmatters.Recipient{
			{TargetName: "anna", RecipientType: xmatters.RecipientPerson},
			{TargetName: "Ops", RecipientType: xmatters.RecipientDynamicTeam},
			{TargetName: "Dev", RecipientType: xmatters.RecipientDynamicTeam},
		}},
	}
}

func TestResponses_Run(t *testing.T) {
	h := newHarness(t)
	h.mock.AddPeople(xmatters.Person{ID: "p9", TargetName: "zed", Status: xmatters.StatusActive})
	h.mock.AddEvent(incidentEvent(),
		xmatters.Delivery{
			Person:         xmatters.Recipient{TargetName: "anna"},
			DeliveryStatus: xmatters.DeliveryResponded,
			Response:       &xmatters.Response{Text: "Acknowledge"},
		},
		xmatters.Delivery{
			Person:         xmatters.Recipient{TargetName: "ben"},
			DeliveryStatus: xmatters.DeliveryDelivered,
		},
		xmatters.Delivery{
			Person:         xmatters.Recipient{ID: "p9"},
			DeliveryStatus: xmatters.DeliveryResponded,
			Response:       &xmatters.Response{Text: "Escalate"},
			Notifications: &xmatters.Page[xmatters.Notification]{Count: 1, Total: 1, Data: []xmatters.Notification{
				{Category: xmatters.RecipientGroup, Recipient: xmatters.Recipient{TargetName: "NOC"}},
			}},
		},
		xmatters.Delivery{
			Person:         xmatters.Recipient{TargetName: "cleo"},
			DeliveryStatus: "FAILED",
		},
	)
	h.mock.AddEvent(xmatters.Event{ID: "uuid-2", EventID: "102", Created: "2024-04-15T08:30:00.000+0000"})
	h.mock.FailPage("/events/uuid-2/user-deliveries", 0, testutil.NewBadRequestResponse("boom"))
	cfg := responsesConfig(h.dir)

	rep, err := NewResponses(cfg, "", h.deps).Run(context.Background())
	require.NoError(t, err)

	// two events plus the four deliveries of the first
	assert.Equal(t, 6, rep.Fetched)
	assert.Equal(t, 3, rep.Count(ActionReport))
	assert.Equal(t, 1, rep.Count(ActionSkip))
	assert.Equal(t, 2, rep.Count(ActionWrite))
	failed := rep.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, ActionFetch, failed[0].Action)
	assert.Equal(t, "102", failed[0].Key)

	detail := h.read(t, cfg.DetailFileName)
	assert.Contains(t, detail, "\"key\",\"targetName\",\"response\",\"event_created\",\"retrieved_date_time\",\"delivery_status\",\"workflow\",\"form\",\"event_id\",\"recipientTargetName\",\"recipientTargetType\"\r\n")
	assert.Contains(t, detail, "\"anna uuid-1\",\"anna\",\"Acknowledge\",\"2024-04-15T08:00:00.000\",\"2024-04-15T09:30:00.000000\",\"RESPONDED\",\"Incident\",\"Notify\",\"101\",\"anna\",\"PERSON\"\r\n")
	assert.Contains(t, detail, "\"ben uuid-1\",\"ben\",\"\",\"2024-04-15T08:00:00.000\",\"2024-04-15T09:30:00.000000\",\"DELIVERED\",\"Incident\",\"Notify\",\"101\",\"Ops, Dev\",\"DYNAMIC TEAM\"\r\n")
	assert.Contains(t, detail, "\"zed uuid-1\",\"zed\",\"Escalate\",")
	assert.Contains(t, detail, "\"NOC\",\"GROUP\"\r\n")
	assert.NotContains(t, detail, "cleo")

	summary := h.read(t, cfg.FileName)
	assert.Contains(t, summary, "\"key\",\"targetName\",\"response\",\"event_created\",\"retrieved_date_time\",\"delivery_status\"\r\n")
	assert.Contains(t, summary, "\"anna 2024-04-15T08:00:00.000\",\"anna\",\"Acknowledge\",\"2024-04-15T08:00:00.000\",\"2024-04-15T09:30:00.000000\",\"RESPONDED\"\r\n")
}

func TestResponses_NoRowsWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.mock.AddEvent(incidentEvent(), xmatters.Delivery{
		Person:         xmatters.Recipient{TargetName: "anna"},
		DeliveryStatus: "PENDING",
	})
	cfg := responsesConfig(h.dir)

	rep, err := NewResponses(cfg, "", h.deps).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(ActionSkip))
	assert.Zero(t, rep.Count(ActionWrite))

	_, err = os.Stat(cfg.FileName)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(cfg.DetailFileName)
	assert.True(t, os.IsNotExist(err))
}

func TestResponses_QueryParameters(t *testing.T) {
	h := newHarness(t)

	var mu sync.Mutex
	var query url.Values
	h.mock.SetHandler("/events", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		query = r.URL.Query()
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":0,"total":0,"data":[]}`))
	})

	_, err := NewResponses(responsesConfig(h.dir), "2024-03-01", h.deps).Run(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, query)
	assert.Equal(t, "2024-03-01T00:00:00.000Z", query.Get("from"))
	assert.Equal(t, "targetedRecipients", query.Get("embed"))
	assert.Equal(t, "response_report", query.Get("propertyName"))
	assert.Equal(t, "true", query.Get("propertyValue"))
	assert.Equal(t, "0", query.Get("offset"))
	assert.Equal(t, "2", query.Get("limit"))
}

func TestResponses_EventsUnavailable(t *testing.T) {
	h := newHarness(t)
	h.mock.FailPage("/events", 0, testutil.NewBadRequestResponse("bad property"))

	_, err := NewResponses(responsesConfig(h.dir), "", h.deps).Run(context.Background())
	assert.Error(t, err)
}
