package jobs

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/report"
	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
	"github.com/Sternrassler/xmatters-sync/pkg/pagination"
)

// Report headers of the responses job.
var (
	ResponsesDetailHeader = []string{"key", "targetName", "response", "event_created", "retrieved_date_time",
		"delivery_status", "workflow", "form", "event_id", "recipientTargetName", "recipientTargetType"}
	ResponsesSummaryHeader = []string{"key", "targetName", "response", "event_created", "retrieved_date_time",
		"delivery_status"}
)

// Recipient target types written to the detail report.
const (
	TargetPerson      = "PERSON"
	TargetDynamicTeam = "DYNAMIC TEAM"
	TargetGroup       = "GROUP"
)

// ResponseRow is one delivery of one event.
type ResponseRow struct {
	TargetName          string
	Response            string
	EventCreated        string
	Retrieved           string
	DeliveryStatus      string
	Workflow            string
	Form                string
	EventID             string
	EventUUID           string
	RecipientTargetName string
	RecipientTargetType string
}

func (r ResponseRow) detail() []string {
	return []string{r.TargetName + " " + r.EventUUID, r.TargetName, r.Response, r.EventCreated, r.Retrieved,
		r.DeliveryStatus, r.Workflow, r.Form, r.EventID, r.RecipientTargetName, r.RecipientTargetType}
}

func (r ResponseRow) summary() []string {
	return []string{r.TargetName + " " + r.EventCreated, r.TargetName, r.Response, r.EventCreated, r.Retrieved,
		r.DeliveryStatus}
}

// targeting holds how an event addressed its recipients.
type targeting struct {
	people       []string
	dynamicTeams []string
}

func targetingOf(ev xmatters.Event) targeting {
	var t targeting
	if ev.Recipients == nil {
		return t
	}
	for _, r := range ev.Recipients.Data {
		switch r.RecipientType {
		case xmatters.RecipientPerson:
			t.people = append(t.people, r.TargetName)
		case xmatters.RecipientDynamicTeam:
			t.dynamicTeams = append(t.dynamicTeams, r.TargetName)
		}
	}
	return t
}

// recipientTarget tells how user was reached: directly, through a group
// notification, or otherwise through the event's dynamic teams.
func (t targeting) recipientTarget(user string, d xmatters.Delivery) (name, kind string) {
	if slices.Contains(t.people, user) {
		name, kind = user, TargetPerson
	} else {
		name, kind = strings.Join(t.dynamicTeams, ", "), TargetDynamicTeam
	}
	if d.Notifications != nil {
		for _, n := range d.Notifications.Data {
			if n.Category == xmatters.RecipientGroup {
				name, kind = n.Recipient.TargetName, TargetGroup
			}
		}
	}
	return name, kind
}

// Responses reports the replies to today's events flagged for reporting.
type Responses struct {
	cfg  config.ResponsesConfig
	date string
	deps Deps
}

// NewResponses creates the responses job. An empty date means today.
func NewResponses(cfg config.ResponsesConfig, date string, deps Deps) *Responses {
	return &Responses{cfg: cfg, date: date, deps: deps}
}

// Name implements Job.
func (j *Responses) Name() string { return config.JobResponses }

// Run implements Job.
func (j *Responses) Run(ctx context.Context) (*Report, error) {
	log := j.deps.Logger
	now := j.deps.now()
	rep := newReport(j.Name(), now)

	date := j.date
	if date == "" {
		date = now.Format(time.DateOnly)
	}
	log.Info().Str("date", date).Msg("Reporting responses")

	base := url.Values{
		"embed":         []string{"targetedRecipients"},
		"propertyName":  []string{j.cfg.PropertyName},
		"propertyValue": []string{j.cfg.PropertyValue},
		"from":          []string{date + "T00:00:00.000Z"},
	}
	events, err := pagination.FetchAll(ctx, j.deps.Service.ListEvents, j.cfg.PageSize, base, j.cfg.ThreadCount)
	if err != nil {
		return rep, fmt.Errorf("list events: %w", err)
	}
	recordPages(rep, events)
	log.Info().Int("events", len(events.Records)).Msg("Getting user deliveries")

	retrieved := now.UTC()
	var collected []ResponseRow
	for _, ev := range events.Records {
		collected = append(collected, j.eventRows(ctx, rep, ev, retrieved)...)
	}
	log.Info().Int("rows", len(collected)).Msg("Found rows for user delivery data")
	j.deps.console().Infof("Response rows: %d", len(collected))

	if len(collected) == 0 {
		return rep, nil
	}

	j.write(rep, j.cfg.DetailFileName, ResponsesDetailHeader, collected, ResponseRow.detail)
	j.write(rep, j.cfg.FileName, ResponsesSummaryHeader, collected, ResponseRow.summary)
	return rep, nil
}

func (j *Responses) eventRows(ctx context.Context, rep *Report, ev xmatters.Event, retrieved time.Time) []ResponseRow {
	log := j.deps.Logger.With().Str("event_id", ev.EventID).Logger()
	target := targetingOf(ev)

	at := url.Values{"at": []string{retrieved.Format("2006-01-02T15:04:05Z")}}
	deliveries, err := pagination.FetchAll(ctx, j.deps.Service.UserDeliveries(ev.ID), j.cfg.PageSize, at, j.cfg.ThreadCount)
	if err != nil {
		log.Warn().Err(err).Msg("No user deliveries for event, moving to next event")
		rep.add(ev.EventID, ActionFetch, err)
		return nil
	}
	recordPages(rep, deliveries)
	log.Info().Int("deliveries", len(deliveries.Records)).Msg("Retrieved user deliveries")

	var out []ResponseRow
	for _, d := range deliveries.Records {
		user, err := j.userName(ctx, d.Person)
		if err != nil {
			log.Error().Err(err).Str("person_id", d.Person.ID).Msg("Could not resolve targetName")
			rep.add(d.Person.ID+" "+ev.ID, ActionReport, err)
			continue
		}

		row := ResponseRow{
			TargetName:     user,
			EventCreated:   strings.Replace(ev.Created, "+0000", "", 1),
			Retrieved:      retrieved.Format("2006-01-02T15:04:05.000000"),
			DeliveryStatus: d.DeliveryStatus,
			Workflow:       ev.Plan.Name,
			Form:           ev.Form.Name,
			EventID:        ev.EventID,
			EventUUID:      ev.ID,
		}
		row.RecipientTargetName, row.RecipientTargetType = target.recipientTarget(user, d)

		switch d.DeliveryStatus {
		case xmatters.DeliveryResponded:
			if d.Response != nil {
				row.Response = d.Response.Text
			}
		case xmatters.DeliveryDelivered:
		default:
			log.Info().Str("target_name", user).Str("delivery_status", d.DeliveryStatus).Msg("Unexpected delivery status, not reported")
			rep.add(user+" "+ev.ID, ActionSkip, nil)
			continue
		}

		out = append(out, row)
		rep.add(user+" "+ev.ID, ActionReport, nil)
	}
	log.Info().Int("rows", len(out)).Msg("User delivery rows added")
	return out
}

// userName returns the delivery's targetName, looking the person up when the
// listing left it out.
func (j *Responses) userName(ctx context.Context, p xmatters.Recipient) (string, error) {
	if p.TargetName != "" {
		return p.TargetName, nil
	}
	if p.ID == "" {
		return "", fmt.Errorf("delivery without person: %w", ErrMalformedRecord)
	}
	j.deps.Logger.Debug().Str("person_id", p.ID).Msg("No targetName in delivery, looking up person")
	person, err := j.deps.Service.GetPerson(ctx, p.ID)
	if err != nil {
		return "", err
	}
	if person.TargetName == "" {
		return "", fmt.Errorf("person %s has no targetName: %w", p.ID, ErrMalformedRecord)
	}
	return person.TargetName, nil
}

func (j *Responses) write(rep *Report, path string, header []string, rows []ResponseRow, format func(ResponseRow) []string) {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = format(r)
	}
	if err := report.WriteFile(path, header, records, report.Options{Encoding: j.cfg.Encoding}); err != nil {
		j.deps.Logger.Error().Err(err).Str("file", path).Msg("Failed to write report")
		rep.add(path, ActionWrite, err)
		return
	}
	j.deps.Logger.Info().Str("file", path).Int("rows", len(records)).Msg("Wrote report")
	rep.add(path, ActionWrite, nil)
}
