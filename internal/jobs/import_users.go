package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/rows"
	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
	"github.com/Sternrassler/xmatters-sync/pkg/client"
)

// ImportUsers creates one person per distinct id in a CSV file.
type ImportUsers struct {
	cfg  config.ImportUsersConfig
	deps Deps
}

// NewImportUsers creates the import-users job.
func NewImportUsers(cfg config.ImportUsersConfig, deps Deps) *ImportUsers {
	return &ImportUsers{cfg: cfg, deps: deps}
}

// Name implements Job.
func (j *ImportUsers) Name() string { return config.JobImportUsers }

// Run implements Job.
func (j *ImportUsers) Run(ctx context.Context) (*Report, error) {
	log := j.deps.Logger
	rep := newReport(j.Name(), j.deps.now())

	table, err := rows.Open(j.cfg.FileName, rows.Options{
		Delimiter: []rune(j.cfg.Delimiter)[0],
		Encoding:  j.cfg.Encoding,
	})
	if err != nil {
		return rep, fmt.Errorf("read users: %w", err)
	}

	users, err := table.Select(rows.Selection{
		Columns:    []string{j.cfg.IDColumn},
		DistinctBy: []string{j.cfg.IDColumn},
	})
	if err != nil {
		return rep, fmt.Errorf("read users from %s: %w", j.cfg.FileName, err)
	}
	rep.Fetched = len(users)
	log.Info().Int("users", len(users)).Str("file", j.cfg.FileName).Msg("Read distinct users")

	people := make([]xmatters.Person, 0, len(users))
	for i, u := range users {
		id := strings.TrimSpace(rows.Value(u, j.cfg.IDColumn))
		if id == "" {
			rep.add(fmt.Sprintf("row %d", i+1), ActionCreate, fmt.Errorf("empty %s", j.cfg.IDColumn))
			continue
		}
		log.Debug().Str("target_name", id).Msg("Processing user")
		people = append(people, j.person(id))
	}

	writeAll(ctx, rep, log, ActionCreate, j.cfg.ThreadCount, people,
		func(p xmatters.Person) string { return p.TargetName },
		func(ctx context.Context, p xmatters.Person) (*xmatters.Person, error) {
			created, err := j.deps.Service.CreatePerson(ctx, p)
			if client.IsConflict(err) {
				return nil, fmt.Errorf("person already exists: %w", err)
			}
			return created, err
		})

	j.deps.console().Successf("Created %d people (%d failed)", rep.Count(ActionCreate), len(rep.Failed()))
	return rep, nil
}

func (j *ImportUsers) person(id string) xmatters.Person {
	return xmatters.Person{
		TargetName:    id,
		FirstName:     id,
		LastName:      id,
		WebLogin:      id,
		RecipientType: xmatters.RecipientPerson,
		Status:        xmatters.StatusActive,
		Language:      j.cfg.Language,
		Timezone:      j.cfg.Timezone,
		Roles:         j.cfg.Roles,
		Site:          j.cfg.Site,
		Supervisors:   j.cfg.Supervisors,
	}
}
