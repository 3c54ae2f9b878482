package jobs

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/rows"
	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
	"github.com/Sternrassler/xmatters-sync/pkg/pagination"
)

// Operands of a dynamic team rule.
const (
	OperandAnd = "AND"
	OperandOr  = "OR"
)

// Criterion requires a person property to equal a value.
type Criterion struct {
	Field string
	Value string
}

// Team is a dynamic team with its membership rule.
type Team struct {
	Name     string
	Operand  string
	Criteria []Criterion
}

// Matches reports whether props satisfy the team's rule. AND needs every
// criterion, OR at least one. A field the person lacks never matches.
func (t Team) Matches(props xmatters.Properties) bool {
	if len(t.Criteria) == 0 {
		return false
	}
	for _, c := range t.Criteria {
		ok := criterionMatches(props, c)
		switch {
		case t.Operand == OperandOr && ok:
			return true
		case t.Operand == OperandAnd && !ok:
			return false
		}
	}
	return t.Operand == OperandAnd
}

func criterionMatches(props xmatters.Properties, c Criterion) bool {
	v, ok := props[c.Field]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s == c.Value
	}
	return fmt.Sprint(v) == c.Value
}

// AssignTeam returns the first team in teams that props match.
func AssignTeam(teams []Team, props xmatters.Properties) (Team, bool) {
	if len(props) == 0 {
		return Team{}, false
	}
	for _, t := range teams {
		if t.Matches(props) {
			return t, true
		}
	}
	return Team{}, false
}

// LoadTeams reads the dynamic team rule table (targetName, operand, field, value).
// Teams are distinct by targetName in file order; AND teams come before OR teams.
func LoadTeams(table *rows.Table) ([]Team, error) {
	names, err := table.Select(rows.Selection{
		Columns:    []string{"targetName", "operand"},
		DistinctBy: []string{"targetName"},
	})
	if err != nil {
		return nil, err
	}

	var and, or []Team
	for _, n := range names {
		t := Team{
			Name:    strings.TrimSpace(rows.Value(n, "targetName")),
			Operand: strings.ToUpper(strings.TrimSpace(rows.Value(n, "operand"))),
		}
		if t.Operand != OperandAnd && t.Operand != OperandOr {
			return nil, fmt.Errorf("team %q: unknown operand %q", t.Name, t.Operand)
		}

		criteria, err := table.Select(rows.Selection{
			Columns: []string{"field", "value"},
			Where:   map[string]string{"targetName": rows.Value(n, "targetName")},
		})
		if err != nil {
			return nil, err
		}
		for _, c := range criteria {
			t.Criteria = append(t.Criteria, Criterion{
				Field: strings.TrimSpace(rows.Value(c, "field")),
				Value: rows.Value(c, "value"),
			})
		}

		if t.Operand == OperandAnd {
			and = append(and, t)
		} else {
			or = append(or, t)
		}
	}
	return append(and, or...), nil
}

// TeamRegions stores the dynamic team each active person belongs to in a custom field.
type TeamRegions struct {
	cfg  config.TeamRegionsConfig
	deps Deps
}

// NewTeamRegions creates the team-regions job.
func NewTeamRegions(cfg config.TeamRegionsConfig, deps Deps) *TeamRegions {
	return &TeamRegions{cfg: cfg, deps: deps}
}

// Name implements Job.
func (j *TeamRegions) Name() string { return config.JobTeamRegions }

// Run implements Job.
func (j *TeamRegions) Run(ctx context.Context) (*Report, error) {
	log := j.deps.Logger
	out := j.deps.console()
	rep := newReport(j.Name(), j.deps.now())

	table, err := rows.Open(j.cfg.RulesFile, rows.Options{
		Delimiter: []rune(j.cfg.Delimiter)[0],
		Encoding:  j.cfg.Encoding,
	})
	if err != nil {
		return rep, fmt.Errorf("read dynamic teams: %w", err)
	}
	teams, err := LoadTeams(table)
	if err != nil {
		return rep, fmt.Errorf("read dynamic teams from %s: %w", j.cfg.RulesFile, err)
	}
	log.Info().Int("teams", len(teams)).Msg("Loaded dynamic teams")

	out.Infof("Getting users")
	base := url.Values{"status": []string{xmatters.StatusActive}}
	res, err := pagination.FetchAll(ctx, j.deps.Service.ListPeople, j.cfg.PageSize, base, j.cfg.ThreadCount)
	if err != nil {
		return rep, fmt.Errorf("list active people: %w", err)
	}
	recordPages(rep, res)
	log.Info().Int("people", len(res.Records)).Int("failed_pages", len(res.Errors)).Msg("Retrieved people")
	out.Infof("Retrieved people count: %d", len(res.Records))

	counts := make(map[string]int, len(teams))
	var updates []xmatters.PersonUpdate
	for _, p := range res.Records {
		if len(p.Properties) == 0 {
			log.Debug().Str("target_name", p.TargetName).Msg("Person has no properties")
			rep.add(p.TargetName, ActionSkip, nil)
			continue
		}

		team, ok := AssignTeam(teams, p.Properties)
		if !ok {
			rep.add(p.TargetName, ActionSkip, nil)
			continue
		}
		counts[team.Name]++

		if current, _ := p.Properties[j.cfg.RegionField].(string); current == team.Name {
			rep.add(p.TargetName, ActionUnchanged, nil)
			continue
		}
		if p.ID == "" {
			rep.add(p.TargetName, ActionUpdate, ErrMalformedRecord)
			continue
		}

		log.Debug().Str("target_name", p.TargetName).Str("team", team.Name).Msg("Adding user to team")
		updates = append(updates, xmatters.PersonUpdate{
			ID:         p.ID,
			TargetName: p.TargetName,
			Properties: xmatters.Properties{j.cfg.RegionField: team.Name},
		})
	}

	summary := make([][]string, 0, len(teams))
	for _, t := range teams {
		log.Info().Str("team", t.Name).Str("operand", t.Operand).Int("people", counts[t.Name]).Msg("Processed dynamic team")
		summary = append(summary, []string{t.Name, t.Operand, strconv.Itoa(counts[t.Name])})
	}
	out.Table([]string{"team", "operand", "people"}, summary)

	key := func(u xmatters.PersonUpdate) string { return u.TargetName }
	if !j.cfg.ApplyUpdates {
		for _, u := range updates {
			log.Info().Str("target_name", u.TargetName).Interface("properties", u.Properties).Msg("Planned update, not applied")
			rep.add(key(u), ActionPlan, nil)
		}
		out.Warnf("%d updates planned; run with --apply to write them", len(updates))
		return rep, nil
	}

	writeAll(ctx, rep, log, ActionUpdate, j.cfg.ThreadCount, updates, key,
		func(ctx context.Context, u xmatters.PersonUpdate) (*xmatters.Person, error) {
			return j.deps.Service.ModifyPerson(ctx, u)
		})
	out.Successf("Updated %d people (%d failed)", rep.Count(ActionUpdate), len(rep.Failed()))
	return rep, nil
}
