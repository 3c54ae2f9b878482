// Package jobs implements the xMatters synchronisation jobs. Each job lists what
// it needs, decides per record, and writes back through a bounded worker pool;
// a failing record is logged and recorded in the run's Report while the rest continue.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/console"
	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
	"github.com/Sternrassler/xmatters-sync/pkg/pagination"
	"github.com/rs/zerolog"
)

// Job is one synchronisation pipeline.
type Job interface {
	Name() string
	Run(ctx context.Context) (*Report, error)
}

// Deps are the collaborators shared by all jobs.
type Deps struct {
	Service *xmatters.Service
	Logger  zerolog.Logger
	Console *console.Printer
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) console() *console.Printer {
	if d.Console != nil {
		return d.Console
	}
	return console.Discard()
}

// Options carry command line switches that override the config file.
type Options struct {
	// DryRun lists devices without activating them.
	DryRun bool
	// Apply writes team region updates.
	Apply bool
	// Date (YYYY-MM-DD) selects the day of events for the responses report.
	Date string
}

// New builds the job called name from cfg.
func New(name string, cfg *config.Config, deps Deps, opts Options) (Job, error) {
	if deps.Service == nil {
		return nil, fmt.Errorf("job %s: service is required", name)
	}
	if err := cfg.ValidateJob(name); err != nil {
		return nil, fmt.Errorf("job %s: %w", name, err)
	}

	switch name {
	case config.JobActivateDevices:
		c := cfg.Devices
		c.DryRun = c.DryRun || opts.DryRun
		return NewActivateDevices(c, deps), nil
	case config.JobImportUsers:
		return NewImportUsers(cfg.ImportUsers, deps), nil
	case config.JobDeviceFields:
		return NewDeviceFields(cfg.DeviceFields, deps), nil
	case config.JobTeamRegions:
		c := cfg.TeamRegions
		c.ApplyUpdates = c.ApplyUpdates || opts.Apply
		return NewTeamRegions(c, deps), nil
	case config.JobResponses:
		if opts.Date != "" {
			if _, err := time.Parse(time.DateOnly, opts.Date); err != nil {
				return nil, fmt.Errorf("job %s: invalid date %q: %w", name, opts.Date, err)
			}
		}
		return NewResponses(cfg.Responses, opts.Date, deps), nil
	default:
		return nil, fmt.Errorf("unknown job %q", name)
	}
}

// Execute runs job, stamps the report with runID and timing, logs start and
// duration, and records metrics.
func Execute(ctx context.Context, job Job, runID string, logger zerolog.Logger) (*Report, error) {
	start := time.Now()
	logger.Info().Time("start", start).Msg("Starting process")

	rep, err := job.Run(ctx)
	if rep == nil {
		rep = newReport(job.Name(), start)
	}
	rep.RunID = runID
	rep.Started = start
	rep.Duration = time.Since(start)
	observe(rep, err)

	if err != nil {
		logger.Error().Err(err).Dur("duration", rep.Duration).Msg("Process failed")
		return rep, err
	}

	logger.Info().
		Int("fetched", rep.Fetched).
		Int("failed_items", len(rep.Failed())).
		Int("failed_pages", len(rep.PageErrors)).
		Dur("duration", rep.Duration).
		Msg("Process finished")
	return rep, nil
}

// writeAll runs fn over items with workers in parallel and records one report
// item per input.
func writeAll[In, Out any](ctx context.Context, rep *Report, logger zerolog.Logger, action Action, workers int,
	items []In, key func(In) string, fn pagination.TaskFunc[In, Out]) {
	if len(items) == 0 {
		return
	}

	outcomes := pagination.Dispatch(ctx, items, workers, fn)
	failed := 0
	for _, o := range outcomes {
		k := key(o.Input)
		if o.Err != nil {
			failed++
			logger.Warn().Err(o.Err).Str("key", k).Str("action", string(action)).Msg("Write failed")
		} else {
			logger.Debug().Str("key", k).Str("action", string(action)).Msg("Write succeeded")
		}
		rep.add(k, action, o.Err)
	}

	logger.Info().
		Str("action", string(action)).
		Int("requested", len(items)).
		Int("failed", failed).
		Msg("Writes complete")
}

// recordPages copies the listing result into the report.
func recordPages[T any](rep *Report, res *pagination.Result[T]) {
	rep.Fetched += len(res.Records)
	rep.PageErrors = append(rep.PageErrors, res.Errors...)
}
