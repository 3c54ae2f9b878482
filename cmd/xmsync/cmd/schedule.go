package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run jobs on the cron expressions of the schedule section",
	Long: `Runs in the foreground and starts each job of schedule.jobs on its cron
expression (5 fields, or descriptors such as @hourly). A run that is still
busy when its next tick arrives causes that tick to be skipped.

Example config:
  schedule:
    jobs:
      - job: activate-devices
        spec: "*/15 * * * *"
      - job: responses
        spec: "0 18 * * *"`,
	Args: cobra.NoArgs,
	RunE: withApp(runSchedule),
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(ctx context.Context, a *app) error {
	if len(a.cfg.Schedule.Jobs) == 0 {
		return errors.New("schedule.jobs is empty")
	}

	c, err := newScheduler(a.log, a.cfg.Schedule.Jobs, func(name string) {
		if err := a.runJob(ctx, name, jobs.Options{}); err != nil {
			a.log.Error().Err(err).Str("job", name).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	a.log.Info().Int("entries", len(c.Entries())).Msg("Scheduler started")
	a.console.Infof("Scheduler running with %d jobs, press Ctrl+C to stop", len(c.Entries()))

	<-ctx.Done()
	a.log.Info().Msg("Stopping scheduler, waiting for running jobs")
	<-c.Stop().Done()
	a.log.Info().Msg("Scheduler stopped")
	return nil
}

// newScheduler registers one cron entry per scheduled job. Overlapping runs of
// the same entry are skipped and panics are recovered.
func newScheduler(logger zerolog.Logger, scheduled []config.ScheduledJob, run func(name string)) (*cron.Cron, error) {
	cl := cronLogger{log: logger.With().Str("component", "scheduler").Logger()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	for _, sj := range scheduled {
		name := sj.Job
		if _, err := c.AddFunc(sj.Spec, func() { run(name) }); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", sj.Job, sj.Spec, err)
		}
		cl.log.Info().Str("job", sj.Job).Str("spec", sj.Spec).Msg("Scheduled job")
	}
	return c, nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
