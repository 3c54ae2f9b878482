package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/console"
	"github.com/Sternrassler/xmatters-sync/internal/jobs"
	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
	"github.com/Sternrassler/xmatters-sync/pkg/client"
	"github.com/Sternrassler/xmatters-sync/pkg/logging"
	"github.com/Sternrassler/xmatters-sync/pkg/metrics"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const pushTimeout = 10 * time.Second

// app holds what every job command needs.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	redis   *redis.Client
	client  *client.Client
	service *xmatters.Service
	console *console.Printer
}

// newApp loads and validates the config file, then sets up logging, the
// optional Redis connection and the xMatters client.
func newApp(ctx context.Context, out io.Writer) (*app, error) {
	if envFile != "" {
		// existing environment variables win over the file
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.Threads)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.Logging.Level)
	logCfg.Pretty = cfg.Logging.Pretty
	logCfg.File = logging.FileConfig{
		Name:     cfg.Logging.FileName,
		MaxBytes: cfg.Logging.MaxBytes,
		Backups:  cfg.Logging.BackUpCount,
	}
	logging.Setup(logCfg)

	a := &app{
		cfg:     cfg,
		log:     logging.NewLogger("xmsync"),
		console: console.New(out, !noColor),
	}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := a.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			a.log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, continuing without cache and shared rate limit state")
			a.redis.Close()
			a.redis = nil
		} else {
			a.log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
		}
	}

	c, err := client.New(client.Config{
		BaseURL:        cfg.Environment.URL,
		Username:       cfg.Environment.Username,
		Password:       cfg.Environment.Password,
		UserAgent:      cfg.Environment.UserAgent,
		Timeout:        cfg.Environment.Timeout,
		Redis:          a.redis,
		CacheTTL:       cfg.Client.CacheTTL,
		MaxRetries:     cfg.Client.MaxRetries,
		InitialBackoff: cfg.Client.InitialBackoff,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create xMatters client: %w", err)
	}
	a.client = c
	a.service = xmatters.NewService(c)

	a.log.Debug().Str("config", GetConfigFile()).Str("url", cfg.Environment.URL).Msg("Initialized")
	return a, nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	logging.Close()
}

// runJob runs one job with a fresh run ID, prints its summary and pushes metrics.
// Only errors that stop the job are returned; failed items are in the summary.
func (a *app) runJob(ctx context.Context, name string, opts jobs.Options) error {
	logger, runID := logging.ForRun(name)

	job, err := jobs.New(name, a.cfg, jobs.Deps{
		Service: a.service,
		Logger:  logger,
		Console: a.console,
	}, opts)
	if err != nil {
		return err
	}

	a.console.Infof("Running %s (run %s)", name, runID)
	rep, runErr := jobs.Execute(ctx, job, runID, logger)

	a.console.Table([]string{"action", "ok", "failed"}, rep.Summary())
	switch {
	case runErr != nil:
		a.console.Errorf("%s failed after %s: %v", name, rep.Duration.Round(time.Millisecond), runErr)
	case len(rep.Failed()) > 0 || len(rep.PageErrors) > 0:
		a.console.Warnf("%s finished in %s with %d failed items and %d failed pages",
			name, rep.Duration.Round(time.Millisecond), len(rep.Failed()), len(rep.PageErrors))
	default:
		a.console.Successf("%s finished in %s", name, rep.Duration.Round(time.Millisecond))
	}

	pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := metrics.Push(pushCtx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.JobName,
		map[string]string{"command": name}); err != nil {
		logger.Warn().Err(err).Msg("Failed to push metrics")
	}

	return runErr
}

// withApp wraps a command body with app setup, teardown and signal handling.
func withApp(fn func(ctx context.Context, a *app) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		a, err := newApp(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.close()

		return fn(ctx, a)
	}
}
