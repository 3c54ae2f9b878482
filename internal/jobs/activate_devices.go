package jobs

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
	"github.com/Sternrassler/xmatters-sync/pkg/pagination"
)

// ActivateDevices activates every inactive device of the configured type.
type ActivateDevices struct {
	cfg  config.DevicesConfig
	deps Deps
}

// NewActivateDevices creates the activate-devices job.
func NewActivateDevices(cfg config.DevicesConfig, deps Deps) *ActivateDevices {
	return &ActivateDevices{cfg: cfg, deps: deps}
}

// Name implements Job.
func (j *ActivateDevices) Name() string { return config.JobActivateDevices }

// Run implements Job.
func (j *ActivateDevices) Run(ctx context.Context) (*Report, error) {
	log := j.deps.Logger
	rep := newReport(j.Name(), j.deps.now())

	base := url.Values{
		"deviceStatus": []string{xmatters.StatusInactive},
		"deviceType":   []string{j.cfg.DeviceType},
	}
	res, err := pagination.FetchAll(ctx, j.deps.Service.ListDevices, j.cfg.PageSize, base, j.cfg.ThreadCount)
	if err != nil {
		return rep, fmt.Errorf("list inactive devices: %w", err)
	}
	recordPages(rep, res)

	log.Info().
		Int("devices", len(res.Records)).
		Int("failed_pages", len(res.Errors)).
		Str("device_type", j.cfg.DeviceType).
		Msg("Retrieved inactive devices")
	j.deps.console().Infof("Inactive %s devices: %d", j.cfg.DeviceType, len(res.Records))

	updates := make([]xmatters.DeviceUpdate, 0, len(res.Records))
	names := make(map[string]string, len(res.Records))
	for _, d := range res.Records {
		if d.ID == "" {
			rep.add(d.TargetName, ActionActivate, fmt.Errorf("device has no id"))
			continue
		}
		names[d.ID] = deviceKey(d)
		updates = append(updates, xmatters.DeviceUpdate{
			ID:         d.ID,
			DeviceType: d.DeviceType,
			Status:     xmatters.StatusActive,
		})
	}

	key := func(u xmatters.DeviceUpdate) string { return names[u.ID] }

	if j.cfg.DryRun {
		for _, u := range updates {
			log.Info().Str("device", key(u)).Msg("Dry run, device not activated")
			rep.add(key(u), ActionPlan, nil)
			j.deps.console().Infof("Would activate %s", key(u))
		}
		return rep, nil
	}

	writeAll(ctx, rep, log, ActionActivate, j.cfg.ThreadCount, updates, key,
		func(ctx context.Context, u xmatters.DeviceUpdate) (*xmatters.Device, error) {
			return j.deps.Service.ModifyDevice(ctx, u)
		})

	j.deps.console().Successf("Activated %d devices (%d failed)", rep.Count(ActionActivate), len(rep.Failed()))
	return rep, nil
}

func deviceKey(d xmatters.Device) string {
	if d.TargetName != "" {
		return d.TargetName
	}
	return d.ID
}
