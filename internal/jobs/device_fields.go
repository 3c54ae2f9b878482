package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/report"
	"github.com/Sternrassler/xmatters-sync/internal/xmatters"
	"github.com/Sternrassler/xmatters-sync/pkg/pagination"
)

// ErrMalformedRecord marks a listed record that lacks required fields.
var ErrMalformedRecord = errors.New("malformed record")

// DeviceFieldsHeader is the header of the device fields CSV.
var DeviceFieldsHeader = []string{"targetName", "has_mobile_app", "has_sms", "has_voice", "timestamp"}

// DeviceFlags tells which kinds of devices a person has.
type DeviceFlags struct {
	MobileApp bool
	SMS       bool
	Voice     bool
}

// FlagsFor inspects the devices of an active person. VOICE devices only count
// when their name is in voiceNames.
func FlagsFor(p xmatters.Person, voiceNames map[string]bool) DeviceFlags {
	var f DeviceFlags
	if p.Status != xmatters.StatusActive || p.Devices == nil {
		return f
	}
	for _, d := range p.Devices.Data {
		switch d.DeviceType {
		case xmatters.DeviceTypeAndroidPush, xmatters.DeviceTypeApplePush:
			f.MobileApp = true
		case xmatters.DeviceTypeTextPhone:
			f.SMS = true
		case xmatters.DeviceTypeVoice:
			if voiceNames[d.Name] {
				f.Voice = true
			}
		}
	}
	return f
}

func (f DeviceFlags) values() []bool {
	return []bool{f.MobileApp, f.SMS, f.Voice}
}

// DeviceFields maintains three boolean custom fields that tell whether a person
// has a mobile app, SMS or voice device, and writes a CSV of the computed values.
type DeviceFields struct {
	cfg  config.DeviceFieldsConfig
	deps Deps
}

// NewDeviceFields creates the device-fields job.
func NewDeviceFields(cfg config.DeviceFieldsConfig, deps Deps) *DeviceFields {
	return &DeviceFields{cfg: cfg, deps: deps}
}

// Name implements Job.
func (j *DeviceFields) Name() string { return config.JobDeviceFields }

// Run implements Job.
func (j *DeviceFields) Run(ctx context.Context) (*Report, error) {
	log := j.deps.Logger
	rep := newReport(j.Name(), j.deps.now())

	if len(j.cfg.CustomFields) != 3 {
		return rep, fmt.Errorf("need 3 custom fields, got %d", len(j.cfg.CustomFields))
	}

	base := url.Values{
		"status": []string{xmatters.StatusActive},
		"embed":  []string{"devices"},
	}
	res, err := pagination.FetchAll(ctx, j.deps.Service.ListPeople, j.cfg.PageSize, base, j.cfg.ThreadCount)
	if err != nil {
		return rep, fmt.Errorf("list active people: %w", err)
	}
	recordPages(rep, res)
	log.Info().Int("people", len(res.Records)).Int("failed_pages", len(res.Errors)).Msg("Retrieved people")

	voiceNames := make(map[string]bool, len(j.cfg.VoiceDeviceNames))
	for _, n := range j.cfg.VoiceDeviceNames {
		voiceNames[n] = true
	}
	log.Debug().Strs("voice_device_names", j.cfg.VoiceDeviceNames).Strs("custom_fields", j.cfg.CustomFields).Msg("Device field settings")

	out, err := report.Create(j.cfg.FileName, DeviceFieldsHeader, report.Options{Encoding: j.cfg.Encoding})
	if err != nil {
		return rep, fmt.Errorf("device fields report: %w", err)
	}

	today := j.deps.now().Format(time.DateOnly)
	var updates []xmatters.PersonUpdate
	for _, p := range res.Records {
		if p.ID == "" || p.TargetName == "" {
			key := p.TargetName
			if key == "" {
				key = p.ID
			}
			log.Warn().Str("id", p.ID).Str("target_name", p.TargetName).Msg("Skipping person without id or targetName")
			rep.add(key, ActionSkip, ErrMalformedRecord)
			continue
		}

		flags := FlagsFor(p, voiceNames)
		log.Debug().
			Str("target_name", p.TargetName).
			Bool("has_mobile_app", flags.MobileApp).
			Bool("has_sms", flags.SMS).
			Bool("has_voice", flags.Voice).
			Msg("Computed device flags")

		row := []string{p.TargetName, report.Bool(flags.MobileApp), report.Bool(flags.SMS), report.Bool(flags.Voice), today}
		if err := out.Write(row); err != nil {
			log.Error().Err(err).Str("target_name", p.TargetName).Msg("Failed to write device fields row")
			rep.add(p.TargetName, ActionWrite, err)
		}

		if !j.changed(p.Properties, flags) {
			rep.add(p.TargetName, ActionUnchanged, nil)
			continue
		}

		log.Debug().Str("target_name", p.TargetName).Msg("Devices changed, queueing update")
		props := make(xmatters.Properties, 3)
		for i, v := range flags.values() {
			props[j.cfg.CustomFields[i]] = v
		}
		updates = append(updates, xmatters.PersonUpdate{ID: p.ID, TargetName: p.TargetName, Properties: props})
	}

	if err := out.Close(); err != nil {
		log.Error().Err(err).Str("file", j.cfg.FileName).Msg("Failed to close device fields report")
		rep.add(j.cfg.FileName, ActionWrite, err)
	}

	log.Info().Int("updates", len(updates)).Msg("Number of requests for update")

	writeAll(ctx, rep, log, ActionUpdate, j.cfg.ThreadCount, updates,
		func(u xmatters.PersonUpdate) string { return u.TargetName },
		func(ctx context.Context, u xmatters.PersonUpdate) (*xmatters.Person, error) {
			return j.deps.Service.ModifyPerson(ctx, u)
		})

	j.deps.console().Successf("Updated %d people, %d unchanged (%d failed)",
		rep.Count(ActionUpdate), rep.Count(ActionUnchanged), len(rep.Failed()))
	return rep, nil
}

// changed reports whether any custom field differs from flags. A missing or
// non-boolean property counts as different.
func (j *DeviceFields) changed(props xmatters.Properties, flags DeviceFlags) bool {
	for i, want := range flags.values() {
		got, ok := props[j.cfg.CustomFields[i]].(bool)
		if !ok || got != want {
			return true
		}
	}
	return false
}
