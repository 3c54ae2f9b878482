package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Environment.URL = "https://acme.xmatters.com"
	cfg.Environment.Username = "user"
	cfg.Environment.Password = "pass"
	cfg.ImportUsers.FileName = "users.csv"
	cfg.TeamRegions.RulesFile = "teams.csv"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.Environment.URL = "" }, wantErr: "environment.url: is required"},
		{name: "relative url", mutate: func(c *Config) { c.Environment.URL = "acme" }, wantErr: `environment.url: invalid url "acme"`},
		{name: "missing password", mutate: func(c *Config) { c.Environment.Password = "" }, wantErr: "environment.password: is required"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: `logging.level: unknown level "loud"`},
		{name: "no retries", mutate: func(c *Config) { c.Client.MaxRetries = 0 }, wantErr: "client.max_retries"},
		{
			name: "unknown scheduled job",
			mutate: func(c *Config) {
				c.Schedule.Jobs = []ScheduledJob{{Job: "reboot", Spec: "@daily"}}
			},
			wantErr: `schedule.jobs[0].job: unknown job "reboot"`,
		},
		{
			name: "bad cron spec",
			mutate: func(c *Config) {
				c.Schedule.Jobs = []ScheduledJob{{Job: JobResponses, Spec: "every minute"}}
			},
			wantErr: "schedule.jobs[0].spec",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 3)
}

func TestValidateJob(t *testing.T) {
	tests := []struct {
		name    string
		job     string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "devices ok", job: JobActivateDevices, mutate: func(*Config) {}},
		{name: "devices zero page size", job: JobActivateDevices, mutate: func(c *Config) { c.Devices.PageSize = 0 }, wantErr: "devices.page_size"},
		{name: "import missing file", job: JobImportUsers, mutate: func(c *Config) { c.ImportUsers.FileName = "" }, wantErr: "import_users.file_name"},
		{name: "import bad encoding", job: JobImportUsers, mutate: func(c *Config) { c.ImportUsers.Encoding = "klingon" }, wantErr: "import_users.encoding"},
		{name: "fields need three", job: JobDeviceFields, mutate: func(c *Config) { c.DeviceFields.CustomFields = []string{"a"} }, wantErr: "exactly 3"},
		{name: "regions delimiter", job: JobTeamRegions, mutate: func(c *Config) { c.TeamRegions.Delimiter = ";;" }, wantErr: "team_regions.delimiter"},
		{name: "regions ok", job: JobTeamRegions, mutate: func(*Config) {}},
		{name: "responses missing detail", job: JobResponses, mutate: func(c *Config) { c.Responses.DetailFileName = "" }, wantErr: "responses.detail_file_name"},
		{name: "unknown job", job: "reboot", mutate: func(*Config) {}, wantErr: `unknown job "reboot"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateJob(tt.job)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
