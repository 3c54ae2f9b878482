// Package config provides configuration structures and loading for xmsync.
package config

import "time"

// Config represents the complete application configuration.
type Config struct {
	Environment  EnvironmentConfig  `yaml:"environment" mapstructure:"environment"`
	Redis        RedisConfig        `yaml:"redis" mapstructure:"redis"`
	Client       ClientConfig       `yaml:"client" mapstructure:"client"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Devices      DevicesConfig      `yaml:"devices" mapstructure:"devices"`
	ImportUsers  ImportUsersConfig  `yaml:"import_users" mapstructure:"import_users"`
	DeviceFields DeviceFieldsConfig `yaml:"device_fields" mapstructure:"device_fields"`
	TeamRegions  TeamRegionsConfig  `yaml:"team_regions" mapstructure:"team_regions"`
	Responses    ResponsesConfig    `yaml:"responses" mapstructure:"responses"`
	Schedule     ScheduleConfig     `yaml:"schedule" mapstructure:"schedule"`
}

// EnvironmentConfig identifies the xMatters instance and its integration user.
type EnvironmentConfig struct {
	URL       string        `yaml:"url" mapstructure:"url"`
	Username  string        `yaml:"username" mapstructure:"username"`
	Password  string        `yaml:"password" mapstructure:"password"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RedisConfig is optional; an empty Addr disables caching and shared rate limit state.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// ClientConfig tunes retries and the response cache.
type ClientConfig struct {
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	CacheTTL       time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
	Pretty      bool   `yaml:"pretty" mapstructure:"pretty"`
	FileName    string `yaml:"file_name" mapstructure:"file_name"`
	MaxBytes    int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
	BackUpCount int    `yaml:"back_up_count" mapstructure:"back_up_count"`
}

// MetricsConfig enables pushing run metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" mapstructure:"pushgateway_url"`
	JobName        string `yaml:"job_name" mapstructure:"job_name"`
}

// FetchConfig controls paging and the worker count of a job.
type FetchConfig struct {
	PageSize    int `yaml:"page_size" mapstructure:"page_size"`
	ThreadCount int `yaml:"thread_count" mapstructure:"thread_count"`
}

// FileConfig names a CSV file and its text encoding.
type FileConfig struct {
	FileName string `yaml:"file_name" mapstructure:"file_name"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
}

// DevicesConfig configures the activate-devices job.
type DevicesConfig struct {
	FetchConfig `yaml:",inline" mapstructure:",squash"`
	DeviceType  string `yaml:"device_type" mapstructure:"device_type"`
	DryRun      bool   `yaml:"dry_run" mapstructure:"dry_run"`
}

// ImportUsersConfig configures the import-users job.
type ImportUsersConfig struct {
	FileConfig  `yaml:",inline" mapstructure:",squash"`
	ThreadCount int      `yaml:"thread_count" mapstructure:"thread_count"`
	Delimiter   string   `yaml:"delimiter" mapstructure:"delimiter"`
	IDColumn    string   `yaml:"id_column" mapstructure:"id_column"`
	Language    string   `yaml:"language" mapstructure:"language"`
	Timezone    string   `yaml:"timezone" mapstructure:"timezone"`
	Roles       []string `yaml:"roles" mapstructure:"roles"`
	Site        string   `yaml:"site" mapstructure:"site"`
	Supervisors []string `yaml:"supervisors" mapstructure:"supervisors"`
}

// DeviceFieldsConfig configures the device-fields job.
type DeviceFieldsConfig struct {
	FetchConfig `yaml:",inline" mapstructure:",squash"`
	FileConfig  `yaml:",inline" mapstructure:",squash"`
	// VoiceDeviceNames are the VOICE device names that count as a voice device.
	VoiceDeviceNames []string `yaml:"voice_device_names" mapstructure:"voice_device_names"`
	// CustomFields are the mobile app, SMS and voice properties, in that order.
	CustomFields []string `yaml:"custom_fields" mapstructure:"custom_fields"`
}

// TeamRegionsConfig configures the team-regions job.
type TeamRegionsConfig struct {
	FetchConfig  `yaml:",inline" mapstructure:",squash"`
	RulesFile    string `yaml:"rules_file" mapstructure:"rules_file"`
	Encoding     string `yaml:"encoding" mapstructure:"encoding"`
	Delimiter    string `yaml:"delimiter" mapstructure:"delimiter"`
	RegionField  string `yaml:"region_field" mapstructure:"region_field"`
	ApplyUpdates bool   `yaml:"apply_updates" mapstructure:"apply_updates"`
}

// ResponsesConfig configures the responses job.
type ResponsesConfig struct {
	FetchConfig    `yaml:",inline" mapstructure:",squash"`
	FileConfig     `yaml:",inline" mapstructure:",squash"`
	DetailFileName string `yaml:"detail_file_name" mapstructure:"detail_file_name"`
	PropertyName   string `yaml:"property_name" mapstructure:"property_name"`
	PropertyValue  string `yaml:"property_value" mapstructure:"property_value"`
}

// ScheduledJob runs a job on a cron expression.
type ScheduledJob struct {
	Job  string `yaml:"job" mapstructure:"job"`
	Spec string `yaml:"spec" mapstructure:"spec"`
}

// ScheduleConfig lists the jobs run by the schedule command.
type ScheduleConfig struct {
	Jobs []ScheduledJob `yaml:"jobs" mapstructure:"jobs"`
}

// Job names accepted by the schedule section.
const (
	JobActivateDevices = "activate-devices"
	JobImportUsers     = "import-users"
	JobDeviceFields    = "device-fields"
	JobTeamRegions     = "team-regions"
	JobResponses       = "responses"
)

// JobNames lists every runnable job.
var JobNames = []string{JobActivateDevices, JobImportUsers, JobDeviceFields, JobTeamRegions, JobResponses}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	fetch := FetchConfig{PageSize: 100, ThreadCount: 4}
	return &Config{
		Environment: EnvironmentConfig{
			UserAgent: "xmatters-sync/0.1.0",
			Timeout:   30 * time.Second,
		},
		Client: ClientConfig{
			MaxRetries:     3,
			InitialBackoff: time.Second,
			CacheTTL:       10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:       "info",
			MaxBytes:    10 << 20,
			BackUpCount: 5,
		},
		Metrics: MetricsConfig{
			JobName: "xmsync",
		},
		Devices: DevicesConfig{
			FetchConfig: fetch,
			DeviceType:  "EMAIL",
		},
		ImportUsers: ImportUsersConfig{
			FileConfig:  FileConfig{Encoding: "utf-8"},
			ThreadCount: 4,
			Delimiter:   ",",
			IDColumn:    "id",
			Language:    "en",
			Timezone:    "US/Pacific",
			Roles:       []string{"Standard User"},
		},
		DeviceFields: DeviceFieldsConfig{
			FetchConfig:  fetch,
			FileConfig:   FileConfig{FileName: "dt_custom_fields.csv", Encoding: "utf-8"},
			CustomFields: []string{"has_mobile_app", "has_sms", "has_voice"},
		},
		TeamRegions: TeamRegionsConfig{
			FetchConfig: fetch,
			Encoding:    "utf-8",
			Delimiter:   ";",
			RegionField: "dt_region",
		},
		Responses: ResponsesConfig{
			FetchConfig:    fetch,
			FileConfig:     FileConfig{FileName: "responses.csv", Encoding: "utf-8"},
			DetailFileName: "responses_detail.csv",
			PropertyName:   "response_report",
			PropertyValue:  "true",
		},
	}
}

// ApplyOverrides applies CLI flag overrides. Only non-zero values are applied.
func (c *Config) ApplyOverrides(logLevel string, threads int) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if threads > 0 {
		c.Devices.ThreadCount = threads
		c.ImportUsers.ThreadCount = threads
		c.DeviceFields.ThreadCount = threads
		c.TeamRegions.ThreadCount = threads
		c.Responses.ThreadCount = threads
	}
}
