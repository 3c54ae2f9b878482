package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/Sternrassler/xmatters-sync/internal/charset"
	"github.com/robfig/cron/v3"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the settings every job needs.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Environment.URL == "" {
		errs = append(errs, ValidationError{Field: "environment.url", Message: "is required"})
	} else if u, err := url.Parse(c.Environment.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{Field: "environment.url", Message: fmt.Sprintf("invalid url %q", c.Environment.URL)})
	}
	if c.Environment.Username == "" {
		errs = append(errs, ValidationError{Field: "environment.username", Message: "is required"})
	}
	if c.Environment.Password == "" {
		errs = append(errs, ValidationError{Field: "environment.password", Message: "is required"})
	}
	if c.Environment.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "environment.timeout", Message: "must be positive"})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)})
	}

	if c.Client.MaxRetries < 1 {
		errs = append(errs, ValidationError{Field: "client.max_retries", Message: "must be at least 1"})
	}
	if c.Client.CacheTTL < 0 {
		errs = append(errs, ValidationError{Field: "client.cache_ttl", Message: "must not be negative"})
	}

	for i, s := range c.Schedule.Jobs {
		field := fmt.Sprintf("schedule.jobs[%d]", i)
		if !slices.Contains(JobNames, s.Job) {
			errs = append(errs, ValidationError{Field: field + ".job", Message: fmt.Sprintf("unknown job %q", s.Job)})
		}
		if _, err := cron.ParseStandard(s.Spec); err != nil {
			errs = append(errs, ValidationError{Field: field + ".spec", Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateJob checks the section of one job.
func (c *Config) ValidateJob(name string) error {
	var errs ValidationErrors

	switch name {
	case JobActivateDevices:
		errs = append(errs, validateFetch("devices", c.Devices.FetchConfig)...)
		if c.Devices.DeviceType == "" {
			errs = append(errs, ValidationError{Field: "devices.device_type", Message: "is required"})
		}
	case JobImportUsers:
		errs = append(errs, validateFile("import_users", c.ImportUsers.FileConfig)...)
		if c.ImportUsers.ThreadCount < 1 {
			errs = append(errs, ValidationError{Field: "import_users.thread_count", Message: "must be at least 1"})
		}
		if len(c.ImportUsers.Delimiter) != 1 {
			errs = append(errs, ValidationError{Field: "import_users.delimiter", Message: "must be a single character"})
		}
		if c.ImportUsers.IDColumn == "" {
			errs = append(errs, ValidationError{Field: "import_users.id_column", Message: "is required"})
		}
	case JobDeviceFields:
		errs = append(errs, validateFetch("device_fields", c.DeviceFields.FetchConfig)...)
		errs = append(errs, validateFile("device_fields", c.DeviceFields.FileConfig)...)
		if len(c.DeviceFields.CustomFields) != 3 {
			errs = append(errs, ValidationError{
				Field:   "device_fields.custom_fields",
				Message: fmt.Sprintf("must name exactly 3 fields (mobile app, sms, voice), got %d", len(c.DeviceFields.CustomFields)),
			})
		}
	case JobTeamRegions:
		errs = append(errs, validateFetch("team_regions", c.TeamRegions.FetchConfig)...)
		errs = append(errs, validateFile("team_regions", FileConfig{FileName: c.TeamRegions.RulesFile, Encoding: c.TeamRegions.Encoding})...)
		if len(c.TeamRegions.Delimiter) != 1 {
			errs = append(errs, ValidationError{Field: "team_regions.delimiter", Message: "must be a single character"})
		}
		if c.TeamRegions.RegionField == "" {
			errs = append(errs, ValidationError{Field: "team_regions.region_field", Message: "is required"})
		}
	case JobResponses:
		errs = append(errs, validateFetch("responses", c.Responses.FetchConfig)...)
		errs = append(errs, validateFile("responses", c.Responses.FileConfig)...)
		if c.Responses.DetailFileName == "" {
			errs = append(errs, ValidationError{Field: "responses.detail_file_name", Message: "is required"})
		}
		if c.Responses.PropertyName == "" {
			errs = append(errs, ValidationError{Field: "responses.property_name", Message: "is required"})
		}
	default:
		return fmt.Errorf("unknown job %q", name)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateFetch(section string, f FetchConfig) ValidationErrors {
	var errs ValidationErrors
	if f.PageSize < 1 {
		errs = append(errs, ValidationError{Field: section + ".page_size", Message: "must be at least 1"})
	}
	if f.ThreadCount < 1 {
		errs = append(errs, ValidationError{Field: section + ".thread_count", Message: "must be at least 1"})
	}
	return errs
}

func validateFile(section string, f FileConfig) ValidationErrors {
	var errs ValidationErrors
	if f.FileName == "" {
		errs = append(errs, ValidationError{Field: section + ".file_name", Message: "is required"})
	}
	if _, err := charset.Lookup(f.Encoding); err != nil {
		errs = append(errs, ValidationError{Field: section + ".encoding", Message: err.Error()})
	}
	return errs
}
