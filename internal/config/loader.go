package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. XMSYNC_ENVIRONMENT_PASSWORD.
const EnvPrefix = "XMSYNC"

// envKeys can be overridden from the environment even when absent from the file.
var envKeys = []string{
	"environment.url",
	"environment.username",
	"environment.password",
	"redis.addr",
	"redis.password",
	"metrics.pushgateway_url",
	"logging.level",
}

// Load reads configuration from the specified file path.
// It supports YAML files, XMSYNC_* environment overrides and ${VAR} substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME}. A bare $ is literal, so passwords may contain one.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnvVars replaces ${VAR_NAME} patterns in credentials and paths.
func substituteEnvVars(cfg *Config) {
	cfg.Environment.URL = expandEnvVar(cfg.Environment.URL)
	cfg.Environment.Username = expandEnvVar(cfg.Environment.Username)
	cfg.Environment.Password = expandEnvVar(cfg.Environment.Password)

	cfg.Redis.Addr = expandEnvVar(cfg.Redis.Addr)
	cfg.Redis.Password = expandEnvVar(cfg.Redis.Password)

	cfg.Metrics.PushgatewayURL = expandEnvVar(cfg.Metrics.PushgatewayURL)

	cfg.Logging.FileName = expandEnvVar(cfg.Logging.FileName)
	cfg.ImportUsers.FileName = expandEnvVar(cfg.ImportUsers.FileName)
	cfg.DeviceFields.FileName = expandEnvVar(cfg.DeviceFields.FileName)
	cfg.TeamRegions.RulesFile = expandEnvVar(cfg.TeamRegions.RulesFile)
	cfg.Responses.FileName = expandEnvVar(cfg.Responses.FileName)
	cfg.Responses.DetailFileName = expandEnvVar(cfg.Responses.DetailFileName)
}

// expandEnvVar replaces ${VAR} with its value. Unset variables are left as written.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if value, exists := os.LookupEnv(match[2 : len(match)-1]); exists {
			return value
		}
		return match
	})
}
