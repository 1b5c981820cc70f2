/*
Package config loads runtime settings for the server and CLI.

PURPOSE:
  One place that knows the configuration keys, their defaults, and where
  values come from. Everything downstream receives a plain Config struct.

PRECEDENCE (highest first):
  1. Command-line flags bound by cmd/server
  2. Environment variables, PRODUCTIVITY_ prefix ("server.port" -> PRODUCTIVITY_SERVER_PORT)
  3. A .env file in the working directory
  4. The config file (--config, else ./productivity.yaml if present)
  5. Defaults below

KEYS:
  server.port               8080
  database.path             productivity.db  (":memory:" for throwaway runs)
  log.level                 info             (debug, info, warn, error)
  log.format                text             (text, json)
  cors.allowed_origins      http://localhost:5173,http://localhost:8080
  report.exclusion_prefixes TB,IF,HB         (fallback when no stored setting)
  report.top_n              5
  report.cohorts            JSON array, see factory/report.go

SEE ALSO:
  - logging.go: Builds the logrus logger from log.*
  - factory/report.go: Turns report.* into productivity.AggregateConfig
*/
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/warp/productivity-engine/factory"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "PRODUCTIVITY"

// Config is the resolved runtime configuration.
type Config struct {
	Port           int
	DatabasePath   string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
	Report         productivity.AggregateConfig
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "productivity.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cors.allowed_origins", "http://localhost:5173,http://localhost:8080")
	v.SetDefault("report.exclusion_prefixes", strings.Join(productivity.DefaultExclusionPrefixes, ","))
	v.SetDefault("report.top_n", factory.DefaultTopN)
	v.SetDefault("report.cohorts", "")
}

// NewViper returns a viper instance wired for defaults and environment
// overrides. A .env file is loaded into the process environment first;
// a missing .env is not an error.
func NewViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges a config file into v. With an empty path the working
// directory is searched for productivity.{yaml,json,toml}; not finding one
// is fine.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("productivity")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// FromViper resolves and validates a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:           v.GetInt("server.port"),
		DatabasePath:   v.GetString("database.path"),
		LogLevel:       v.GetString("log.level"),
		LogFormat:      v.GetString("log.format"),
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: server.port %d", generic.ErrInvalidConfig, cfg.Port)
	}
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return nil, fmt.Errorf("%w: database.path is empty", generic.ErrInvalidConfig)
	}

	topN := v.GetInt("report.top_n")
	rc := factory.ReportConfigJSON{
		ExclusionPrefixes: splitList(v.GetString("report.exclusion_prefixes")),
		TopN:              &topN,
	}
	f := factory.NewReportFactory()
	cohorts, err := f.ParseCohorts(v.GetString("report.cohorts"))
	if err != nil {
		return nil, err
	}
	report, err := f.Build(rc)
	if err != nil {
		return nil, err
	}
	report.Cohorts = cohorts
	cfg.Report = report
	return cfg, nil
}

// Load is NewViper + ReadFile + FromViper.
func Load(path string) (*Config, error) {
	v := NewViper()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// splitList splits a comma-separated value. Blank input gives an empty,
// non-nil list so "no prefixes" stays distinguishable from "unset".
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
