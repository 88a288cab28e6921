//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-dwh.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// LegacyConfigFile is the INI file of the Python pipeline scripts.
const LegacyConfigFile = "dwh.cfg"

// Config holds all configuration for pgedge-dwh.
type Config struct {
	// Cluster holds the warehouse connection settings.
	Cluster ClusterConfig `mapstructure:"cluster"`

	// S3 holds the object-storage locations of the raw data.
	S3 S3Config `mapstructure:"s3"`

	// IAM holds the role used by the bulk copies.
	IAM IAMConfig `mapstructure:"iam"`

	// Schema controls how tables are rendered.
	Schema SchemaConfig `mapstructure:"schema"`

	// Load holds configuration for the load subcommand.
	Load LoadConfig `mapstructure:"load"`

	// Seed holds configuration for the seed subcommand.
	Seed SeedConfig `mapstructure:"seed"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogFormat selects console or json log output.
	LogFormat string `mapstructure:"log_format"`
}

// ClusterConfig holds the CLUSTER section.
type ClusterConfig struct {
	Host     string `mapstructure:"host"`
	DBName   string `mapstructure:"dbname"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Port     int    `mapstructure:"port"`

	// SSLMode is passed through to the driver (disable, prefer, require, ...).
	SSLMode string `mapstructure:"sslmode"`
}

// S3Config holds the S3 section.
type S3Config struct {
	// LogData is the prefix of the event log files.
	LogData string `mapstructure:"log_data"`

	// LogDataJSON is the JSONPaths file describing the event logs.
	LogDataJSON string `mapstructure:"log_data_json"`

	// SongData is the prefix of the song catalog files.
	SongData string `mapstructure:"song_data"`

	// Region is the region of the bucket.
	Region string `mapstructure:"region"`
}

// IAMConfig holds the IAM section.
type IAMConfig struct {
	ARN string `mapstructure:"arn"`
}

// SchemaConfig holds the SCHEMA section.
type SchemaConfig struct {
	// Dialect is redshift or postgres.
	Dialect string `mapstructure:"dialect"`
}

// LoadConfig holds configuration for the load subcommand.
type LoadConfig struct {
	// FixArtistDedup excludes already loaded artists by artist_id instead
	// of the historical artist_name comparison.
	FixArtistDedup bool `mapstructure:"fix_artist_dedup"`

	// CheckSources verifies the S3 locations before copying.
	CheckSources bool `mapstructure:"check_sources"`
}

// SeedConfig holds configuration for the seed subcommand.
type SeedConfig struct {
	Users   int `mapstructure:"users"`
	Artists int `mapstructure:"artists"`
	Songs   int `mapstructure:"songs"`
	Events  int `mapstructure:"events"`

	// RandomSeed makes generation reproducible when non-zero.
	RandomSeed uint64 `mapstructure:"random_seed"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Cluster: ClusterConfig{
			Port:    5439,
			SSLMode: "prefer",
		},
		S3: S3Config{
			Region: warehouse.DefaultRegion,
		},
		Schema: SchemaConfig{
			Dialect: string(warehouse.DialectRedshift),
		},
		Seed: SeedConfig{
			Users:   50,
			Artists: 40,
			Songs:   120,
			Events:  2000,
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./dwh.cfg
// 3. ./pgedge-dwh.yaml
// 4. ~/.config/pgedge-dwh/pgedge-dwh.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	legacy := ""
	switch {
	case configFile != "":
		if strings.EqualFold(filepath.Ext(configFile), ".cfg") {
			legacy = configFile
		} else {
			v.SetConfigFile(configFile)
		}
	case fileExists(LegacyConfigFile):
		legacy = LegacyConfigFile
	default:
		v.SetConfigName("pgedge-dwh")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pgedge-dwh"))
		}
	}

	if legacy != "" {
		values, err := readINI(legacy)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := v.MergeConfigMap(values); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else if err := v.ReadInConfig(); err != nil {
		// Read config file (ignore if not found)
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Start with defaults
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// normalize strips the quotes the legacy INI file wraps S3 values in.
func (c *Config) normalize() {
	c.S3.LogData = unquote(c.S3.LogData)
	c.S3.LogDataJSON = unquote(c.S3.LogDataJSON)
	c.S3.SongData = unquote(c.S3.SongData)
	c.S3.Region = unquote(c.S3.Region)
	c.IAM.ARN = unquote(c.IAM.ARN)
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Dialect returns the configured schema dialect.
func (c *Config) Dialect() (warehouse.Dialect, error) {
	return warehouse.ParseDialect(c.Schema.Dialect)
}

// Sources returns the bulk-copy inputs described by the S3 and IAM sections.
func (c *Config) Sources() warehouse.Sources {
	return warehouse.Sources{
		LogData:      c.S3.LogData,
		LogJSONPaths: c.S3.LogDataJSON,
		SongData:     c.S3.SongData,
		RoleARN:      c.IAM.ARN,
		Region:       c.S3.Region,
	}
}

// Validate checks that the connection settings are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Cluster.Host == "" {
		missing = append(missing, "cluster.host")
	}
	if c.Cluster.DBName == "" {
		missing = append(missing, "cluster.dbname")
	}
	if c.Cluster.User == "" {
		missing = append(missing, "cluster.user")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Cluster.Port < 1 || c.Cluster.Port > 65535 {
		return fmt.Errorf("cluster.port must be between 1 and 65535")
	}
	if _, err := c.Dialect(); err != nil {
		return err
	}
	return nil
}

// ValidateProvision checks configuration required for the provision command.
func (c *Config) ValidateProvision() error {
	return c.Validate()
}

// ValidateLoad checks configuration required for the load command.
// Copy sources are only required when the copy step runs.
func (c *Config) ValidateLoad(skipCopy bool) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if skipCopy {
		return nil
	}
	dialect, _ := c.Dialect()
	if dialect != warehouse.DialectRedshift {
		return fmt.Errorf("the %s dialect cannot copy from S3; use --skip-copy", dialect)
	}
	return c.Sources().Validate()
}

// ValidateSeed checks configuration required for the seed command. Staging
// data is written with COPY FROM STDIN, which Redshift does not accept.
func (c *Config) ValidateSeed() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if dialect, _ := c.Dialect(); dialect != warehouse.DialectPostgres {
		return fmt.Errorf("seed requires the postgres dialect, got %s", dialect)
	}
	if c.Seed.Events < 0 {
		return fmt.Errorf("seed.events must not be negative")
	}
	return nil
}
