// Package config loads the collector configuration: a YAML file with
// flag overrides applied by the entrypoint.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rdlc/internal/constant"
)

// TableMask selects tables to catalog, SQL LIKE syntax over
// owner.name.
type TableMask struct {
	Mask    string `yaml:"mask"`
	Options uint64 `yaml:"options"`
}

type Config struct {
	Database string `yaml:"database"`

	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sid      string `yaml:"sid"`
	Remote   bool   `yaml:"remote"`

	CheckpointDir      string `yaml:"checkpoint-dir"`
	CheckpointInterval int    `yaml:"checkpoint-interval"` // seconds
	RedoReadSleep      int    `yaml:"redo-read-sleep"`     // microseconds
	ConnectTimeout     int    `yaml:"connect-timeout"`     // seconds

	// ArchiveDest, when set, is watched for newly sealed logs.
	ArchiveDest string `yaml:"archive-dest"`

	Tables []TableMask `yaml:"tables"`

	LogLevel string `yaml:"log-level"`
}

func Default() *Config {
	return &Config{
		CheckpointDir:      constant.StatePath,
		CheckpointInterval: int(constant.DefaultCheckpointInterval / time.Second),
		RedoReadSleep:      int(constant.DefaultRedoReadSleep / time.Microsecond),
		ConnectTimeout:     int(constant.DefaultConnectTimeout / time.Second),
		LogLevel:           "info",
	}
}

// Load overlays the YAML file at path onto the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) CheckpointEvery() time.Duration {
	return time.Duration(c.CheckpointInterval) * time.Second
}

func (c *Config) RedoSleep() time.Duration {
	return time.Duration(c.RedoReadSleep) * time.Microsecond
}

func (c *Config) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}
