/*
Package config loads server configuration from a YAML file with
flag-friendly defaults.

PURPOSE:
  Keeps deployment knobs (port, database path, timeouts, seeding) out of
  the binary. Flags in cmd/server override whatever the file says, so a
  config file is optional for local development.

FILE FORMAT (config.yaml):

  port: 8080
  db_path: "./data/leave.db"
  read_timeout: 15s
  write_timeout: 15s
  shutdown_timeout: 30s
  seed_demo_data: false

SEE ALSO:
  - cmd/server/main.go: Flag handling and precedence
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "15s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds the server's deployment settings.
type Config struct {
	Port            int      `yaml:"port"`
	DBPath          string   `yaml:"db_path"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	SeedDemoData    bool     `yaml:"seed_demo_data"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Port:            8080,
		DBPath:          "leave.db",
		ReadTimeout:     Duration(15 * time.Second),
		WriteTimeout:    Duration(15 * time.Second),
		ShutdownTimeout: Duration(30 * time.Second),
	}
}

// Load reads a YAML config file on top of the defaults. A missing file
// is not an error; it just returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}
