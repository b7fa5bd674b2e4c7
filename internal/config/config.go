// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file >
// embedded config > defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sink kinds.
const (
	SinkHTTP  = "http"
	SinkKafka = "kafka"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "1s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// Config holds all agent configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Collection CollectionConfig `yaml:"collection"`
	Rosnode    RosnodeConfig    `yaml:"rosnode"`
	Sink       SinkConfig       `yaml:"sink"`
	Buffer     BufferConfig     `yaml:"buffer"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds API server connection settings.
type ServerConfig struct {
	URL          string `yaml:"url"`
	MachineToken string `yaml:"machine_token"`
}

// CollectionConfig holds scheduler settings.
type CollectionConfig struct {
	UpdateEvery   Duration `yaml:"update_every"`
	BatchInterval Duration `yaml:"batch_interval"`
	CycleTimeout  Duration `yaml:"cycle_timeout"`
}

// JobConfig holds the scheduling options every collector job carries.
type JobConfig struct {
	// Priority orders jobs and their charts; lower runs and renders first.
	Priority int `yaml:"priority"`
	// Retries is the number of consecutive failed cycles tolerated before
	// the job is disabled. Zero or less never disables.
	Retries int `yaml:"retries"`
}

// RosnodeConfig holds the rosnode discovery job settings.
type RosnodeConfig struct {
	JobConfig      `yaml:",inline"`
	ListCommand    string   `yaml:"list_command"`
	InfoCommand    string   `yaml:"info_command"`
	CommandTimeout Duration `yaml:"command_timeout"`
}

// SinkConfig selects where batches are delivered.
type SinkConfig struct {
	Kind  string      `yaml:"kind"`
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	BatchSize    int      `yaml:"batch_size"`
	BatchTimeout Duration `yaml:"batch_timeout"`
}

// BufferConfig holds local file buffer settings.
type BufferConfig struct {
	MaxSizeMB int    `yaml:"max_size_mb"`
	Dir       string `yaml:"dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

const (
	// rosnodeStages is the number of commands one rosnode cycle may run.
	rosnodeStages = 2
	// commandSlack covers process reaping after each command timeout.
	commandSlack = time.Second
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL: "http://localhost:3000",
		},
		Collection: CollectionConfig{
			UpdateEvery:   Duration{1 * time.Second},
			BatchInterval: Duration{30 * time.Second},
			CycleTimeout:  Duration{10 * time.Second},
		},
		Rosnode: RosnodeConfig{
			JobConfig: JobConfig{
				Priority: 90000,
				Retries:  60,
			},
			ListCommand:    "rosnode list",
			InfoCommand:    "rosnode info",
			CommandTimeout: Duration{4 * time.Second},
		},
		Sink: SinkConfig{
			Kind: SinkHTTP,
			Kafka: KafkaConfig{
				Topic:        "rosnode-metrics",
				BatchSize:    100,
				BatchTimeout: Duration{1 * time.Second},
			},
		},
		Buffer: BufferConfig{
			MaxSizeMB: 50,
			Dir:       "./buffer",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "./agent.log",
		},
	}
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	return LoadLayered(CLIOverrides{}, nil, path)
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	URL   string
	Token string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cli.URL != "" {
		cfg.Server.URL = cli.URL
	}
	if cli.Token != "" {
		cfg.Server.MachineToken = cli.Token
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("ROSNODE_AGENT_SERVER_URL"); url != "" {
		cfg.Server.URL = url
	}
	if token := os.Getenv("ROSNODE_AGENT_MACHINE_TOKEN"); token != "" {
		cfg.Server.MachineToken = token
	}
	if level := os.Getenv("ROSNODE_AGENT_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if brokers := os.Getenv("ROSNODE_AGENT_KAFKA_BROKERS"); brokers != "" {
		cfg.Sink.Kafka.Brokers = strings.Split(brokers, ",")
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Collection.UpdateEvery.Duration <= 0 {
		return fmt.Errorf("collection.update_every must be positive")
	}
	if c.Collection.BatchInterval.Duration <= 0 {
		return fmt.Errorf("collection.batch_interval must be positive")
	}
	if strings.TrimSpace(c.Rosnode.ListCommand) == "" {
		return fmt.Errorf("rosnode.list_command is required")
	}
	if strings.TrimSpace(c.Rosnode.InfoCommand) == "" {
		return fmt.Errorf("rosnode.info_command is required")
	}
	if cycle := c.Collection.CycleTimeout.Duration; cycle > 0 {
		need := rosnodeStages*c.Rosnode.CommandTimeout.Duration + commandSlack
		if cycle < need {
			return fmt.Errorf("collection.cycle_timeout %s is too short for %d rosnode commands of %s (need at least %s)",
				cycle, rosnodeStages, c.Rosnode.CommandTimeout.Duration, need)
		}
	}

	switch c.Sink.Kind {
	case SinkHTTP:
		return c.validateServer()
	case SinkKafka:
		if len(c.Sink.Kafka.Brokers) == 0 {
			return fmt.Errorf("sink.kafka.brokers is required")
		}
		if c.Sink.Kafka.Topic == "" {
			return fmt.Errorf("sink.kafka.topic is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}
}

// validateServer requires a token and HTTPS for anything but localhost.
func (c *Config) validateServer() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.Server.MachineToken == "" {
		return fmt.Errorf("machine token is required")
	}
	if !strings.HasPrefix(c.Server.URL, "https://") {
		if !strings.Contains(c.Server.URL, "localhost") && !strings.Contains(c.Server.URL, "127.0.0.1") {
			return fmt.Errorf("server URL must use HTTPS (got: %s)", c.Server.URL)
		}
	}
	return nil
}
