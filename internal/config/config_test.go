package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadLayered_CLIOverridesEverything(t *testing.T) {
	embedded := []byte("server:\n  url: \"https://embedded.example.com\"\n  machine_token: \"embedded_token\"")
	t.Setenv("ROSNODE_AGENT_SERVER_URL", "https://env.example.com")
	cli := CLIOverrides{URL: "https://cli.example.com", Token: "cli_token"}

	cfg, err := LoadLayered(cli, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "https://cli.example.com" {
		t.Errorf("URL = %q, want CLI override", cfg.Server.URL)
	}
	if cfg.Server.MachineToken != "cli_token" {
		t.Errorf("Token = %q, want CLI override", cfg.Server.MachineToken)
	}
}

func TestLoadLayered_EnvOverridesEmbed(t *testing.T) {
	embedded := []byte("server:\n  url: \"https://embedded.example.com\"\n  machine_token: \"embedded_token\"")
	t.Setenv("ROSNODE_AGENT_SERVER_URL", "https://env.example.com")

	cfg, err := LoadLayered(CLIOverrides{}, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "https://env.example.com" {
		t.Errorf("URL = %q, want env override", cfg.Server.URL)
	}
	if cfg.Server.MachineToken != "embedded_token" {
		t.Errorf("Token = %q, want embedded value", cfg.Server.MachineToken)
	}
}

func TestLoadLayered_DefaultsWhenEmpty(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Collection.UpdateEvery.Duration != time.Second {
		t.Errorf("UpdateEvery = %v, want 1s default", cfg.Collection.UpdateEvery.Duration)
	}
	if cfg.Rosnode.Priority != 90000 {
		t.Errorf("Priority = %d, want 90000", cfg.Rosnode.Priority)
	}
	if cfg.Rosnode.Retries != 60 {
		t.Errorf("Retries = %d, want 60", cfg.Rosnode.Retries)
	}
	if cfg.Rosnode.ListCommand != "rosnode list" || cfg.Rosnode.InfoCommand != "rosnode info" {
		t.Errorf("commands = %q, %q", cfg.Rosnode.ListCommand, cfg.Rosnode.InfoCommand)
	}
	if cfg.Rosnode.CommandTimeout.Duration != 4*time.Second || cfg.Collection.CycleTimeout.Duration != 10*time.Second {
		t.Errorf("timeouts = %v command, %v cycle", cfg.Rosnode.CommandTimeout.Duration, cfg.Collection.CycleTimeout.Duration)
	}
}

func TestLoadLayered_FileOverridesEmbed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	data := []byte(`
collection:
  update_every: 4s
rosnode:
  priority: 100
  retries: 5
  info_command: "rosnode info --quiet"
  command_timeout: 2s
sink:
  kind: kafka
  kafka:
    brokers: ["k1:9092", "k2:9092"]
`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLayered(CLIOverrides{}, []byte("rosnode:\n  priority: 7\n"), path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Collection.UpdateEvery.Duration != 4*time.Second {
		t.Errorf("UpdateEvery = %v, want 4s", cfg.Collection.UpdateEvery.Duration)
	}
	if cfg.Rosnode.Priority != 100 || cfg.Rosnode.Retries != 5 {
		t.Errorf("job = %+v, want priority 100 retries 5", cfg.Rosnode.JobConfig)
	}
	if cfg.Rosnode.InfoCommand != "rosnode info --quiet" {
		t.Errorf("InfoCommand = %q", cfg.Rosnode.InfoCommand)
	}
	if cfg.Rosnode.ListCommand != "rosnode list" {
		t.Errorf("ListCommand = %q, want default kept", cfg.Rosnode.ListCommand)
	}
	if cfg.Rosnode.CommandTimeout.Duration != 2*time.Second {
		t.Errorf("CommandTimeout = %v", cfg.Rosnode.CommandTimeout.Duration)
	}
	if cfg.Sink.Kind != SinkKafka || len(cfg.Sink.Kafka.Brokers) != 2 {
		t.Errorf("sink = %+v", cfg.Sink)
	}
	if cfg.Sink.Kafka.Topic != "rosnode-metrics" {
		t.Errorf("Topic = %q, want default kept", cfg.Sink.Kafka.Topic)
	}
}

func TestLoadLayered_InvalidDuration(t *testing.T) {
	_, err := LoadLayered(CLIOverrides{}, []byte("collection:\n  update_every: soon\n"), "")
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with token", func(c *Config) { c.Server.MachineToken = "tok" }, false},
		{"missing token", func(c *Config) {}, true},
		{"plain http remote", func(c *Config) {
			c.Server.MachineToken = "tok"
			c.Server.URL = "http://metrics.example.com"
		}, true},
		{"https remote", func(c *Config) {
			c.Server.MachineToken = "tok"
			c.Server.URL = "https://metrics.example.com"
		}, false},
		{"empty list command", func(c *Config) {
			c.Server.MachineToken = "tok"
			c.Rosnode.ListCommand = "  "
		}, true},
		{"zero interval", func(c *Config) {
			c.Server.MachineToken = "tok"
			c.Collection.UpdateEvery = Duration{}
		}, true},
		{"kafka without brokers", func(c *Config) { c.Sink.Kind = SinkKafka }, true},
		{"kafka with brokers", func(c *Config) {
			c.Sink.Kind = SinkKafka
			c.Sink.Kafka.Brokers = []string{"localhost:9092"}
		}, false},
		{"unknown sink", func(c *Config) { c.Sink.Kind = "carrier-pigeon" }, true},
		{"cycle shorter than both commands", func(c *Config) {
			c.Server.MachineToken = "tok"
			c.Rosnode.CommandTimeout = Duration{5 * time.Second}
			c.Collection.CycleTimeout = Duration{10 * time.Second}
		}, true},
		{"cycle equal to one command", func(c *Config) {
			c.Server.MachineToken = "tok"
			c.Rosnode.CommandTimeout = Duration{time.Second}
			c.Collection.CycleTimeout = Duration{time.Second}
		}, true},
		{"cycle covers both commands", func(c *Config) {
			c.Server.MachineToken = "tok"
			c.Rosnode.CommandTimeout = Duration{2 * time.Second}
			c.Collection.CycleTimeout = Duration{5 * time.Second}
		}, false},
		{"no cycle timeout", func(c *Config) {
			c.Server.MachineToken = "tok"
			c.Rosnode.CommandTimeout = Duration{time.Minute}
			c.Collection.CycleTimeout = Duration{}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
