package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Bus     BusConfig     `yaml:"bus"`
	Metrics MetricsConfig `yaml:"metrics"`
	Cursors CursorConfig  `yaml:"cursors"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// BusConfig tunes the message bus engine.
type BusConfig struct {
	Workers             int `yaml:"workers"`
	QueueDepth          int `yaml:"queue_depth"`
	StoreCapacity       int `yaml:"store_capacity"`
	MaxMessagesPerBatch int `yaml:"max_messages_per_batch"`
}

// MetricsConfig controls the observability HTTP endpoint.
type MetricsConfig struct {
	ListenAddr      string   `yaml:"listen_addr"`
	CollectInterval Duration `yaml:"collect_interval"`
}

// Duration parses Go duration strings ("15s", "1m30s") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// CursorConfig controls subscriber cursor persistence.
type CursorConfig struct {
	DataDir string `yaml:"data_dir"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			JSON:  true,
		},
		Bus: BusConfig{
			Workers:             8,
			QueueDepth:          1024,
			StoreCapacity:       5000,
			MaxMessagesPerBatch: 100,
		},
		Metrics: MetricsConfig{
			ListenAddr:      ":9090",
			CollectInterval: Duration(15 * time.Second),
		},
		Cursors: CursorConfig{
			DataDir: "/var/lib/signalbus",
		},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
