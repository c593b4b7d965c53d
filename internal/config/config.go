package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config values can be written as "500ms" or "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full configuration surface of a job run, mirroring config.yaml.
type Config struct {
	Driver struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"driver"`

	Directories struct {
		Input        string `yaml:"input"`
		Intermediate string `yaml:"intermediate"`
		Output       string `yaml:"output"`
	} `yaml:"directories"`

	MapReduce struct {
		NumMapTasks    int `yaml:"num_map_tasks"`
		NumReduceTasks int `yaml:"num_reduce_tasks"`
	} `yaml:"mapreduce"`

	TaskSettings struct {
		PollInterval Duration `yaml:"poll_interval"`
		TaskTimeout  Duration `yaml:"task_timeout"`
	} `yaml:"task_settings"`

	Workers struct {
		Count   int      `yaml:"count"`
		Stagger Duration `yaml:"stagger"`
	} `yaml:"workers"`

	Discovery struct {
		Enabled  bool   `yaml:"enabled"`
		BindAddr string `yaml:"bind_addr"`
		BasePort int    `yaml:"base_port"`
	} `yaml:"discovery"`
}

// Default returns a runnable local configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Driver.Host = "127.0.0.1"
	cfg.Driver.Port = 8090
	cfg.Directories.Input = "files/inputs"
	cfg.Directories.Intermediate = "files/intermediate"
	cfg.Directories.Output = "files/out"
	cfg.MapReduce.NumMapTasks = 6
	cfg.MapReduce.NumReduceTasks = 4
	cfg.TaskSettings.PollInterval = Duration(500 * time.Millisecond)
	cfg.TaskSettings.TaskTimeout = Duration(10 * time.Second)
	cfg.Workers.Count = 4
	cfg.Workers.Stagger = Duration(200 * time.Millisecond)
	cfg.Discovery.Enabled = false
	cfg.Discovery.BindAddr = "127.0.0.1"
	cfg.Discovery.BasePort = 7946
	return cfg
}

// Load reads a YAML config file, falling back to defaults for absent fields.
// An empty path returns the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the scheduler depends on.
func (c *Config) Validate() error {
	if c.MapReduce.NumMapTasks < 1 {
		return fmt.Errorf("num_map_tasks must be at least 1, got %d", c.MapReduce.NumMapTasks)
	}
	if c.MapReduce.NumReduceTasks < 1 {
		return fmt.Errorf("num_reduce_tasks must be at least 1, got %d", c.MapReduce.NumReduceTasks)
	}
	if c.TaskSettings.PollInterval.Std() <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.TaskSettings.TaskTimeout.Std() <= 0 {
		return fmt.Errorf("task_timeout must be positive")
	}
	if c.Workers.Count < 1 {
		return fmt.Errorf("workers count must be at least 1, got %d", c.Workers.Count)
	}
	return nil
}

// DriverURL is the base URL workers poll.
func (c *Config) DriverURL() string {
	return fmt.Sprintf("http://%s:%d", c.Driver.Host, c.Driver.Port)
}
