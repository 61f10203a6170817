package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DaemonConfig describes the inference daemon the scanner supervises.
// Durations are in the units their names state, matching the YAML keys.
type DaemonConfig struct {
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args,omitempty"`
	LogFile    string   `yaml:"logfile,omitempty"`
	ReadyURL   string   `yaml:"ready_url,omitempty"`
	PollMillis int      `yaml:"poll_ms,omitempty"`
	ReadySecs  int      `yaml:"ready_timeout,omitempty"`
	WarmupSecs int      `yaml:"warmup,omitempty"`
	StopSecs   int      `yaml:"stoptimeout,omitempty"`
}

// ScanConfig describes the audit workload.
type ScanConfig struct {
	Model        string `yaml:"model,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`
	OutputDir    string `yaml:"output_dir,omitempty"`
	SitesFile    string `yaml:"sites,omitempty"`
	Concurrency  int    `yaml:"concurrency,omitempty"`
	SettleMillis int    `yaml:"settle_ms,omitempty"`
	NavSecs      int    `yaml:"nav_timeout,omitempty"`
}

type Config struct {
	Daemon DaemonConfig `yaml:"daemon"`
	Scan   ScanConfig   `yaml:"scan"`
}

// Default returns the configuration used when no file is present: a local
// ollama daemon and the stock audit settings.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file and fills in defaults for anything omitted.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	d := &c.Daemon
	if d.Command == "" {
		d.Command = "ollama"
		if len(d.Args) == 0 {
			d.Args = []string{"serve"}
		}
	}
	if d.LogFile == "" {
		d.LogFile = "ollama.log"
	}
	if d.ReadyURL == "" {
		d.ReadyURL = "http://127.0.0.1:11434/"
	}
	if d.PollMillis == 0 {
		d.PollMillis = 500
	}
	if d.ReadySecs == 0 {
		d.ReadySecs = 60
	}
	if d.WarmupSecs == 0 {
		d.WarmupSecs = 5
	}
	if d.StopSecs == 0 {
		d.StopSecs = 10
	}

	s := &c.Scan
	if s.Model == "" {
		s.Model = os.Getenv("OLLAMA_MODEL")
	}
	if s.Model == "" {
		s.Model = "llama3"
	}
	if s.BaseURL == "" {
		s.BaseURL = "http://127.0.0.1:11434/v1"
	}
	if s.OutputDir == "" {
		s.OutputDir = "output"
	}
	if s.SitesFile == "" {
		s.SitesFile = "sites.csv"
	}
	if s.Concurrency == 0 {
		s.Concurrency = 2
	}
	if s.SettleMillis == 0 {
		s.SettleMillis = 3000
	}
	if s.NavSecs == 0 {
		s.NavSecs = 60
	}
}
